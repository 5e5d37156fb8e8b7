package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/schema"
)

func TestResidentRepositoryLockByEmailIsCaseInsensitive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResidentRepository(db, schema.Static(schema.Current()))

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE LOWER(email) = $1 FOR UPDATE")).
		WithArgs("jane@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "phone", "password_hash", "created_at"}).
			AddRow("res-1", "Jane", "jane@example.com", "+256772123456", "hash", time.Now()))

	resident, err := repo.LockByEmail(context.Background(), nil, " Jane@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "res-1", resident.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentRepositoryLockActiveAssignment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResidentRepository(db, schema.Static(schema.Current()))

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE a."student_id" = $1 AND a.status = $2 AND a.semester_id = $3 ORDER BY a.assigned_at DESC LIMIT 1 FOR UPDATE OF a`)).
		WithArgs("res-1", "active", "sem-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "resident_id", "room_id", "semester_id", "status", "assigned_at", "room_price", "hostel_id"}).
			AddRow("asg-1", "res-1", "room-1", "sem-1", "active", time.Now(), "100", "hostel-1"))

	assignment, err := repo.LockActiveAssignment(context.Background(), nil, "res-1", "sem-1")
	require.NoError(t, err)
	assert.Equal(t, "room-1", assignment.RoomID)
	assert.True(t, assignment.RoomPrice.Equal(decimal.NewFromInt(100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentRepositoryCreateAssignmentWithoutSemesterColumn(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	s := schema.Current()
	s.AssignmentResidentColumn = "user_id"
	s.AssignmentHasSemester = false
	repo := NewResidentRepository(db, schema.Static(s))

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO student_room_assignments (id, "user_id", room_id, status, assigned_at) VALUES ($1, $2, $3, $4, $5)`)).
		WithArgs(sqlmock.AnyArg(), "res-1", "room-1", "active", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sem := "sem-1"
	require.NoError(t, repo.CreateAssignment(context.Background(), nil, &models.ResidentAssignment{ResidentID: "res-1", RoomID: "room-1", SemesterID: &sem}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentRepositoryUpdateEnrollmentRecomputesBalance(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResidentRepository(db, schema.Static(schema.Current()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_semester_enrollments SET total_amount = $2, amount_paid = $3, balance = $4, enrollment_status = $5 WHERE id = $1")).
		WithArgs("enr-1", decimal.NewFromInt(100), decimal.NewFromInt(100), decimal.Zero, "paid").
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.SemesterEnrollment{ID: "enr-1", TotalAmount: decimal.NewFromInt(100), AmountPaid: decimal.NewFromInt(100), Balance: decimal.NewFromInt(40)}
	require.NoError(t, repo.UpdateEnrollment(context.Background(), nil, enrollment))
	assert.True(t, enrollment.Balance.IsZero())
	assert.Equal(t, models.EnrollmentStatusPaid, enrollment.EnrollmentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
