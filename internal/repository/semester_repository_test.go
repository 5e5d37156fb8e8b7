package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-booking-api/internal/schema"
)

func TestSemesterRepositorySetCurrentFlipsFlags(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db, schema.Static(schema.Current()))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM semesters WHERE hostel_id = $1 ORDER BY id FOR UPDATE")).
		WithArgs("hostel-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sem-1").AddRow("sem-2"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE semesters SET is_current = (id = $2) WHERE hostel_id = $1")).
		WithArgs("hostel-1", "sem-2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.SetCurrent(context.Background(), nil, "hostel-1", "sem-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositorySetCurrentRejectsForeignSemester(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db, schema.Static(schema.Current()))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM semesters WHERE hostel_id = $1")).
		WithArgs("hostel-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sem-1"))

	err := repo.SetCurrent(context.Background(), nil, "hostel-1", "sem-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryWithoutSemestersTable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	s := schema.Current()
	s.HasSemesters = false
	repo := NewSemesterRepository(db, schema.Static(s))

	semester, err := repo.FindByID(context.Background(), nil, "sem-1")
	require.NoError(t, err)
	assert.Nil(t, semester)
	assert.NoError(t, mock.ExpectationsWereMet())
}
