package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/schema"
)

// ResidentRepository persists resident accounts, room assignments and semester enrollments.
type ResidentRepository struct {
	db     *sqlx.DB
	schema schema.Resolver
}

// NewResidentRepository constructs ResidentRepository.
func NewResidentRepository(db *sqlx.DB, resolver schema.Resolver) *ResidentRepository {
	return &ResidentRepository{db: db, schema: resolver}
}

func (r *ResidentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const residentColumns = `id, full_name, email, phone, password_hash, created_at`

// FindByID loads a resident.
func (r *ResidentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Resident, error) {
	var resident models.Resident
	if err := sqlx.GetContext(ctx, r.exec(exec), &resident, `SELECT `+residentColumns+` FROM students WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &resident, nil
}

// LockByEmail loads a resident by email (case-insensitive) and locks the row.
func (r *ResidentRepository) LockByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Resident, error) {
	var resident models.Resident
	query := `SELECT ` + residentColumns + ` FROM students WHERE LOWER(email) = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.exec(exec), &resident, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return &resident, nil
}

// Create inserts a resident account.
func (r *ResidentRepository) Create(ctx context.Context, exec sqlx.ExtContext, resident *models.Resident) error {
	if resident.ID == "" {
		resident.ID = uuid.NewString()
	}
	if resident.CreatedAt.IsZero() {
		resident.CreatedAt = time.Now().UTC()
	}
	resident.Email = strings.ToLower(strings.TrimSpace(resident.Email))
	const query = `INSERT INTO students (id, full_name, email, phone, password_hash, created_at)
VALUES (:id, :full_name, :email, :phone, :password_hash, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, resident); err != nil {
		return fmt.Errorf("insert resident: %w", err)
	}
	return nil
}

// LockActiveAssignment returns the resident's active assignment for the semester, locked, joined
// with the room's price and hostel. Without a semester column any active assignment matches.
func (r *ResidentRepository) LockActiveAssignment(ctx context.Context, exec sqlx.ExtContext, residentID, semesterID string) (*models.ResidentAssignment, error) {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	semesterCol := "NULL::text"
	if s.AssignmentHasSemester {
		semesterCol = "a.semester_id"
	}
	base := fmt.Sprintf(`SELECT a.id, %s AS resident_id, a.room_id, %s AS semester_id, a.status, a.assigned_at,
 %s AS room_price, rm.hostel_id
 FROM student_room_assignments a JOIN rooms rm ON rm.id = a.room_id`,
		schema.Column("a", s.AssignmentResidentColumn), semesterCol, s.RoomPriceExpr("rm"))
	query, args := schema.NewQuery(base).
		Where(schema.Column("a", s.AssignmentResidentColumn)+" = ?", residentID).
		Where("a.status = ?", models.AssignmentStatusActive).
		WhereIf(s.AssignmentHasSemester && semesterID != "", "a.semester_id = ?", semesterID).
		Suffix("ORDER BY a.assigned_at DESC LIMIT 1 FOR UPDATE OF a").
		Build()
	var assignment models.ResidentAssignment
	if err := sqlx.GetContext(ctx, r.exec(exec), &assignment, query, args...); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// CreateAssignment inserts an assignment row.
func (r *ResidentRepository) CreateAssignment(ctx context.Context, exec sqlx.ExtContext, assignment *models.ResidentAssignment) error {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return err
	}
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	if assignment.Status == "" {
		assignment.Status = models.AssignmentStatusActive
	}
	resident := schema.Column("", s.AssignmentResidentColumn)
	var (
		query string
		args  []interface{}
	)
	if s.AssignmentHasSemester {
		query = fmt.Sprintf(`INSERT INTO student_room_assignments (id, %s, room_id, semester_id, status, assigned_at) VALUES ($1, $2, $3, $4, $5, $6)`, resident)
		args = []interface{}{assignment.ID, assignment.ResidentID, assignment.RoomID, assignment.SemesterID, assignment.Status, assignment.AssignedAt}
	} else {
		query = fmt.Sprintf(`INSERT INTO student_room_assignments (id, %s, room_id, status, assigned_at) VALUES ($1, $2, $3, $4, $5)`, resident)
		args = []interface{}{assignment.ID, assignment.ResidentID, assignment.RoomID, assignment.Status, assignment.AssignedAt}
	}
	if _, err := r.exec(exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert room assignment: %w", err)
	}
	return nil
}

// CompleteAssignment ends an active assignment.
func (r *ResidentRepository) CompleteAssignment(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE student_room_assignments SET status = 'completed' WHERE id = $1 AND status = 'active'`
	if _, err := r.exec(exec).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("complete room assignment: %w", err)
	}
	return nil
}

func enrollmentSelect(s schema.LogicalSchema) string {
	return fmt.Sprintf(`SELECT e.id, %s AS resident_id, e.semester_id, e.total_amount, e.amount_paid, e.balance, e.enrollment_status
 FROM student_semester_enrollments e WHERE %s = $1 AND e.semester_id = $2`,
		schema.Column("e", s.EnrollmentResidentColumn), schema.Column("e", s.EnrollmentResidentColumn))
}

// LockEnrollment loads the (resident, semester) enrollment holding its row lock.
func (r *ResidentRepository) LockEnrollment(ctx context.Context, exec sqlx.ExtContext, residentID, semesterID string) (*models.SemesterEnrollment, error) {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	var enrollment models.SemesterEnrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, enrollmentSelect(s)+" FOR UPDATE", residentID, semesterID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CreateEnrollment inserts an enrollment.
func (r *ResidentRepository) CreateEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollment *models.SemesterEnrollment) error {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return err
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	enrollment.Refresh()
	query := fmt.Sprintf(`INSERT INTO student_semester_enrollments (id, %s, semester_id, total_amount, amount_paid, balance, enrollment_status)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, schema.Column("", s.EnrollmentResidentColumn))
	if _, err := r.exec(exec).ExecContext(ctx, query, enrollment.ID, enrollment.ResidentID, enrollment.SemesterID,
		enrollment.TotalAmount, enrollment.AmountPaid, enrollment.Balance, enrollment.EnrollmentStatus); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// UpdateEnrollment writes the money fields of an enrollment.
func (r *ResidentRepository) UpdateEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollment *models.SemesterEnrollment) error {
	enrollment.Refresh()
	const query = `UPDATE student_semester_enrollments SET total_amount = $2, amount_paid = $3, balance = $4, enrollment_status = $5 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, enrollment.ID, enrollment.TotalAmount, enrollment.AmountPaid, enrollment.Balance, enrollment.EnrollmentStatus); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}
