package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/schema"
)

// SemesterRepository manages hostel semesters.
type SemesterRepository struct {
	db     *sqlx.DB
	schema schema.Resolver
}

// NewSemesterRepository constructs SemesterRepository.
func NewSemesterRepository(db *sqlx.DB, resolver schema.Resolver) *SemesterRepository {
	return &SemesterRepository{db: db, schema: resolver}
}

func (r *SemesterRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const semesterColumns = `id, hostel_id, name, start_date, end_date, is_current`

// FindByID returns the semester. It returns (nil, nil) when the deployment has no semesters
// table, in which case callers skip semester checks.
func (r *SemesterRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Semester, error) {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !s.HasSemesters {
		return nil, nil
	}
	var semester models.Semester
	query := `SELECT ` + semesterColumns + ` FROM semesters WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.exec(exec), &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// Current returns the hostel's current semester, sql.ErrNoRows when none is flagged, and
// (nil, nil) when semesters are unsupported.
func (r *SemesterRepository) Current(ctx context.Context, hostelID string) (*models.Semester, error) {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !s.HasSemesters {
		return nil, nil
	}
	var semester models.Semester
	query := `SELECT ` + semesterColumns + ` FROM semesters WHERE hostel_id = $1 AND is_current = TRUE ORDER BY start_date DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &semester, query, hostelID); err != nil {
		return nil, err
	}
	return &semester, nil
}

// SetCurrent flags one semester as current and clears the flag on every other semester of the
// hostel. The hostel's semester rows are locked first so concurrent flips serialise.
func (r *SemesterRepository) SetCurrent(ctx context.Context, exec sqlx.ExtContext, hostelID, semesterID string) error {
	target := r.exec(exec)
	var ids []string
	if err := sqlx.SelectContext(ctx, target, &ids, `SELECT id FROM semesters WHERE hostel_id = $1 ORDER BY id FOR UPDATE`, hostelID); err != nil {
		return fmt.Errorf("lock hostel semesters: %w", err)
	}
	found := false
	for _, id := range ids {
		if id == semesterID {
			found = true
			break
		}
	}
	if !found {
		return sql.ErrNoRows
	}
	if _, err := target.ExecContext(ctx, `UPDATE semesters SET is_current = (id = $2) WHERE hostel_id = $1`, hostelID, semesterID); err != nil {
		return fmt.Errorf("set current semester: %w", err)
	}
	return nil
}
