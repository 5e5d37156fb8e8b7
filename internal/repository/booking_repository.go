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

// BookingRepository persists bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const bookingColumns = `id, hostel_id, semester_id, room_id, source, student_name, student_email, student_phone, gender,
 amount_due, amount_paid, payment_status, status, verification_code, resident_id, checked_in_at, cancelled_at, created_at, updated_at`

// Create inserts a new booking.
func (r *BookingRepository) Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = booking.CreatedAt

	const query = `INSERT INTO bookings (id, hostel_id, semester_id, room_id, source, student_name, student_email, student_phone, gender,
 amount_due, amount_paid, payment_status, status, verification_code, created_at, updated_at)
VALUES (:id, :hostel_id, :semester_id, :room_id, :source, :student_name, :student_email, :student_phone, :gender,
 :amount_due, :amount_paid, :payment_status, :status, :verification_code, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, booking); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// FindByID loads a booking without locking.
func (r *BookingRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := sqlx.GetContext(ctx, r.exec(exec), &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id); err != nil {
		return nil, err
	}
	booking.Refresh()
	return &booking, nil
}

// Lock loads a booking holding its row lock for the rest of the transaction.
func (r *BookingRepository) Lock(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := sqlx.GetContext(ctx, r.exec(exec), &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, err
	}
	booking.Refresh()
	return &booking, nil
}

// FindByVerificationCode loads a booking by its issued code.
func (r *BookingRepository) FindByVerificationCode(ctx context.Context, code string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE verification_code = $1`, code); err != nil {
		return nil, err
	}
	booking.Refresh()
	return &booking, nil
}

// VerificationCodeExists reports whether any booking already carries the code.
func (r *BookingRepository) VerificationCodeExists(ctx context.Context, exec sqlx.ExtContext, code string) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, `SELECT EXISTS(SELECT 1 FROM bookings WHERE verification_code = $1)`, code); err != nil {
		return false, fmt.Errorf("check verification code: %w", err)
	}
	return exists, nil
}

// IssueVerificationCode sets the code and moves the booking to booked. The code column is only
// written while NULL, so an issued code is never replaced.
func (r *BookingRepository) IssueVerificationCode(ctx context.Context, exec sqlx.ExtContext, id, code string) (bool, error) {
	const query = `UPDATE bookings SET verification_code = $2, status = 'booked', updated_at = $3
 WHERE id = $1 AND verification_code IS NULL`
	res, err := r.exec(exec).ExecContext(ctx, query, id, code, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("issue verification code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("issue verification code: %w", err)
	}
	return affected == 1, nil
}

// Update writes the mutable lifecycle and money fields of a booking.
func (r *BookingRepository) Update(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	const query = `UPDATE bookings SET room_id = :room_id, amount_due = :amount_due, amount_paid = :amount_paid,
 payment_status = :payment_status, status = :status, resident_id = :resident_id, checked_in_at = :checked_in_at,
 cancelled_at = :cancelled_at, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, booking); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

// List returns bookings matching the filter and the total match count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	page, size := normalisePage(filter.Page, filter.PageSize)
	search := strings.TrimSpace(filter.Search)

	scope := func(q *schema.Query) *schema.Query {
		return q.
			WhereIf(filter.HostelID != "", "hostel_id = ?", filter.HostelID).
			WhereIf(filter.SemesterID != "", "semester_id = ?", filter.SemesterID).
			WhereIf(filter.RoomID != "", "room_id = ?", filter.RoomID).
			WhereIf(filter.Status != "", "status = ?", filter.Status).
			WhereIf(filter.Source != "", "source = ?", filter.Source).
			WhereIf(search != "", "(student_name ILIKE ? OR student_email ILIKE ? OR verification_code = ?)", "%"+search+"%", "%"+search+"%", strings.ToUpper(search))
	}

	countSQL, countArgs := scope(schema.NewQuery(`SELECT COUNT(*) FROM bookings`)).Build()
	var total int
	if err := r.db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	listSQL, listArgs := scope(schema.NewQuery(`SELECT `+bookingColumns+` FROM bookings`)).
		Suffix("ORDER BY created_at DESC, id LIMIT ? OFFSET ?", size, (page-1)*size).
		Build()
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, listSQL, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	for i := range bookings {
		bookings[i].Refresh()
	}
	return bookings, total, nil
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
