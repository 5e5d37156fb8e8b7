package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-booking-api/internal/models"
)

// BookingPaymentRepository appends payment events to bookings. Rows are never updated.
type BookingPaymentRepository struct {
	db *sqlx.DB
}

// NewBookingPaymentRepository constructs BookingPaymentRepository.
func NewBookingPaymentRepository(db *sqlx.DB) *BookingPaymentRepository {
	return &BookingPaymentRepository{db: db}
}

func (r *BookingPaymentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a payment row.
func (r *BookingPaymentRepository) Create(ctx context.Context, exec sqlx.ExtContext, payment *models.BookingPayment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO booking_payments (id, booking_id, amount, method, status, reference, recorded_by, created_at)
VALUES (:id, :booking_id, :amount, :method, :status, :reference, :recorded_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, payment); err != nil {
		return fmt.Errorf("insert booking payment: %w", err)
	}
	return nil
}

// ListByBooking returns every payment row of a booking, oldest first.
func (r *BookingPaymentRepository) ListByBooking(ctx context.Context, exec sqlx.ExtContext, bookingID string) ([]models.BookingPayment, error) {
	const query = `SELECT id, booking_id, amount, method, status, reference, recorded_by, created_at
FROM booking_payments WHERE booking_id = $1 ORDER BY created_at, id`
	var payments []models.BookingPayment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &payments, query, bookingID); err != nil {
		return nil, fmt.Errorf("list booking payments: %w", err)
	}
	return payments, nil
}
