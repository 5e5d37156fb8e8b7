package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/schema"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

// LedgerRepository appends resident payments to the payments table, writing only the columns
// the deployment has.
type LedgerRepository struct {
	db     *sqlx.DB
	schema schema.Resolver
}

// NewLedgerRepository constructs LedgerRepository.
func NewLedgerRepository(db *sqlx.DB, resolver schema.Resolver) *LedgerRepository {
	return &LedgerRepository{db: db, schema: resolver}
}

func (r *LedgerRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a ledger row. Hostel, semester, method and source reference are dropped when
// the schema lacks their columns.
func (r *LedgerRepository) Create(ctx context.Context, exec sqlx.ExtContext, payment *models.LedgerPayment) error {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return err
	}
	if !s.HasPayments {
		return appErrors.Clone(appErrors.ErrDependencyFailure, "payments ledger is not available")
	}
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	columns := []string{"id", schema.Column("", s.PaymentResidentColumn), "amount", "reference", "recorded_by", "created_at"}
	args := []interface{}{payment.ID, payment.ResidentID, payment.Amount, payment.Reference, payment.RecordedBy, payment.CreatedAt}
	if s.PaymentHasHostel {
		columns = append(columns, "hostel_id")
		args = append(args, payment.HostelID)
	} else {
		payment.HostelID = nil
	}
	if s.PaymentHasSemester {
		columns = append(columns, "semester_id")
		args = append(args, payment.SemesterID)
	} else {
		payment.SemesterID = nil
	}
	if s.PaymentHasMethod {
		columns = append(columns, schema.Column("", s.PaymentMethodColumn))
		args = append(args, payment.Method)
	}
	if s.PaymentHasSourceRef {
		columns = append(columns, "source_booking_payment_id")
		args = append(args, payment.SourceBookingPaymentID)
	} else {
		payment.SourceBookingPaymentID = nil
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO payments (%s) VALUES (%s)", strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := r.exec(exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert ledger payment: %w", err)
	}
	return nil
}

// ExistsForSource reports whether a booking payment was already mirrored into the ledger.
func (r *LedgerRepository) ExistsForSource(ctx context.Context, exec sqlx.ExtContext, bookingPaymentID string) (bool, error) {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return false, err
	}
	if !s.PaymentHasSourceRef {
		return false, nil
	}
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM payments WHERE source_booking_payment_id = $1)`
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, bookingPaymentID); err != nil {
		return false, fmt.Errorf("check mirrored payment: %w", err)
	}
	return exists, nil
}

// SumForResident totals a resident's ledger money, scoped to hostel and semester where the
// schema allows.
func (r *LedgerRepository) SumForResident(ctx context.Context, exec sqlx.ExtContext, residentID, hostelID, semesterID string) (decimal.Decimal, error) {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if !s.HasPayments {
		return decimal.Zero, nil
	}
	query, args := schema.NewQuery(`SELECT COALESCE(SUM(p.amount), 0) FROM payments p`).
		Where(schema.Column("p", s.PaymentResidentColumn)+" = ?", residentID).
		WhereIf(s.PaymentHasHostel && hostelID != "", "p.hostel_id = ?", hostelID).
		WhereIf(s.PaymentHasSemester && semesterID != "", "p.semester_id = ?", semesterID).
		Build()
	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, r.exec(exec), &total, query, args...); err != nil {
		return decimal.Zero, fmt.Errorf("sum resident ledger: %w", err)
	}
	return total, nil
}
