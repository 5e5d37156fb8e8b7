package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/schema"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

type bookingPaymentStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, payment *models.BookingPayment) error
	ListByBooking(ctx context.Context, exec sqlx.ExtContext, bookingID string) ([]models.BookingPayment, error)
}

type ledgerStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, payment *models.LedgerPayment) error
	ExistsForSource(ctx context.Context, exec sqlx.ExtContext, bookingPaymentID string) (bool, error)
	SumForResident(ctx context.Context, exec sqlx.ExtContext, residentID, hostelID, semesterID string) (decimal.Decimal, error)
}

type bookingWriter interface {
	Update(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error
}

// summaryInvalidator drops cached reconciliation results for a hostel after a write.
type summaryInvalidator interface {
	Invalidate(ctx context.Context, hostelID string)
}

// BookingPaymentRequest is a payment applied to a booking.
type BookingPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" swaggertype:"number"`
	Method    string          `json:"method" validate:"required,oneof=cash mobile_money"`
	Status    string          `json:"status" validate:"omitempty,oneof=pending completed failed"`
	Reference string          `json:"reference" validate:"omitempty,max=120"`
}

// ResidentPaymentRequest is a walk-in payment recorded against a resident.
type ResidentPaymentRequest struct {
	ResidentID string          `json:"-" validate:"required"`
	HostelID   string          `json:"hostel_id"`
	SemesterID string          `json:"semester_id"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"number"`
	Method     string          `json:"method" validate:"required,oneof=cash mobile_money bank_transfer"`
	Reference  string          `json:"reference" validate:"omitempty,max=120"`
}

// LedgerServiceParams groups LedgerService dependencies.
type LedgerServiceParams struct {
	Tx          txRunner
	Schema      schema.Resolver
	Bookings    bookingWriter
	Payments    bookingPaymentStore
	Ledger      ledgerStore
	Residents   residentStore
	Semesters   semesterStore
	Notifier    notifier
	Invalidator summaryInvalidator
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// LedgerService records payment events and keeps running balances consistent with them.
type LedgerService struct {
	tx          txRunner
	schema      schema.Resolver
	bookings    bookingWriter
	payments    bookingPaymentStore
	ledger      ledgerStore
	residents   residentStore
	semesters   semesterStore
	notifier    notifier
	invalidator summaryInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewLedgerService constructs LedgerService.
func NewLedgerService(p LedgerServiceParams) *LedgerService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &LedgerService{
		tx:          p.Tx,
		schema:      p.Schema,
		bookings:    p.Bookings,
		payments:    p.Payments,
		ledger:      p.Ledger,
		residents:   p.Residents,
		semesters:   p.Semesters,
		notifier:    p.Notifier,
		invalidator: p.Invalidator,
		metrics:     p.Metrics,
		validator:   p.Validator,
		logger:      p.Logger,
	}
}

// ValidateBookingPayment rejects malformed booking payments before any write.
func (s *LedgerService) ValidateBookingPayment(req BookingPaymentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}
	return nil
}

// RecordBookingPayment inserts a payment row for a booking that the caller has locked in tx.
// Completed payments raise amount_paid; the booking is updated in place.
func (s *LedgerService) RecordBookingPayment(ctx context.Context, tx sqlx.ExtContext, booking *models.Booking, req BookingPaymentRequest, actor string) (*models.BookingPayment, error) {
	if err := s.ValidateBookingPayment(req); err != nil {
		return nil, err
	}
	status := models.PaymentRecordStatus(req.Status)
	if status == "" {
		status = models.PaymentRecordCompleted
	}
	if err := checkOutstanding(booking.Outstanding(), req.Amount); err != nil {
		return nil, err
	}

	payment := &models.BookingPayment{
		BookingID:  booking.ID,
		Amount:     req.Amount,
		Method:     models.PaymentMethod(req.Method),
		Status:     status,
		Reference:  optionalString(req.Reference),
		RecordedBy: optionalString(actor),
	}
	if err := s.payments.Create(ctx, tx, payment); err != nil {
		return nil, wrapStoreError(err, "failed to record booking payment")
	}
	if status != models.PaymentRecordCompleted {
		return payment, nil
	}

	booking.AmountPaid = booking.AmountPaid.Add(req.Amount)
	booking.Refresh()
	if err := s.bookings.Update(ctx, tx, booking); err != nil {
		return nil, wrapStoreError(err, "failed to update booking balance")
	}
	return payment, nil
}

// RecordResidentPayment records a ledger payment for a resident in its own transaction. The
// target is the resident's semester enrollment; deployments without enrollments fall back to the
// active assignment's room price minus what the ledger already holds.
func (s *LedgerService) RecordResidentPayment(ctx context.Context, req ResidentPaymentRequest, actor string) (*models.ResidentPaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}
	logical, err := s.schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !logical.HasPayments {
		return nil, appErrors.Clone(appErrors.ErrDependencyFailure, "payments ledger is not available")
	}

	var (
		result   *models.ResidentPaymentResult
		hostelID string
	)
	err = s.tx.InTx(ctx, func(tx sqlx.ExtContext) error {
		var err error
		if logical.HasEnrollments {
			result, hostelID, err = s.payEnrollment(ctx, tx, req, actor)
		} else {
			result, hostelID, err = s.payLegacy(ctx, tx, req, actor)
		}
		return err
	})
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrBalanceViolation.Code) {
			s.metrics.RecordEvent(EventBalanceRejected)
		}
		return nil, err
	}

	s.metrics.RecordPayment("ledger", string(result.Payment.Method), string(models.PaymentRecordCompleted), result.Payment.Amount)
	if result.Clamped {
		s.metrics.RecordEvent(EventLegacyClamp)
	}
	if s.invalidator != nil && hostelID != "" {
		s.invalidator.Invalidate(ctx, hostelID)
	}
	if s.notifier != nil {
		if resident, err := s.residents.FindByID(ctx, nil, req.ResidentID); err == nil {
			s.notifier.ResidentReceipt(ctx, resident, result.Payment, result.Balance)
		} else {
			s.logger.Warn("resident lookup for receipt failed", zap.String("resident_id", req.ResidentID), zap.Error(err))
		}
	}
	return result, nil
}

func (s *LedgerService) payEnrollment(ctx context.Context, tx sqlx.ExtContext, req ResidentPaymentRequest, actor string) (*models.ResidentPaymentResult, string, error) {
	hostelID := req.HostelID
	semesterID := req.SemesterID
	if semesterID == "" || hostelID == "" {
		assignment, err := s.residents.LockActiveAssignment(ctx, tx, req.ResidentID, semesterID)
		switch {
		case err == nil:
			if hostelID == "" {
				hostelID = assignment.HostelID
			}
			if semesterID == "" && assignment.SemesterID != nil {
				semesterID = *assignment.SemesterID
			}
		case !errors.Is(err, sql.ErrNoRows):
			return nil, "", wrapStoreError(err, "failed to load room assignment")
		}
	}
	if semesterID == "" && hostelID != "" && s.semesters != nil {
		current, err := s.semesters.Current(ctx, hostelID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, "", wrapStoreError(err, "failed to resolve current semester")
		}
		if current != nil {
			semesterID = current.ID
		}
	}
	if semesterID == "" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "semester_id is required")
	}

	enrollment, err := s.residents.LockEnrollment(ctx, tx, req.ResidentID, semesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrStatePrecondition, "resident is not enrolled for the semester")
		}
		return nil, "", wrapStoreError(err, "failed to load enrollment")
	}
	if err := checkOutstanding(models.Outstanding(enrollment.TotalAmount, enrollment.AmountPaid), req.Amount); err != nil {
		return nil, "", err
	}

	payment := &models.LedgerPayment{
		ResidentID: req.ResidentID,
		HostelID:   optionalString(hostelID),
		SemesterID: optionalString(semesterID),
		Amount:     req.Amount,
		Method:     models.PaymentMethod(req.Method),
		Reference:  optionalString(req.Reference),
		RecordedBy: optionalString(actor),
	}
	if err := s.ledger.Create(ctx, tx, payment); err != nil {
		return nil, "", wrapStoreError(err, "failed to record ledger payment")
	}
	enrollment.AmountPaid = enrollment.AmountPaid.Add(req.Amount)
	if err := s.residents.UpdateEnrollment(ctx, tx, enrollment); err != nil {
		return nil, "", wrapStoreError(err, "failed to update enrollment")
	}
	return &models.ResidentPaymentResult{Payment: payment, Enrollment: enrollment, Balance: enrollment.Balance}, hostelID, nil
}

// payLegacy serves schemas without enrollments. Amounts above the outstanding balance are clamped
// rather than rejected, matching how those deployments always recorded direct payments.
func (s *LedgerService) payLegacy(ctx context.Context, tx sqlx.ExtContext, req ResidentPaymentRequest, actor string) (*models.ResidentPaymentResult, string, error) {
	assignment, err := s.residents.LockActiveAssignment(ctx, tx, req.ResidentID, req.SemesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrStatePrecondition, "resident has no active room assignment")
		}
		return nil, "", wrapStoreError(err, "failed to load room assignment")
	}
	paid, err := s.ledger.SumForResident(ctx, tx, req.ResidentID, assignment.HostelID, req.SemesterID)
	if err != nil {
		return nil, "", wrapStoreError(err, "failed to sum resident payments")
	}
	outstanding := models.Outstanding(assignment.RoomPrice, paid)
	if outstanding.IsZero() {
		return nil, "", appErrors.Clone(appErrors.ErrBalanceViolation, "nothing owed")
	}

	amount := req.Amount
	clamped := false
	if amount.GreaterThan(outstanding) {
		s.logger.Warn("legacy payment clamped to outstanding balance",
			zap.String("resident_id", req.ResidentID),
			zap.String("requested", amount.String()),
			zap.String("outstanding", outstanding.String()),
		)
		amount = outstanding
		clamped = true
	}

	payment := &models.LedgerPayment{
		ResidentID: req.ResidentID,
		HostelID:   optionalString(assignment.HostelID),
		SemesterID: optionalString(req.SemesterID),
		Amount:     amount,
		Method:     models.PaymentMethod(req.Method),
		Reference:  optionalString(req.Reference),
		RecordedBy: optionalString(actor),
	}
	if err := s.ledger.Create(ctx, tx, payment); err != nil {
		return nil, "", wrapStoreError(err, "failed to record ledger payment")
	}
	return &models.ResidentPaymentResult{Payment: payment, Balance: outstanding.Sub(amount), Clamped: clamped}, assignment.HostelID, nil
}

// checkOutstanding enforces that a payment neither targets a settled balance nor exceeds it.
func checkOutstanding(outstanding, amount decimal.Decimal) error {
	if !outstanding.IsPositive() {
		return appErrors.Clone(appErrors.ErrBalanceViolation, "nothing owed")
	}
	if amount.GreaterThan(outstanding) {
		return appErrors.Clone(appErrors.ErrBalanceViolation, "payment exceeds outstanding balance of "+outstanding.StringFixed(2))
	}
	return nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
