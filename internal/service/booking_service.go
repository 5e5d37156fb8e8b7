package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/pkg/config"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/export"
)

// maxCodeAttempts bounds verification code generation before the transaction gives up.
const maxCodeAttempts = 5

type bookingStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error)
	Lock(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error)
	FindByVerificationCode(ctx context.Context, code string) (*models.Booking, error)
	VerificationCodeExists(ctx context.Context, exec sqlx.ExtContext, code string) (bool, error)
	IssueVerificationCode(ctx context.Context, exec sqlx.ExtContext, id, code string) (bool, error)
	Update(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

type residentRegistrar interface {
	RegisterResident(ctx context.Context, tx sqlx.ExtContext, in models.RegistrationInput) (*models.RegistrationResult, error)
	UpdateRoomOccupancy(ctx context.Context, tx sqlx.ExtContext, roomID, semesterID string) error
}

// CreateBookingRequest is the payload for new bookings from the front desk or the public form.
type CreateBookingRequest struct {
	HostelID     string  `json:"hostel_id" validate:"required"`
	SemesterID   string  `json:"semester_id"`
	RoomID       string  `json:"room_id"`
	Source       string  `json:"source" validate:"omitempty,oneof=on_site online"`
	StudentName  string  `json:"student_name" validate:"required,max=150"`
	StudentEmail string  `json:"student_email" validate:"required,email,max=190"`
	StudentPhone string  `json:"student_phone" validate:"required,max=32"`
	Gender       *string `json:"gender" validate:"omitempty,oneof=male female other"`
}

// AssignRoomRequest moves a booking to a room.
type AssignRoomRequest struct {
	RoomID string `json:"room_id" validate:"required"`
}

// CancelBookingRequest cancels a booking.
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

// ReceiptDocument is a rendered booking receipt.
type ReceiptDocument struct {
	Filename    string
	ContentType string
	Body        []byte
}

// BookingServiceParams groups BookingService dependencies.
type BookingServiceParams struct {
	Tx           txRunner
	Bookings     bookingStore
	Payments     bookingPaymentStore
	Semesters    semesterStore
	Capacity     *CapacityService
	Ledger       *LedgerService
	Registration residentRegistrar
	Notifier     notifier
	Invalidator  summaryInvalidator
	Metrics      *MetricsService
	Validator    *validator.Validate
	Logger       *zap.Logger
	Config       config.BookingConfig
	// CodeGenerator overrides verification code generation.
	CodeGenerator func(length int) (string, error)
	Now           func() time.Time
}

// BookingService drives bookings through pending, booked and checked_in.
type BookingService struct {
	tx           txRunner
	bookings     bookingStore
	payments     bookingPaymentStore
	semesters    semesterStore
	capacity     *CapacityService
	ledger       *LedgerService
	registration residentRegistrar
	notifier     notifier
	invalidator  summaryInvalidator
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          config.BookingConfig
	codes        func(length int) (string, error)
	now          func() time.Time
}

// NewBookingService constructs BookingService.
func NewBookingService(p BookingServiceParams) *BookingService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.CodeGenerator == nil {
		p.CodeGenerator = NewVerificationCode
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Config.VerificationLength <= 0 {
		p.Config.VerificationLength = 8
	}
	if p.Config.AmountPolicy == "" {
		p.Config.AmountPolicy = config.AmountPolicyRoomPrice
	}
	return &BookingService{
		tx:           p.Tx,
		bookings:     p.Bookings,
		payments:     p.Payments,
		semesters:    p.Semesters,
		capacity:     p.Capacity,
		ledger:       p.Ledger,
		registration: p.Registration,
		notifier:     p.Notifier,
		invalidator:  p.Invalidator,
		metrics:      p.Metrics,
		validator:    p.Validator,
		logger:       p.Logger,
		cfg:          p.Config,
		codes:        p.CodeGenerator,
		now:          p.Now,
	}
}

// Create admits a new booking. The room's capacity is re-checked under its row lock in the same
// transaction that inserts the booking.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	phone, err := normalisePhone(req.StudentPhone, s.cfg.PhoneRegion)
	if err != nil {
		return nil, err
	}
	roomID := strings.TrimSpace(req.RoomID)
	if s.cfg.AmountPolicy == config.AmountPolicyRoomPrice && roomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "room_id is required")
	}
	source := models.BookingSource(req.Source)
	if source == "" {
		source = models.BookingSourceOnSite
	}
	semesterID, err := s.resolveSemester(ctx, req.HostelID, req.SemesterID)
	if err != nil {
		return nil, err
	}

	var booking *models.Booking
	err = s.tx.InTx(ctx, func(tx sqlx.ExtContext) error {
		semester, err := s.semesters.FindByID(ctx, tx, semesterID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "semester not found")
			}
			return wrapStoreError(err, "failed to load semester")
		}
		if semester != nil && semester.HostelID != req.HostelID {
			return appErrors.Clone(appErrors.ErrValidation, "semester does not belong to hostel")
		}

		b := &models.Booking{
			HostelID:     req.HostelID,
			SemesterID:   semesterID,
			Source:       source,
			StudentName:  strings.TrimSpace(req.StudentName),
			StudentEmail: strings.ToLower(strings.TrimSpace(req.StudentEmail)),
			StudentPhone: phone,
			Gender:       req.Gender,
			AmountDue:    s.cfg.BookingFee,
			AmountPaid:   decimal.Zero,
			Status:       models.BookingStatusPending,
		}
		if roomID != "" {
			room, err := s.capacity.Admit(ctx, tx, roomID, semesterID)
			if err != nil {
				return err
			}
			if room.HostelID != req.HostelID {
				return appErrors.Clone(appErrors.ErrValidation, "room does not belong to hostel")
			}
			b.RoomID = &room.ID
			if s.cfg.AmountPolicy == config.AmountPolicyRoomPrice {
				b.AmountDue = room.Price
			}
		}
		b.Refresh()
		if err := s.bookings.Create(ctx, tx, b); err != nil {
			return wrapStoreError(err, "failed to create booking")
		}
		if b.AmountDue.IsZero() {
			if err := s.issueCode(ctx, tx, b); err != nil {
				return err
			}
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEvent(EventBookingCreated)
	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("hostel_id", booking.HostelID),
		zap.String("semester_id", booking.SemesterID),
		zap.String("source", string(booking.Source)),
		zap.String("amount_due", booking.AmountDue.String()),
	)
	s.invalidate(ctx, booking.HostelID)
	return booking, nil
}

// Get returns a booking.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// GetByVerificationCode returns the booking carrying the code.
func (s *BookingService) GetByVerificationCode(ctx context.Context, code string) (*models.Booking, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "verification code is required")
	}
	booking, err := s.bookings.FindByVerificationCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// List returns bookings matching filter with pagination metadata.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	items, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, nil, wrapStoreError(err, "failed to list bookings")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListPayments returns a booking's payment rows.
func (s *BookingService) ListPayments(ctx context.Context, id string) ([]models.BookingPayment, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByBooking(ctx, nil, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list booking payments")
	}
	return payments, nil
}

// ApplyPayment records a payment against a booking. Once the booking is fully paid a
// verification code is issued and the booking becomes booked.
func (s *BookingService) ApplyPayment(ctx context.Context, id string, req BookingPaymentRequest, actor string) (*models.BookingPaymentResult, error) {
	if err := s.ledger.ValidateBookingPayment(req); err != nil {
		return nil, err
	}

	var result *models.BookingPaymentResult
	err := s.tx.InTx(ctx, func(tx sqlx.ExtContext) error {
		booking, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		switch booking.Status {
		case models.BookingStatusCancelled:
			return appErrors.Clone(appErrors.ErrStatePrecondition, "booking is cancelled")
		case models.BookingStatusCheckedIn:
			return appErrors.Clone(appErrors.ErrStatePrecondition, "booking is already checked in; record resident payments instead")
		}
		payment, err := s.ledger.RecordBookingPayment(ctx, tx, booking, req, actor)
		if err != nil {
			return err
		}
		if booking.VerificationCode == nil && booking.AmountPaid.GreaterThanOrEqual(booking.AmountDue) {
			if err := s.issueCode(ctx, tx, booking); err != nil {
				return err
			}
		}
		result = &models.BookingPaymentResult{Booking: booking, Payment: payment, Balance: booking.Outstanding()}
		return nil
	})
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrBalanceViolation.Code) {
			s.metrics.RecordEvent(EventBalanceRejected)
		}
		return nil, err
	}

	s.metrics.RecordPayment("booking", string(result.Payment.Method), string(result.Payment.Status), result.Payment.Amount)
	s.logger.Info("booking payment recorded",
		zap.String("booking_id", id),
		zap.String("payment_id", result.Payment.ID),
		zap.String("amount", result.Payment.Amount.String()),
		zap.String("status", string(result.Payment.Status)),
		zap.String("balance", result.Balance.String()),
	)
	if result.Payment.Status == models.PaymentRecordCompleted && s.notifier != nil {
		s.notifier.PaymentReceipt(ctx, result.Booking, result.Payment)
	}
	s.invalidate(ctx, result.Booking.HostelID)
	return result, nil
}

// AssignRoom moves a live booking into a room, re-pricing it under the room price policy.
func (s *BookingService) AssignRoom(ctx context.Context, id string, req AssignRoomRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	var booking *models.Booking
	err := s.tx.InTx(ctx, func(tx sqlx.ExtContext) error {
		b, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !b.IsLive() {
			return appErrors.Clone(appErrors.ErrStatePrecondition, fmt.Sprintf("cannot change room of a %s booking", b.Status))
		}
		if b.RoomID != nil && *b.RoomID == req.RoomID {
			booking = b
			return nil
		}
		room, err := s.capacity.Admit(ctx, tx, req.RoomID, b.SemesterID)
		if err != nil {
			return err
		}
		if room.HostelID != b.HostelID {
			return appErrors.Clone(appErrors.ErrValidation, "room does not belong to hostel")
		}
		if s.cfg.AmountPolicy == config.AmountPolicyRoomPrice {
			if b.AmountPaid.GreaterThan(room.Price) {
				return appErrors.Clone(appErrors.ErrBalanceViolation, "amount already paid exceeds the new room price")
			}
			if b.VerificationCode != nil && room.Price.GreaterThan(b.AmountDue) {
				return appErrors.Clone(appErrors.ErrStatePrecondition, "fully paid booking cannot move to a more expensive room")
			}
			b.AmountDue = room.Price
		}
		b.RoomID = &room.ID
		b.Refresh()
		if err := s.bookings.Update(ctx, tx, b); err != nil {
			return wrapStoreError(err, "failed to update booking")
		}
		if b.VerificationCode == nil && b.AmountPaid.GreaterThanOrEqual(b.AmountDue) {
			if err := s.issueCode(ctx, tx, b); err != nil {
				return err
			}
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEvent(EventRoomAssigned)
	s.invalidate(ctx, booking.HostelID)
	return booking, nil
}

// CheckIn converts a fully paid booking into a resident. Registration runs inside the same
// transaction, so a registration failure leaves the booking untouched. Checking in an already
// checked-in booking returns it unchanged.
func (s *BookingService) CheckIn(ctx context.Context, id string, actor string) (*models.CheckInResult, error) {
	var (
		result       *models.CheckInResult
		registration *models.RegistrationResult
	)
	err := s.tx.InTx(ctx, func(tx sqlx.ExtContext) error {
		registration = nil
		b, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		switch {
		case b.Status == models.BookingStatusCheckedIn:
			result = &models.CheckInResult{Booking: b, ResidentID: derefString(b.ResidentID), AlreadyChecked: true}
			return nil
		case b.Status == models.BookingStatusCancelled:
			return appErrors.Clone(appErrors.ErrStatePrecondition, "booking is cancelled")
		case b.RoomID == nil:
			return appErrors.Clone(appErrors.ErrStatePrecondition, "booking has no room assigned")
		case b.SemesterID == "":
			return appErrors.Clone(appErrors.ErrStatePrecondition, "booking has no semester")
		case b.Outstanding().IsPositive():
			return appErrors.Clone(appErrors.ErrStatePrecondition, "outstanding balance of "+b.Outstanding().StringFixed(2)+" must be settled before check-in")
		}

		reg, err := s.registration.RegisterResident(ctx, tx, models.RegistrationInput{
			Profile: models.ResidentProfile{
				FullName: b.StudentName,
				Email:    b.StudentEmail,
				Phone:    b.StudentPhone,
			},
			HostelID:    b.HostelID,
			RoomID:      *b.RoomID,
			SemesterID:  b.SemesterID,
			BookingID:   b.ID,
			AmountDue:   b.AmountDue,
			InitialPaid: b.AmountPaid,
		})
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrDependencyFailure.Code, appErrors.ErrDependencyFailure.Status, "resident registration failed")
		}

		now := s.now().UTC()
		b.Status = models.BookingStatusCheckedIn
		b.ResidentID = &reg.ResidentID
		b.CheckedInAt = &now
		if err := s.bookings.Update(ctx, tx, b); err != nil {
			return wrapStoreError(err, "failed to update booking")
		}
		// Occupancy is recounted after the status change so the new assignment and the booking
		// are not both counted.
		if err := s.registration.UpdateRoomOccupancy(ctx, tx, *b.RoomID, b.SemesterID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrDependencyFailure.Code, appErrors.ErrDependencyFailure.Status, "failed to refresh room occupancy")
		}
		registration = reg
		result = &models.CheckInResult{Booking: b, ResidentID: reg.ResidentID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.AlreadyChecked {
		return result, nil
	}

	s.metrics.RecordEvent(EventCheckIn)
	s.logger.Info("booking checked in",
		zap.String("booking_id", id),
		zap.String("resident_id", result.ResidentID),
		zap.String("actor", actor),
	)
	if s.notifier != nil {
		s.notifier.CheckInCredentials(ctx, result.Booking, registration)
	}
	s.invalidate(ctx, result.Booking.HostelID)
	return result, nil
}

// Cancel cancels a pending or booked booking. Cancelling twice is a no-op.
func (s *BookingService) Cancel(ctx context.Context, id string, req CancelBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancel payload")
	}
	var (
		booking *models.Booking
		changed bool
	)
	err := s.tx.InTx(ctx, func(tx sqlx.ExtContext) error {
		changed = false
		b, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		switch b.Status {
		case models.BookingStatusCancelled:
			booking = b
			return nil
		case models.BookingStatusCheckedIn:
			return appErrors.Clone(appErrors.ErrStatePrecondition, "checked-in bookings cannot be cancelled")
		}
		now := s.now().UTC()
		b.Status = models.BookingStatusCancelled
		b.CancelledAt = &now
		if err := s.bookings.Update(ctx, tx, b); err != nil {
			return wrapStoreError(err, "failed to cancel booking")
		}
		booking = b
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.RecordEvent(EventCancel)
		s.logger.Info("booking cancelled", zap.String("booking_id", id), zap.String("reason", req.Reason))
		s.invalidate(ctx, booking.HostelID)
	}
	return booking, nil
}

// Receipt renders a PDF receipt of the booking and its payments.
func (s *BookingService) Receipt(ctx context.Context, id string) (*ReceiptDocument, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByBooking(ctx, nil, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list booking payments")
	}

	data := export.Dataset{
		Title: "Booking Receipt",
		Summary: []export.Field{
			{Label: "Booking", Value: booking.ID},
			{Label: "Student", Value: booking.StudentName},
			{Label: "Email", Value: booking.StudentEmail},
			{Label: "Room", Value: derefString(booking.RoomID)},
			{Label: "Status", Value: string(booking.Status)},
			{Label: "Amount due", Value: booking.AmountDue.StringFixed(2)},
			{Label: "Amount paid", Value: booking.AmountPaid.StringFixed(2)},
			{Label: "Balance", Value: booking.Outstanding().StringFixed(2)},
			{Label: "Verification code", Value: derefString(booking.VerificationCode)},
		},
		Headers: []string{"Date", "Amount", "Method", "Status", "Reference"},
	}
	for _, p := range payments {
		data.Rows = append(data.Rows, map[string]string{
			"Date":      p.CreatedAt.UTC().Format("2006-01-02 15:04"),
			"Amount":    p.Amount.StringFixed(2),
			"Method":    string(p.Method),
			"Status":    string(p.Status),
			"Reference": derefString(p.Reference),
		})
	}

	renderer := export.NewPDFExporter()
	body, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return &ReceiptDocument{
		Filename:    fmt.Sprintf("receipt-%s.%s", booking.ID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *BookingService) lock(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Booking, error) {
	booking, err := s.bookings.Lock(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, wrapStoreError(err, "failed to load booking")
	}
	return booking, nil
}

// issueCode generates a code not held by any booking and sets it. The unique index on
// verification_code still catches a concurrent winner; the transaction is then replayed.
func (s *BookingService) issueCode(ctx context.Context, tx sqlx.ExtContext, b *models.Booking) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes(s.cfg.VerificationLength)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate verification code")
		}
		exists, err := s.bookings.VerificationCodeExists(ctx, tx, code)
		if err != nil {
			return wrapStoreError(err, "failed to check verification code")
		}
		if exists {
			continue
		}
		issued, err := s.bookings.IssueVerificationCode(ctx, tx, b.ID, code)
		if err != nil {
			return wrapStoreError(err, "failed to issue verification code")
		}
		if !issued {
			return appErrors.Clone(appErrors.ErrStatePrecondition, "verification code already issued")
		}
		b.VerificationCode = &code
		b.Status = models.BookingStatusBooked
		s.metrics.RecordEvent(EventCodeIssued)
		return nil
	}
	return appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique verification code")
}

func (s *BookingService) resolveSemester(ctx context.Context, hostelID, semesterID string) (string, error) {
	if semesterID != "" {
		return semesterID, nil
	}
	current, err := s.semesters.Current(ctx, hostelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrValidation, "semester_id is required: hostel has no current semester")
		}
		return "", wrapStoreError(err, "failed to resolve current semester")
	}
	if current == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "semester_id is required")
	}
	return current.ID, nil
}

func (s *BookingService) invalidate(ctx context.Context, hostelID string) {
	if s.invalidator != nil && hostelID != "" {
		s.invalidator.Invalidate(ctx, hostelID)
	}
}

// normalisePhone validates a phone number and returns it in E.164 form.
func normalisePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid phone number")
	}
	if !libphonenumber.IsValidNumber(parsed) {
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid phone number")
	}
	return libphonenumber.Format(parsed, libphonenumber.E164), nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
