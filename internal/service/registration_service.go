package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/schema"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

type residentStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Resident, error)
	LockByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Resident, error)
	Create(ctx context.Context, exec sqlx.ExtContext, resident *models.Resident) error
	LockActiveAssignment(ctx context.Context, exec sqlx.ExtContext, residentID, semesterID string) (*models.ResidentAssignment, error)
	CreateAssignment(ctx context.Context, exec sqlx.ExtContext, assignment *models.ResidentAssignment) error
	CompleteAssignment(ctx context.Context, exec sqlx.ExtContext, id string) error
	LockEnrollment(ctx context.Context, exec sqlx.ExtContext, residentID, semesterID string) (*models.SemesterEnrollment, error)
	CreateEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollment *models.SemesterEnrollment) error
	UpdateEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollment *models.SemesterEnrollment) error
}

type occupancyUpdater interface {
	UpdateRoomOccupancy(ctx context.Context, tx sqlx.ExtContext, roomID, semesterID string) (int, error)
}

// RegistrationServiceParams groups RegistrationService dependencies.
type RegistrationServiceParams struct {
	Schema             schema.Resolver
	Residents          residentStore
	Payments           bookingPaymentStore
	Ledger             ledgerStore
	Occupancy          occupancyUpdater
	TempPasswordLength int
	Metrics            *MetricsService
	Logger             *zap.Logger
}

// RegistrationService turns a checked-in booking into a resident with an assignment, an
// enrollment and ledger rows mirroring the booking's payments. It only runs inside the caller's
// transaction.
type RegistrationService struct {
	schema         schema.Resolver
	residents      residentStore
	payments       bookingPaymentStore
	ledger         ledgerStore
	occupancy      occupancyUpdater
	passwordLength int
	metrics        *MetricsService
	logger         *zap.Logger
	hash           func(password string) (string, error)
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(p RegistrationServiceParams) *RegistrationService {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.TempPasswordLength <= 0 {
		p.TempPasswordLength = 10
	}
	return &RegistrationService{
		schema:         p.Schema,
		residents:      p.Residents,
		payments:       p.Payments,
		ledger:         p.Ledger,
		occupancy:      p.Occupancy,
		passwordLength: p.TempPasswordLength,
		metrics:        p.Metrics,
		logger:         p.Logger,
		hash:           hashPassword,
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// RegisterResident links the booking's student to a resident account, creating one when the
// email is unknown. Calling it again for the same email reuses the account and assignment.
func (s *RegistrationService) RegisterResident(ctx context.Context, tx sqlx.ExtContext, in models.RegistrationInput) (*models.RegistrationResult, error) {
	logical, err := s.schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !logical.CanRegisterResidents() {
		return nil, appErrors.Clone(appErrors.ErrDependencyFailure, "resident registration is not supported by this deployment")
	}
	email := strings.ToLower(strings.TrimSpace(in.Profile.Email))
	if email == "" || in.RoomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration requires an email and a room")
	}

	result := &models.RegistrationResult{}
	resident, err := s.residents.LockByEmail(ctx, tx, email)
	switch {
	case err == nil:
		result.ResidentID = resident.ID
	case errors.Is(err, sql.ErrNoRows):
		password, err := newTemporaryPassword(s.passwordLength)
		if err != nil {
			return nil, err
		}
		hashed, err := s.hash(password)
		if err != nil {
			return nil, err
		}
		resident = &models.Resident{
			FullName:     strings.TrimSpace(in.Profile.FullName),
			Email:        email,
			Phone:        in.Profile.Phone,
			PasswordHash: hashed,
		}
		if err := s.residents.Create(ctx, tx, resident); err != nil {
			return nil, err
		}
		result.ResidentID = resident.ID
		result.Created = true
		result.TemporaryPassword = password
	default:
		return nil, err
	}

	assignmentID, err := s.assign(ctx, tx, resident.ID, in)
	if err != nil {
		return nil, err
	}
	result.AssignmentID = assignmentID

	if logical.HasEnrollments && in.SemesterID != "" {
		if err := s.upsertEnrollment(ctx, tx, resident.ID, in); err != nil {
			return nil, err
		}
	}

	if logical.HasPayments && in.BookingID != "" {
		mirrored, err := s.mirrorPayments(ctx, tx, resident.ID, in)
		if err != nil {
			return nil, err
		}
		result.MirroredPayments = mirrored
	}

	if result.Created {
		s.metrics.RecordEvent(EventResidentRegistered)
	}
	s.logger.Info("resident registered from booking",
		zap.String("resident_id", result.ResidentID),
		zap.String("booking_id", in.BookingID),
		zap.Bool("created", result.Created),
		zap.Int("mirrored_payments", result.MirroredPayments),
	)
	return result, nil
}

// UpdateRoomOccupancy refreshes the stored occupancy count of a room.
func (s *RegistrationService) UpdateRoomOccupancy(ctx context.Context, tx sqlx.ExtContext, roomID, semesterID string) error {
	if s.occupancy == nil {
		return nil
	}
	_, err := s.occupancy.UpdateRoomOccupancy(ctx, tx, roomID, semesterID)
	return err
}

// assign keeps a single active assignment per resident and semester. A resident already in the
// same room keeps the assignment; one in another room has it completed first and the room it
// leaves recounted.
func (s *RegistrationService) assign(ctx context.Context, tx sqlx.ExtContext, residentID string, in models.RegistrationInput) (string, error) {
	current, err := s.residents.LockActiveAssignment(ctx, tx, residentID, in.SemesterID)
	switch {
	case err == nil:
		if current.RoomID == in.RoomID {
			return current.ID, nil
		}
		if err := s.residents.CompleteAssignment(ctx, tx, current.ID); err != nil {
			return "", err
		}
		if err := s.UpdateRoomOccupancy(ctx, tx, current.RoomID, in.SemesterID); err != nil {
			return "", err
		}
	case !errors.Is(err, sql.ErrNoRows):
		return "", err
	}

	assignment := &models.ResidentAssignment{
		ResidentID: residentID,
		RoomID:     in.RoomID,
		SemesterID: optionalString(in.SemesterID),
		Status:     models.AssignmentStatusActive,
	}
	if err := s.residents.CreateAssignment(ctx, tx, assignment); err != nil {
		return "", err
	}
	return assignment.ID, nil
}

// upsertEnrollment seeds the enrollment from the booking. An existing enrollment keeps the larger
// total and accumulates paid money, capped at the total.
func (s *RegistrationService) upsertEnrollment(ctx context.Context, tx sqlx.ExtContext, residentID string, in models.RegistrationInput) error {
	enrollment, err := s.residents.LockEnrollment(ctx, tx, residentID, in.SemesterID)
	if errors.Is(err, sql.ErrNoRows) {
		return s.residents.CreateEnrollment(ctx, tx, &models.SemesterEnrollment{
			ResidentID:  residentID,
			SemesterID:  in.SemesterID,
			TotalAmount: in.AmountDue,
			AmountPaid:  decimalMin(in.InitialPaid, in.AmountDue),
		})
	}
	if err != nil {
		return err
	}
	if in.AmountDue.GreaterThan(enrollment.TotalAmount) {
		enrollment.TotalAmount = in.AmountDue
	}
	enrollment.AmountPaid = decimalMin(enrollment.AmountPaid.Add(in.InitialPaid), enrollment.TotalAmount)
	return s.residents.UpdateEnrollment(ctx, tx, enrollment)
}

// mirrorPayments copies each completed booking payment into the ledger with a reference back to
// its source row. Rows mirrored by an earlier attempt are skipped.
func (s *RegistrationService) mirrorPayments(ctx context.Context, tx sqlx.ExtContext, residentID string, in models.RegistrationInput) (int, error) {
	payments, err := s.payments.ListByBooking(ctx, tx, in.BookingID)
	if err != nil {
		return 0, err
	}
	mirrored := 0
	for i := range payments {
		p := payments[i]
		if p.Status != models.PaymentRecordCompleted {
			continue
		}
		exists, err := s.ledger.ExistsForSource(ctx, tx, p.ID)
		if err != nil {
			return mirrored, err
		}
		if exists {
			continue
		}
		row := &models.LedgerPayment{
			ResidentID:             residentID,
			HostelID:               optionalString(in.HostelID),
			SemesterID:             optionalString(in.SemesterID),
			Amount:                 p.Amount,
			Method:                 p.Method,
			Reference:              p.Reference,
			RecordedBy:             p.RecordedBy,
			SourceBookingPaymentID: &p.ID,
		}
		if err := s.ledger.Create(ctx, tx, row); err != nil {
			return mirrored, err
		}
		mirrored++
	}
	return mirrored, nil
}
