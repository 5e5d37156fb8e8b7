package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

func registrationInput(roomID string, due, paid int64) models.RegistrationInput {
	return models.RegistrationInput{
		Profile:     models.ResidentProfile{FullName: "Ada Lovelace", Email: " Ada@Example.com ", Phone: "+16502530000"},
		HostelID:    testHostel,
		RoomID:      roomID,
		SemesterID:  testSemester,
		AmountDue:   dec(due),
		InitialPaid: dec(paid),
	}
}

// register runs RegisterResident inside a transaction the way check-in does.
func register(t *testing.T, f *bookingFixture, in models.RegistrationInput) (*models.RegistrationResult, error) {
	t.Helper()
	var result *models.RegistrationResult
	err := memTx{f.db}.InTx(context.Background(), func(tx sqlx.ExtContext) error {
		var err error
		result, err = f.registration.RegisterResident(context.Background(), tx, in)
		return err
	})
	return result, err
}

func TestRegisterResidentCreatesAccountAssignmentAndEnrollment(t *testing.T) {
	f := newBookingFixture(t)

	result, err := register(t, f, registrationInput("room-double", 150, 150))
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.GreaterOrEqual(t, len(result.TemporaryPassword), 10)

	resident := f.db.residents[result.ResidentID]
	assert.Equal(t, "ada@example.com", resident.Email)
	assert.Equal(t, "Ada Lovelace", resident.FullName)
	assert.Equal(t, "hashed:"+result.TemporaryPassword, resident.PasswordHash)

	require.Len(t, f.db.assignments, 1)
	assert.Equal(t, result.AssignmentID, f.db.assignments[0].ID)
	require.Len(t, f.db.enrollments, 1)
	assert.Equal(t, models.EnrollmentStatusPaid, f.db.enrollments[0].EnrollmentStatus)
}

func TestRegisterResidentMergesExistingEnrollment(t *testing.T) {
	f := newBookingFixture(t)
	_, err := register(t, f, registrationInput("room-double", 100, 60))
	require.NoError(t, err)

	result, err := register(t, f, registrationInput("room-double", 150, 120))
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Empty(t, result.TemporaryPassword)

	require.Len(t, f.db.enrollments, 1)
	enrollment := f.db.enrollments[0]
	assert.True(t, enrollment.TotalAmount.Equal(dec(150)))
	assert.True(t, enrollment.AmountPaid.Equal(dec(150)), "paid %s", enrollment.AmountPaid)
	assert.Len(t, f.db.assignments, 1)
}

func TestRegisterResidentMovesAssignmentToNewRoom(t *testing.T) {
	f := newBookingFixture(t)
	first, err := register(t, f, registrationInput("room-double", 150, 0))
	require.NoError(t, err)

	second, err := register(t, f, registrationInput("room-single", 100, 0))
	require.NoError(t, err)
	assert.NotEqual(t, first.AssignmentID, second.AssignmentID)

	require.Len(t, f.db.assignments, 2)
	assert.Equal(t, models.AssignmentStatusCompleted, f.db.assignments[0].Status)
	assert.Equal(t, models.AssignmentStatusActive, f.db.assignments[1].Status)
	assert.Equal(t, "room-single", f.db.assignments[1].RoomID)
}

func TestRegisterResidentMoveRecountsPreviousRoom(t *testing.T) {
	f := newBookingFixture(t)
	_, err := register(t, f, registrationInput("room-double", 150, 0))
	require.NoError(t, err)
	require.NoError(t, memTx{f.db}.InTx(context.Background(), func(tx sqlx.ExtContext) error {
		return f.registration.UpdateRoomOccupancy(context.Background(), tx, "room-double", testSemester)
	}))
	require.Equal(t, 1, f.db.occupancy["room-double"])

	_, err = register(t, f, registrationInput("room-single", 100, 0))
	require.NoError(t, err)

	occupied, ok := f.db.occupancy["room-double"]
	require.True(t, ok)
	assert.Equal(t, 0, occupied)
}

func TestRegisterResidentMirrorsCompletedPaymentsOnce(t *testing.T) {
	f := newBookingFixture(t)
	f.db.bookingPayments = []models.BookingPayment{
		{ID: "bp-1", BookingID: "bk-1", Amount: dec(40), Method: models.PaymentMethodCash, Status: models.PaymentRecordCompleted},
		{ID: "bp-2", BookingID: "bk-1", Amount: dec(60), Method: models.PaymentMethodMobileMoney, Status: models.PaymentRecordCompleted},
		{ID: "bp-3", BookingID: "bk-1", Amount: dec(10), Method: models.PaymentMethodCash, Status: models.PaymentRecordFailed},
	}
	in := registrationInput("room-single", 100, 100)
	in.BookingID = "bk-1"

	first, err := register(t, f, in)
	require.NoError(t, err)
	assert.Equal(t, 2, first.MirroredPayments)

	second, err := register(t, f, in)
	require.NoError(t, err)
	assert.Equal(t, 0, second.MirroredPayments)

	require.Len(t, f.db.ledger, 2)
	assert.Equal(t, "bp-1", *f.db.ledger[0].SourceBookingPaymentID)
	assert.Equal(t, testHostel, *f.db.ledger[0].HostelID)
}

func TestRegisterResidentRejectsIncompleteInput(t *testing.T) {
	f := newBookingFixture(t)

	in := registrationInput("", 100, 0)
	_, err := register(t, f, in)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	in = registrationInput("room-single", 100, 0)
	in.Profile.Email = ""
	_, err = register(t, f, in)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Empty(t, f.db.residents)
}

func TestRegisterResidentSkipsMissingCapabilities(t *testing.T) {
	f := newBookingFixture(t)
	f.db.schema.HasEnrollments = false
	f.db.schema.HasPayments = false
	in := registrationInput("room-single", 100, 100)
	in.BookingID = "bk-1"

	result, err := register(t, f, in)
	require.NoError(t, err)
	assert.Equal(t, 0, result.MirroredPayments)
	assert.Empty(t, f.db.enrollments)
	assert.Len(t, f.db.assignments, 1)
}
