package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/pkg/config"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

func assertBookingInvariants(t *testing.T, b models.Booking) {
	t.Helper()
	assert.False(t, b.AmountPaid.GreaterThan(b.AmountDue), "amount_paid %s exceeds amount_due %s", b.AmountPaid, b.AmountDue)
	assert.True(t, b.Outstanding().Equal(models.Outstanding(b.AmountDue, b.AmountPaid)))
	if b.Status == models.BookingStatusBooked || b.Status == models.BookingStatusCheckedIn {
		require.NotNil(t, b.VerificationCode)
	}
}

func TestBookingLifecycleEndToEnd(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	booking, err := f.createBooking(t, "room-single", "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.True(t, booking.AmountDue.Equal(dec(100)))
	assert.Equal(t, "ada@example.com", booking.StudentEmail)
	assert.Equal(t, "+16502530000", booking.StudentPhone)
	assert.Nil(t, booking.VerificationCode)

	first, err := f.pay(booking.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaymentPartial, first.Booking.PaymentStatus)
	assert.True(t, first.Balance.Equal(dec(40)))
	assert.Nil(t, f.stored(booking.ID).VerificationCode)
	assertBookingInvariants(t, f.stored(booking.ID))

	second, err := f.pay(booking.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaymentPaid, second.Booking.PaymentStatus)
	assert.Equal(t, models.BookingStatusBooked, second.Booking.Status)
	require.NotNil(t, second.Booking.VerificationCode)
	code := *second.Booking.VerificationCode
	assert.Len(t, code, 8)
	for _, r := range code {
		assert.True(t, strings.ContainsRune(verificationAlphabet, r), "unexpected rune %q", r)
	}
	assertBookingInvariants(t, f.stored(booking.ID))

	byCode, err := f.bookings.GetByVerificationCode(ctx, strings.ToLower(code))
	require.NoError(t, err)
	assert.Equal(t, booking.ID, byCode.ID)

	checkIn, err := f.bookings.CheckIn(ctx, booking.ID, "clerk-1")
	require.NoError(t, err)
	assert.False(t, checkIn.AlreadyChecked)
	assert.Equal(t, models.BookingStatusCheckedIn, checkIn.Booking.Status)
	require.NotEmpty(t, checkIn.ResidentID)

	stored := f.stored(booking.ID)
	require.NotNil(t, stored.ResidentID)
	assert.Equal(t, checkIn.ResidentID, *stored.ResidentID)
	require.Len(t, f.db.assignments, 1)
	assert.Equal(t, "room-single", f.db.assignments[0].RoomID)
	require.Len(t, f.db.enrollments, 1)
	assert.True(t, f.db.enrollments[0].TotalAmount.Equal(dec(100)))
	assert.True(t, f.db.enrollments[0].AmountPaid.Equal(dec(100)))
	assert.Equal(t, models.EnrollmentStatusPaid, f.db.enrollments[0].EnrollmentStatus)
	require.Len(t, f.db.ledger, 2)
	for _, row := range f.db.ledger {
		assert.NotNil(t, row.SourceBookingPaymentID)
	}
	assert.Equal(t, 1, f.db.occupancy["room-single"])

	_, err = f.createBooking(t, "room-single", "grace@example.com")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCapacityExceeded.Code))

	summary, _, err := f.recon.Summary(ctx, testHostel, testSemester)
	require.NoError(t, err)
	assert.True(t, summary.TotalCollected.Equal(dec(100)), "collected %s", summary.TotalCollected)
	assert.True(t, summary.TotalOutstanding.IsZero())
	assert.True(t, summary.Duplicated.Equal(dec(100)))
	require.Len(t, summary.Entities, 1)
	assert.Equal(t, checkIn.ResidentID, summary.Entities[0].EntityID)

	assert.Len(t, f.notes.receipts, 2)
	require.Len(t, f.notes.credentials, 1)
	assert.True(t, f.notes.credentials[0].Created)
	assert.NotEmpty(t, f.notes.credentials[0].TemporaryPassword)
	resident := f.db.residents[checkIn.ResidentID]
	assert.Equal(t, "hashed:"+f.notes.credentials[0].TemporaryPassword, resident.PasswordHash)
	assert.NotEmpty(t, f.invalidated.hostels)
}

func TestApplyPaymentRejectsOverpaymentWithoutSideEffects(t *testing.T) {
	f := newBookingFixture(t)

	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)

	_, err = f.pay(booking.ID, 150)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBalanceViolation.Code))

	stored := f.stored(booking.ID)
	assert.True(t, stored.AmountPaid.IsZero())
	assert.Nil(t, stored.VerificationCode)
	assert.Equal(t, 0, f.paymentRows(booking.ID))
	assert.Empty(t, f.notes.receipts)
}

func TestApplyPaymentRejectsSettledBooking(t *testing.T) {
	f := newBookingFixture(t)

	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 100)
	require.NoError(t, err)

	_, err = f.pay(booking.ID, 1)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrBalanceViolation.Code, appErr.Code)
	assert.Equal(t, "nothing owed", appErr.Message)
	assert.Equal(t, 1, f.paymentRows(booking.ID))
}

func TestApplyPaymentValidatesPayload(t *testing.T) {
	f := newBookingFixture(t)
	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)

	_, err = f.pay(booking.ID, 0)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = f.bookings.ApplyPayment(context.Background(), booking.ID, BookingPaymentRequest{Amount: dec(10), Method: "cheque"}, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = f.pay("missing", 10)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestPendingPaymentDoesNotMoveBalance(t *testing.T) {
	f := newBookingFixture(t)
	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)

	result, err := f.bookings.ApplyPayment(context.Background(), booking.ID, BookingPaymentRequest{
		Amount: dec(100),
		Method: string(models.PaymentMethodMobileMoney),
		Status: string(models.PaymentRecordPending),
	}, "clerk-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRecordPending, result.Payment.Status)
	assert.True(t, result.Booking.AmountPaid.IsZero())
	assert.Nil(t, f.stored(booking.ID).VerificationCode)
	assert.Equal(t, 1, f.paymentRows(booking.ID))
	assert.Empty(t, f.notes.receipts)
}

func TestConcurrentPaymentsAcceptOnlyOneOverlappingAmount(t *testing.T) {
	f := newBookingFixture(t)
	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.pay(booking.ID, 60)
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case appErrors.HasCode(err, appErrors.ErrBalanceViolation.Code):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	stored := f.stored(booking.ID)
	assert.True(t, stored.AmountPaid.Equal(dec(60)))
	assert.Equal(t, 1, f.paymentRows(booking.ID))
	assertBookingInvariants(t, stored)
}

func TestCreateRejectsBookingBeyondCapacity(t *testing.T) {
	f := newBookingFixture(t)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := f.createBooking(t, "room-double", email)
		require.NoError(t, err)
	}
	_, err := f.createBooking(t, "room-double", "c@example.com")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCapacityExceeded.Code))
	assert.Len(t, f.db.bookings, 2)

	capacity, err := f.capacity.Check(context.Background(), "room-double", "")
	require.NoError(t, err)
	assert.Equal(t, testSemester, capacity.SemesterID)
	assert.Equal(t, 2, capacity.Occupied)
	assert.Equal(t, 0, capacity.Available)
}

func TestConcurrentCreatesNeverOverfillRoom(t *testing.T) {
	f := newBookingFixture(t)

	const attempts = 6
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, attempts)
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.bookings.Create(context.Background(), CreateBookingRequest{
				HostelID:     testHostel,
				SemesterID:   testSemester,
				RoomID:       "room-double",
				StudentName:  "Student",
				StudentEmail: "student@example.com",
				StudentPhone: testPhone,
			})
		}(i)
	}
	close(start)
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		if err == nil {
			admitted++
			continue
		}
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCapacityExceeded.Code), "unexpected error: %v", err)
	}
	assert.Equal(t, 2, admitted)
	assert.Len(t, f.db.bookings, 2)
}

func TestCancelledBookingReleasesSeat(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	first, err := f.createBooking(t, "room-single", "a@example.com")
	require.NoError(t, err)
	_, err = f.bookings.Cancel(ctx, first.ID, CancelBookingRequest{Reason: "changed plans"})
	require.NoError(t, err)

	_, err = f.createBooking(t, "room-single", "b@example.com")
	require.NoError(t, err)
}

func TestCreateRejectsUnusableRooms(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.createBooking(t, "room-closed", "a@example.com")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStatePrecondition.Code))

	_, err = f.createBooking(t, "room-elsewhere", "a@example.com")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = f.createBooking(t, "room-missing", "a@example.com")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = f.createBooking(t, "", "a@example.com")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Empty(t, f.db.bookings)
}

func TestCreateValidatesContactDetails(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.bookings.Create(ctx, CreateBookingRequest{
		HostelID: testHostel, RoomID: "room-single", StudentName: "Ada", StudentEmail: "not-an-email", StudentPhone: testPhone,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = f.bookings.Create(ctx, CreateBookingRequest{
		HostelID: testHostel, RoomID: "room-single", StudentName: "Ada", StudentEmail: "ada@example.com", StudentPhone: "12",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Empty(t, f.db.bookings)
}

func TestCreateUsesCurrentSemesterWhenOmitted(t *testing.T) {
	f := newBookingFixture(t)

	booking, err := f.bookings.Create(context.Background(), CreateBookingRequest{
		HostelID:     testHostel,
		RoomID:       "room-double",
		Source:       string(models.BookingSourceOnline),
		StudentName:  "Ada",
		StudentEmail: "ada@example.com",
		StudentPhone: testPhone,
	})
	require.NoError(t, err)
	assert.Equal(t, testSemester, booking.SemesterID)
	assert.Equal(t, models.BookingSourceOnline, booking.Source)
}

func TestBookingFeePolicyIssuesCodeForFreeBooking(t *testing.T) {
	f := newBookingFixture(t, func(p *BookingServiceParams) {
		p.Config.AmountPolicy = config.AmountPolicyBookingFee
		p.Config.BookingFee = dec(0)
	})

	booking, err := f.createBooking(t, "", "ada@example.com")
	require.NoError(t, err)
	assert.True(t, booking.AmountDue.IsZero())
	assert.Equal(t, models.BookingStatusBooked, booking.Status)
	require.NotNil(t, booking.VerificationCode)

	_, err = f.pay(booking.ID, 1)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBalanceViolation.Code))
}

func TestVerificationCodeSkipsCodesInUse(t *testing.T) {
	codes := []string{"TAKEN234", "TAKEN234", "FRESH567"}
	var calls int
	f := newBookingFixture(t, func(p *BookingServiceParams) {
		p.CodeGenerator = func(int) (string, error) {
			code := codes[calls]
			calls++
			return code, nil
		}
	})
	taken := "TAKEN234"
	f.db.bookings["existing"] = models.Booking{ID: "existing", HostelID: testHostel, SemesterID: "sem-2", Status: models.BookingStatusBooked, VerificationCode: &taken}

	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)
	result, err := f.pay(booking.ID, 100)
	require.NoError(t, err)

	require.NotNil(t, result.Booking.VerificationCode)
	assert.Equal(t, "FRESH567", *result.Booking.VerificationCode)
	assert.Equal(t, 3, calls)
}

func TestVerificationCodeGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newBookingFixture(t, func(p *BookingServiceParams) {
		p.CodeGenerator = func(int) (string, error) { return "TAKEN234", nil }
	})
	taken := "TAKEN234"
	f.db.bookings["existing"] = models.Booking{ID: "existing", HostelID: testHostel, SemesterID: "sem-2", Status: models.BookingStatusBooked, VerificationCode: &taken}

	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 100)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))

	stored := f.stored(booking.ID)
	assert.True(t, stored.AmountPaid.IsZero())
	assert.Equal(t, models.BookingStatusPending, stored.Status)
	assert.Equal(t, 0, f.paymentRows(booking.ID))
}

func TestAssignRoomRepricesBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 100)
	require.NoError(t, err)

	moved, err := f.bookings.AssignRoom(ctx, booking.ID, AssignRoomRequest{RoomID: "room-double"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStatePrecondition.Code))
	assert.Nil(t, moved)

	other, err := f.createBooking(t, "room-double", "grace@example.com")
	require.NoError(t, err)
	_, err = f.pay(other.ID, 120)
	require.NoError(t, err)

	_, err = f.bookings.AssignRoom(ctx, other.ID, AssignRoomRequest{RoomID: "room-single"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCapacityExceeded.Code))

	room := f.db.rooms["room-single"]
	room.Capacity = 2
	f.db.rooms["room-single"] = room
	_, err = f.bookings.AssignRoom(ctx, other.ID, AssignRoomRequest{RoomID: "room-single"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBalanceViolation.Code))
	assert.Equal(t, "room-double", *f.stored(other.ID).RoomID)
}

func TestAssignRoomIssuesCodeWhenCheaperRoomIsCovered(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	booking, err := f.createBooking(t, "room-double", "ada@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 100)
	require.NoError(t, err)

	moved, err := f.bookings.AssignRoom(ctx, booking.ID, AssignRoomRequest{RoomID: "room-single"})
	require.NoError(t, err)
	assert.True(t, moved.AmountDue.Equal(dec(100)))
	assert.Equal(t, models.BookingStatusBooked, moved.Status)
	assert.NotNil(t, moved.VerificationCode)
	assertBookingInvariants(t, f.stored(booking.ID))

	same, err := f.bookings.AssignRoom(ctx, booking.ID, AssignRoomRequest{RoomID: "room-single"})
	require.NoError(t, err)
	assert.Equal(t, "room-single", *same.RoomID)
}

func TestCheckInIsIdempotent(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	booking, err := f.createBooking(t, "room-double", "ada@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 150)
	require.NoError(t, err)

	first, err := f.bookings.CheckIn(ctx, booking.ID, "clerk-1")
	require.NoError(t, err)
	ledgerRows := len(f.db.ledger)

	second, err := f.bookings.CheckIn(ctx, booking.ID, "clerk-1")
	require.NoError(t, err)
	assert.True(t, second.AlreadyChecked)
	assert.Equal(t, first.ResidentID, second.ResidentID)

	assert.Len(t, f.db.residents, 1)
	assert.Len(t, f.db.assignments, 1)
	assert.Len(t, f.db.enrollments, 1)
	assert.Len(t, f.db.ledger, ledgerRows)
	assert.Len(t, f.notes.credentials, 1)
}

func TestCheckInReusesExistingResident(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.db.residents["res-known"] = models.Resident{ID: "res-known", FullName: "Ada", Email: "ada@example.com"}

	booking, err := f.createBooking(t, "room-single", "ADA@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 100)
	require.NoError(t, err)

	result, err := f.bookings.CheckIn(ctx, booking.ID, "clerk-1")
	require.NoError(t, err)
	assert.Equal(t, "res-known", result.ResidentID)
	assert.Len(t, f.db.residents, 1)
	require.Len(t, f.notes.credentials, 1)
	assert.False(t, f.notes.credentials[0].Created)
	assert.Empty(t, f.notes.credentials[0].TemporaryPassword)
}

func TestCheckInRequiresSettledBalance(t *testing.T) {
	f := newBookingFixture(t)
	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 50)
	require.NoError(t, err)

	_, err = f.bookings.CheckIn(context.Background(), booking.ID, "clerk-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStatePrecondition.Code))
	assert.Empty(t, f.db.residents)
	assert.Equal(t, models.BookingStatusPending, f.stored(booking.ID).Status)
}

type failingRegistrar struct{ err error }

func (r failingRegistrar) RegisterResident(context.Context, sqlx.ExtContext, models.RegistrationInput) (*models.RegistrationResult, error) {
	return nil, r.err
}

func (r failingRegistrar) UpdateRoomOccupancy(context.Context, sqlx.ExtContext, string, string) error {
	return nil
}

func TestCheckInRollsBackWhenRegistrationFails(t *testing.T) {
	f := newBookingFixture(t, func(p *BookingServiceParams) {
		p.Registration = failingRegistrar{err: errors.New("students table locked")}
	})
	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 100)
	require.NoError(t, err)

	_, err = f.bookings.CheckIn(context.Background(), booking.ID, "clerk-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDependencyFailure.Code))

	stored := f.stored(booking.ID)
	assert.Equal(t, models.BookingStatusBooked, stored.Status)
	assert.Nil(t, stored.ResidentID)
	assert.Nil(t, stored.CheckedInAt)
	assert.Empty(t, f.notes.credentials)
}

func TestCheckInFailsWhenDeploymentCannotRegisterResidents(t *testing.T) {
	f := newBookingFixture(t)
	f.db.schema.HasStudents = false

	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 100)
	require.NoError(t, err)

	_, err = f.bookings.CheckIn(context.Background(), booking.ID, "clerk-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDependencyFailure.Code))
	assert.Equal(t, models.BookingStatusBooked, f.stored(booking.ID).Status)
}

func TestCancelIsIdempotentAndBlocksLaterWrites(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 30)
	require.NoError(t, err)

	cancelled, err := f.bookings.Cancel(ctx, booking.ID, CancelBookingRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	again, err := f.bookings.Cancel(ctx, booking.ID, CancelBookingRequest{})
	require.NoError(t, err)
	assert.Equal(t, cancelled.CancelledAt, again.CancelledAt)

	_, err = f.pay(booking.ID, 10)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStatePrecondition.Code))
	_, err = f.bookings.CheckIn(ctx, booking.ID, "clerk-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStatePrecondition.Code))
	_, err = f.bookings.AssignRoom(ctx, booking.ID, AssignRoomRequest{RoomID: "room-double"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStatePrecondition.Code))
}

func TestCancelRejectsCheckedInBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	booking, err := f.createBooking(t, "room-single", "ada@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 100)
	require.NoError(t, err)
	_, err = f.bookings.CheckIn(ctx, booking.ID, "clerk-1")
	require.NoError(t, err)

	_, err = f.bookings.Cancel(ctx, booking.ID, CancelBookingRequest{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStatePrecondition.Code))
	_, err = f.pay(booking.ID, 1)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStatePrecondition.Code))
}

func TestListAndReceipt(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	booking, err := f.createBooking(t, "room-double", "ada@example.com")
	require.NoError(t, err)
	_, err = f.createBooking(t, "room-double", "grace@example.com")
	require.NoError(t, err)
	_, err = f.pay(booking.ID, 50)
	require.NoError(t, err)

	items, page, err := f.bookings.List(ctx, models.BookingFilter{HostelID: testHostel, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 100, page.PageSize)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.TotalCount)

	payments, err := f.bookings.ListPayments(ctx, booking.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(dec(50)))
	require.NotNil(t, payments[0].RecordedBy)
	assert.Equal(t, "clerk-1", *payments[0].RecordedBy)

	receipt, err := f.bookings.Receipt(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", receipt.ContentType)
	assert.True(t, strings.HasPrefix(string(receipt.Body), "%PDF"))
	assert.Contains(t, receipt.Filename, booking.ID)

	_, err = f.bookings.Receipt(ctx, "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}
