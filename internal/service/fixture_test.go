package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/pkg/config"
)

const (
	testHostel   = "hostel-1"
	testSemester = "sem-1"
	testPhone    = "650-253-0000"
)

type recordingNotifier struct {
	mu          sync.Mutex
	receipts    []string
	residents   []string
	credentials []*models.RegistrationResult
}

func (n *recordingNotifier) PaymentReceipt(_ context.Context, _ *models.Booking, payment *models.BookingPayment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receipts = append(n.receipts, payment.ID)
}

func (n *recordingNotifier) ResidentReceipt(_ context.Context, resident *models.Resident, _ *models.LedgerPayment, _ decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.residents = append(n.residents, resident.ID)
}

func (n *recordingNotifier) CheckInCredentials(_ context.Context, _ *models.Booking, registration *models.RegistrationResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.credentials = append(n.credentials, registration)
}

type recordingInvalidator struct {
	mu      sync.Mutex
	hostels []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, hostelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hostels = append(r.hostels, hostelID)
}

type bookingFixture struct {
	db           *memDB
	bookings     *BookingService
	ledger       *LedgerService
	capacity     *CapacityService
	registration *RegistrationService
	recon        *ReconciliationService
	notes        *recordingNotifier
	invalidated  *recordingInvalidator
	metrics      *MetricsService
}

func newBookingFixture(t *testing.T, mutate ...func(*BookingServiceParams)) *bookingFixture {
	t.Helper()
	db := newMemDB()
	db.semesters[testSemester] = models.Semester{ID: testSemester, HostelID: testHostel, Name: "2026 A", IsCurrent: true}
	db.semesters["sem-2"] = models.Semester{ID: "sem-2", HostelID: testHostel, Name: "2026 B"}
	db.rooms["room-single"] = models.Room{ID: "room-single", HostelID: testHostel, RoomNumber: "A1", Capacity: 1, Price: decimal.NewFromInt(100), Status: models.RoomStatusAvailable}
	db.rooms["room-double"] = models.Room{ID: "room-double", HostelID: testHostel, RoomNumber: "B1", Capacity: 2, Price: decimal.NewFromInt(150), Status: models.RoomStatusAvailable}
	db.rooms["room-closed"] = models.Room{ID: "room-closed", HostelID: testHostel, RoomNumber: "C1", Capacity: 4, Price: decimal.NewFromInt(80), Status: models.RoomStatusMaintenance}
	db.rooms["room-elsewhere"] = models.Room{ID: "room-elsewhere", HostelID: "hostel-2", RoomNumber: "Z9", Capacity: 4, Price: decimal.NewFromInt(90), Status: models.RoomStatusAvailable}

	metrics := NewMetricsService()
	notes := &recordingNotifier{}
	invalidated := &recordingInvalidator{}
	tx := memTx{db: db}

	capacity := NewCapacityService(memRooms{db}, memSemesters{db}, metrics, nil)
	registration := NewRegistrationService(RegistrationServiceParams{
		Schema:    db,
		Residents: memResidents{db},
		Payments:  memBookingPayments{db},
		Ledger:    memLedger{db},
		Occupancy: capacity,
		Metrics:   metrics,
	})
	registration.hash = func(password string) (string, error) { return "hashed:" + password, nil }

	ledger := NewLedgerService(LedgerServiceParams{
		Tx:          tx,
		Schema:      db,
		Bookings:    memBookings{db},
		Payments:    memBookingPayments{db},
		Ledger:      memLedger{db},
		Residents:   memResidents{db},
		Semesters:   memSemesters{db},
		Notifier:    notes,
		Invalidator: invalidated,
		Metrics:     metrics,
	})

	params := BookingServiceParams{
		Tx:           tx,
		Bookings:     memBookings{db},
		Payments:     memBookingPayments{db},
		Semesters:    memSemesters{db},
		Capacity:     capacity,
		Ledger:       ledger,
		Registration: registration,
		Notifier:     notes,
		Invalidator:  invalidated,
		Metrics:      metrics,
		Config: config.BookingConfig{
			AmountPolicy:       config.AmountPolicyRoomPrice,
			VerificationLength: 8,
			PhoneRegion:        "US",
		},
		Now: func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) },
	}
	for _, fn := range mutate {
		fn(&params)
	}

	return &bookingFixture{
		db:           db,
		bookings:     NewBookingService(params),
		ledger:       ledger,
		capacity:     capacity,
		registration: registration,
		recon:        NewReconciliationService(db, memSemesters{db}, nil, time.Minute, nil),
		notes:        notes,
		invalidated:  invalidated,
		metrics:      metrics,
	}
}

func (f *bookingFixture) createBooking(t *testing.T, roomID, email string) (*models.Booking, error) {
	t.Helper()
	return f.bookings.Create(context.Background(), CreateBookingRequest{
		HostelID:     testHostel,
		SemesterID:   testSemester,
		RoomID:       roomID,
		StudentName:  "Student " + email,
		StudentEmail: email,
		StudentPhone: testPhone,
	})
}

func (f *bookingFixture) pay(id string, amount int64) (*models.BookingPaymentResult, error) {
	return f.bookings.ApplyPayment(context.Background(), id, BookingPaymentRequest{
		Amount: decimal.NewFromInt(amount),
		Method: string(models.PaymentMethodCash),
	}, "clerk-1")
}

func (f *bookingFixture) stored(id string) models.Booking {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.bookings[id]
}

func (f *bookingFixture) paymentRows(bookingID string) int {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n := 0
	for _, p := range f.db.bookingPayments {
		if p.BookingID == bookingID {
			n++
		}
	}
	return n
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
