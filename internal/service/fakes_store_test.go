package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/schema"
	"github.com/noah-isme/hostel-booking-api/pkg/database"
)

// memDB is an in-memory stand-in for Postgres. memTx holds mu for the whole transaction, which
// gives the same serial order row locks give, and restores a snapshot when fn fails.
type memDB struct {
	mu sync.Mutex

	schema          schema.LogicalSchema
	rooms           map[string]models.Room
	occupancy       map[string]int
	semesters       map[string]models.Semester
	bookings        map[string]models.Booking
	bookingPayments []models.BookingPayment
	ledger          []models.LedgerPayment
	residents       map[string]models.Resident
	assignments     []models.ResidentAssignment
	enrollments     []models.SemesterEnrollment
	seq             int
	txCount         int
}

func newMemDB() *memDB {
	return &memDB{
		schema:    schema.Current(),
		rooms:     map[string]models.Room{},
		occupancy: map[string]int{},
		semesters: map[string]models.Semester{},
		bookings:  map[string]models.Booking{},
		residents: map[string]models.Resident{},
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

type memState struct {
	rooms           map[string]models.Room
	occupancy       map[string]int
	semesters       map[string]models.Semester
	bookings        map[string]models.Booking
	bookingPayments []models.BookingPayment
	ledger          []models.LedgerPayment
	residents       map[string]models.Resident
	assignments     []models.ResidentAssignment
	enrollments     []models.SemesterEnrollment
}

func (db *memDB) snapshot() memState {
	st := memState{
		rooms:           map[string]models.Room{},
		occupancy:       map[string]int{},
		semesters:       map[string]models.Semester{},
		bookings:        map[string]models.Booking{},
		residents:       map[string]models.Resident{},
		bookingPayments: append([]models.BookingPayment(nil), db.bookingPayments...),
		ledger:          append([]models.LedgerPayment(nil), db.ledger...),
		assignments:     append([]models.ResidentAssignment(nil), db.assignments...),
		enrollments:     append([]models.SemesterEnrollment(nil), db.enrollments...),
	}
	for k, v := range db.rooms {
		st.rooms[k] = v
	}
	for k, v := range db.occupancy {
		st.occupancy[k] = v
	}
	for k, v := range db.semesters {
		st.semesters[k] = v
	}
	for k, v := range db.bookings {
		st.bookings[k] = v
	}
	for k, v := range db.residents {
		st.residents[k] = v
	}
	return st
}

func (db *memDB) restore(st memState) {
	db.rooms = st.rooms
	db.occupancy = st.occupancy
	db.semesters = st.semesters
	db.bookings = st.bookings
	db.bookingPayments = st.bookingPayments
	db.ledger = st.ledger
	db.residents = st.residents
	db.assignments = st.assignments
	db.enrollments = st.enrollments
}

type memTx struct{ db *memDB }

func (t memTx) InTx(ctx context.Context, fn database.TxFunc) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.txCount++
	st := t.db.snapshot()
	if err := fn(nil); err != nil {
		t.db.restore(st)
		return err
	}
	return nil
}

// Resolve implements schema.Resolver.
func (db *memDB) Resolve(context.Context) (schema.LogicalSchema, error) {
	return db.schema, nil
}

type memRooms struct{ db *memDB }

func (r memRooms) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.Room, error) {
	room, ok := r.db.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &room, nil
}

func (r memRooms) Lock(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Room, error) {
	return r.FindByID(ctx, exec, id)
}

func (r memRooms) CountOccupied(_ context.Context, _ sqlx.ExtContext, roomID, semesterID string) (int, error) {
	occupied := 0
	for _, a := range r.db.assignments {
		if a.RoomID == roomID && a.Status == models.AssignmentStatusActive && a.SemesterID != nil && *a.SemesterID == semesterID {
			occupied++
		}
	}
	for _, b := range r.db.bookings {
		if b.RoomID == nil || *b.RoomID != roomID || b.SemesterID != semesterID {
			continue
		}
		switch b.Status {
		case models.BookingStatusPending, models.BookingStatusBooked:
			occupied++
		case models.BookingStatusCheckedIn:
			if !r.db.hasActiveAssignment(b.ResidentID, roomID, semesterID) {
				occupied++
			}
		}
	}
	return occupied, nil
}

func (db *memDB) hasActiveAssignment(residentID *string, roomID, semesterID string) bool {
	if residentID == nil {
		return false
	}
	for _, a := range db.assignments {
		if a.ResidentID == *residentID && a.RoomID == roomID && a.Status == models.AssignmentStatusActive &&
			a.SemesterID != nil && *a.SemesterID == semesterID {
			return true
		}
	}
	return false
}

func (r memRooms) RefreshOccupancy(_ context.Context, _ sqlx.ExtContext, roomID string, occupied int) error {
	r.db.occupancy[roomID] = occupied
	return nil
}

type memSemesters struct{ db *memDB }

func (r memSemesters) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.Semester, error) {
	semester, ok := r.db.semesters[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &semester, nil
}

func (r memSemesters) Current(_ context.Context, hostelID string) (*models.Semester, error) {
	for _, s := range r.db.semesters {
		if s.HostelID == hostelID && s.IsCurrent {
			semester := s
			return &semester, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memSemesters) SetCurrent(_ context.Context, _ sqlx.ExtContext, hostelID, semesterID string) error {
	target, ok := r.db.semesters[semesterID]
	if !ok || target.HostelID != hostelID {
		return sql.ErrNoRows
	}
	for id, s := range r.db.semesters {
		if s.HostelID == hostelID {
			s.IsCurrent = id == semesterID
			r.db.semesters[id] = s
		}
	}
	return nil
}

type memBookings struct{ db *memDB }

func (r memBookings) Create(_ context.Context, _ sqlx.ExtContext, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = r.db.nextID("bk")
	}
	booking.CreatedAt = time.Now().UTC()
	booking.UpdatedAt = booking.CreatedAt
	r.db.bookings[booking.ID] = *booking
	return nil
}

func (r memBookings) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.Booking, error) {
	booking, ok := r.db.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	booking.Refresh()
	return &booking, nil
}

func (r memBookings) Lock(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error) {
	return r.FindByID(ctx, exec, id)
}

func (r memBookings) FindByVerificationCode(_ context.Context, code string) (*models.Booking, error) {
	for _, b := range r.db.bookings {
		if b.VerificationCode != nil && *b.VerificationCode == code {
			booking := b
			booking.Refresh()
			return &booking, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memBookings) VerificationCodeExists(ctx context.Context, _ sqlx.ExtContext, code string) (bool, error) {
	_, err := r.FindByVerificationCode(ctx, code)
	return err == nil, nil
}

func (r memBookings) IssueVerificationCode(_ context.Context, _ sqlx.ExtContext, id, code string) (bool, error) {
	b, ok := r.db.bookings[id]
	if !ok || b.VerificationCode != nil {
		return false, nil
	}
	b.VerificationCode = &code
	b.Status = models.BookingStatusBooked
	r.db.bookings[id] = b
	return true, nil
}

func (r memBookings) Update(_ context.Context, _ sqlx.ExtContext, booking *models.Booking) error {
	current, ok := r.db.bookings[booking.ID]
	if !ok {
		return sql.ErrNoRows
	}
	code := current.VerificationCode
	updated := *booking
	updated.VerificationCode = code
	r.db.bookings[booking.ID] = updated
	return nil
}

func (r memBookings) List(_ context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	var items []models.Booking
	for _, b := range r.db.bookings {
		if filter.HostelID != "" && b.HostelID != filter.HostelID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(b.StudentName), strings.ToLower(filter.Search)) {
			continue
		}
		b.Refresh()
		items = append(items, b)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, len(items), nil
}

type memBookingPayments struct{ db *memDB }

func (r memBookingPayments) Create(_ context.Context, _ sqlx.ExtContext, payment *models.BookingPayment) error {
	if payment.ID == "" {
		payment.ID = r.db.nextID("bp")
	}
	payment.CreatedAt = time.Now().UTC()
	r.db.bookingPayments = append(r.db.bookingPayments, *payment)
	return nil
}

func (r memBookingPayments) ListByBooking(_ context.Context, _ sqlx.ExtContext, bookingID string) ([]models.BookingPayment, error) {
	var out []models.BookingPayment
	for _, p := range r.db.bookingPayments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memLedger struct{ db *memDB }

func (r memLedger) Create(_ context.Context, _ sqlx.ExtContext, payment *models.LedgerPayment) error {
	if !r.db.schema.HasPayments {
		return errors.New("payments table missing")
	}
	if payment.ID == "" {
		payment.ID = r.db.nextID("lp")
	}
	if !r.db.schema.PaymentHasSourceRef {
		payment.SourceBookingPaymentID = nil
	}
	r.db.ledger = append(r.db.ledger, *payment)
	return nil
}

func (r memLedger) ExistsForSource(_ context.Context, _ sqlx.ExtContext, bookingPaymentID string) (bool, error) {
	for _, p := range r.db.ledger {
		if p.SourceBookingPaymentID != nil && *p.SourceBookingPaymentID == bookingPaymentID {
			return true, nil
		}
	}
	return false, nil
}

func (r memLedger) SumForResident(_ context.Context, _ sqlx.ExtContext, residentID, hostelID, semesterID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range r.db.ledger {
		if p.ResidentID != residentID {
			continue
		}
		if hostelID != "" && p.HostelID != nil && *p.HostelID != hostelID {
			continue
		}
		if semesterID != "" && p.SemesterID != nil && *p.SemesterID != semesterID {
			continue
		}
		total = total.Add(p.Amount)
	}
	return total, nil
}

type memResidents struct{ db *memDB }

func (r memResidents) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.Resident, error) {
	resident, ok := r.db.residents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &resident, nil
}

func (r memResidents) LockByEmail(_ context.Context, _ sqlx.ExtContext, email string) (*models.Resident, error) {
	for _, res := range r.db.residents {
		if strings.EqualFold(res.Email, strings.TrimSpace(email)) {
			resident := res
			return &resident, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memResidents) Create(_ context.Context, _ sqlx.ExtContext, resident *models.Resident) error {
	if resident.ID == "" {
		resident.ID = r.db.nextID("res")
	}
	r.db.residents[resident.ID] = *resident
	return nil
}

func (r memResidents) LockActiveAssignment(_ context.Context, _ sqlx.ExtContext, residentID, semesterID string) (*models.ResidentAssignment, error) {
	for _, a := range r.db.assignments {
		if a.ResidentID != residentID || a.Status != models.AssignmentStatusActive {
			continue
		}
		if semesterID != "" && r.db.schema.AssignmentHasSemester && (a.SemesterID == nil || *a.SemesterID != semesterID) {
			continue
		}
		assignment := a
		room := r.db.rooms[a.RoomID]
		assignment.RoomPrice = room.Price
		assignment.HostelID = room.HostelID
		return &assignment, nil
	}
	return nil, sql.ErrNoRows
}

func (r memResidents) CreateAssignment(_ context.Context, _ sqlx.ExtContext, assignment *models.ResidentAssignment) error {
	if assignment.ID == "" {
		assignment.ID = r.db.nextID("asg")
	}
	r.db.assignments = append(r.db.assignments, *assignment)
	return nil
}

func (r memResidents) CompleteAssignment(_ context.Context, _ sqlx.ExtContext, id string) error {
	for i := range r.db.assignments {
		if r.db.assignments[i].ID == id && r.db.assignments[i].Status == models.AssignmentStatusActive {
			r.db.assignments[i].Status = models.AssignmentStatusCompleted
		}
	}
	return nil
}

func (r memResidents) LockEnrollment(_ context.Context, _ sqlx.ExtContext, residentID, semesterID string) (*models.SemesterEnrollment, error) {
	for _, e := range r.db.enrollments {
		if e.ResidentID == residentID && e.SemesterID == semesterID {
			enrollment := e
			return &enrollment, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memResidents) CreateEnrollment(_ context.Context, _ sqlx.ExtContext, enrollment *models.SemesterEnrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = r.db.nextID("enr")
	}
	enrollment.Refresh()
	r.db.enrollments = append(r.db.enrollments, *enrollment)
	return nil
}

func (r memResidents) UpdateEnrollment(_ context.Context, _ sqlx.ExtContext, enrollment *models.SemesterEnrollment) error {
	enrollment.Refresh()
	for i := range r.db.enrollments {
		if r.db.enrollments[i].ID == enrollment.ID {
			r.db.enrollments[i] = *enrollment
			return nil
		}
	}
	return sql.ErrNoRows
}

// Snapshot builds reconciliation input the way ReconciliationRepository does for the newest
// schema: completed booking payments, active assignments, and ledger rows flagged when their
// source booking payment is completed.
func (db *memDB) Snapshot(_ context.Context, hostelID, semesterID string) (*models.ReconciliationSnapshot, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	snap := &models.ReconciliationSnapshot{HostelID: hostelID, SemesterID: semesterID, Mode: models.DedupSourceRef, SemesterScoped: true}
	inScope := map[string]bool{}
	for _, b := range db.bookings {
		if b.HostelID != hostelID || (semesterID != "" && b.SemesterID != semesterID) {
			continue
		}
		inScope[b.ID] = true
		snap.Bookings = append(snap.Bookings, models.ReconBooking{
			ID: b.ID, StudentName: b.StudentName, StudentEmail: b.StudentEmail, RoomID: b.RoomID,
			Status: b.Status, AmountDue: b.AmountDue, ResidentID: b.ResidentID,
		})
	}
	completed := map[string]bool{}
	for _, p := range db.bookingPayments {
		if p.Status != models.PaymentRecordCompleted {
			continue
		}
		completed[p.ID] = true
		if inScope[p.BookingID] {
			snap.BookingPayments = append(snap.BookingPayments, models.ReconBookingPayment{BookingID: p.BookingID, Method: p.Method, Amount: p.Amount})
		}
	}
	for _, a := range db.assignments {
		room := db.rooms[a.RoomID]
		if a.Status != models.AssignmentStatusActive || room.HostelID != hostelID {
			continue
		}
		if semesterID != "" && (a.SemesterID == nil || *a.SemesterID != semesterID) {
			continue
		}
		res := db.residents[a.ResidentID]
		snap.Assignments = append(snap.Assignments, models.ReconAssignment{
			ResidentID: a.ResidentID, FullName: res.FullName, Email: res.Email, RoomID: a.RoomID, Expected: room.Price,
		})
	}
	for _, p := range db.ledger {
		if p.HostelID == nil || *p.HostelID != hostelID {
			continue
		}
		if semesterID != "" && (p.SemesterID == nil || *p.SemesterID != semesterID) {
			continue
		}
		mirrored := p.SourceBookingPaymentID != nil && completed[*p.SourceBookingPaymentID]
		snap.Ledger = append(snap.Ledger, models.ReconLedger{ResidentID: p.ResidentID, Method: p.Method, Mirrored: mirrored, Amount: p.Amount})
	}
	return snap, nil
}
