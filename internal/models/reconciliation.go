package models

import "github.com/shopspring/decimal"

// DedupMode names how mirrored ledger rows are recognised.
type DedupMode string

const (
	// DedupSourceRef matches ledger rows to booking payments through source_booking_payment_id.
	DedupSourceRef DedupMode = "source_ref"
	// DedupIdentity caps each resident's ledger total by what their checked-in bookings collected.
	DedupIdentity DedupMode = "identity"
)

// ReconBooking is a booking inside a reconciliation scope.
type ReconBooking struct {
	ID           string          `db:"id" json:"id"`
	StudentName  string          `db:"student_name" json:"student_name"`
	StudentEmail string          `db:"student_email" json:"student_email"`
	RoomID       *string         `db:"room_id" json:"room_id,omitempty"`
	Status       BookingStatus   `db:"status" json:"status"`
	AmountDue    decimal.Decimal `db:"amount_due" json:"amount_due"`
	ResidentID   *string         `db:"resident_id" json:"resident_id,omitempty"`
}

// ReconBookingPayment is the completed booking money for one booking and method.
type ReconBookingPayment struct {
	BookingID string          `db:"booking_id" json:"booking_id"`
	Method    PaymentMethod   `db:"method" json:"method"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
}

// ReconAssignment is an active assignment with the room price the resident is expected to pay.
type ReconAssignment struct {
	ResidentID string          `db:"resident_id" json:"resident_id"`
	FullName   string          `db:"full_name" json:"full_name"`
	Email      string          `db:"email" json:"email"`
	RoomID     string          `db:"room_id" json:"room_id"`
	Expected   decimal.Decimal `db:"expected" json:"expected"`
}

// ReconLedger is ledger money for one resident and method. Mirrored is true for rows whose
// source booking payment is completed.
type ReconLedger struct {
	ResidentID string          `db:"resident_id" json:"resident_id"`
	Method     PaymentMethod   `db:"method" json:"method"`
	Mirrored   bool            `db:"mirrored" json:"mirrored"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
}

// ReconResident carries display fields for residents only present through ledger rows.
type ReconResident struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// ReconciliationSnapshot is the raw material read for one (hostel, semester) scope.
type ReconciliationSnapshot struct {
	HostelID        string
	SemesterID      string
	Mode            DedupMode
	SemesterScoped  bool
	Bookings        []ReconBooking
	BookingPayments []ReconBookingPayment
	Assignments     []ReconAssignment
	Ledger          []ReconLedger
	Residents       []ReconResident
	Gaps            []string
}
