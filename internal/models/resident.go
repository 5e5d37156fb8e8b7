package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Resident is a person with an account created at check-in.
type Resident struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AssignmentStatus is the state of a resident's room assignment.
type AssignmentStatus string

const (
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusCompleted AssignmentStatus = "completed"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
)

// ResidentAssignment links a resident to a room for a semester. Active assignments occupy a seat.
type ResidentAssignment struct {
	ID         string           `db:"id" json:"id"`
	ResidentID string           `db:"resident_id" json:"resident_id"`
	RoomID     string           `db:"room_id" json:"room_id"`
	SemesterID *string          `db:"semester_id" json:"semester_id,omitempty"`
	Status     AssignmentStatus `db:"status" json:"status"`
	AssignedAt time.Time        `db:"assigned_at" json:"assigned_at"`
	// RoomPrice is joined from rooms for balance derivation.
	RoomPrice decimal.Decimal `db:"room_price" json:"-"`
	HostelID  string          `db:"hostel_id" json:"-"`
}

// EnrollmentStatus is the financial standing of a resident for a semester.
type EnrollmentStatus string

const (
	EnrollmentStatusActive  EnrollmentStatus = "active"
	EnrollmentStatusPaid    EnrollmentStatus = "paid"
	EnrollmentStatusPartial EnrollmentStatus = "partial"
)

// SemesterEnrollment mirrors a booking's financial state on the resident side after check-in.
type SemesterEnrollment struct {
	ID               string           `db:"id" json:"id"`
	ResidentID       string           `db:"resident_id" json:"resident_id"`
	SemesterID       string           `db:"semester_id" json:"semester_id"`
	TotalAmount      decimal.Decimal  `db:"total_amount" json:"total_amount"`
	AmountPaid       decimal.Decimal  `db:"amount_paid" json:"amount_paid"`
	Balance          decimal.Decimal  `db:"balance" json:"balance"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
}

// Refresh recomputes balance and status from total and paid.
func (e *SemesterEnrollment) Refresh() {
	e.Balance = Outstanding(e.TotalAmount, e.AmountPaid)
	switch {
	case e.Balance.IsZero():
		e.EnrollmentStatus = EnrollmentStatusPaid
	case e.AmountPaid.IsPositive():
		e.EnrollmentStatus = EnrollmentStatusPartial
	default:
		e.EnrollmentStatus = EnrollmentStatusActive
	}
}

// ResidentProfile is the contact data handed over from a booking at check-in.
type ResidentProfile struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// RegistrationInput is everything resident registration needs from a checked-in booking.
type RegistrationInput struct {
	Profile     ResidentProfile
	HostelID    string
	RoomID      string
	SemesterID  string
	BookingID   string
	AmountDue   decimal.Decimal
	InitialPaid decimal.Decimal
}

// RegistrationResult describes the resident linked to a booking.
type RegistrationResult struct {
	ResidentID        string `json:"resident_id"`
	Created           bool   `json:"created"`
	AssignmentID      string `json:"assignment_id"`
	TemporaryPassword string `json:"-"`
	MirroredPayments  int    `json:"mirrored_payments"`
}

// CheckInResult is returned by booking check-in.
type CheckInResult struct {
	Booking        *Booking `json:"booking"`
	ResidentID     string   `json:"resident_id"`
	AlreadyChecked bool     `json:"already_checked_in"`
}
