package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus tracks the booking lifecycle.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusBooked    BookingStatus = "booked"
	BookingStatusCheckedIn BookingStatus = "checked_in"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BookingPaymentStatus summarises how much of amount_due is settled.
type BookingPaymentStatus string

const (
	BookingPaymentPending BookingPaymentStatus = "pending"
	BookingPaymentPartial BookingPaymentStatus = "partial"
	BookingPaymentPaid    BookingPaymentStatus = "paid"
)

// BookingSource records where a booking request originated.
type BookingSource string

const (
	BookingSourceOnSite BookingSource = "on_site"
	BookingSourceOnline BookingSource = "online"
)

// Booking is a reservation request for a room and semester before the requester becomes a resident.
type Booking struct {
	ID               string               `db:"id" json:"id"`
	HostelID         string               `db:"hostel_id" json:"hostel_id"`
	SemesterID       string               `db:"semester_id" json:"semester_id"`
	RoomID           *string              `db:"room_id" json:"room_id,omitempty"`
	Source           BookingSource        `db:"source" json:"source"`
	StudentName      string               `db:"student_name" json:"student_name"`
	StudentEmail     string               `db:"student_email" json:"student_email"`
	StudentPhone     string               `db:"student_phone" json:"student_phone"`
	Gender           *string              `db:"gender" json:"gender,omitempty"`
	AmountDue        decimal.Decimal      `db:"amount_due" json:"amount_due"`
	AmountPaid       decimal.Decimal      `db:"amount_paid" json:"amount_paid"`
	PaymentStatus    BookingPaymentStatus `db:"payment_status" json:"payment_status"`
	Status           BookingStatus        `db:"status" json:"status"`
	VerificationCode *string              `db:"verification_code" json:"verification_code,omitempty"`
	ResidentID       *string              `db:"resident_id" json:"resident_id,omitempty"`
	CheckedInAt      *time.Time           `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CancelledAt      *time.Time           `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt        time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time            `db:"updated_at" json:"updated_at"`
	Balance          decimal.Decimal      `db:"-" json:"balance"`
}

// Outstanding returns max(amount_due - amount_paid, 0).
func (b *Booking) Outstanding() decimal.Decimal {
	return Outstanding(b.AmountDue, b.AmountPaid)
}

// Refresh recomputes the derived balance and payment status from the running totals.
func (b *Booking) Refresh() {
	b.Balance = b.Outstanding()
	switch {
	case b.AmountPaid.IsZero() && b.AmountDue.IsPositive():
		b.PaymentStatus = BookingPaymentPending
	case b.AmountPaid.LessThan(b.AmountDue):
		b.PaymentStatus = BookingPaymentPartial
	default:
		b.PaymentStatus = BookingPaymentPaid
	}
}

// IsLive reports whether the booking still holds a seat and expects money.
func (b *Booking) IsLive() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusBooked
}

// BookingFilter captures list criteria.
type BookingFilter struct {
	HostelID   string
	SemesterID string
	RoomID     string
	Status     BookingStatus
	Source     BookingSource
	Search     string
	Page       int
	PageSize   int
}

// Outstanding is the clamped difference between what is due and what has been paid.
func Outstanding(due, paid decimal.Decimal) decimal.Decimal {
	diff := due.Sub(paid)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}
