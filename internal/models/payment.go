package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how money was received.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	// PaymentMethodUnspecified buckets money whose method is unknown to the schema.
	PaymentMethodUnspecified PaymentMethod = "unspecified"
)

// PaymentRecordStatus is the settlement status of a single payment row.
type PaymentRecordStatus string

const (
	PaymentRecordPending   PaymentRecordStatus = "pending"
	PaymentRecordCompleted PaymentRecordStatus = "completed"
	PaymentRecordFailed    PaymentRecordStatus = "failed"
)

// BookingPayment is an append-only payment event against a booking.
type BookingPayment struct {
	ID         string              `db:"id" json:"id"`
	BookingID  string              `db:"booking_id" json:"booking_id"`
	Amount     decimal.Decimal     `db:"amount" json:"amount"`
	Method     PaymentMethod       `db:"method" json:"method"`
	Status     PaymentRecordStatus `db:"status" json:"status"`
	Reference  *string             `db:"reference" json:"reference,omitempty"`
	RecordedBy *string             `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
}

// LedgerPayment is an append-only payment recorded directly against a resident. SourceBookingPaymentID
// is set on rows mirrored from booking payments at check-in.
type LedgerPayment struct {
	ID                     string          `db:"id" json:"id"`
	ResidentID             string          `db:"resident_id" json:"resident_id"`
	HostelID               *string         `db:"hostel_id" json:"hostel_id,omitempty"`
	SemesterID             *string         `db:"semester_id" json:"semester_id,omitempty"`
	Amount                 decimal.Decimal `db:"amount" json:"amount"`
	Method                 PaymentMethod   `db:"method" json:"method,omitempty"`
	Reference              *string         `db:"reference" json:"reference,omitempty"`
	RecordedBy             *string         `db:"recorded_by" json:"recorded_by,omitempty"`
	SourceBookingPaymentID *string         `db:"source_booking_payment_id" json:"source_booking_payment_id,omitempty"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
}

// BookingPaymentResult is returned by booking payment application.
type BookingPaymentResult struct {
	Booking *Booking        `json:"booking"`
	Payment *BookingPayment `json:"payment"`
	Balance decimal.Decimal `json:"balance"`
}

// ResidentPaymentResult is returned by resident ledger payments.
type ResidentPaymentResult struct {
	Payment    *LedgerPayment      `json:"payment"`
	Enrollment *SemesterEnrollment `json:"enrollment,omitempty"`
	Balance    decimal.Decimal     `json:"balance"`
	// Clamped is set when the legacy path reduced the amount to the outstanding balance.
	Clamped bool `json:"clamped,omitempty"`
}
