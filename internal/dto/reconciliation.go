package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType distinguishes residents from bookings that never checked in.
type EntityType string

const (
	EntityResident EntityType = "resident"
	EntityBooking  EntityType = "booking"
)

// BalanceStatus classifies an entity's settlement.
type BalanceStatus string

const (
	BalanceUnassigned BalanceStatus = "unassigned"
	BalanceUnpaid     BalanceStatus = "unpaid"
	BalancePartial    BalanceStatus = "partial"
	BalancePaid       BalanceStatus = "paid"
)

// MethodTotal is the collected amount for one payment method.
type MethodTotal struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// EntityBalance is one student's position within a scope. Paid = BookingPaid + LedgerPaid - Duplicated.
type EntityBalance struct {
	EntityID    string                     `json:"entity_id"`
	EntityType  EntityType                 `json:"entity_type"`
	Name        string                     `json:"name"`
	Email       string                     `json:"email"`
	RoomID      string                     `json:"room_id,omitempty"`
	BookingIDs  []string                   `json:"booking_ids,omitempty"`
	Expected    decimal.Decimal            `json:"expected"`
	Paid        decimal.Decimal            `json:"paid"`
	BookingPaid decimal.Decimal            `json:"booking_paid"`
	LedgerPaid  decimal.Decimal            `json:"ledger_paid"`
	Duplicated  decimal.Decimal            `json:"duplicated"`
	Balance     decimal.Decimal            `json:"balance"`
	Status      BalanceStatus              `json:"status"`
	Methods     map[string]decimal.Decimal `json:"methods"`
}

// CollectionSummary is the authoritative collected/outstanding view of a scope.
type CollectionSummary struct {
	HostelID         string          `json:"hostel_id"`
	SemesterID       string          `json:"semester_id,omitempty"`
	RoomID           string          `json:"room_id,omitempty"`
	TotalExpected    decimal.Decimal `json:"total_expected"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	BookingTotal     decimal.Decimal `json:"booking_total"`
	LedgerTotal      decimal.Decimal `json:"ledger_total"`
	Duplicated       decimal.Decimal `json:"duplicated"`
	DedupMode        string          `json:"dedup_mode"`
	Methods          []MethodTotal   `json:"methods"`
	Entities         []EntityBalance `json:"entities"`
	Gaps             []string        `json:"gaps,omitempty"`
	GeneratedAt      time.Time       `json:"generated_at"`
}
