package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomStatus is the administrative state of a room.
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusMaintenance RoomStatus = "maintenance"
	RoomStatusReserved    RoomStatus = "reserved"
)

// Room is a bookable unit. Price is the per-semester price resolved from whichever price column
// the deployment has.
type Room struct {
	ID         string          `db:"id" json:"id"`
	HostelID   string          `db:"hostel_id" json:"hostel_id"`
	RoomNumber string          `db:"room_number" json:"room_number"`
	Capacity   int             `db:"capacity" json:"capacity"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Status     RoomStatus      `db:"status" json:"status"`
}

// Semester is a billing and occupancy period scoped to one hostel.
type Semester struct {
	ID        string    `db:"id" json:"id"`
	HostelID  string    `db:"hostel_id" json:"hostel_id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
}

// RoomCapacity is the point-in-time occupancy of a room for a semester.
type RoomCapacity struct {
	RoomID     string     `json:"room_id"`
	SemesterID string     `json:"semester_id"`
	Status     RoomStatus `json:"status"`
	Capacity   int        `json:"capacity"`
	Occupied   int        `json:"occupied"`
	Available  int        `json:"available"`
}
