package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/schema"
)

// RoomRepository reads rooms and derives their occupancy.
type RoomRepository struct {
	db     *sqlx.DB
	schema schema.Resolver
}

// NewRoomRepository constructs RoomRepository.
func NewRoomRepository(db *sqlx.DB, resolver schema.Resolver) *RoomRepository {
	return &RoomRepository{db: db, schema: resolver}
}

func (r *RoomRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func roomSelect(s schema.LogicalSchema) string {
	return fmt.Sprintf(`SELECT r.id, r.hostel_id, r.room_number, r.capacity, %s AS price, r.status FROM rooms r WHERE r.id = $1`, s.RoomPriceExpr("r"))
}

// FindByID loads a room without locking it.
func (r *RoomRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Room, error) {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	var room models.Room
	if err := sqlx.GetContext(ctx, r.exec(exec), &room, roomSelect(s), id); err != nil {
		return nil, err
	}
	return &room, nil
}

// Lock loads a room and holds its row lock until the surrounding transaction ends. All seat
// admissions for the room serialise on this lock.
func (r *RoomRepository) Lock(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Room, error) {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	var room models.Room
	if err := sqlx.GetContext(ctx, r.exec(exec), &room, roomSelect(s)+" FOR UPDATE", id); err != nil {
		return nil, err
	}
	return &room, nil
}

// CountOccupied returns the seats taken in a room for a semester: active assignments, live
// bookings, and checked-in bookings whose resident has no active assignment there yet.
func (r *RoomRepository) CountOccupied(ctx context.Context, exec sqlx.ExtContext, roomID, semesterID string) (int, error) {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	query := occupancyQuery(s)
	var occupied int
	if err := sqlx.GetContext(ctx, r.exec(exec), &occupied, query, roomID, semesterID); err != nil {
		return 0, fmt.Errorf("count room occupancy: %w", err)
	}
	return occupied, nil
}

func occupancyQuery(s schema.LogicalSchema) string {
	const liveBookings = `(SELECT COUNT(*) FROM bookings b WHERE b.room_id = $1 AND b.semester_id = $2 AND b.status IN ('pending', 'booked'))`
	if !s.HasAssignments {
		return `SELECT ` + liveBookings + ` + (SELECT COUNT(*) FROM bookings b WHERE b.room_id = $1 AND b.semester_id = $2 AND b.status = 'checked_in')`
	}

	resident := schema.Column("a", s.AssignmentResidentColumn)
	activeSemester := ""
	matchSemester := ""
	if s.AssignmentHasSemester {
		activeSemester = " AND a.semester_id = $2"
		matchSemester = " AND a.semester_id = b.semester_id"
	}
	assignments := `(SELECT COUNT(*) FROM student_room_assignments a WHERE a.room_id = $1 AND a.status = 'active'` + activeSemester + `)`
	unassigned := fmt.Sprintf(`(SELECT COUNT(*) FROM bookings b WHERE b.room_id = $1 AND b.semester_id = $2 AND b.status = 'checked_in'
 AND NOT EXISTS (SELECT 1 FROM student_room_assignments a WHERE a.room_id = b.room_id AND a.status = 'active' AND %s = b.resident_id%s))`, resident, matchSemester)
	return `SELECT ` + assignments + ` + ` + liveBookings + ` + ` + unassigned
}

// RefreshOccupancy stores the derived count on the room for listing screens. Rooms under
// maintenance keep their status.
func (r *RoomRepository) RefreshOccupancy(ctx context.Context, exec sqlx.ExtContext, roomID string, occupied int) error {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return err
	}
	if !s.RoomHasOccupancy {
		return nil
	}
	const query = `UPDATE rooms SET current_occupancy = $2,
 status = CASE WHEN status = 'maintenance' THEN status WHEN $2 >= capacity THEN 'occupied' ELSE 'available' END
 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, roomID, occupied); err != nil {
		return fmt.Errorf("refresh room occupancy: %w", err)
	}
	return nil
}
