package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/pkg/database"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

// txRunner executes a read-modify-write sequence atomically.
type txRunner interface {
	InTx(ctx context.Context, fn database.TxFunc) error
}

type roomStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Room, error)
	Lock(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Room, error)
	CountOccupied(ctx context.Context, exec sqlx.ExtContext, roomID, semesterID string) (int, error)
	RefreshOccupancy(ctx context.Context, exec sqlx.ExtContext, roomID string, occupied int) error
}

type semesterStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Semester, error)
	Current(ctx context.Context, hostelID string) (*models.Semester, error)
	SetCurrent(ctx context.Context, exec sqlx.ExtContext, hostelID, semesterID string) error
}

// CapacityService is the single authority on whether a room has a free seat.
type CapacityService struct {
	rooms     roomStore
	semesters semesterStore
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewCapacityService constructs CapacityService.
func NewCapacityService(rooms roomStore, semesters semesterStore, metrics *MetricsService, logger *zap.Logger) *CapacityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityService{rooms: rooms, semesters: semesters, metrics: metrics, logger: logger}
}

// Check reports a room's occupancy for a semester. When semesterID is empty the hostel's current
// semester is used. The result is point-in-time and must not gate writes.
func (s *CapacityService) Check(ctx context.Context, roomID, semesterID string) (*models.RoomCapacity, error) {
	if roomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "room id is required")
	}
	room, err := s.rooms.FindByID(ctx, nil, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, wrapStoreError(err, "failed to load room")
	}
	if semesterID == "" {
		semesterID, err = s.currentSemesterID(ctx, room.HostelID)
		if err != nil {
			return nil, err
		}
	}
	occupied, err := s.rooms.CountOccupied(ctx, nil, roomID, semesterID)
	if err != nil {
		return nil, wrapStoreError(err, "failed to count room occupancy")
	}
	return newRoomCapacity(room, semesterID, occupied), nil
}

// Admit locks the room row inside tx and confirms a seat is free. Every writer that adds an
// occupant to the room must call it in the same transaction as the insert.
func (s *CapacityService) Admit(ctx context.Context, tx sqlx.ExtContext, roomID, semesterID string) (*models.Room, error) {
	room, err := s.rooms.Lock(ctx, tx, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, wrapStoreError(err, "failed to lock room")
	}
	if room.Status == models.RoomStatusMaintenance {
		return nil, appErrors.Clone(appErrors.ErrStatePrecondition, "room is under maintenance")
	}
	occupied, err := s.rooms.CountOccupied(ctx, tx, roomID, semesterID)
	if err != nil {
		return nil, wrapStoreError(err, "failed to count room occupancy")
	}
	if occupied >= room.Capacity {
		s.metrics.RecordEvent(EventCapacityRejected)
		s.logger.Info("room at capacity",
			zap.String("room_id", roomID),
			zap.String("semester_id", semesterID),
			zap.Int("capacity", room.Capacity),
			zap.Int("occupied", occupied),
		)
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, fmt.Sprintf("room %s is full (%d/%d)", room.RoomNumber, occupied, room.Capacity))
	}
	return room, nil
}

// UpdateRoomOccupancy recounts the room and stores the count on the room row.
func (s *CapacityService) UpdateRoomOccupancy(ctx context.Context, tx sqlx.ExtContext, roomID, semesterID string) (int, error) {
	occupied, err := s.rooms.CountOccupied(ctx, tx, roomID, semesterID)
	if err != nil {
		return 0, wrapStoreError(err, "failed to count room occupancy")
	}
	if err := s.rooms.RefreshOccupancy(ctx, tx, roomID, occupied); err != nil {
		return 0, wrapStoreError(err, "failed to refresh room occupancy")
	}
	return occupied, nil
}

func (s *CapacityService) currentSemesterID(ctx context.Context, hostelID string) (string, error) {
	if s.semesters == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "semester id is required")
	}
	semester, err := s.semesters.Current(ctx, hostelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrValidation, "hostel has no current semester")
		}
		return "", wrapStoreError(err, "failed to resolve current semester")
	}
	if semester == nil {
		return "", nil
	}
	return semester.ID, nil
}

func newRoomCapacity(room *models.Room, semesterID string, occupied int) *models.RoomCapacity {
	available := room.Capacity - occupied
	if available < 0 {
		available = 0
	}
	return &models.RoomCapacity{
		RoomID:     room.ID,
		SemesterID: semesterID,
		Status:     room.Status,
		Capacity:   room.Capacity,
		Occupied:   occupied,
		Available:  available,
	}
}

// wrapStoreError keeps typed errors (schema gaps, retryable conflicts wrapped by the store) and
// turns everything else into an internal error.
func wrapStoreError(err error, message string) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
