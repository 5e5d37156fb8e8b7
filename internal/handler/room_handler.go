package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/pkg/response"
)

type capacityChecker interface {
	Check(ctx context.Context, roomID, semesterID string) (*models.RoomCapacity, error)
}

// RoomHandler reports room availability.
type RoomHandler struct {
	capacity capacityChecker
}

// NewRoomHandler constructs the handler.
func NewRoomHandler(capacity capacityChecker) *RoomHandler {
	return &RoomHandler{capacity: capacity}
}

// Capacity godoc
// @Summary Room capacity and occupancy
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Param semesterId query string false "Semester"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/capacity [get]
func (h *RoomHandler) Capacity(c *gin.Context) {
	result, err := h.capacity.Check(c.Request.Context(), c.Param("id"), c.Query("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
