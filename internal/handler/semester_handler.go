package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/service"
	"github.com/noah-isme/hostel-booking-api/pkg/response"
)

type semesterService interface {
	Current(ctx context.Context, hostelID string) (*models.Semester, error)
	SetCurrentSemester(ctx context.Context, hostelID string, req service.SetCurrentSemesterRequest) (*models.Semester, error)
}

// SemesterHandler manages each hostel's current semester.
type SemesterHandler struct {
	semesters semesterService
}

// NewSemesterHandler constructs the handler.
func NewSemesterHandler(semesters semesterService) *SemesterHandler {
	return &SemesterHandler{semesters: semesters}
}

// Current godoc
// @Summary Current semester of a hostel
// @Tags Semesters
// @Produce json
// @Param id path string true "Hostel ID"
// @Success 200 {object} response.Envelope
// @Router /hostels/{id}/current-semester [get]
func (h *SemesterHandler) Current(c *gin.Context) {
	semester, err := h.semesters.Current(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// SetCurrent godoc
// @Summary Switch a hostel's current semester
// @Tags Semesters
// @Accept json
// @Produce json
// @Param id path string true "Hostel ID"
// @Param payload body service.SetCurrentSemesterRequest true "Semester"
// @Success 200 {object} response.Envelope
// @Router /hostels/{id}/current-semester [put]
func (h *SemesterHandler) SetCurrent(c *gin.Context) {
	var req service.SetCurrentSemesterRequest
	if !bindJSON(c, &req) {
		return
	}
	semester, err := h.semesters.SetCurrentSemester(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}
