package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-booking-api/internal/dto"
	"github.com/noah-isme/hostel-booking-api/internal/middleware"
	"github.com/noah-isme/hostel-booking-api/internal/service"
	"github.com/noah-isme/hostel-booking-api/pkg/response"
)

type collectionService interface {
	Summary(ctx context.Context, hostelID, semesterID string) (*dto.CollectionSummary, bool, error)
	RoomSummary(ctx context.Context, hostelID, semesterID, roomID string) (*dto.CollectionSummary, error)
	StudentBalance(ctx context.Context, hostelID, semesterID, entityID string) (*dto.EntityBalance, error)
	Export(ctx context.Context, hostelID, semesterID, format string) (*service.ReportDocument, error)
}

// CollectionHandler serves the accountant's collection reports.
type CollectionHandler struct {
	collections collectionService
}

// NewCollectionHandler constructs the handler.
func NewCollectionHandler(collections collectionService) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

// Summary godoc
// @Summary Hostel collection summary
// @Tags Collections
// @Produce json
// @Param hostelId query string true "Hostel"
// @Param semesterId query string false "Semester, defaults to the current one"
// @Success 200 {object} response.Envelope
// @Router /collections/summary [get]
func (h *CollectionHandler) Summary(c *gin.Context) {
	hostelID, semesterID, ok := scope(c)
	if !ok {
		return
	}
	summary, hit, err := h.collections.Summary(c.Request.Context(), hostelID, semesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Room godoc
// @Summary Collection summary for one room
// @Tags Collections
// @Produce json
// @Param id path string true "Room ID"
// @Param hostelId query string true "Hostel"
// @Param semesterId query string false "Semester"
// @Success 200 {object} response.Envelope
// @Router /collections/rooms/{id} [get]
func (h *CollectionHandler) Room(c *gin.Context) {
	hostelID, semesterID, ok := scope(c)
	if !ok {
		return
	}
	summary, err := h.collections.RoomSummary(c.Request.Context(), hostelID, semesterID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Student godoc
// @Summary Balance of one resident or booking
// @Tags Collections
// @Produce json
// @Param id path string true "Resident or booking ID"
// @Param hostelId query string true "Hostel"
// @Param semesterId query string false "Semester"
// @Success 200 {object} response.Envelope
// @Router /collections/students/{id} [get]
func (h *CollectionHandler) Student(c *gin.Context) {
	hostelID, semesterID, ok := scope(c)
	if !ok {
		return
	}
	balance, err := h.collections.StudentBalance(c.Request.Context(), hostelID, semesterID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// Export godoc
// @Summary Export the collection summary
// @Tags Collections
// @Produce octet-stream
// @Param hostelId query string true "Hostel"
// @Param semesterId query string false "Semester"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Router /collections/export [get]
func (h *CollectionHandler) Export(c *gin.Context) {
	hostelID, semesterID, ok := scope(c)
	if !ok {
		return
	}
	doc, err := h.collections.Export(c.Request.Context(), hostelID, semesterID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Body)
}
