package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/service"
	"github.com/noah-isme/hostel-booking-api/pkg/response"
)

type bookingService interface {
	Create(ctx context.Context, req service.CreateBookingRequest) (*models.Booking, error)
	Get(ctx context.Context, id string) (*models.Booking, error)
	GetByVerificationCode(ctx context.Context, code string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error)
	ListPayments(ctx context.Context, id string) ([]models.BookingPayment, error)
	ApplyPayment(ctx context.Context, id string, req service.BookingPaymentRequest, actor string) (*models.BookingPaymentResult, error)
	AssignRoom(ctx context.Context, id string, req service.AssignRoomRequest) (*models.Booking, error)
	CheckIn(ctx context.Context, id string, actor string) (*models.CheckInResult, error)
	Cancel(ctx context.Context, id string, req service.CancelBookingRequest) (*models.Booking, error)
	Receipt(ctx context.Context, id string) (*service.ReceiptDocument, error)
}

// BookingHandler exposes the booking intake and front desk endpoints.
type BookingHandler struct {
	bookings bookingService
}

// NewBookingHandler constructs the handler.
func NewBookingHandler(bookings bookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// Create godoc
// @Summary Create booking at the front desk
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req service.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Source == "" {
		req.Source = string(models.BookingSourceOnSite)
	}
	booking, err := h.bookings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// PublicCreate godoc
// @Summary Submit an online booking request
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /public/bookings [post]
func (h *BookingHandler) PublicCreate(c *gin.Context) {
	var req service.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Source = string(models.BookingSourceOnline)
	booking, err := h.bookings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// List godoc
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param hostelId query string false "Hostel"
// @Param semesterId query string false "Semester"
// @Param roomId query string false "Room"
// @Param status query string false "pending, booked, checked_in or cancelled"
// @Param source query string false "on_site or online"
// @Param search query string false "Search by name, email or phone"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	filter := models.BookingFilter{
		HostelID:   strings.TrimSpace(c.Query("hostelId")),
		SemesterID: strings.TrimSpace(c.Query("semesterId")),
		RoomID:     strings.TrimSpace(c.Query("roomId")),
		Status:     models.BookingStatus(c.Query("status")),
		Source:     models.BookingSource(c.Query("source")),
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "limit", 20),
	}
	bookings, pagination, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Get godoc
// @Summary Get booking detail
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Verify godoc
// @Summary Find a booking by verification code
// @Tags Bookings
// @Produce json
// @Param code path string true "Verification code"
// @Success 200 {object} response.Envelope
// @Router /bookings/verify/{code} [get]
func (h *BookingHandler) Verify(c *gin.Context) {
	booking, err := h.bookings.GetByVerificationCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// ApplyPayment godoc
// @Summary Record a payment against a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.BookingPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /bookings/{id}/payments [post]
func (h *BookingHandler) ApplyPayment(c *gin.Context) {
	var req service.BookingPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.bookings.ApplyPayment(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListPayments godoc
// @Summary List booking payments
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/payments [get]
func (h *BookingHandler) ListPayments(c *gin.Context) {
	payments, err := h.bookings.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// AssignRoom godoc
// @Summary Assign or change a booking's room
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.AssignRoomRequest true "Room payload"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/room [post]
func (h *BookingHandler) AssignRoom(c *gin.Context) {
	var req service.AssignRoomRequest
	if !bindJSON(c, &req) {
		return
	}
	booking, err := h.bookings.AssignRoom(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// CheckIn godoc
// @Summary Check in a fully paid booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /bookings/{id}/check-in [post]
func (h *BookingHandler) CheckIn(c *gin.Context) {
	result, err := h.bookings.CheckIn(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.CancelBookingRequest false "Cancel payload"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req service.CancelBookingRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	booking, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Receipt godoc
// @Summary Download a booking receipt
// @Tags Bookings
// @Produce application/pdf
// @Param id path string true "Booking ID"
// @Success 200 {file} file
// @Router /bookings/{id}/receipt [get]
func (h *BookingHandler) Receipt(c *gin.Context) {
	doc, err := h.bookings.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Body)
}
