package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/service"
	"github.com/noah-isme/hostel-booking-api/pkg/response"
)

type residentPaymentService interface {
	RecordResidentPayment(ctx context.Context, req service.ResidentPaymentRequest, actor string) (*models.ResidentPaymentResult, error)
}

// ResidentHandler records walk-in payments from residents.
type ResidentHandler struct {
	ledger residentPaymentService
}

// NewResidentHandler constructs the handler.
func NewResidentHandler(ledger residentPaymentService) *ResidentHandler {
	return &ResidentHandler{ledger: ledger}
}

// RecordPayment godoc
// @Summary Record a resident payment
// @Tags Residents
// @Accept json
// @Produce json
// @Param id path string true "Resident ID"
// @Param payload body service.ResidentPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /residents/{id}/payments [post]
func (h *ResidentHandler) RecordPayment(c *gin.Context) {
	var req service.ResidentPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ResidentID = c.Param("id")
	result, err := h.ledger.RecordResidentPayment(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
