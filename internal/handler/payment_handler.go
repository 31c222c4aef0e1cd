package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/service"
	"github.com/noah-isme/smk-student-hub/pkg/response"
)

// PaymentHandler exposes komite fee endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Status godoc
// @Summary Payment status per student
// @Tags Payments
// @Produce json
// @Param class_id query string false "Class"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) Status(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	status, err := h.payments.Status(c.Request.Context(), session, c.Query("class_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// SetPaid godoc
// @Summary Mark a month paid or unpaid
// @Tags Payments
// @Accept json
// @Produce json
// @Param nis path string true "Student NIS"
// @Param month path string true "Academic month name, e.g. Juli"
// @Param payload body dto.PaymentRequest true "Payment flag"
// @Success 200 {object} response.Envelope
// @Router /payments/{nis}/{month} [put]
func (h *PaymentHandler) SetPaid(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.payments.SetPaid(c.Request.Context(), session, c.Param("nis"), c.Param("month"), req.Paid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Tally godoc
// @Summary Arrears and collected totals
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payments/tally [get]
func (h *PaymentHandler) Tally(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	tally, hit, err := h.payments.Tally(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithCache(c, tally, hit)
}

// History godoc
// @Summary Payment history
// @Tags Payments
// @Produce json
// @Param nis query string false "Student NIS"
// @Success 200 {object} response.Envelope
// @Router /payments/history [get]
func (h *PaymentHandler) History(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	history, err := h.payments.History(c.Request.Context(), session, c.Query("nis"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
