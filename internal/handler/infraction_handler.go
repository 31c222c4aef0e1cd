package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/internal/service"
	"github.com/noah-isme/smk-student-hub/pkg/response"
)

// InfractionHandler exposes the infraction workflow.
type InfractionHandler struct {
	infractions *service.InfractionService
}

// NewInfractionHandler constructs InfractionHandler.
func NewInfractionHandler(infractions *service.InfractionService) *InfractionHandler {
	return &InfractionHandler{infractions: infractions}
}

// List godoc
// @Summary List infractions
// @Description Infractions about visible students, newest first
// @Tags Infractions
// @Produce json
// @Param nis query string false "Student NIS"
// @Param class_id query string false "Class"
// @Param status query string false "Workflow status"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /infractions [get]
func (h *InfractionHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	from, ok := dateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := dateQuery(c, "to")
	if !ok {
		return
	}
	filter := models.InfractionFilter{
		NIS:     c.Query("nis"),
		ClassID: c.Query("class_id"),
		Status:  models.InfractionStatus(c.Query("status")),
		From:    from,
		To:      to,
	}
	views, err := h.infractions.List(c.Request.Context(), session, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Create godoc
// @Summary Record infraction
// @Tags Infractions
// @Accept json
// @Produce json
// @Param payload body dto.CreateInfractionRequest true "Infraction payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /infractions [post]
func (h *InfractionHandler) Create(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateInfractionRequest
	if !bindJSON(c, &req) {
		return
	}
	infraction, err := h.infractions.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, infraction)
}

// UpdateStatus godoc
// @Summary Advance infraction status
// @Tags Infractions
// @Accept json
// @Produce json
// @Param id path string true "Infraction ID"
// @Param payload body dto.InfractionStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /infractions/{id}/status [patch]
func (h *InfractionHandler) UpdateStatus(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.InfractionStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	infraction, err := h.infractions.UpdateStatus(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, infraction, nil)
}

// Delete godoc
// @Summary Delete infraction
// @Tags Infractions
// @Param id path string true "Infraction ID"
// @Success 204
// @Router /infractions/{id} [delete]
func (h *InfractionHandler) Delete(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	if err := h.infractions.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Rollup godoc
// @Summary Accumulated points per student
// @Tags Infractions
// @Produce json
// @Param class_id query string false "Class"
// @Success 200 {object} response.Envelope
// @Router /infractions/rollup [get]
func (h *InfractionHandler) Rollup(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	rollup, hit, err := h.infractions.Rollup(c.Request.Context(), session, c.Query("class_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithCache(c, rollup, hit)
}

// RollupCSV godoc
// @Summary Download the point rollup as CSV
// @Tags Infractions
// @Produce text/csv
// @Param class_id query string false "Class"
// @Success 200 {file} binary
// @Router /infractions/rollup/export.csv [get]
func (h *InfractionHandler) RollupCSV(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	payload, err := h.infractions.RollupCSV(c.Request.Context(), session, c.Query("class_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "rekap-poin.csv", csvContentType, payload)
}
