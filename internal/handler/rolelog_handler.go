package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/internal/service"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
	"github.com/noah-isme/smk-student-hub/pkg/response"
)

// RoleLogHandler exposes the per-role note collections.
type RoleLogHandler struct {
	logs *service.RoleLogService
}

// NewRoleLogHandler constructs RoleLogHandler.
func NewRoleLogHandler(logs *service.RoleLogService) *RoleLogHandler {
	return &RoleLogHandler{logs: logs}
}

func logKindParam(c *gin.Context) (models.LogKind, bool) {
	kind, ok := models.ParseLogKind(c.Param("role"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown log"))
	}
	return kind, ok
}

// List godoc
// @Summary List log entries
// @Tags Logs
// @Produce json
// @Param role path string true "counselor, homeroom, discipline or companion"
// @Success 200 {object} response.Envelope
// @Router /logs/{role} [get]
func (h *RoleLogHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	kind, ok := logKindParam(c)
	if !ok {
		return
	}
	entries, err := h.logs.List(c.Request.Context(), session, kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Append godoc
// @Summary Append a log entry
// @Tags Logs
// @Accept json
// @Produce json
// @Param role path string true "counselor, homeroom, discipline or companion"
// @Param payload body dto.LogEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Router /logs/{role} [post]
func (h *RoleLogHandler) Append(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	kind, ok := logKindParam(c)
	if !ok {
		return
	}
	var req dto.LogEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.logs.Append(c.Request.Context(), session, kind, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}
