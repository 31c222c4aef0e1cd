package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/service"
	"github.com/noah-isme/smk-student-hub/pkg/response"
)

// PreferenceHandler stores UI preferences.
type PreferenceHandler struct {
	preferences *service.PreferenceService
}

// NewPreferenceHandler constructs PreferenceHandler.
func NewPreferenceHandler(preferences *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferences: preferences}
}

// Theme godoc
// @Summary Current theme
// @Tags Preferences
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /preferences/theme [get]
func (h *PreferenceHandler) Theme(c *gin.Context) {
	theme, err := h.preferences.Theme(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"theme": theme}, nil)
}

// SetTheme godoc
// @Summary Persist theme
// @Tags Preferences
// @Accept json
// @Produce json
// @Param payload body dto.ThemeRequest true "Theme"
// @Success 200 {object} response.Envelope
// @Router /preferences/theme [put]
func (h *PreferenceHandler) SetTheme(c *gin.Context) {
	var req dto.ThemeRequest
	if !bindJSON(c, &req) {
		return
	}
	theme, err := h.preferences.SetTheme(c.Request.Context(), req.Theme)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"theme": theme}, nil)
}
