package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/internal/service"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
	"github.com/noah-isme/smk-student-hub/pkg/response"
)

const maxStateBytes = 16 << 20

// StateHandler gives administrators raw access to single keys.
type StateHandler struct {
	state *service.StateService
}

// NewStateHandler constructs StateHandler.
func NewStateHandler(state *service.StateService) *StateHandler {
	return &StateHandler{state: state}
}

func stateKeyParam(c *gin.Context) (models.StateKey, bool) {
	key, ok := models.ParseStateKey(c.Param("key"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrUnknownKey, "unknown key "+c.Param("key")))
	}
	return key, ok
}

// expectedVersion reads If-Match. Absent or "*" disables the version check.
func expectedVersion(c *gin.Context) (int64, bool) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" || raw == "*" {
		return models.AnyVersion, true
	}
	raw = strings.TrimPrefix(raw, "W/")
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "If-Match must carry a version"))
		return 0, false
	}
	return version, true
}

// Get godoc
// @Summary Read one stored key
// @Tags State
// @Produce json
// @Param key path string true "State key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /state/{key} [get]
func (h *StateHandler) Get(c *gin.Context) {
	key, ok := stateKeyParam(c)
	if !ok {
		return
	}
	entry, err := h.state.Raw(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Versioned(c, http.StatusOK, entry.Value, entry.Version)
}

// Put godoc
// @Summary Overwrite one stored key
// @Description Send the version from the ETag in If-Match to guard against lost updates
// @Tags State
// @Accept json
// @Produce json
// @Param key path string true "State key"
// @Param If-Match header string false "Expected version"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /state/{key} [put]
func (h *StateHandler) Put(c *gin.Context) {
	key, ok := stateKeyParam(c)
	if !ok {
		return
	}
	expected, ok := expectedVersion(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxStateBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "body could not be read"))
		return
	}
	entry, err := h.state.SaveRaw(c.Request.Context(), key, body, expected)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Versioned(c, http.StatusOK, entry.Value, entry.Version)
}
