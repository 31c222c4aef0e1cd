package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smk-student-hub/internal/service"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
	"github.com/noah-isme/smk-student-hub/pkg/response"
)

const maxBackupBytes = 32 << 20

// BackupHandler exports and restores the whole namespace.
type BackupHandler struct {
	backups *service.BackupService
}

// NewBackupHandler constructs BackupHandler.
func NewBackupHandler(backups *service.BackupService) *BackupHandler {
	return &BackupHandler{backups: backups}
}

// Export godoc
// @Summary Download a JSON backup of every key
// @Tags Backup
// @Produce json
// @Success 200 {file} binary
// @Router /backup [get]
func (h *BackupHandler) Export(c *gin.Context) {
	payload, err := h.backups.Export(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "smk-student-hub-backup-" + time.Now().Format("20060102") + ".json"
	response.Attachment(c, filename, "application/json", payload)
}

// Restore godoc
// @Summary Replace the namespace from a backup document
// @Description Unknown keys reject the whole document. Keys missing from the document are cleared.
// @Tags Backup
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /backup/restore [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBackupBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "backup could not be read"))
		return
	}
	restored, err := h.backups.Import(c.Request.Context(), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"restored": restored}, nil)
}
