package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/internal/service"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
	"github.com/noah-isme/smk-student-hub/pkg/response"
)

type reportJobService interface {
	CreateJob(ctx context.Context, session models.Session, req dto.ReportRequest) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, session models.Session, id string) (*dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

type monthlyRenderer interface {
	Monthly(ctx context.Context, session models.Session, month, classID string) (*service.MonthlyReport, error)
	HTML(report *service.MonthlyReport) ([]byte, error)
	PDF(report *service.MonthlyReport) ([]byte, error)
}

var exportContentTypes = map[models.ReportFormat]string{
	models.ReportFormatCSV:  csvContentType,
	models.ReportFormatPDF:  "application/pdf",
	models.ReportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ReportHandler exposes report rendering and the async export workflow.
type ReportHandler struct {
	jobs     reportJobService
	renderer monthlyRenderer
}

// NewReportHandler constructs handler.
func NewReportHandler(jobs reportJobService, renderer monthlyRenderer) *ReportHandler {
	return &ReportHandler{jobs: jobs, renderer: renderer}
}

func (h *ReportHandler) monthly(c *gin.Context) (*service.MonthlyReport, bool) {
	session, ok := sessionFromContext(c)
	if !ok {
		return nil, false
	}
	report, err := h.renderer.Monthly(c.Request.Context(), session, strings.TrimSpace(c.Query("month")), c.Query("class_id"))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return report, true
}

// MonthlyHTML godoc
// @Summary Printable monthly report
// @Tags Reports
// @Produce html
// @Param month query string false "Month (YYYY-MM)"
// @Param class_id query string false "Class"
// @Success 200 {string} string
// @Router /reports/monthly [get]
func (h *ReportHandler) MonthlyHTML(c *gin.Context) {
	report, ok := h.monthly(c)
	if !ok {
		return
	}
	page, err := h.renderer.HTML(report)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// MonthlyPDF godoc
// @Summary Monthly report as PDF
// @Tags Reports
// @Produce application/pdf
// @Param month query string false "Month (YYYY-MM)"
// @Param class_id query string false "Class"
// @Success 200 {file} binary
// @Router /reports/monthly.pdf [get]
func (h *ReportHandler) MonthlyPDF(c *gin.Context) {
	report, ok := h.monthly(c)
	if !ok {
		return
	}
	payload, err := h.renderer.PDF(report)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "laporan-" + string(report.Role) + "-" + report.Month + ".pdf"
	response.Attachment(c, filename, exportContentTypes[models.ReportFormatPDF], payload)
}

// Generate godoc
// @Summary Queue a report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Report request"
// @Success 202 {object} response.Envelope
// @Router /reports/generate [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.ReportRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/status/{id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	status, err := h.jobs.GetStatus(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export
// @Description The signed token alone authorizes the download
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	download, err := h.jobs.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType, ok := exportContentTypes[download.Format]
	if !ok {
		contentType = "application/octet-stream"
	}
	response.Attachment(c, download.Filename, contentType, download.Content)
}
