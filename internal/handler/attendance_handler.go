package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/internal/service"
	"github.com/noah-isme/smk-student-hub/pkg/response"
)

// AttendanceHandler handles attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param kind query string false "student or teacher"
// @Param subject_id query string false "Subject"
// @Param class_id query string false "Class"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
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
	filter := models.AttendanceFilter{
		SubjectID: c.Query("subject_id"),
		Kind:      models.AttendanceKind(c.Query("kind")),
		ClassID:   c.Query("class_id"),
		From:      from,
		To:        to,
	}
	records, err := h.attendance.List(c.Request.Context(), session, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Record godoc
// @Summary Record attendance for a date
// @Description Upserts one record per subject and date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.RecordAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.RecordAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	records, err := h.attendance.Record(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Summary godoc
// @Summary Attendance summary per subject
// @Tags Attendance
// @Produce json
// @Param kind query string false "student or teacher"
// @Param class_id query string false "Class"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
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
	kind := models.AttendanceKind(c.DefaultQuery("kind", string(models.AttendanceStudent)))
	summary, err := h.attendance.Summary(c.Request.Context(), session, kind, c.Query("class_id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
