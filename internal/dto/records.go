package dto

import "github.com/noah-isme/smk-student-hub/internal/models"

// CreateInfractionRequest records a new pelanggaran.
type CreateInfractionRequest struct {
	Date          models.Date `json:"date"`
	NIS           string      `json:"nis" validate:"required"`
	Description   string      `json:"description" validate:"required,max=500"`
	Points        int         `json:"points" validate:"gte=0,lte=1000"`
	InitialAction string      `json:"initial_action" validate:"max=500"`
}

// InfractionStatusRequest moves an infraction forward in its workflow.
type InfractionStatusRequest struct {
	Status models.InfractionStatus `json:"status" validate:"required"`
	Note   string                  `json:"note" validate:"max=500"`
}

// AttendanceEntry is one subject's status within a batch.
type AttendanceEntry struct {
	SubjectID string                  `json:"subject_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required,oneof=H S I A"`
	Note      string                  `json:"note" validate:"max=255"`
}

// RecordAttendanceRequest stores a day of attendance for students or teachers.
type RecordAttendanceRequest struct {
	Date    models.Date           `json:"date"`
	Kind    models.AttendanceKind `json:"kind" validate:"required,oneof=student teacher"`
	Entries []AttendanceEntry     `json:"entries" validate:"required,min=1,dive"`
}

// PaymentRequest toggles a komite month for a student.
type PaymentRequest struct {
	Paid bool `json:"paid"`
}

// LogEntryRequest appends a role log note.
type LogEntryRequest struct {
	Date  models.Date `json:"date"`
	NIS   string      `json:"nis"`
	Title string      `json:"title" validate:"required,max=120"`
	Note  string      `json:"note" validate:"required,max=2000"`
}

// ThemeRequest sets the UI theme.
type ThemeRequest struct {
	Theme models.Theme `json:"theme" validate:"required,oneof=light dark"`
}
