package dto

import "github.com/noah-isme/smk-student-hub/internal/models"

// ReportRequest captures POST /reports/generate payload.
type ReportRequest struct {
	Type    models.ReportType   `json:"type" validate:"required,oneof=roster infractions attendance payments monthly"`
	Format  models.ReportFormat `json:"format" validate:"required,oneof=csv pdf xlsx"`
	Month   string              `json:"month" validate:"omitempty,datetime=2006-01"`
	ClassID string              `json:"class_id"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
