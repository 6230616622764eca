package dto

import "github.com/classbridge/report-api/internal/models"

// ExportRequest captures POST /reports/export payload.
type ExportRequest struct {
	YearID  string              `json:"yearId"`
	TermID  string              `json:"termId"`
	ClassID string              `json:"classId"`
	Format  models.ExportFormat `json:"format"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
