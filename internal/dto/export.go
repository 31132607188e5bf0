package dto

import "github.com/noah-isme/exam-slot-api/internal/models"

// ExportRequest queues rendering of a stored timetable.
type ExportRequest struct {
	TimetableID string `json:"timetableId" validate:"required"`
	Format      string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse reports export job progress to clients.
type ExportJobResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
