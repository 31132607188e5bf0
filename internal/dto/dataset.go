package dto

import "time"

// ListDatasetsQuery captures query params for the dataset listing endpoint.
type ListDatasetsQuery struct {
	Search    string `form:"search"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"page_size" validate:"omitempty,min=1,max=100"`
	SortBy    string `form:"sort_by" validate:"omitempty,oneof=name filename record_count created_at"`
	SortOrder string `form:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// DatasetResponse is the public view of an uploaded dataset.
type DatasetResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Filename    string    `json:"filename"`
	RecordCount int       `json:"record_count"`
	SkippedRows int       `json:"skipped_rows"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
