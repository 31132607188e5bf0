package models

import "time"

// Dataset represents one uploaded enrollment spreadsheet.
type Dataset struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Filename    string    `db:"filename" json:"filename"`
	StoragePath string    `db:"storage_path" json:"-"`
	RecordCount int       `db:"record_count" json:"record_count"`
	SkippedRows int       `db:"skipped_rows" json:"skipped_rows"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentRecord is one student-subject registration row. StudentID maps to
// the spreadsheet's Rollno column, Subject to Course Name.
type EnrollmentRecord struct {
	ID          string `db:"id" json:"id"`
	DatasetID   string `db:"dataset_id" json:"dataset_id"`
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	Subject     string `db:"subject" json:"subject"`
	Position    int    `db:"position" json:"position"`
}

// DatasetFilter describes query params for listing datasets.
type DatasetFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
