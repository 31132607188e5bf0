package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Timetable is a persisted slot assignment computed from a dataset.
type Timetable struct {
	ID           string    `db:"id" json:"id"`
	DatasetID    string    `db:"dataset_id" json:"dataset_id"`
	SlotsPerDay  int       `db:"slots_per_day" json:"slots_per_day"`
	SlotsUsed    int       `db:"slots_used" json:"slots_used"`
	SubjectCount int       `db:"subject_count" json:"subject_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TimetableEntry assigns one subject to an exam slot with its roster.
type TimetableEntry struct {
	ID          string         `db:"id" json:"id"`
	TimetableID string         `db:"timetable_id" json:"timetable_id"`
	Subject     string         `db:"subject" json:"subject"`
	SlotIndex   int            `db:"slot_index" json:"slot_index"`
	SlotLabel   string         `db:"slot_label" json:"slot_label"`
	Students    types.JSONText `db:"students" json:"students"`
}

// StudentRef identifies one enrolled student on a timetable entry roster.
type StudentRef struct {
	StudentID   string `json:"rollno"`
	StudentName string `json:"name"`
}
