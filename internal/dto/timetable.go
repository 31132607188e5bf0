package dto

// GenerateTimetableRequest asks for a slot assignment over a stored dataset.
// SlotsPerDay falls back to the configured default when omitted.
type GenerateTimetableRequest struct {
	DatasetID   string `json:"datasetId" validate:"required"`
	SlotsPerDay int    `json:"slotsPerDay" validate:"omitempty,min=1"`
}

// StudentResponse is one roster member on a timetable entry.
type StudentResponse struct {
	Rollno string `json:"rollno"`
	Name   string `json:"name"`
}

// TimetableEntryResponse assigns one subject to an exam slot.
type TimetableEntryResponse struct {
	Subject   string            `json:"subject"`
	Slot      string            `json:"slot"`
	SlotIndex int               `json:"slotIndex"`
	Students  []StudentResponse `json:"students"`
}

// TimetableResponse is the full rendered timetable payload.
type TimetableResponse struct {
	ID          string                   `json:"id"`
	DatasetID   string                   `json:"datasetId"`
	Status      string                   `json:"status"`
	Message     string                   `json:"message"`
	SlotsPerDay int                      `json:"slotsPerDay"`
	SlotsUsed   int                      `json:"slotsUsed"`
	Timetable   []TimetableEntryResponse `json:"timetable"`
	Notes       []string                 `json:"notes"`
}
