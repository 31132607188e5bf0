package timetable

import (
	"sort"

	"github.com/noah-isme/exam-slot-api/internal/models"
	appErrors "github.com/noah-isme/exam-slot-api/pkg/errors"
)

// Entry assigns one subject to an exam slot together with its roster.
type Entry struct {
	Subject   string
	SlotIndex int
	SlotLabel string
	Students  []models.StudentRef
}

// Result is a complete computed timetable.
type Result struct {
	Entries      []Entry
	SlotsPerDay  int
	SlotsUsed    int
	SubjectCount int
}

// Compute runs the full pipeline: index the records, build the conflict
// graph, color it, and render slot labels. Every structure is built fresh
// per call; nothing is shared between invocations. On any failure no partial
// result is returned.
func Compute(records []models.EnrollmentRecord, slotsPerDay int) (*Result, error) {
	if slotsPerDay <= 0 {
		return nil, appErrors.ErrInvalidConfiguration
	}

	subjectsByStudent, rosterBySubject, err := BuildIndexes(records)
	if err != nil {
		return nil, err
	}

	graph, err := BuildConflictGraph(subjectsByStudent)
	if err != nil {
		return nil, err
	}
	if len(graph) == 0 {
		return nil, appErrors.ErrEmptyGraph
	}

	coloring, slotsUsed := GreedyColoring(graph)

	entries := make([]Entry, 0, len(coloring))
	for subject, slot := range coloring {
		entries = append(entries, Entry{
			Subject:   subject,
			SlotIndex: slot,
			SlotLabel: SlotLabel(slot, slotsPerDay),
			Students:  rosterBySubject[subject],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SlotIndex != entries[j].SlotIndex {
			return entries[i].SlotIndex < entries[j].SlotIndex
		}
		return entries[i].Subject < entries[j].Subject
	})

	return &Result{
		Entries:      entries,
		SlotsPerDay:  slotsPerDay,
		SlotsUsed:    slotsUsed,
		SubjectCount: len(entries),
	}, nil
}
