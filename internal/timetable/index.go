package timetable

import (
	"strings"

	"github.com/noah-isme/exam-slot-api/internal/models"
	appErrors "github.com/noah-isme/exam-slot-api/pkg/errors"
)

// StudentSubjectIndex maps a student ID to the distinct subjects that student
// is registered for, in first-seen order.
type StudentSubjectIndex map[string][]string

// SubjectStudentIndex maps a subject to its enrolled students, deduplicated by
// student ID. The first record seen for a student fixes the display name.
type SubjectStudentIndex map[string][]models.StudentRef

// BuildIndexes derives both lookup structures in a single pass over the
// records. Records with a blank student ID, name, or subject are skipped.
// Returns ErrEmptyDataset when no valid record remains.
func BuildIndexes(records []models.EnrollmentRecord) (StudentSubjectIndex, SubjectStudentIndex, error) {
	subjectsByStudent := make(StudentSubjectIndex)
	rosterBySubject := make(SubjectStudentIndex)
	seenSubject := make(map[string]map[string]bool)
	onRoster := make(map[string]map[string]bool)

	valid := 0
	for _, record := range records {
		studentID := strings.TrimSpace(record.StudentID)
		studentName := strings.TrimSpace(record.StudentName)
		subject := strings.TrimSpace(record.Subject)
		if studentID == "" || studentName == "" || subject == "" {
			continue
		}
		valid++

		if seenSubject[studentID] == nil {
			seenSubject[studentID] = make(map[string]bool)
		}
		if !seenSubject[studentID][subject] {
			seenSubject[studentID][subject] = true
			subjectsByStudent[studentID] = append(subjectsByStudent[studentID], subject)
		}

		if onRoster[subject] == nil {
			onRoster[subject] = make(map[string]bool)
		}
		if !onRoster[subject][studentID] {
			onRoster[subject][studentID] = true
			rosterBySubject[subject] = append(rosterBySubject[subject], models.StudentRef{
				StudentID:   studentID,
				StudentName: studentName,
			})
		}
	}

	if valid == 0 {
		return nil, nil, appErrors.ErrEmptyDataset
	}
	return subjectsByStudent, rosterBySubject, nil
}
