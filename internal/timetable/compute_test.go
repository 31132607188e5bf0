package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-slot-api/internal/models"
	appErrors "github.com/noah-isme/exam-slot-api/pkg/errors"
)

func record(studentID, name, subject string) models.EnrollmentRecord {
	return models.EnrollmentRecord{StudentID: studentID, StudentName: name, Subject: subject}
}

func TestComputeSeparatesConflictingSubjects(t *testing.T) {
	records := []models.EnrollmentRecord{
		record("S1", "Alice", "Math"),
		record("S1", "Alice", "Physics"),
		record("S2", "Bob", "Chemistry"),
	}

	result, err := Compute(records, 2)
	require.NoError(t, err)
	require.Len(t, result.Entries, 3)

	slots := slotsBySubject(result)
	assert.NotEqual(t, slots["Math"], slots["Physics"], "shared student forces different slots")
}

func TestComputeTriangleUsesThreeSlots(t *testing.T) {
	records := []models.EnrollmentRecord{
		record("S1", "Alice", "Math"),
		record("S1", "Alice", "Physics"),
		record("S1", "Alice", "Chemistry"),
	}

	result, err := Compute(records, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, result.SlotsUsed)

	slots := slotsBySubject(result)
	assert.ElementsMatch(t, []int{0, 1, 2}, []int{slots["Math"], slots["Physics"], slots["Chemistry"]})
}

func TestComputeNoConflictInvariant(t *testing.T) {
	records := []models.EnrollmentRecord{
		record("S1", "Alice", "Math"),
		record("S1", "Alice", "Physics"),
		record("S2", "Bob", "Math"),
		record("S2", "Bob", "Biology"),
		record("S3", "Cara", "Physics"),
		record("S3", "Cara", "Biology"),
		record("S3", "Cara", "History"),
		record("S4", "Dan", "History"),
		record("S4", "Dan", "Geography"),
	}

	result, err := Compute(records, 2)
	require.NoError(t, err)

	index, _, err := BuildIndexes(records)
	require.NoError(t, err)
	graph, err := BuildConflictGraph(index)
	require.NoError(t, err)

	slots := slotsBySubject(result)
	for _, a := range graph.Subjects() {
		for _, b := range graph.Subjects() {
			if a != b && graph.Conflicts(a, b) {
				assert.NotEqual(t, slots[a], slots[b], "%s and %s share a student", a, b)
			}
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	records := []models.EnrollmentRecord{
		record("S1", "Alice", "Math"),
		record("S1", "Alice", "Physics"),
		record("S2", "Bob", "Physics"),
		record("S2", "Bob", "Chemistry"),
		record("S3", "Cara", "Biology"),
	}

	first, err := Compute(records, 2)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := Compute(records, 2)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeCoversEverySubjectOnce(t *testing.T) {
	records := []models.EnrollmentRecord{
		record("S1", "Alice", "Math"),
		record("S2", "Bob", "Math"),
		record("S2", "Bob", "Physics"),
		record("S3", "Cara", "Chemistry"),
	}

	result, err := Compute(records, 2)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, entry := range result.Entries {
		seen[entry.Subject]++
	}
	assert.Equal(t, map[string]int{"Math": 1, "Physics": 1, "Chemistry": 1}, seen)
	assert.Equal(t, 3, result.SubjectCount)
}

func TestComputeRosterComplete(t *testing.T) {
	records := []models.EnrollmentRecord{
		record("S1", "Alice", "Math"),
		record("S2", "Bob", "Math"),
		record("S1", "Alice Again", "Math"),
		record("S1", "Alice", "Physics"),
	}

	result, err := Compute(records, 2)
	require.NoError(t, err)

	for _, entry := range result.Entries {
		if entry.Subject != "Math" {
			continue
		}
		require.Equal(t, []models.StudentRef{
			{StudentID: "S1", StudentName: "Alice"},
			{StudentID: "S2", StudentName: "Bob"},
		}, entry.Students, "roster deduped by student id, first name wins")
	}
}

func TestComputeEmptyInput(t *testing.T) {
	_, err := Compute(nil, 2)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmptyDataset.Code, appErrors.FromError(err).Code)
}

func TestComputeSkipsBlankFields(t *testing.T) {
	records := []models.EnrollmentRecord{
		record("", "Alice", "Math"),
		record("S1", "  ", "Math"),
		record("S1", "Alice", " "),
	}

	_, err := Compute(records, 2)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmptyDataset.Code, appErrors.FromError(err).Code)
}

func TestComputeInvalidSlotsPerDay(t *testing.T) {
	records := []models.EnrollmentRecord{record("S1", "Alice", "Math")}

	for _, slotsPerDay := range []int{0, -1} {
		_, err := Compute(records, slotsPerDay)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInvalidConfiguration.Code, appErrors.FromError(err).Code)
	}
}

func TestSlotLabelRendering(t *testing.T) {
	cases := map[int]string{
		0: "Day-1 Slot-1",
		1: "Day-1 Slot-2",
		2: "Day-2 Slot-1",
		3: "Day-2 Slot-2",
	}
	for slotIndex, want := range cases {
		assert.Equal(t, want, SlotLabel(slotIndex, 2))
	}
	assert.Equal(t, "Day-3 Slot-1", SlotLabel(6, 3))
}

func slotsBySubject(result *Result) map[string]int {
	slots := make(map[string]int, len(result.Entries))
	for _, entry := range result.Entries {
		slots[entry.Subject] = entry.SlotIndex
	}
	return slots
}
