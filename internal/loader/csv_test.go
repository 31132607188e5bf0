package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVMapsColumns(t *testing.T) {
	input := strings.Join([]string{
		"Sl No,Rollno,Name,Course Name,Campus",
		"1,S1,Alice,Math,North",
		"2,S1,Alice,Physics,North",
		"3,S2,Bob,Chemistry,South",
	}, "\n")

	result, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Records, 3)
	assert.Equal(t, 0, result.SkippedRows)

	first := result.Records[0]
	assert.Equal(t, "S1", first.StudentID)
	assert.Equal(t, "Alice", first.StudentName)
	assert.Equal(t, "Math", first.Subject)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 2, result.Records[2].Position)
}

func TestParseCSVHeaderCaseInsensitive(t *testing.T) {
	input := "ROLLNO,name,COURSE NAME\nS1,Alice,Math\n"

	result, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
}

func TestParseCSVDropsIncompleteRows(t *testing.T) {
	input := strings.Join([]string{
		"Rollno,Name,Course Name",
		"S1,Alice,Math",
		",Bob,Physics",
		"S3,,Chemistry",
		"S4,Dan,",
		"S5,Eve,Biology",
	}, "\n")

	result, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
	assert.Equal(t, 3, result.SkippedRows)
}

func TestParseCSVMissingColumn(t *testing.T) {
	input := "Rollno,Name\nS1,Alice\n"

	_, err := ParseCSV(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "course name")
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)
}
