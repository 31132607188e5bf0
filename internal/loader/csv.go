package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/noah-isme/exam-slot-api/internal/models"
)

// Column headers expected in uploaded registration spreadsheets. Matching is
// case-insensitive and ignores column order; extra columns are ignored.
const (
	columnRollno  = "rollno"
	columnName    = "name"
	columnSubject = "course name"
)

// ParseResult carries parsed rows plus how many were dropped as incomplete.
type ParseResult struct {
	Records     []models.EnrollmentRecord
	SkippedRows int
}

// ParseCSV reads an enrollment spreadsheet and maps each row onto an
// EnrollmentRecord. Rows missing a roll number, name, or course are dropped
// and counted rather than failing the whole upload.
func ParseCSV(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Records: make([]models.EnrollmentRecord, 0, 64)}
	position := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		record := models.EnrollmentRecord{
			StudentID:   field(row, columns[columnRollno]),
			StudentName: field(row, columns[columnName]),
			Subject:     field(row, columns[columnSubject]),
		}
		if record.StudentID == "" || record.StudentName == "" || record.Subject == "" {
			result.SkippedRows++
			continue
		}
		record.Position = position
		position++
		result.Records = append(result.Records, record)
	}

	return result, nil
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, 3)
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case columnRollno, columnName, columnSubject:
			if _, dup := columns[name]; !dup {
				columns[name] = i
			}
		}
	}
	for _, required := range []string{columnRollno, columnName, columnSubject} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return columns, nil
}

func field(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}
