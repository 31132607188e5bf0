package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-slot-api/internal/models"
)

func TestTimetableRepositoryCreateWithEntries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetables")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	timetable := &models.Timetable{DatasetID: "ds-1", SlotsPerDay: 2, SlotsUsed: 2, SubjectCount: 1}
	require.NoError(t, repo.Create(context.Background(), tx, timetable))
	require.NotEmpty(t, timetable.ID)

	entries := []models.TimetableEntry{
		{Subject: "Math", SlotIndex: 0, SlotLabel: "Day-1 Slot-1", Students: types.JSONText(`[{"rollno":"S1","name":"Alice"}]`)},
	}
	require.NoError(t, repo.InsertEntries(context.Background(), tx, timetable.ID, entries))
	require.Equal(t, timetable.ID, entries[0].TimetableID)

	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListEntries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "timetable_id", "subject", "slot_index", "slot_label", "students"}).
		AddRow("e-1", "tt-1", "Math", 0, "Day-1 Slot-1", []byte(`[]`)).
		AddRow("e-2", "tt-1", "Physics", 1, "Day-1 Slot-2", []byte(`[]`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, timetable_id, subject, slot_index, slot_label, students FROM timetable_entries WHERE timetable_id = $1 ORDER BY slot_index ASC, subject ASC")).
		WithArgs("tt-1").
		WillReturnRows(rows)

	entries, err := repo.ListEntries(context.Background(), "tt-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "Day-1 Slot-2", entries[1].SlotLabel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "dataset_id", "slots_per_day", "slots_used", "subject_count", "created_at"}).
		AddRow("tt-1", "ds-1", 2, 3, 5, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, dataset_id, slots_per_day, slots_used, subject_count, created_at FROM timetables WHERE id = $1")).
		WithArgs("tt-1").
		WillReturnRows(rows)

	timetable, err := repo.FindByID(context.Background(), "tt-1")
	require.NoError(t, err)
	require.Equal(t, 3, timetable.SlotsUsed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries WHERE timetable_id = $1")).
		WithArgs("tt-404").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetables WHERE id = $1")).
		WithArgs("tt-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "tt-404")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
