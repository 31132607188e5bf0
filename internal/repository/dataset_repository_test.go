package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-slot-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDatasetRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDatasetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO datasets")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	dataset := &models.Dataset{Name: "odd-sem", Filename: "registrations.csv", StoragePath: "uploads/x.csv", RecordCount: 3}
	err := repo.Create(context.Background(), nil, dataset)
	require.NoError(t, err)
	require.NotEmpty(t, dataset.ID)
	require.False(t, dataset.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryInsertRecords(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDatasetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollment_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollment_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	records := []models.EnrollmentRecord{
		{StudentID: "S1", StudentName: "Alice", Subject: "Math"},
		{StudentID: "S1", StudentName: "Alice", Subject: "Physics", Position: 1},
	}
	err := repo.InsertRecords(context.Background(), nil, "ds-1", records)
	require.NoError(t, err)
	require.Equal(t, "ds-1", records[0].DatasetID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryListRecords(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDatasetRepository(db)

	rows := sqlmock.NewRows([]string{"id", "dataset_id", "student_id", "student_name", "subject", "position"}).
		AddRow("rec-1", "ds-1", "S1", "Alice", "Math", 0).
		AddRow("rec-2", "ds-1", "S1", "Alice", "Physics", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, dataset_id, student_id, student_name, subject, position FROM enrollment_records WHERE dataset_id = $1 ORDER BY position ASC")).
		WithArgs("ds-1").
		WillReturnRows(rows)

	records, err := repo.ListRecords(context.Background(), "ds-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Math", records[0].Subject)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDatasetRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "filename", "storage_path", "record_count", "skipped_rows", "uploaded_by", "created_at"}).
		AddRow("ds-1", "odd-sem", "registrations.csv", "uploads/x.csv", 120, 2, "user-1", time.Now())
	mock.ExpectQuery("SELECT id, name, filename, storage_path, record_count, skipped_rows, uploaded_by, created_at FROM datasets").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM datasets`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	datasets, total, err := repo.List(context.Background(), models.DatasetFilter{})
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDatasetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollment_records WHERE dataset_id = $1")).
		WithArgs("ds-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM datasets WHERE id = $1")).
		WithArgs("ds-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "ds-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
