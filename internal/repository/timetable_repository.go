package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-slot-api/internal/models"
)

// TimetableRepository handles persistence for computed timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new repository instance.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// BeginTxx exposes transaction creation for multi-step writes.
func (r *TimetableRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// Create inserts the timetable row using the provided executor.
func (r *TimetableRepository) Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO timetables (id, dataset_id, slots_per_day, slots_used, subject_count, created_at)
        VALUES (:id, :dataset_id, :slots_per_day, :slots_used, :subject_count, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, timetable); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// InsertEntries batch-inserts slot assignments for a timetable.
func (r *TimetableRepository) InsertEntries(ctx context.Context, exec sqlx.ExtContext, timetableID string, entries []models.TimetableEntry) error {
	if len(entries) == 0 {
		return nil
	}
	const query = `INSERT INTO timetable_entries (id, timetable_id, subject, slot_index, slot_label, students)
        VALUES (:id, :timetable_id, :subject, :slot_index, :slot_label, :students)`
	target := r.exec(exec)
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.TimetableID = timetableID
		if _, err := sqlx.NamedExecContext(ctx, target, query, entry); err != nil {
			return fmt.Errorf("insert timetable entry: %w", err)
		}
	}
	return nil
}

// FindByID returns a timetable by id.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	const query = `SELECT id, dataset_id, slots_per_day, slots_used, subject_count, created_at FROM timetables WHERE id = $1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// ListByDataset returns timetables generated from a dataset, newest first.
func (r *TimetableRepository) ListByDataset(ctx context.Context, datasetID string) ([]models.Timetable, error) {
	const query = `SELECT id, dataset_id, slots_per_day, slots_used, subject_count, created_at FROM timetables WHERE dataset_id = $1 ORDER BY created_at DESC`
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, datasetID); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return timetables, nil
}

// ListEntries returns slot assignments ordered by slot then subject.
func (r *TimetableRepository) ListEntries(ctx context.Context, timetableID string) ([]models.TimetableEntry, error) {
	const query = `SELECT id, timetable_id, subject, slot_index, slot_label, students FROM timetable_entries WHERE timetable_id = $1 ORDER BY slot_index ASC, subject ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}

// Delete removes a timetable and its entries.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const entriesQuery = `DELETE FROM timetable_entries WHERE timetable_id = $1`
	if _, err := r.db.ExecContext(ctx, entriesQuery, id); err != nil {
		return fmt.Errorf("delete timetable entries: %w", err)
	}
	const query = `DELETE FROM timetables WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}
