package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-slot-api/internal/models"
)

// DatasetRepository handles persistence for uploaded enrollment datasets.
type DatasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new repository instance.
func NewDatasetRepository(db *sqlx.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// BeginTxx exposes transaction creation for multi-step writes.
func (r *DatasetRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// Create inserts the dataset row using the provided executor.
func (r *DatasetRepository) Create(ctx context.Context, exec sqlx.ExtContext, dataset *models.Dataset) error {
	if dataset.ID == "" {
		dataset.ID = uuid.NewString()
	}
	if dataset.CreatedAt.IsZero() {
		dataset.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO datasets (id, name, filename, storage_path, record_count, skipped_rows, uploaded_by, created_at)
        VALUES (:id, :name, :filename, :storage_path, :record_count, :skipped_rows, :uploaded_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, dataset); err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	return nil
}

// InsertRecords batch-inserts enrollment rows for a dataset.
func (r *DatasetRepository) InsertRecords(ctx context.Context, exec sqlx.ExtContext, datasetID string, records []models.EnrollmentRecord) error {
	if len(records) == 0 {
		return nil
	}
	const query = `INSERT INTO enrollment_records (id, dataset_id, student_id, student_name, subject, position)
        VALUES (:id, :dataset_id, :student_id, :student_name, :subject, :position)`
	target := r.exec(exec)
	for i := range records {
		record := &records[i]
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		record.DatasetID = datasetID
		if _, err := sqlx.NamedExecContext(ctx, target, query, record); err != nil {
			return fmt.Errorf("insert enrollment record: %w", err)
		}
	}
	return nil
}

// List returns datasets matching filters with pagination metadata.
func (r *DatasetRepository) List(ctx context.Context, filter models.DatasetFilter) ([]models.Dataset, int, error) {
	base := "FROM datasets WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(filename) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":         true,
		"record_count": true,
		"created_at":   true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, filename, storage_path, record_count, skipped_rows, uploaded_by, created_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var datasets []models.Dataset
	if err := r.db.SelectContext(ctx, &datasets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list datasets: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count datasets: %w", err)
	}

	return datasets, total, nil
}

// FindByID returns a dataset by id.
func (r *DatasetRepository) FindByID(ctx context.Context, id string) (*models.Dataset, error) {
	const query = `SELECT id, name, filename, storage_path, record_count, skipped_rows, uploaded_by, created_at FROM datasets WHERE id = $1`
	var dataset models.Dataset
	if err := r.db.GetContext(ctx, &dataset, query, id); err != nil {
		return nil, err
	}
	return &dataset, nil
}

// ListRecords returns a dataset's enrollment rows in upload order.
func (r *DatasetRepository) ListRecords(ctx context.Context, datasetID string) ([]models.EnrollmentRecord, error) {
	const query = `SELECT id, dataset_id, student_id, student_name, subject, position FROM enrollment_records WHERE dataset_id = $1 ORDER BY position ASC`
	var records []models.EnrollmentRecord
	if err := r.db.SelectContext(ctx, &records, query, datasetID); err != nil {
		return nil, fmt.Errorf("list enrollment records: %w", err)
	}
	return records, nil
}

// Delete removes a dataset and its rows.
func (r *DatasetRepository) Delete(ctx context.Context, id string) error {
	const recordsQuery = `DELETE FROM enrollment_records WHERE dataset_id = $1`
	if _, err := r.db.ExecContext(ctx, recordsQuery, id); err != nil {
		return fmt.Errorf("delete enrollment records: %w", err)
	}
	const query = `DELETE FROM datasets WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *DatasetRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}
