package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-slot-api/internal/dto"
	"github.com/noah-isme/exam-slot-api/internal/loader"
	"github.com/noah-isme/exam-slot-api/internal/models"
	appErrors "github.com/noah-isme/exam-slot-api/pkg/errors"
)

type datasetStore interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	Create(ctx context.Context, exec sqlx.ExtContext, dataset *models.Dataset) error
	InsertRecords(ctx context.Context, exec sqlx.ExtContext, datasetID string, records []models.EnrollmentRecord) error
	List(ctx context.Context, filter models.DatasetFilter) ([]models.Dataset, int, error)
	FindByID(ctx context.Context, id string) (*models.Dataset, error)
	Delete(ctx context.Context, id string) error
}

type uploadStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

// DatasetServiceConfig bounds what uploads are accepted.
type DatasetServiceConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// UploadDatasetInput carries one multipart spreadsheet upload.
type UploadDatasetInput struct {
	Name        string
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
	UploadedBy  string
}

// DatasetService ingests enrollment spreadsheets and manages stored datasets.
type DatasetService struct {
	datasets  datasetStore
	storage   uploadStorage
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DatasetServiceConfig
}

// NewDatasetService wires dataset dependencies.
func NewDatasetService(datasets datasetStore, storage uploadStorage, validate *validator.Validate, logger *zap.Logger, cfg DatasetServiceConfig) *DatasetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 10 << 20
	}
	return &DatasetService{
		datasets:  datasets,
		storage:   storage,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Upload validates, parses, and persists an enrollment spreadsheet. Rows
// missing required fields are dropped and counted; the dataset records how
// many were skipped.
func (s *DatasetService) Upload(ctx context.Context, input UploadDatasetInput) (*models.Dataset, error) {
	if input.Filename == "" || input.Reader == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a spreadsheet file is required")
	}
	if input.Size > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the maximum size of %d bytes", s.cfg.MaxFileSizeBytes))
	}
	if !s.mimeAllowed(input.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("unsupported content type %q, expected a CSV upload", input.ContentType))
	}

	data, err := io.ReadAll(io.LimitReader(input.Reader, s.cfg.MaxFileSizeBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	if int64(len(data)) > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the maximum size of %d bytes", s.cfg.MaxFileSizeBytes))
	}

	parsed, err := loader.ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to parse spreadsheet")
	}
	if len(parsed.Records) == 0 {
		return nil, appErrors.ErrEmptyDataset
	}

	storedName := uuid.NewString() + filepath.Ext(input.Filename)
	storagePath, err := s.storage.Save(storedName, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = strings.TrimSuffix(input.Filename, filepath.Ext(input.Filename))
	}
	dataset := &models.Dataset{
		Name:        name,
		Filename:    input.Filename,
		StoragePath: storagePath,
		RecordCount: len(parsed.Records),
		SkippedRows: parsed.SkippedRows,
		UploadedBy:  input.UploadedBy,
	}

	tx, err := s.datasets.BeginTxx(ctx, nil)
	if err != nil {
		s.discardUpload(storedName)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			s.discardUpload(storedName)
		}
	}()

	if err = s.datasets.Create(ctx, tx, dataset); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create dataset")
	}
	if err = s.datasets.InsertRecords(ctx, tx, dataset.ID, parsed.Records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist enrollment records")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit dataset")
	}

	s.logger.Info("dataset uploaded",
		zap.String("dataset_id", dataset.ID),
		zap.String("filename", dataset.Filename),
		zap.Int("records", dataset.RecordCount),
		zap.Int("skipped_rows", dataset.SkippedRows),
	)
	return dataset, nil
}

// List returns datasets matching the query, paginated.
func (s *DatasetService) List(ctx context.Context, query dto.ListDatasetsQuery) ([]models.Dataset, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid list query")
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	filter := models.DatasetFilter{
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	datasets, total, err := s.datasets.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list datasets")
	}
	pagination := &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}
	return datasets, pagination, nil
}

// Get returns a dataset by id.
func (s *DatasetService) Get(ctx context.Context, id string) (*models.Dataset, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dataset id is required")
	}
	dataset, err := s.datasets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "dataset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dataset")
	}
	return dataset, nil
}

// Delete removes a dataset, its enrollment records, and the stored upload.
func (s *DatasetService) Delete(ctx context.Context, id string) error {
	dataset, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.datasets.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "dataset not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete dataset")
	}
	s.discardUpload(filepath.Base(dataset.StoragePath))
	return nil
}

func (s *DatasetService) mimeAllowed(contentType string) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(normalized, ";"); i >= 0 {
		normalized = strings.TrimSpace(normalized[:i])
	}
	for _, allowed := range s.cfg.AllowedMIMEs {
		if normalized == strings.ToLower(strings.TrimSpace(allowed)) {
			return true
		}
	}
	return false
}

func (s *DatasetService) discardUpload(storedName string) {
	if storedName == "" || storedName == "." {
		return
	}
	if err := s.storage.Delete(storedName); err != nil {
		s.logger.Warn("failed to remove stored upload", zap.String("file", storedName), zap.Error(err))
	}
}
