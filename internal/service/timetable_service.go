package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-slot-api/internal/dto"
	"github.com/noah-isme/exam-slot-api/internal/models"
	"github.com/noah-isme/exam-slot-api/internal/timetable"
	appErrors "github.com/noah-isme/exam-slot-api/pkg/errors"
)

type datasetRecordReader interface {
	FindByID(ctx context.Context, id string) (*models.Dataset, error)
	ListRecords(ctx context.Context, datasetID string) ([]models.EnrollmentRecord, error)
}

type timetableStore interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	InsertEntries(ctx context.Context, exec sqlx.ExtContext, timetableID string, entries []models.TimetableEntry) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	ListByDataset(ctx context.Context, datasetID string) ([]models.Timetable, error)
	ListEntries(ctx context.Context, timetableID string) ([]models.TimetableEntry, error)
	Delete(ctx context.Context, id string) error
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// TimetableServiceConfig governs slot assignment defaults and caching.
type TimetableServiceConfig struct {
	DefaultSlotsPerDay int
	CacheTTL           time.Duration
}

// TimetableService runs the slot assignment engine over stored datasets and
// manages the persisted results.
type TimetableService struct {
	datasets   datasetRecordReader
	timetables timetableStore
	cache      timetableCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableServiceConfig
}

// NewTimetableService wires timetable dependencies. metrics may be nil.
func NewTimetableService(datasets datasetRecordReader, timetables timetableStore, cache timetableCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg TimetableServiceConfig) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultSlotsPerDay <= 0 {
		cfg.DefaultSlotsPerDay = 2
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &TimetableService{
		datasets:   datasets,
		timetables: timetables,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate computes a conflict-free slot assignment for a dataset's
// enrollment records and persists it. Nothing is stored or cached when the
// engine fails.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}

	slotsPerDay := req.SlotsPerDay
	if slotsPerDay == 0 {
		slotsPerDay = s.cfg.DefaultSlotsPerDay
	}
	if slotsPerDay <= 0 {
		return nil, appErrors.ErrInvalidConfiguration
	}

	dataset, err := s.datasets.FindByID(ctx, req.DatasetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "dataset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dataset")
	}

	records, err := s.datasets.ListRecords(ctx, dataset.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment records")
	}

	result, err := timetable.Compute(records, slotsPerDay)
	if err != nil {
		s.metrics.RecordGeneration("failure", 0)
		return nil, err
	}

	record := &models.Timetable{
		DatasetID:    dataset.ID,
		SlotsPerDay:  result.SlotsPerDay,
		SlotsUsed:    result.SlotsUsed,
		SubjectCount: result.SubjectCount,
	}
	entries, err := entryModels(result.Entries)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable entries")
	}

	tx, err := s.timetables.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.Create(ctx, tx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}
	if err = s.timetables.InsertEntries(ctx, tx, record.ID, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable entries")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable")
	}

	resp := s.buildResponse(record, result.Entries)
	s.cacheResponse(ctx, resp)
	s.metrics.RecordGeneration("success", record.SlotsUsed)

	s.logger.Info("timetable generated",
		zap.String("timetable_id", record.ID),
		zap.String("dataset_id", dataset.ID),
		zap.Int("subjects", record.SubjectCount),
		zap.Int("slots_used", record.SlotsUsed),
	)
	return resp, nil
}

// Get returns a stored timetable, serving from cache when possible.
func (s *TimetableService) Get(ctx context.Context, id string) (*dto.TimetableResponse, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}

	var cached dto.TimetableResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey(id), &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	stored, err := s.timetables.ListEntries(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries")
	}

	entries, err := entryResults(stored)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode timetable entries")
	}

	resp := s.buildResponse(record, entries)
	s.cacheResponse(ctx, resp)
	return resp, nil
}

// ListByDataset returns timetables generated from a dataset, newest first.
func (s *TimetableService) ListByDataset(ctx context.Context, datasetID string) ([]models.Timetable, error) {
	if datasetID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dataset id is required")
	}
	list, err := s.timetables.ListByDataset(ctx, datasetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return list, nil
}

// Delete removes a stored timetable and evicts its cached response.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if err := s.timetables.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, cacheKey(id)); err != nil {
			s.logger.Warn("failed to evict timetable cache", zap.String("timetable_id", id), zap.Error(err))
		}
	}
	return nil
}

func (s *TimetableService) buildResponse(record *models.Timetable, entries []timetable.Entry) *dto.TimetableResponse {
	payload := make([]dto.TimetableEntryResponse, 0, len(entries))
	for _, entry := range entries {
		students := make([]dto.StudentResponse, 0, len(entry.Students))
		for _, student := range entry.Students {
			students = append(students, dto.StudentResponse{Rollno: student.StudentID, Name: student.StudentName})
		}
		payload = append(payload, dto.TimetableEntryResponse{
			Subject:   entry.Subject,
			Slot:      entry.SlotLabel,
			SlotIndex: entry.SlotIndex,
			Students:  students,
		})
	}

	return &dto.TimetableResponse{
		ID:          record.ID,
		DatasetID:   record.DatasetID,
		Status:      "success",
		Message:     "Timetable generated successfully.",
		SlotsPerDay: record.SlotsPerDay,
		SlotsUsed:   record.SlotsUsed,
		Timetable:   payload,
		Notes: []string{
			"This timetable uses abstract 'Day-X Slot-Y' assignments.",
			fmt.Sprintf("The number of slots per day is configured as %d.", record.SlotsPerDay),
			"No student will have two exams in the same slot.",
			"All campuses are assumed to have the exam for a given subject on the same day and slot.",
		},
	}
}

func (s *TimetableService) cacheResponse(ctx context.Context, resp *dto.TimetableResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(resp.ID), resp, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache timetable", zap.String("timetable_id", resp.ID), zap.Error(err))
	}
}

func cacheKey(timetableID string) string {
	return "timetable:" + timetableID
}

func entryModels(entries []timetable.Entry) ([]models.TimetableEntry, error) {
	result := make([]models.TimetableEntry, 0, len(entries))
	for _, entry := range entries {
		roster := entry.Students
		if roster == nil {
			roster = []models.StudentRef{}
		}
		encoded, err := json.Marshal(roster)
		if err != nil {
			return nil, err
		}
		result = append(result, models.TimetableEntry{
			Subject:   entry.Subject,
			SlotIndex: entry.SlotIndex,
			SlotLabel: entry.SlotLabel,
			Students:  types.JSONText(encoded),
		})
	}
	return result, nil
}

func entryResults(stored []models.TimetableEntry) ([]timetable.Entry, error) {
	result := make([]timetable.Entry, 0, len(stored))
	for _, entry := range stored {
		var roster []models.StudentRef
		if len(entry.Students) > 0 {
			if err := json.Unmarshal(entry.Students, &roster); err != nil {
				return nil, err
			}
		}
		result = append(result, timetable.Entry{
			Subject:   entry.Subject,
			SlotIndex: entry.SlotIndex,
			SlotLabel: entry.SlotLabel,
			Students:  roster,
		})
	}
	return result, nil
}
