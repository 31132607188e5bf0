package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-slot-api/internal/dto"
	"github.com/noah-isme/exam-slot-api/internal/models"
	"github.com/noah-isme/exam-slot-api/internal/repository"
	appErrors "github.com/noah-isme/exam-slot-api/pkg/errors"
	"github.com/noah-isme/exam-slot-api/pkg/jobs"
	"github.com/noah-isme/exam-slot-api/pkg/storage"
)

type exportRepoStub struct {
	jobs map[string]*models.ExportJob
}

func newExportRepoStub() *exportRepoStub {
	return &exportRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (r *exportRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	var finished []models.ExportJob
	for _, job := range r.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			finished = append(finished, *job)
		}
	}
	return finished, nil
}

type timetableProviderStub struct {
	resp *dto.TimetableResponse
	err  error
}

func (p *timetableProviderStub) Get(ctx context.Context, id string) (*dto.TimetableResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.resp, nil
}

type queueStub struct {
	enqueued []jobs.Job
	err      error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func timetableResponseFixture() *dto.TimetableResponse {
	return &dto.TimetableResponse{
		ID:          "tt-1",
		DatasetID:   "ds-1",
		Status:      "success",
		SlotsPerDay: 2,
		SlotsUsed:   2,
		Timetable: []dto.TimetableEntryResponse{
			{Subject: "Chemistry", Slot: "Day-1 Slot-1", SlotIndex: 0, Students: []dto.StudentResponse{{Rollno: "S2", Name: "Bob"}}},
			{Subject: "Math", Slot: "Day-1 Slot-1", SlotIndex: 0, Students: []dto.StudentResponse{{Rollno: "S1", Name: "Alice"}}},
			{Subject: "Physics", Slot: "Day-1 Slot-2", SlotIndex: 1, Students: []dto.StudentResponse{{Rollno: "S1", Name: "Alice"}}},
		},
	}
}

func newExportServiceFixture(t *testing.T, repo *exportRepoStub, provider *timetableProviderStub, queue *queueStub) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(repo, provider, queue, store, signer, nil, zap.NewNop(), ExportServiceConfig{
		APIPrefix:  "/api/v1",
		ResultTTL:  time.Hour,
		MaxRetries: 2,
	})
}

func TestExportServiceCreateJobQueues(t *testing.T) {
	repo := newExportRepoStub()
	queue := &queueStub{}
	service := newExportServiceFixture(t, repo, &timetableProviderStub{resp: timetableResponseFixture()}, queue)

	resp, err := service.CreateJob(context.Background(), dto.ExportRequest{TimetableID: "tt-1", Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
}

func TestExportServiceCreateJobRejectsFormat(t *testing.T) {
	service := newExportServiceFixture(t, newExportRepoStub(), &timetableProviderStub{resp: timetableResponseFixture()}, &queueStub{})

	_, err := service.CreateJob(context.Background(), dto.ExportRequest{TimetableID: "tt-1", Format: "xlsx"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceCreateJobUnknownTimetable(t *testing.T) {
	provider := &timetableProviderStub{err: appErrors.Clone(appErrors.ErrNotFound, "timetable not found")}
	service := newExportServiceFixture(t, newExportRepoStub(), provider, &queueStub{})

	_, err := service.CreateJob(context.Background(), dto.ExportRequest{TimetableID: "missing", Format: "csv"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestExportServiceCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	repo := newExportRepoStub()
	queue := &queueStub{err: errors.New("queue stopped")}
	service := newExportServiceFixture(t, repo, &timetableProviderStub{resp: timetableResponseFixture()}, queue)

	_, err := service.CreateJob(context.Background(), dto.ExportRequest{TimetableID: "tt-1", Format: "csv"})
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportServiceHandleRendersCSV(t *testing.T) {
	repo := newExportRepoStub()
	service := newExportServiceFixture(t, repo, &timetableProviderStub{resp: timetableResponseFixture()}, &queueStub{})

	job := &models.ExportJob{TimetableID: "tt-1", Format: models.ExportFormatCSV}
	require.NoError(t, repo.Create(context.Background(), job))

	require.NoError(t, service.Handle(context.Background(), jobs.Job{ID: job.ID}))

	stored := repo.jobs[job.ID]
	assert.Equal(t, models.ExportStatusDone, stored.Status)
	require.NotNil(t, stored.ResultURL)
	assert.True(t, strings.HasPrefix(*stored.ResultURL, "/api/v1/exports/download/"))
	require.NotNil(t, stored.FinishedAt)

	token := extractToken(*stored.ResultURL)
	download, err := service.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()

	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	content := string(body)
	assert.Contains(t, content, "Subject,Slot,Students")
	assert.Contains(t, content, "Math,Day-1 Slot-1,S1 Alice")
	assert.Contains(t, content, "Physics,Day-1 Slot-2")
}

func TestBuildExportDatasetRowsKeyedByHeader(t *testing.T) {
	dataset := buildExportDataset(timetableResponseFixture())

	assert.Equal(t, []string{"Subject", "Slot", "Students"}, dataset.Headers)
	require.Len(t, dataset.Rows, 3)
	assert.Equal(t, map[string]string{
		"Subject":  "Chemistry",
		"Slot":     "Day-1 Slot-1",
		"Students": "S2 Bob",
	}, dataset.Rows[0])
	assert.Equal(t, "S1 Alice", dataset.Rows[1]["Students"])
}

func TestExportServiceHandleRendersPDF(t *testing.T) {
	repo := newExportRepoStub()
	service := newExportServiceFixture(t, repo, &timetableProviderStub{resp: timetableResponseFixture()}, &queueStub{})

	job := &models.ExportJob{TimetableID: "tt-1", Format: models.ExportFormatPDF}
	require.NoError(t, repo.Create(context.Background(), job))

	require.NoError(t, service.Handle(context.Background(), jobs.Job{ID: job.ID}))
	assert.Equal(t, models.ExportStatusDone, repo.jobs[job.ID].Status)
}

func TestExportServiceHandleRetriesThenFails(t *testing.T) {
	repo := newExportRepoStub()
	provider := &timetableProviderStub{err: errors.New("boom")}
	service := newExportServiceFixture(t, repo, provider, &queueStub{})

	job := &models.ExportJob{TimetableID: "tt-1", Format: models.ExportFormatCSV}
	require.NoError(t, repo.Create(context.Background(), job))

	// first attempt requeues
	require.Error(t, service.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 0}))
	assert.Equal(t, models.ExportStatusQueued, repo.jobs[job.ID].Status)

	// final attempt marks the job failed
	require.Error(t, service.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 2}))
	assert.Equal(t, models.ExportStatusFailed, repo.jobs[job.ID].Status)
	require.NotNil(t, repo.jobs[job.ID].ErrorMessage)
}

func TestExportServiceResolveDownloadRejectsBadToken(t *testing.T) {
	service := newExportServiceFixture(t, newExportRepoStub(), &timetableProviderStub{resp: timetableResponseFixture()}, &queueStub{})

	_, err := service.ResolveDownload(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestExportServiceResolveDownloadRequiresDoneJob(t *testing.T) {
	repo := newExportRepoStub()
	service := newExportServiceFixture(t, repo, &timetableProviderStub{resp: timetableResponseFixture()}, &queueStub{})

	job := &models.ExportJob{TimetableID: "tt-1", Format: models.ExportFormatCSV}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NoError(t, service.Handle(context.Background(), jobs.Job{ID: job.ID}))

	token := extractToken(*repo.jobs[job.ID].ResultURL)
	queued := models.ExportStatusQueued
	require.NoError(t, repo.Update(context.Background(), job.ID, repository.UpdateExportJobParams{Status: &queued}))

	_, err := service.ResolveDownload(context.Background(), token)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestExportServiceRecoverPendingJobs(t *testing.T) {
	repo := newExportRepoStub()
	queue := &queueStub{}
	service := newExportServiceFixture(t, repo, &timetableProviderStub{resp: timetableResponseFixture()}, queue)

	require.NoError(t, repo.Create(context.Background(), &models.ExportJob{TimetableID: "tt-1", Format: models.ExportFormatCSV}))
	done := &models.ExportJob{TimetableID: "tt-1", Format: models.ExportFormatCSV, Status: models.ExportStatusDone}
	require.NoError(t, repo.Create(context.Background(), done))

	service.RecoverPendingJobs(context.Background())
	assert.Len(t, queue.enqueued, 1)
}
