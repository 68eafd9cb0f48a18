package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pengajuan-konten-api/internal/models"
)

// memoryJobRepo keeps import jobs in process memory for the file store
type memoryJobRepo struct {
	mu          sync.Mutex
	jobs        map[string]*models.Job
	idempotency map[string]string
	errors      map[string][]models.RecordError
}

// NewMemoryJobRepo creates an in-memory job repository
func NewMemoryJobRepo() JobRepository {
	return &memoryJobRepo{
		jobs:        make(map[string]*models.Job),
		idempotency: make(map[string]string),
		errors:      make(map[string][]models.RecordError),
	}
}

func copyJob(job *models.Job) *models.Job {
	c := *job
	return &c
}

func (r *memoryJobRepo) Create(ctx context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = copyJob(job)
	if job.IdempotencyKey != "" {
		r.idempotency[job.IdempotencyKey] = job.ID
	}
	return nil
}

func (r *memoryJobRepo) Update(ctx context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = copyJob(job)
	return nil
}

func (r *memoryJobRepo) GetByID(ctx context.Context, id string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	return copyJob(job), nil
}

func (r *memoryJobRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	r.mu.Lock()
	id, ok := r.idempotency[key]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *memoryJobRepo) GetPendingJobs(ctx context.Context) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*models.Job
	for _, job := range r.jobs {
		if job.Status == models.JobStatusPending {
			pending = append(pending, copyJob(job))
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

func (r *memoryJobRepo) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status != models.JobStatusPending {
		return false, nil
	}
	now := time.Now()
	job.Status = models.JobStatusProcessing
	job.StartedAt = &now
	return true, nil
}

func (r *memoryJobRepo) AddErrors(ctx context.Context, jobID string, errors []models.RecordError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[jobID] = append(r.errors[jobID], errors...)
	return nil
}

func (r *memoryJobRepo) GetErrors(ctx context.Context, jobID string, limit int) ([]models.RecordError, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	errs := append([]models.RecordError(nil), r.errors[jobID]...)
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Line < errs[j].Line })
	if limit > 0 && len(errs) > limit {
		errs = errs[:limit]
	}
	return errs, nil
}
