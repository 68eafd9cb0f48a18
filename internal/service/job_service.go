package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/pengajuan-konten-api/internal/config"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/repository"
	"github.com/rs/zerolog"
)

// jobService is the concrete implementation of JobService
type jobService struct {
	jobRepo       repository.JobRepository
	importService ImportService
	log           zerolog.Logger
	interval      time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	loopDone      chan struct{}
	running       bool
	mu            sync.Mutex
	// Semaphore: buffered channel to limit concurrent job processing
	sem chan struct{}
}

// newJobService creates a new JobService with a bounded worker pool
func newJobService(jobRepo repository.JobRepository, cfg config.ImportConfig, log zerolog.Logger) *jobService {
	maxWorkers := cfg.Workers
	if maxWorkers <= 0 {
		// imports are I/O-bound: more workers than cores
		maxWorkers = runtime.NumCPU() * 2
		if maxWorkers > 8 {
			maxWorkers = 8
		}
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	log.Info().Int("max_workers", maxWorkers).Dur("poll_interval", interval).Msg("Initializing job service worker pool")

	return &jobService{
		jobRepo:  jobRepo,
		log:      log.With().Str("service", "job").Logger(),
		interval: interval,
		sem:      make(chan struct{}, maxWorkers),
	}
}

// SetImportService sets the import service for job processing
func (s *jobService) SetImportService(importService ImportService) {
	s.importService = importService
}

// StartProcessor polls for pending jobs until ctx is cancelled or StopProcessor is
// called. It blocks; run it in its own goroutine.
func (s *jobService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.loopDone = make(chan struct{})
	loopCtx, done := s.ctx, s.loopDone
	s.mu.Unlock()
	defer close(done)

	s.log.Info().Msg("Job processor started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			s.log.Info().Msg("Job processor stopping")
			return
		case <-ticker.C:
			s.processPendingJobs(loopCtx)
		}
	}
}

// StopProcessor stops the background job processor and waits for running jobs
func (s *jobService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	<-s.loopDone
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Job processor stopped")
}

// processPendingJobs hands pending jobs to the worker pool
func (s *jobService) processPendingJobs(ctx context.Context) {
	jobs, err := s.jobRepo.GetPendingJobs(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get pending jobs")
		return
	}

	for _, job := range jobs {
		// Acquire semaphore slot - blocks if all workers are busy
		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		marked, err := s.jobRepo.MarkJobAsProcessing(ctx, job.ID)
		if err != nil || !marked {
			<-s.sem
			continue // Another worker already picked it up
		}

		s.wg.Add(1)
		go func(j *models.Job) {
			defer s.wg.Done()
			defer func() { <-s.sem }()

			defer func() {
				if r := recover(); r != nil {
					s.log.Error().
						Interface("panic", r).
						Str("job_id", j.ID).
						Msg("Job processing panicked - recovered")
					j.Status = models.JobStatusFailed
					if err := s.jobRepo.Update(context.Background(), j); err != nil {
						s.log.Error().Err(err).Str("job_id", j.ID).Msg("Failed to mark job as failed")
					}
				}
			}()
			s.processJob(ctx, j)
		}(job)
	}
}

// processJob processes a single job
func (s *jobService) processJob(ctx context.Context, job *models.Job) {
	select {
	case <-ctx.Done():
		s.log.Warn().Str("job_id", job.ID).Msg("Job processing cancelled due to shutdown")
		return
	default:
	}

	s.log.Info().Str("job_id", job.ID).Str("type", string(job.Type)).Msg("Processing job")

	switch job.Type {
	case models.JobTypeImport:
		if s.importService != nil {
			if err := s.importService.ProcessImport(ctx, job); err != nil {
				s.log.Error().Err(err).Str("job_id", job.ID).Msg("Import processing failed")
			}
		}
	default:
		s.log.Warn().Str("job_id", job.ID).Str("type", string(job.Type)).Msg("Unknown job type")
	}
}

// GetJob retrieves a job by ID with its first errors
func (s *jobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	errors, err := s.jobRepo.GetErrors(ctx, id, 100)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", id).Msg("Failed to get job errors")
	}

	response := &models.JobResponse{
		Job:        *job,
		Errors:     errors,
		ErrorCount: job.FailedCount,
	}
	if job.FailedCount > 0 {
		response.ErrorReport = "/v1/imports/" + job.ID + "/errors"
	}

	return response, nil
}

// GetJobByIdempotencyKey retrieves a job by idempotency key
func (s *jobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	return s.jobRepo.GetByIdempotencyKey(ctx, key)
}

// GetJobErrors retrieves all record errors for a job
func (s *jobService) GetJobErrors(ctx context.Context, id string) ([]models.RecordError, error) {
	return s.jobRepo.GetErrors(ctx, id, 0)
}
