package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pengajuan-konten-api/internal/config"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/repository"
	"github.com/pengajuan-konten-api/internal/validation"
	"github.com/pengajuan-konten-api/internal/workflow"
	"github.com/rs/zerolog"
)

// ImportRequest describes an uploaded snapshot
type ImportRequest struct {
	IdempotencyKey string
	RequestedBy    string
}

// importService is the concrete implementation of ImportService
type importService struct {
	repos *repository.Repositories
	cfg   *config.Config
	log   zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos: repos,
		cfg:   cfg,
		log:   log.With().Str("service", "import").Logger(),
	}
}

// CreateImportJob creates a new import job
func (s *importService) CreateImportJob(ctx context.Context, req *ImportRequest, filePath string) (*models.Job, error) {
	job := &models.Job{
		ID:             uuid.New().String(),
		Type:           models.JobTypeImport,
		Resource:       models.ResourceSubmissions,
		Status:         models.JobStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		FilePath:       filePath,
		RequestedBy:    req.RequestedBy,
		CreatedAt:      time.Now(),
	}

	if err := s.repos.Job.Create(ctx, job); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("file", filePath).
		Str("requested_by", req.RequestedBy).
		Msg("Import job created")

	return job, nil
}

// ProcessImport processes an import job
func (s *importService) ProcessImport(ctx context.Context, job *models.Job) error {
	startTime := time.Now()
	job.Status = models.JobStatusProcessing
	job.StartedAt = &startTime
	if err := s.repos.Job.Update(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to update job")
	}

	s.log.Info().Str("job_id", job.ID).Msg("Starting import processing")

	var err error
	switch job.Resource {
	case models.ResourceSubmissions:
		err = s.processSnapshot(ctx, job)
	default:
		err = fmt.Errorf("unknown resource type: %s", job.Resource)
	}

	job.DurationMs = time.Since(startTime).Milliseconds()
	completedAt := time.Now()
	job.CompletedAt = &completedAt

	// Calculate error rate for observability
	var errorRate float64
	if job.TotalRecords > 0 {
		errorRate = float64(job.FailedCount) / float64(job.TotalRecords) * 100
	}

	if err != nil {
		job.Status = models.JobStatusFailed
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Import failed")
	} else {
		job.Status = models.JobStatusCompleted
		s.log.Info().
			Str("job_id", job.ID).
			Int("total", job.TotalRecords).
			Int("successful", job.SuccessfulCount).
			Int("failed", job.FailedCount).
			Float64("error_rate_pct", errorRate).
			Int64("duration_ms", job.DurationMs).
			Msg("Import completed")
	}

	if uerr := s.repos.Job.Update(ctx, job); uerr != nil {
		s.log.Error().Err(uerr).Str("job_id", job.ID).Msg("Failed to update job")
	}
	return err
}

// recordReader yields the raw records of a snapshot: a JSON array as kept by the
// browser store, or NDJSON as produced by the snapshot export. line is the 1-based
// position of the record.
type recordReader func() (raw json.RawMessage, line int, err error)

func newRecordReader(r io.Reader) (recordReader, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return func() (json.RawMessage, int, error) { return nil, 0, io.EOF }, nil
		}
		return nil, err
	}

	if first == '[' {
		dec := json.NewDecoder(br)
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("invalid snapshot: %w", err)
		}
		n := 0
		return func() (json.RawMessage, int, error) {
			if !dec.More() {
				return nil, n, io.EOF
			}
			n++
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				// the array is broken past this point
				return nil, n, fmt.Errorf("invalid snapshot at record %d: %w", n, err)
			}
			return raw, n, nil
		}, nil
	}

	scanner := bufio.NewScanner(br)
	// Increase buffer size for records carrying base64 attachments
	scanner.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)
	line := 0
	return func() (json.RawMessage, int, error) {
		for scanner.Scan() {
			line++
			text := bytes.TrimSpace(scanner.Bytes())
			if len(text) == 0 {
				continue
			}
			return append(json.RawMessage(nil), text...), line, nil
		}
		if err := scanner.Err(); err != nil {
			return nil, line, err
		}
		return nil, line, io.EOF
	}, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// processSnapshot validates each record and inserts valid ones in batches
func (s *importService) processSnapshot(ctx context.Context, job *models.Job) error {
	file, err := os.Open(job.FilePath)
	if err != nil {
		return err
	}
	defer file.Close()

	next, err := newRecordReader(file)
	if err != nil {
		return err
	}

	validator := validation.NewValidator()
	codes, err := s.repos.Submission.GetAllNoComtabs(ctx)
	if err != nil {
		return err
	}
	validator.SetNoComtabCache(codes)

	batchSize := s.cfg.Import.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	var batch []*models.Submission
	var recordErrors []models.RecordError

	flushBatch := func() {
		if len(batch) == 0 {
			return
		}
		inserted, err := s.repos.Submission.BatchInsert(ctx, batch)
		if err != nil {
			s.log.Error().Err(err).Int("batch_size", len(batch)).Msg("Batch insert failed")
			job.FailedCount += len(batch)
		} else {
			job.SuccessfulCount += inserted
		}
		job.ProcessedCount += len(batch)
		batch = batch[:0]

		s.log.Debug().
			Str("job_id", job.ID).
			Int("processed", job.ProcessedCount).
			Msg("Batch processed")
	}

	for {
		raw, line, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			flushBatch()
			s.flushRecordErrors(ctx, job.ID, &recordErrors)
			return err
		}
		job.TotalRecords++

		// Respect context cancellation for long-running imports
		if line%1000 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		var sub models.Submission
		if err := json.Unmarshal(raw, &sub); err != nil {
			job.FailedCount++
			job.ProcessedCount++
			recordErrors = append(recordErrors, models.RecordError{
				Line:    line,
				Field:   "json",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			if len(recordErrors) >= errorFlushThreshold {
				s.flushRecordErrors(ctx, job.ID, &recordErrors)
			}
			continue
		}

		if errs := validator.ValidateSnapshot(&sub); len(errs) > 0 {
			job.FailedCount++
			job.ProcessedCount++
			for _, e := range errs {
				recordErrors = append(recordErrors, models.RecordError{
					Line:    line,
					Field:   e.Field,
					Message: e.Message,
					Value:   e.Value,
				})
			}
			if len(recordErrors) >= errorFlushThreshold {
				s.flushRecordErrors(ctx, job.ID, &recordErrors)
			}
			continue
		}

		sub.ID = 0
		workflow.Annotate(&sub)
		batch = append(batch, &sub)
		validator.AddNoComtab(sub.NoComtab)

		if len(batch) >= batchSize {
			flushBatch()
		}
	}

	flushBatch()
	s.flushRecordErrors(ctx, job.ID, &recordErrors)
	return nil
}

// flushRecordErrors writes accumulated errors to the job store and resets the slice,
// keeping memory bounded for snapshots with many invalid records
const errorFlushThreshold = 1000

func (s *importService) flushRecordErrors(ctx context.Context, jobID string, errs *[]models.RecordError) {
	if len(*errs) == 0 {
		return
	}
	if err := s.repos.Job.AddErrors(ctx, jobID, *errs); err != nil {
		s.log.Error().Err(err).Int("count", len(*errs)).Msg("Failed to flush record errors")
	}
	*errs = (*errs)[:0]
}
