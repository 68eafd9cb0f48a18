package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/auth"
	"github.com/pengajuan-konten-api/internal/config"
	"github.com/pengajuan-konten-api/internal/detail"
	"github.com/pengajuan-konten-api/internal/export"
	"github.com/pengajuan-konten-api/internal/filter"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/notify"
	"github.com/pengajuan-konten-api/internal/repository"
	"github.com/pengajuan-konten-api/internal/validation"
	"github.com/pengajuan-konten-api/internal/wizard"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when a submission or item does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidPin is returned when a noComtab and pin pair does not match
	ErrInvalidPin = errors.New("invalid noComtab or pin")
	// ErrInvalidTransition is returned for review actions the current state forbids
	ErrInvalidTransition = errors.New("invalid review transition")
	// ErrNotConfirmed is returned when reviewing a submission that is not confirmed yet
	ErrNotConfirmed = errors.New("submission is not confirmed")
)

// ValidationFailedError carries the field errors that rejected an input
type ValidationFailedError struct {
	Errors []validation.ValidationError
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed: %d errors", len(e.Errors))
}

func invalid(errs ...validation.ValidationError) error {
	return &ValidationFailedError{Errors: errs}
}

// ListResult is one page of the recap list
type ListResult struct {
	Submissions []*models.Submission `json:"submissions"`
	Summary     filter.Summary       `json:"summary"`
	Options     filter.Options       `json:"options"`
}

// SubmissionService handles the public pengajuan form
type SubmissionService interface {
	Create(ctx context.Context, sub *models.Submission, idempotencyKey string) (*models.Submission, bool, error)
	Update(ctx context.Context, id int64, pin string, sub *models.Submission) (*models.Submission, error)
	Lookup(ctx context.Context, noComtab, pin string) (*models.Submission, error)
	Get(ctx context.Context, id int64) (*models.Submission, error)
	Detail(ctx context.Context, id int64) (*detail.View, error)
	List(ctx context.Context, state filter.State) (*ListResult, error)
	GenerateCredentials(ctx context.Context) (wizard.Credentials, error)
	ValidateStep(ctx context.Context, sub *models.Submission, step wizard.Step, isNew bool) ([]validation.ValidationError, error)
}

// ItemDecision approves or rejects one content item
type ItemDecision struct {
	Status          models.ItemStatus `json:"status" binding:"required,oneof=approved rejected"`
	AlasanPenolakan string            `json:"alasanPenolakan"`
	HasilProdukLink string            `json:"hasilProdukLink" binding:"omitempty,url"`
	Keterangan      string            `json:"keterangan"`
}

// PublicationDecision records whether an approved item was published
type PublicationDecision struct {
	IsTayang                *bool        `json:"isTayang" binding:"required"`
	KeteranganValidasi      string       `json:"keteranganValidasi"`
	TanggalTayangValidasi   *models.Date `json:"tanggalTayangValidasi"`
	HasilProdukValidasiLink string       `json:"hasilProdukValidasiLink" binding:"omitempty,url"`
	AlasanTidakTayang       string       `json:"alasanTidakTayang"`
}

// ReviewService handles the admin review workflow
type ReviewService interface {
	Confirm(ctx context.Context, id int64, sess *auth.Session) (*models.Submission, error)
	ReviewItem(ctx context.Context, id int64, itemID string, d ItemDecision, sess *auth.Session) (*models.Submission, error)
	ValidatePublication(ctx context.Context, id int64, itemID string, d PublicationDecision, sess *auth.Session) (*models.Submission, error)
	ValidateOutput(ctx context.Context, id int64, sess *auth.Session) (*models.Submission, error)
}

// ExportService renders the recap export and the submission snapshot
type ExportService interface {
	WriteRecap(ctx context.Context, w io.Writer, format export.Format, state filter.State) (int, error)
	StreamSnapshot(ctx context.Context, w http.ResponseWriter, format string) error
	GetCount(ctx context.Context) (int, error)
}

// ImportService defines the interface for snapshot import operations
type ImportService interface {
	CreateImportJob(ctx context.Context, req *ImportRequest, filePath string) (*models.Job, error)
	ProcessImport(ctx context.Context, job *models.Job) error
}

// JobService defines the interface for job management
type JobService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	GetJob(ctx context.Context, id string) (*models.JobResponse, error)
	GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
	GetJobErrors(ctx context.Context, id string) ([]models.RecordError, error)
	SetImportService(importService ImportService)
}

// Services holds all service interfaces
type Services struct {
	Submission SubmissionService
	Review     ReviewService
	Export     ExportService
	Import     ImportService
	Job        JobService

	notifier *asyncNotifier
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, notifier notify.Notifier, log zerolog.Logger) *Services {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	async := newAsyncNotifier(notifier, log)
	clock := time.Now

	jobSvc := newJobService(repos.Job, cfg.Import, log)
	importSvc := newImportService(repos, cfg, log)
	submissionSvc := newSubmissionService(repos.Submission, cfg, async, clock, log)
	reviewSvc := newReviewService(repos.Submission, clock, log)
	exportSvc := newExportService(repos, cfg.Server.Location(), clock, log)

	// Wire up job processor to import service
	jobSvc.SetImportService(importSvc)

	return &Services{
		Submission: submissionSvc,
		Review:     reviewSvc,
		Export:     exportSvc,
		Import:     importSvc,
		Job:        jobSvc,
		notifier:   async,
	}
}

// Shutdown stops the job processor and waits for pending notification mails
func (s *Services) Shutdown(ctx context.Context) error {
	s.Job.StopProcessor()
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Wait(ctx)
}

// NewMaterializer builds the attachment materializer from upload settings
func NewMaterializer(cfg config.UploadConfig, log zerolog.Logger) *attachment.Materializer {
	return &attachment.Materializer{
		Thumbnails: attachment.ThumbnailOptions{
			MaxWidth:  cfg.ThumbnailWidth,
			MaxHeight: cfg.ThumbnailHeight,
			Quality:   cfg.ThumbnailQuality,
		},
		OnThumbnailError: func(name string, err error) {
			log.Warn().Err(err).Str("file", name).Msg("Thumbnail generation failed, using full-size preview")
		},
	}
}
