package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pengajuan-konten-api/internal/database"
	"github.com/pengajuan-konten-api/internal/models"
)

// ErrDuplicateNoComtab is returned when a tracking code is already stored
var ErrDuplicateNoComtab = errors.New("noComtab already exists")

// SubmissionRepository defines the interface for submission data operations.
// Lookups return (nil, nil) when nothing matches.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *models.Submission, idempotencyKey string) error
	Update(ctx context.Context, sub *models.Submission) error
	BatchInsert(ctx context.Context, subs []*models.Submission) (int, error)
	GetByID(ctx context.Context, id int64) (*models.Submission, error)
	GetByNoComtab(ctx context.Context, noComtab string) (*models.Submission, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Submission, error)
	NoComtabExists(ctx context.Context, noComtab string) (bool, error)
	GetAllNoComtabs(ctx context.Context) ([]string, error)
	List(ctx context.Context) ([]*models.Submission, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Submission) error) error
}

// JobRepository defines the interface for import job data operations
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
	GetPendingJobs(ctx context.Context) ([]*models.Job, error)
	MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error)
	AddErrors(ctx context.Context, jobID string, errors []models.RecordError) error
	GetErrors(ctx context.Context, jobID string, limit int) ([]models.RecordError, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Submission SubmissionRepository
	Job        JobRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Submission: NewSubmissionRepo(db),
		Job:        NewJobRepo(db),
	}
}

// NewFileStore keeps submissions in a whole-array JSON snapshot file and jobs in memory
func NewFileStore(path string) (*Repositories, error) {
	subs, err := NewFileSubmissionRepo(path)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Submission: subs,
		Job:        NewMemoryJobRepo(),
	}, nil
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// valueString renders an error value for the text column
func valueString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
