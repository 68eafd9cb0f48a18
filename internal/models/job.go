package models

import (
	"time"
)

// JobStatus represents the status of a snapshot import job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobType represents the type of job
type JobType string

// JobTypeImport loads a browser-local submission snapshot into the store
const JobTypeImport JobType = "import"

// ResourceSubmissions is the only importable resource
const ResourceSubmissions = "submissions"

// Job tracks one asynchronous snapshot import
type Job struct {
	ID              string     `json:"job_id" db:"id"`
	Type            JobType    `json:"type" db:"type"`
	Resource        string     `json:"resource" db:"resource"`
	Status          JobStatus  `json:"status" db:"status"`
	IdempotencyKey  string     `json:"idempotency_key,omitempty" db:"idempotency_key"`
	TotalRecords    int        `json:"total_records" db:"total_records"`
	ProcessedCount  int        `json:"processed" db:"processed_count"`
	SuccessfulCount int        `json:"successful" db:"successful_count"`
	FailedCount     int        `json:"failed" db:"failed_count"`
	DurationMs      int64      `json:"duration_ms,omitempty" db:"duration_ms"`
	FilePath        string     `json:"-" db:"file_path"`
	RequestedBy     string     `json:"requested_by,omitempty" db:"requested_by"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// RecordError is a validation failure for one record of an imported snapshot.
// Line is the 1-based position of the record in the snapshot array.
type RecordError struct {
	Line    int         `json:"line"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// JobResponse is the API response for job status
type JobResponse struct {
	Job
	Errors      []RecordError `json:"errors,omitempty"`
	ErrorCount  int           `json:"error_count,omitempty"`
	ErrorReport string        `json:"error_report_url,omitempty"`
}
