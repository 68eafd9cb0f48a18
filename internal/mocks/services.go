package mocks

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/pengajuan-konten-api/internal/auth"
	"github.com/pengajuan-konten-api/internal/detail"
	"github.com/pengajuan-konten-api/internal/export"
	"github.com/pengajuan-konten-api/internal/filter"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/service"
	"github.com/pengajuan-konten-api/internal/validation"
	"github.com/pengajuan-konten-api/internal/wizard"
)

// Verify interface compliance
var (
	_ service.SubmissionService = (*MockSubmissionService)(nil)
	_ service.ReviewService     = (*MockReviewService)(nil)
	_ service.ExportService     = (*MockExportService)(nil)
	_ service.ImportService     = (*MockImportService)(nil)
	_ service.JobService        = (*MockJobService)(nil)
)

// MockSubmissionService is a mock implementation of SubmissionService
type MockSubmissionService struct {
	CreateFunc      func(ctx context.Context, sub *models.Submission, key string) (*models.Submission, bool, error)
	UpdateFunc      func(ctx context.Context, id int64, pin string, sub *models.Submission) (*models.Submission, error)
	LookupFunc      func(ctx context.Context, noComtab, pin string) (*models.Submission, error)
	DetailFunc      func(ctx context.Context, id int64) (*detail.View, error)
	ListFunc        func(ctx context.Context, state filter.State) (*service.ListResult, error)
	CredentialsFunc func(ctx context.Context) (wizard.Credentials, error)
	ValidateFunc    func(ctx context.Context, sub *models.Submission, step wizard.Step, isNew bool) ([]validation.ValidationError, error)

	Submissions map[int64]*models.Submission
	Created     []*models.Submission
	LastFilter  filter.State
}

func NewMockSubmissionService() *MockSubmissionService {
	return &MockSubmissionService{Submissions: make(map[int64]*models.Submission)}
}

func (m *MockSubmissionService) Create(ctx context.Context, sub *models.Submission, key string) (*models.Submission, bool, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, sub, key)
	}
	sub.ID = int64(len(m.Created) + 1)
	m.Created = append(m.Created, sub)
	m.Submissions[sub.ID] = sub
	return sub, false, nil
}

func (m *MockSubmissionService) Update(ctx context.Context, id int64, pin string, sub *models.Submission) (*models.Submission, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, pin, sub)
	}
	if _, ok := m.Submissions[id]; !ok {
		return nil, service.ErrNotFound
	}
	sub.ID = id
	m.Submissions[id] = sub
	return sub, nil
}

func (m *MockSubmissionService) Lookup(ctx context.Context, noComtab, pin string) (*models.Submission, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, noComtab, pin)
	}
	for _, sub := range m.Submissions {
		if sub.NoComtab == noComtab && sub.Pin == pin {
			return sub, nil
		}
	}
	return nil, service.ErrInvalidPin
}

func (m *MockSubmissionService) Get(ctx context.Context, id int64) (*models.Submission, error) {
	sub, ok := m.Submissions[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return sub, nil
}

func (m *MockSubmissionService) Detail(ctx context.Context, id int64) (*detail.View, error) {
	if m.DetailFunc != nil {
		return m.DetailFunc(ctx, id)
	}
	sub, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail.Build(sub, nil), nil
}

func (m *MockSubmissionService) List(ctx context.Context, state filter.State) (*service.ListResult, error) {
	m.LastFilter = state
	if m.ListFunc != nil {
		return m.ListFunc(ctx, state)
	}
	return &service.ListResult{Submissions: []*models.Submission{}}, nil
}

func (m *MockSubmissionService) GenerateCredentials(ctx context.Context) (wizard.Credentials, error) {
	if m.CredentialsFunc != nil {
		return m.CredentialsFunc(ctx)
	}
	return wizard.Credentials{NoComtab: "0001/IKP/08/2025", Pin: "1234"}, nil
}

func (m *MockSubmissionService) ValidateStep(ctx context.Context, sub *models.Submission, step wizard.Step, isNew bool) ([]validation.ValidationError, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, sub, step, isNew)
	}
	return nil, nil
}

// ReviewCall records one review action received by MockReviewService
type ReviewCall struct {
	Action      string
	ID          int64
	ItemID      string
	Item        service.ItemDecision
	Publication service.PublicationDecision
	Username    string
}

// MockReviewService is a mock implementation of ReviewService
type MockReviewService struct {
	mu    sync.Mutex
	Err   error
	Calls []ReviewCall
}

func NewMockReviewService() *MockReviewService {
	return &MockReviewService{}
}

func (m *MockReviewService) record(call ReviewCall, sess *auth.Session) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess != nil {
		call.Username = sess.Username
	}
	m.Calls = append(m.Calls, call)
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Submission{ID: call.ID}, nil
}

func (m *MockReviewService) Confirm(ctx context.Context, id int64, sess *auth.Session) (*models.Submission, error) {
	return m.record(ReviewCall{Action: "confirm", ID: id}, sess)
}

func (m *MockReviewService) ReviewItem(ctx context.Context, id int64, itemID string, d service.ItemDecision, sess *auth.Session) (*models.Submission, error) {
	return m.record(ReviewCall{Action: "review", ID: id, ItemID: itemID, Item: d}, sess)
}

func (m *MockReviewService) ValidatePublication(ctx context.Context, id int64, itemID string, d service.PublicationDecision, sess *auth.Session) (*models.Submission, error) {
	return m.record(ReviewCall{Action: "publication", ID: id, ItemID: itemID, Publication: d}, sess)
}

func (m *MockReviewService) ValidateOutput(ctx context.Context, id int64, sess *auth.Session) (*models.Submission, error) {
	return m.record(ReviewCall{Action: "output", ID: id}, sess)
}

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	CreateJobFunc func(ctx context.Context, req *service.ImportRequest, filePath string) (*models.Job, error)
	ProcessFunc   func(ctx context.Context, job *models.Job) error

	mu            sync.Mutex
	ProcessedJobs []*models.Job
	CreatedJobs   []*models.Job
	Requests      []*service.ImportRequest
}

func NewMockImportService() *MockImportService {
	return &MockImportService{
		ProcessedJobs: make([]*models.Job, 0),
		CreatedJobs:   make([]*models.Job, 0),
	}
}

func (m *MockImportService) CreateImportJob(ctx context.Context, req *service.ImportRequest, filePath string) (*models.Job, error) {
	if m.CreateJobFunc != nil {
		return m.CreateJobFunc(ctx, req, filePath)
	}
	job := &models.Job{
		ID:             "test-job-id",
		Type:           models.JobTypeImport,
		Resource:       models.ResourceSubmissions,
		Status:         models.JobStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		FilePath:       filePath,
		RequestedBy:    req.RequestedBy,
	}
	m.mu.Lock()
	m.CreatedJobs = append(m.CreatedJobs, job)
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	return job, nil
}

func (m *MockImportService) ProcessImport(ctx context.Context, job *models.Job) error {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, job)
	}
	m.mu.Lock()
	m.ProcessedJobs = append(m.ProcessedJobs, job)
	m.mu.Unlock()
	job.Status = models.JobStatusCompleted
	return nil
}

// Processed returns a copy of the jobs handed to ProcessImport
func (m *MockImportService) Processed() []*models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Job(nil), m.ProcessedJobs...)
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	WriteRecapFunc     func(ctx context.Context, w io.Writer, format export.Format, state filter.State) (int, error)
	StreamSnapshotFunc func(ctx context.Context, w http.ResponseWriter, format string) error
	Count              int
}

func NewMockExportService() *MockExportService {
	return &MockExportService{}
}

func (m *MockExportService) WriteRecap(ctx context.Context, w io.Writer, format export.Format, state filter.State) (int, error) {
	if m.WriteRecapFunc != nil {
		return m.WriteRecapFunc(ctx, w, format, state)
	}
	return 0, nil
}

func (m *MockExportService) StreamSnapshot(ctx context.Context, w http.ResponseWriter, format string) error {
	if m.StreamSnapshotFunc != nil {
		return m.StreamSnapshotFunc(ctx, w, format)
	}
	return nil
}

func (m *MockExportService) GetCount(ctx context.Context) (int, error) {
	return m.Count, nil
}

// MockJobService is a mock implementation of JobService
type MockJobService struct {
	Jobs          map[string]*models.JobResponse
	Errors        map[string][]models.RecordError
	ImportService service.ImportService
}

func NewMockJobService() *MockJobService {
	return &MockJobService{
		Jobs:   make(map[string]*models.JobResponse),
		Errors: make(map[string][]models.RecordError),
	}
}

func (m *MockJobService) StartProcessor(ctx context.Context) {}

func (m *MockJobService) StopProcessor() {}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	return m.Jobs[id], nil
}

func (m *MockJobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	for _, job := range m.Jobs {
		if job.IdempotencyKey == key {
			return &job.Job, nil
		}
	}
	return nil, nil
}

func (m *MockJobService) GetJobErrors(ctx context.Context, id string) ([]models.RecordError, error) {
	return m.Errors[id], nil
}

func (m *MockJobService) SetImportService(importService service.ImportService) {
	m.ImportService = importService
}
