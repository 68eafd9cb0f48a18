package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/repository"
)

// Verify interface compliance
var (
	_ repository.SubmissionRepository = (*MockSubmissionRepository)(nil)
	_ repository.JobRepository        = (*MockJobRepository)(nil)
)

// MockSubmissionRepository is a mock implementation of SubmissionRepository
type MockSubmissionRepository struct {
	mu               sync.Mutex
	Submissions      map[int64]*models.Submission
	IdempotencyKeys  map[string]int64
	NextID           int64
	InsertError      error
	UpdateError      error
	BatchInsertFunc  func(ctx context.Context, subs []*models.Submission) (int, error)
	BatchInsertCalls int
	UpdateCalls      int
}

func NewMockSubmissionRepository() *MockSubmissionRepository {
	return &MockSubmissionRepository{
		Submissions:     make(map[int64]*models.Submission),
		IdempotencyKeys: make(map[string]int64),
		NextID:          1,
	}
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (m *MockSubmissionRepository) taken(code string, exceptID int64) bool {
	for id, sub := range m.Submissions {
		if id != exceptID && normalize(sub.NoComtab) == normalize(code) {
			return true
		}
	}
	return false
}

func (m *MockSubmissionRepository) Create(ctx context.Context, sub *models.Submission, idempotencyKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	if m.taken(sub.NoComtab, 0) {
		return repository.ErrDuplicateNoComtab
	}
	sub.ID = m.NextID
	m.NextID++
	m.Submissions[sub.ID] = sub
	if idempotencyKey != "" {
		m.IdempotencyKeys[idempotencyKey] = sub.ID
	}
	return nil
}

func (m *MockSubmissionRepository) Update(ctx context.Context, sub *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if m.taken(sub.NoComtab, sub.ID) {
		return repository.ErrDuplicateNoComtab
	}
	m.Submissions[sub.ID] = sub
	return nil
}

func (m *MockSubmissionRepository) BatchInsert(ctx context.Context, subs []*models.Submission) (int, error) {
	m.mu.Lock()
	m.BatchInsertCalls++
	fn := m.BatchInsertFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, subs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return 0, m.InsertError
	}
	for _, sub := range subs {
		sub.ID = m.NextID
		m.NextID++
		m.Submissions[sub.ID] = sub
	}
	return len(subs), nil
}

func (m *MockSubmissionRepository) GetByID(ctx context.Context, id int64) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Submissions[id], nil
}

func (m *MockSubmissionRepository) GetByNoComtab(ctx context.Context, noComtab string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.Submissions {
		if normalize(sub.NoComtab) == normalize(noComtab) {
			return sub, nil
		}
	}
	return nil, nil
}

func (m *MockSubmissionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.IdempotencyKeys[key]
	if !ok {
		return nil, nil
	}
	return m.Submissions[id], nil
}

func (m *MockSubmissionRepository) NoComtabExists(ctx context.Context, noComtab string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.taken(noComtab, 0), nil
}

func (m *MockSubmissionRepository) GetAllNoComtabs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.Submissions))
	for _, sub := range m.Submissions {
		codes = append(codes, sub.NoComtab)
	}
	return codes, nil
}

// List returns submissions ordered by ID
func (m *MockSubmissionRepository) List(ctx context.Context) ([]*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := make([]*models.Submission, 0, len(m.Submissions))
	for _, sub := range m.Submissions {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (m *MockSubmissionRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Submissions), nil
}

func (m *MockSubmissionRepository) StreamAll(ctx context.Context, callback func(*models.Submission) error) error {
	subs, _ := m.List(ctx)
	for _, sub := range subs {
		if err := callback(sub); err != nil {
			return err
		}
	}
	return nil
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct {
	mu              sync.Mutex
	Jobs            map[string]*models.Job
	IdempotencyJobs map[string]*models.Job
	Errors          map[string][]models.RecordError
	CreateError     error
	UpdateError     error
}

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		Jobs:            make(map[string]*models.Job),
		IdempotencyJobs: make(map[string]*models.Job),
		Errors:          make(map[string][]models.RecordError),
	}
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	c := *job
	m.Jobs[job.ID] = &c
	if job.IdempotencyKey != "" {
		m.IdempotencyJobs[job.IdempotencyKey] = &c
	}
	return nil
}

func (m *MockJobRepository) Update(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	c := *job
	m.Jobs[job.ID] = &c
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok {
		return nil, nil
	}
	c := *job
	return &c, nil
}

func (m *MockJobRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	m.mu.Lock()
	job, ok := m.IdempotencyJobs[key]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return m.GetByID(ctx, job.ID)
}

func (m *MockJobRepository) GetPendingJobs(ctx context.Context) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*models.Job
	for _, job := range m.Jobs {
		if job.Status == models.JobStatusPending {
			c := *job
			pending = append(pending, &c)
		}
	}
	return pending, nil
}

func (m *MockJobRepository) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, exists := m.Jobs[jobID]
	if !exists || job.Status != models.JobStatusPending {
		return false, nil
	}
	job.Status = models.JobStatusProcessing
	return true, nil
}

func (m *MockJobRepository) AddErrors(ctx context.Context, jobID string, errors []models.RecordError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[jobID] = append(m.Errors[jobID], errors...)
	return nil
}

func (m *MockJobRepository) GetErrors(ctx context.Context, jobID string, limit int) ([]models.RecordError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	errors := append([]models.RecordError(nil), m.Errors[jobID]...)
	if limit > 0 && len(errors) > limit {
		return errors[:limit], nil
	}
	return errors, nil
}
