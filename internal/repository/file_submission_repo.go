package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pengajuan-konten-api/internal/models"
)

// fileSubmissionRepo keeps every submission in one JSON array file, the same shape the
// browser client kept in local storage. The whole array is rewritten on every change.
type fileSubmissionRepo struct {
	mu          sync.RWMutex
	path        string
	subs        []*models.Submission
	idempotency map[string]int64
	nextID      int64
}

// NewFileSubmissionRepo opens (or creates on first write) a snapshot file
func NewFileSubmissionRepo(path string) (SubmissionRepository, error) {
	r := &fileSubmissionRepo{
		path:        path,
		idempotency: make(map[string]int64),
		nextID:      1,
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.subs); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
		}
	}
	kept := r.subs[:0]
	for _, sub := range r.subs {
		if sub == nil {
			continue
		}
		kept = append(kept, sub)
		if sub.ID >= r.nextID {
			r.nextID = sub.ID + 1
		}
	}
	r.subs = kept
	return r, nil
}

// flush writes the array to a temporary file and renames it over the snapshot
func (r *fileSubmissionRepo) flush() error {
	data, err := json.Marshal(r.subs)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".pengajuan-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}

// clone deep-copies a submission so callers never share state with the store
func clone(sub *models.Submission) (*models.Submission, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}
	var out models.Submission
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	out.CreatedAt = sub.CreatedAt
	out.UpdatedAt = sub.UpdatedAt
	return &out, nil
}

func (r *fileSubmissionRepo) indexOf(id int64) int {
	for i, sub := range r.subs {
		if sub.ID == id {
			return i
		}
	}
	return -1
}

func (r *fileSubmissionRepo) codeTaken(code string, exceptID int64) bool {
	code = normalizeNoComtab(code)
	for _, sub := range r.subs {
		if sub.ID != exceptID && normalizeNoComtab(sub.NoComtab) == code {
			return true
		}
	}
	return false
}

// Create appends a new submission and assigns its ID
func (r *fileSubmissionRepo) Create(ctx context.Context, sub *models.Submission, idempotencyKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.codeTaken(sub.NoComtab, 0) {
		return ErrDuplicateNoComtab
	}
	stored, err := clone(sub)
	if err != nil {
		return err
	}
	now := time.Now()
	stored.ID = r.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.subs = append(r.subs, stored)
	if err := r.flush(); err != nil {
		r.subs = r.subs[:len(r.subs)-1]
		return err
	}

	r.nextID++
	if idempotencyKey != "" {
		r.idempotency[idempotencyKey] = stored.ID
	}
	sub.ID = stored.ID
	sub.CreatedAt = now
	sub.UpdatedAt = now
	return nil
}

// Update replaces the stored submission with the same ID
func (r *fileSubmissionRepo) Update(ctx context.Context, sub *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(sub.ID)
	if i < 0 {
		return fmt.Errorf("submission %d not found", sub.ID)
	}
	if r.codeTaken(sub.NoComtab, sub.ID) {
		return ErrDuplicateNoComtab
	}
	stored, err := clone(sub)
	if err != nil {
		return err
	}
	stored.CreatedAt = r.subs[i].CreatedAt
	stored.UpdatedAt = time.Now()

	previous := r.subs[i]
	r.subs[i] = stored
	if err := r.flush(); err != nil {
		r.subs[i] = previous
		return err
	}
	sub.UpdatedAt = stored.UpdatedAt
	return nil
}

// BatchInsert appends imported submissions in one write. The batch is rejected as a
// whole when any tracking code is already taken.
func (r *fileSubmissionRepo) BatchInsert(ctx context.Context, subs []*models.Submission) (int, error) {
	if len(subs) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(subs))
	for _, sub := range subs {
		code := normalizeNoComtab(sub.NoComtab)
		if seen[code] || r.codeTaken(code, 0) {
			return 0, ErrDuplicateNoComtab
		}
		seen[code] = true
	}

	before := len(r.subs)
	nextID := r.nextID
	now := time.Now()
	for _, sub := range subs {
		stored, err := clone(sub)
		if err != nil {
			r.subs = r.subs[:before]
			return 0, err
		}
		stored.ID = nextID
		stored.CreatedAt = now
		stored.UpdatedAt = now
		nextID++
		r.subs = append(r.subs, stored)
	}
	if err := r.flush(); err != nil {
		r.subs = r.subs[:before]
		return 0, err
	}
	r.nextID = nextID
	return len(subs), nil
}

func (r *fileSubmissionRepo) find(match func(*models.Submission) bool) (*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		if match(sub) {
			return clone(sub)
		}
	}
	return nil, nil
}

// GetByID retrieves a submission by ID
func (r *fileSubmissionRepo) GetByID(ctx context.Context, id int64) (*models.Submission, error) {
	return r.find(func(s *models.Submission) bool { return s.ID == id })
}

// GetByNoComtab retrieves a submission by tracking code
func (r *fileSubmissionRepo) GetByNoComtab(ctx context.Context, noComtab string) (*models.Submission, error) {
	code := normalizeNoComtab(noComtab)
	return r.find(func(s *models.Submission) bool { return normalizeNoComtab(s.NoComtab) == code })
}

// GetByIdempotencyKey retrieves the submission created with the given key. Keys are
// remembered for the lifetime of the process only.
func (r *fileSubmissionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Submission, error) {
	r.mu.RLock()
	id, ok := r.idempotency[key]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// NoComtabExists checks if a tracking code is already stored
func (r *fileSubmissionRepo) NoComtabExists(ctx context.Context, noComtab string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.codeTaken(noComtab, 0), nil
}

// GetAllNoComtabs retrieves every stored tracking code
func (r *fileSubmissionRepo) GetAllNoComtabs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.subs))
	for _, sub := range r.subs {
		codes = append(codes, sub.NoComtab)
	}
	return codes, nil
}

// List returns every submission, newest submission first
func (r *fileSubmissionRepo) List(ctx context.Context) ([]*models.Submission, error) {
	subs := []*models.Submission{}
	err := r.StreamAll(ctx, func(sub *models.Submission) error {
		subs = append(subs, sub)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// Count returns the total number of submissions
func (r *fileSubmissionRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs), nil
}

// StreamAll calls callback with a copy of every submission in list order
func (r *fileSubmissionRepo) StreamAll(ctx context.Context, callback func(*models.Submission) error) error {
	r.mu.RLock()
	ordered := make([]*models.Submission, 0, len(r.subs))
	for _, sub := range r.subs {
		c, err := clone(sub)
		if err != nil {
			r.mu.RUnlock()
			return err
		}
		ordered = append(ordered, c)
	}
	r.mu.RUnlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].TanggalSubmit, ordered[j].TanggalSubmit
		switch {
		case a.Valid() && b.Valid() && !a.Time.Equal(b.Time):
			return a.Time.After(b.Time)
		case a.Valid() != b.Valid():
			return a.Valid()
		default:
			return ordered[i].ID > ordered[j].ID
		}
	})

	for _, sub := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := callback(sub); err != nil {
			return err
		}
	}
	return nil
}
