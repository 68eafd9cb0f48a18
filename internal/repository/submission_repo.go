package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pengajuan-konten-api/internal/database"
	"github.com/pengajuan-konten-api/internal/models"
)

const noComtabConstraint = "submissions_no_comtab_key"

const submissionColumns = `id, no_comtab, pin, judul, tema, petugas_pelaksana, supervisor,
	tanggal_order, tanggal_submit, last_modified, tanggal_review, tanggal_validasi_output,
	is_confirmed, tanggal_konfirmasi, is_output_validated, attachments, content_items,
	created_at, updated_at`

// submissionFiles is the JSONB shape of the submission-level attachments
type submissionFiles struct {
	UploadedBuktiMengetahui *models.Attachment   `json:"uploadedBuktiMengetahui,omitempty"`
	SuratPermohonan         *models.Attachment   `json:"suratPermohonan,omitempty"`
	ProposalKegiatan        *models.Attachment   `json:"proposalKegiatan,omitempty"`
	DokumenPendukung        []*models.Attachment `json:"dokumenPendukung,omitempty"`
}

// submissionRepo is the concrete implementation of SubmissionRepository
type submissionRepo struct {
	db *database.DB
}

// NewSubmissionRepo creates a new submission repository
func NewSubmissionRepo(db *database.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

// encoded holds the JSON columns of a submission. lib/pq sends []byte as bytea, so
// the documents travel as strings.
type encoded struct {
	files        string
	items        string
	contentTypes pq.StringArray
}

func encodeSubmission(sub *models.Submission) (*encoded, error) {
	files, err := json.Marshal(submissionFiles{
		UploadedBuktiMengetahui: sub.UploadedBuktiMengetahui,
		SuratPermohonan:         sub.SuratPermohonan,
		ProposalKegiatan:        sub.ProposalKegiatan,
		DokumenPendukung:        sub.DokumenPendukung,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode attachments: %w", err)
	}
	items := sub.ContentItems
	if items == nil {
		items = []*models.ContentItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode content items: %w", err)
	}
	types := sub.ContentTypes()
	if types == nil {
		types = []string{}
	}
	return &encoded{files: string(files), items: string(itemsJSON), contentTypes: types}, nil
}

// Create inserts a new submission and assigns its ID
func (r *submissionRepo) Create(ctx context.Context, sub *models.Submission, idempotencyKey string) error {
	enc, err := encodeSubmission(sub)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		INSERT INTO submissions (no_comtab, pin, judul, tema, petugas_pelaksana, supervisor,
			tanggal_order, tanggal_submit, last_modified, tanggal_review, tanggal_validasi_output,
			is_confirmed, tanggal_konfirmasi, is_output_validated, attachments, content_items,
			content_types, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		sub.NoComtab, sub.Pin, sub.Judul, sub.Tema, sub.PetugasPelaksana, sub.Supervisor,
		sub.TanggalOrder.TimeOrNil(), sub.TanggalSubmit.TimeOrNil(), sub.LastModified.TimeOrNil(),
		sub.TanggalReview.TimeOrNil(), sub.TanggalValidasiOutput.TimeOrNil(),
		sub.IsConfirmed, sub.TanggalKonfirmasi.TimeOrNil(), sub.IsOutputValidated,
		enc.files, enc.items, enc.contentTypes, nullString(idempotencyKey), now,
	).Scan(&sub.ID)
	if database.IsUniqueViolation(err, noComtabConstraint) {
		return ErrDuplicateNoComtab
	}
	if err != nil {
		return err
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now
	return nil
}

// Update replaces every stored field of the submission
func (r *submissionRepo) Update(ctx context.Context, sub *models.Submission) error {
	enc, err := encodeSubmission(sub)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		UPDATE submissions SET
			no_comtab = $1, pin = $2, judul = $3, tema = $4, petugas_pelaksana = $5, supervisor = $6,
			tanggal_order = $7, tanggal_submit = $8, last_modified = $9, tanggal_review = $10,
			tanggal_validasi_output = $11, is_confirmed = $12, tanggal_konfirmasi = $13,
			is_output_validated = $14, attachments = $15, content_items = $16, content_types = $17,
			updated_at = $18
		WHERE id = $19
	`
	result, err := r.db.ExecContext(ctx, query,
		sub.NoComtab, sub.Pin, sub.Judul, sub.Tema, sub.PetugasPelaksana, sub.Supervisor,
		sub.TanggalOrder.TimeOrNil(), sub.TanggalSubmit.TimeOrNil(), sub.LastModified.TimeOrNil(),
		sub.TanggalReview.TimeOrNil(), sub.TanggalValidasiOutput.TimeOrNil(),
		sub.IsConfirmed, sub.TanggalKonfirmasi.TimeOrNil(), sub.IsOutputValidated,
		enc.files, enc.items, enc.contentTypes, now, sub.ID,
	)
	if database.IsUniqueViolation(err, noComtabConstraint) {
		return ErrDuplicateNoComtab
	}
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	sub.UpdatedAt = now
	return nil
}

// BatchInsert inserts imported submissions using PostgreSQL COPY for efficiency
func (r *submissionRepo) BatchInsert(ctx context.Context, subs []*models.Submission) (int, error) {
	if len(subs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Prepare COPY statement for bulk insert
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("submissions",
		"no_comtab", "pin", "judul", "tema", "petugas_pelaksana", "supervisor",
		"tanggal_order", "tanggal_submit", "last_modified", "tanggal_review", "tanggal_validasi_output",
		"is_confirmed", "tanggal_konfirmasi", "is_output_validated",
		"attachments", "content_items", "content_types", "created_at", "updated_at",
	))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now()
	inserted := 0

	for _, sub := range subs {
		enc, err := encodeSubmission(sub)
		if err != nil {
			return 0, err
		}
		_, err = stmt.ExecContext(ctx,
			sub.NoComtab, sub.Pin, sub.Judul, sub.Tema, sub.PetugasPelaksana, sub.Supervisor,
			sub.TanggalOrder.TimeOrNil(), sub.TanggalSubmit.TimeOrNil(), sub.LastModified.TimeOrNil(),
			sub.TanggalReview.TimeOrNil(), sub.TanggalValidasiOutput.TimeOrNil(),
			sub.IsConfirmed, sub.TanggalKonfirmasi.TimeOrNil(), sub.IsOutputValidated,
			enc.files, enc.items, enc.contentTypes, now, now,
		)
		if err != nil {
			return 0, err
		}
		inserted++
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		if database.IsUniqueViolation(err, noComtabConstraint) {
			return 0, ErrDuplicateNoComtab
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return inserted, nil
}

// GetByID retrieves a submission by ID
func (r *submissionRepo) GetByID(ctx context.Context, id int64) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByNoComtab retrieves a submission by tracking code, ignoring case and padding
func (r *submissionRepo) GetByNoComtab(ctx context.Context, noComtab string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE UPPER(TRIM(no_comtab)) = $1`
	return r.getOne(ctx, query, normalizeNoComtab(noComtab))
}

// GetByIdempotencyKey retrieves the submission created with the given key
func (r *submissionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE idempotency_key = $1`
	return r.getOne(ctx, query, key)
}

func (r *submissionRepo) getOne(ctx context.Context, query string, arg interface{}) (*models.Submission, error) {
	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// NoComtabExists checks if a tracking code is already stored
func (r *submissionRepo) NoComtabExists(ctx context.Context, noComtab string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM submissions WHERE UPPER(TRIM(no_comtab)) = $1)`,
		normalizeNoComtab(noComtab),
	).Scan(&exists)
	return exists, err
}

// GetAllNoComtabs retrieves every stored tracking code (for the uniqueness cache)
func (r *submissionRepo) GetAllNoComtabs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT no_comtab FROM submissions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// List returns every submission, newest submission first
func (r *submissionRepo) List(ctx context.Context) ([]*models.Submission, error) {
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
func (r *submissionRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&count)
	return count, err
}

// StreamAll streams all submissions using a cursor-like approach
func (r *submissionRepo) StreamAll(ctx context.Context, callback func(*models.Submission) error) error {
	query := `SELECT ` + submissionColumns + `
		FROM submissions
		ORDER BY tanggal_submit DESC NULLS LAST, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return err
		}
		if err := callback(sub); err != nil {
			return err
		}
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var sub models.Submission
	var tanggalOrder, tanggalSubmit, lastModified, tanggalReview, tanggalValidasiOutput, tanggalKonfirmasi sql.NullTime
	var files, items []byte

	err := row.Scan(
		&sub.ID, &sub.NoComtab, &sub.Pin, &sub.Judul, &sub.Tema, &sub.PetugasPelaksana, &sub.Supervisor,
		&tanggalOrder, &tanggalSubmit, &lastModified, &tanggalReview, &tanggalValidasiOutput,
		&sub.IsConfirmed, &tanggalKonfirmasi, &sub.IsOutputValidated, &files, &items,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.TanggalOrder = dateOf(tanggalOrder)
	sub.TanggalSubmit = dateOf(tanggalSubmit)
	sub.LastModified = dateOf(lastModified)
	sub.TanggalReview = dateOf(tanggalReview)
	sub.TanggalValidasiOutput = dateOf(tanggalValidasiOutput)
	sub.TanggalKonfirmasi = dateOf(tanggalKonfirmasi)

	var f submissionFiles
	if err := json.Unmarshal(files, &f); err != nil {
		return nil, fmt.Errorf("failed to decode attachments of submission %d: %w", sub.ID, err)
	}
	sub.UploadedBuktiMengetahui = f.UploadedBuktiMengetahui
	sub.SuratPermohonan = f.SuratPermohonan
	sub.ProposalKegiatan = f.ProposalKegiatan
	sub.DokumenPendukung = f.DokumenPendukung

	if err := json.Unmarshal(items, &sub.ContentItems); err != nil {
		return nil, fmt.Errorf("failed to decode content items of submission %d: %w", sub.ID, err)
	}
	if sub.ContentItems == nil {
		sub.ContentItems = []*models.ContentItem{}
	}

	return &sub, nil
}

func dateOf(t sql.NullTime) *models.Date {
	if !t.Valid {
		return nil
	}
	return models.NewDate(t.Time)
}

func normalizeNoComtab(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
