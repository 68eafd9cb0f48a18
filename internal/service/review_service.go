package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/auth"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/repository"
	"github.com/pengajuan-konten-api/internal/validation"
	"github.com/pengajuan-konten-api/internal/workflow"
	"github.com/rs/zerolog"
)

// reviewService is the concrete implementation of ReviewService
type reviewService struct {
	repo repository.SubmissionRepository
	now  func() time.Time
	log  zerolog.Logger
	// serializes read-modify-write of stored submissions
	mu sync.Mutex
}

func newReviewService(repo repository.SubmissionRepository, now func() time.Time, log zerolog.Logger) *reviewService {
	return &reviewService{
		repo: repo,
		now:  now,
		log:  log.With().Str("service", "review").Logger(),
	}
}

// modify loads a submission, applies change and stores it
func (s *reviewService) modify(ctx context.Context, id int64, change func(sub *models.Submission, now *models.Date) error) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	now := models.NewDate(s.now())
	if err := change(sub, now); err != nil {
		return nil, err
	}
	sub.LastModified = now
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}
	workflow.Annotate(sub)
	return sub, nil
}

// Confirm marks the submission and its items as confirmed. Confirming twice keeps the
// first confirmation date.
func (s *reviewService) Confirm(ctx context.Context, id int64, sess *auth.Session) (*models.Submission, error) {
	sub, err := s.modify(ctx, id, func(sub *models.Submission, now *models.Date) error {
		if sub.IsConfirmed {
			return nil
		}
		sub.IsConfirmed = true
		sub.TanggalKonfirmasi = now
		for _, item := range sub.ContentItems {
			if item != nil && !item.IsConfirmed {
				item.IsConfirmed = true
				item.TanggalKonfirmasi = now
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("id", id).Str("by", sess.Username).Msg("Submission confirmed")
	return sub, nil
}

// ReviewItem approves or rejects a pending item. Decisions are final.
func (s *reviewService) ReviewItem(ctx context.Context, id int64, itemID string, d ItemDecision, sess *auth.Session) (*models.Submission, error) {
	if d.Status != models.ItemApproved && d.Status != models.ItemRejected {
		return nil, invalid(validation.ValidationError{Field: "status", Message: "harus salah satu dari: approved, rejected", Value: string(d.Status)})
	}
	if d.Status == models.ItemRejected && strings.TrimSpace(d.AlasanPenolakan) == "" {
		return nil, invalid(validation.ValidationError{Field: "alasanPenolakan", Message: "Alasan penolakan wajib diisi"})
	}
	if d.HasilProdukLink != "" {
		if err := attachment.ValidateLink(d.HasilProdukLink); err != nil {
			return nil, invalid(validation.ValidationError{Field: "hasilProdukLink", Message: "URL tidak valid", Value: d.HasilProdukLink})
		}
	}

	sub, err := s.modify(ctx, id, func(sub *models.Submission, now *models.Date) error {
		if !sub.IsConfirmed {
			return ErrNotConfirmed
		}
		item := sub.FindItem(itemID)
		if item == nil {
			return ErrNotFound
		}
		if item.EffectiveStatus().Decided() {
			return ErrInvalidTransition
		}
		item.Status = d.Status
		item.DiprosesOleh = sess.Username
		item.TanggalDiproses = now
		if d.Status == models.ItemRejected {
			item.AlasanPenolakan = strings.TrimSpace(d.AlasanPenolakan)
		}
		if d.HasilProdukLink != "" {
			item.HasilProdukLink = d.HasilProdukLink
		}
		if d.Keterangan != "" {
			item.Keterangan = d.Keterangan
		}
		if sub.TanggalReview == nil {
			sub.TanggalReview = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("id", id).
		Str("item_id", itemID).
		Str("status", string(d.Status)).
		Str("by", sess.Username).
		Msg("Content item reviewed")
	return sub, nil
}

// ValidatePublication records whether an approved item was published. It is allowed
// once per item.
func (s *reviewService) ValidatePublication(ctx context.Context, id int64, itemID string, d PublicationDecision, sess *auth.Session) (*models.Submission, error) {
	if d.IsTayang == nil {
		return nil, invalid(validation.ValidationError{Field: "isTayang", Message: "Status tayang wajib diisi"})
	}
	var errs []validation.ValidationError
	if !*d.IsTayang && strings.TrimSpace(d.AlasanTidakTayang) == "" {
		errs = append(errs, validation.ValidationError{Field: "alasanTidakTayang", Message: "Alasan tidak tayang wajib diisi"})
	}
	if d.HasilProdukValidasiLink != "" {
		if err := attachment.ValidateLink(d.HasilProdukValidasiLink); err != nil {
			errs = append(errs, validation.ValidationError{Field: "hasilProdukValidasiLink", Message: "URL tidak valid", Value: d.HasilProdukValidasiLink})
		}
	}
	if d.TanggalTayangValidasi != nil && d.TanggalTayangValidasi.Raw != "" && !d.TanggalTayangValidasi.Valid() {
		errs = append(errs, validation.ValidationError{Field: "tanggalTayangValidasi", Message: "Format tanggal tidak valid", Value: d.TanggalTayangValidasi.Raw})
	}
	if len(errs) > 0 {
		return nil, invalid(errs...)
	}

	sub, err := s.modify(ctx, id, func(sub *models.Submission, now *models.Date) error {
		item := sub.FindItem(itemID)
		if item == nil {
			return ErrNotFound
		}
		if item.EffectiveStatus() != models.ItemApproved || item.IsTayang != nil {
			return ErrInvalidTransition
		}
		tayang := *d.IsTayang
		item.IsTayang = &tayang
		item.TanggalValidasiTayang = now
		item.ValidatorTayang = sess.Username
		item.KeteranganValidasi = d.KeteranganValidasi
		item.TanggalTayangValidasi = d.TanggalTayangValidasi
		item.HasilProdukValidasiLink = d.HasilProdukValidasiLink
		if !tayang {
			item.AlasanTidakTayang = strings.TrimSpace(d.AlasanTidakTayang)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("id", id).
		Str("item_id", itemID).
		Bool("tayang", *d.IsTayang).
		Str("by", sess.Username).
		Msg("Publication validated")
	return sub, nil
}

// ValidateOutput closes a completed submission
func (s *reviewService) ValidateOutput(ctx context.Context, id int64, sess *auth.Session) (*models.Submission, error) {
	sub, err := s.modify(ctx, id, func(sub *models.Submission, now *models.Date) error {
		if sub.IsOutputValidated || workflow.StageOf(sub) != workflow.StageCompleted {
			return ErrInvalidTransition
		}
		sub.IsOutputValidated = true
		sub.TanggalValidasiOutput = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("id", id).Str("by", sess.Username).Msg("Output validated")
	return sub, nil
}
