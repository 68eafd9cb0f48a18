package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/config"
	"github.com/pengajuan-konten-api/internal/detail"
	"github.com/pengajuan-konten-api/internal/filter"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/repository"
	"github.com/pengajuan-konten-api/internal/validation"
	"github.com/pengajuan-konten-api/internal/wizard"
	"github.com/pengajuan-konten-api/internal/workflow"
	"github.com/rs/zerolog"
)

// submissionService is the concrete implementation of SubmissionService
type submissionService struct {
	repo         repository.SubmissionRepository
	materializer *attachment.Materializer
	credentials  *wizard.CredentialGenerator
	notifier     *asyncNotifier
	loc          *time.Location
	now          func() time.Time
	log          zerolog.Logger
}

func newSubmissionService(repo repository.SubmissionRepository, cfg *config.Config, notifier *asyncNotifier, now func() time.Time, log zerolog.Logger) *submissionService {
	log = log.With().Str("service", "submission").Logger()
	gen := wizard.NewCredentialGenerator()
	gen.Now = now
	return &submissionService{
		repo:         repo,
		materializer: NewMaterializer(cfg.Upload, log),
		credentials:  gen,
		notifier:     notifier,
		loc:          cfg.Server.Location(),
		now:          now,
		log:          log,
	}
}

// Create validates and stores a new pengajuan. A repeated idempotency key returns the
// submission stored by the first request with replayed set.
func (s *submissionService) Create(ctx context.Context, sub *models.Submission, idempotencyKey string) (*models.Submission, bool, error) {
	if idempotencyKey != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			workflow.Annotate(existing)
			return existing, true, nil
		}
	}

	resetReviewState(sub)

	v := validation.NewValidator()
	taken, err := s.repo.NoComtabExists(ctx, sub.NoComtab)
	if err != nil {
		return nil, false, err
	}
	if taken {
		v.AddNoComtab(sub.NoComtab)
	}

	draft, err := wizard.FromSubmission(sub, false, wizard.WithValidator(v), wizard.WithClock(s.now))
	if err != nil {
		return nil, false, err
	}
	sub, errs := draft.Submit()
	if len(errs) > 0 {
		return nil, false, invalid(errs...)
	}
	if err := persistAttachments(s.materializer, sub); err != nil {
		return nil, false, err
	}

	if err := s.repo.Create(ctx, sub, idempotencyKey); err != nil {
		if errors.Is(err, repository.ErrDuplicateNoComtab) {
			return nil, false, invalid(duplicateNoComtab(sub.NoComtab))
		}
		return nil, false, err
	}
	workflow.Annotate(sub)

	s.log.Info().
		Int64("id", sub.ID).
		Str("no_comtab", sub.NoComtab).
		Int("items", len(sub.ContentItems)).
		Msg("Submission created")

	s.notifier.submissionReceived(sub)
	return sub, false, nil
}

// Update edits a stored pengajuan in place. The pin must match; review state and the
// tracking code are kept from the stored submission.
func (s *submissionService) Update(ctx context.Context, id int64, pin string, sub *models.Submission) (*models.Submission, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	if !pinMatches(existing.Pin, pin) {
		return nil, ErrInvalidPin
	}

	keepReviewState(existing, sub)

	draft, err := wizard.FromSubmission(sub, true, wizard.WithClock(s.now))
	if err != nil {
		return nil, err
	}
	sub, errs := draft.Submit()
	if len(errs) > 0 {
		return nil, invalid(errs...)
	}
	if err := persistAttachments(s.materializer, sub); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}
	workflow.Annotate(sub)

	s.log.Info().Int64("id", sub.ID).Str("no_comtab", sub.NoComtab).Msg("Submission updated")
	return sub, nil
}

// Lookup returns a submission for editing, with stored files turned into previews.
// Unknown codes and wrong pins are indistinguishable.
func (s *submissionService) Lookup(ctx context.Context, noComtab, pin string) (*models.Submission, error) {
	sub, err := s.repo.GetByNoComtab(ctx, strings.TrimSpace(noComtab))
	if err != nil {
		return nil, err
	}
	if sub == nil || !pinMatches(sub.Pin, pin) {
		return nil, ErrInvalidPin
	}
	draft, err := wizard.FromSubmission(sub, true)
	if err != nil {
		return nil, err
	}
	workflow.Annotate(draft.Submission)
	return draft.Submission, nil
}

func (s *submissionService) Get(ctx context.Context, id int64) (*models.Submission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	workflow.Annotate(sub)
	return sub, nil
}

func (s *submissionService) Detail(ctx context.Context, id int64) (*detail.View, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail.Build(sub, s.loc), nil
}

// List filters every stored submission. The period filter is evaluated in the
// configured timezone.
func (s *submissionService) List(ctx context.Context, state filter.State) (*ListResult, error) {
	if err := state.Validate(); err != nil {
		return nil, invalid(validation.ValidationError{Field: "filter", Message: err.Error()})
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, sub := range all {
		workflow.Annotate(sub)
	}
	filtered := filter.Apply(all, state, s.now().In(s.loc))
	if filtered == nil {
		filtered = []*models.Submission{}
	}
	return &ListResult{
		Submissions: filtered,
		Summary:     filter.Summarize(all, filtered),
		Options:     filter.OptionsOf(all),
	}, nil
}

// GenerateCredentials draws a tracking code not yet stored and a pin
func (s *submissionService) GenerateCredentials(ctx context.Context) (wizard.Credentials, error) {
	codes, err := s.repo.GetAllNoComtabs(ctx)
	if err != nil {
		return wizard.Credentials{}, err
	}
	v := validation.NewValidator()
	v.SetNoComtabCache(codes)
	return s.credentials.Generate(v.NoComtabTaken)
}

// ValidateStep runs the check of one form step without storing anything
func (s *submissionService) ValidateStep(ctx context.Context, sub *models.Submission, step wizard.Step, isNew bool) ([]validation.ValidationError, error) {
	if step < wizard.StepBasicInfo || step > wizard.StepCredentials {
		return nil, invalid(validation.ValidationError{Field: "step", Message: "step must be between 1 and 4", Value: int(step)})
	}
	v := validation.NewValidator()
	if isNew && step == wizard.StepCredentials && strings.TrimSpace(sub.NoComtab) != "" {
		taken, err := s.repo.NoComtabExists(ctx, sub.NoComtab)
		if err != nil {
			return nil, err
		}
		if taken {
			v.AddNoComtab(sub.NoComtab)
		}
	}
	draft, err := wizard.FromSubmission(sub, !isNew, wizard.WithValidator(v))
	if err != nil {
		return nil, err
	}
	return draft.Check(step), nil
}

func duplicateNoComtab(code string) validation.ValidationError {
	return validation.ValidationError{Field: "noComtab", Message: "No Comtab sudah digunakan", Value: code}
}

func pinMatches(stored, given string) bool {
	given = strings.TrimSpace(given)
	if stored == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// resetReviewState clears everything only reviewers may set
func resetReviewState(sub *models.Submission) {
	sub.ID = 0
	sub.IsConfirmed = false
	sub.TanggalKonfirmasi = nil
	sub.TanggalReview = nil
	sub.IsOutputValidated = false
	sub.TanggalValidasiOutput = nil
	sub.WorkflowStage = ""
	for _, item := range sub.ContentItems {
		if item != nil {
			resetItemReview(item)
		}
	}
}

func resetItemReview(item *models.ContentItem) {
	item.Status = models.ItemPending
	item.AlasanPenolakan = ""
	item.DiprosesOleh = ""
	item.TanggalDiproses = nil
	item.HasilProdukFile = nil
	item.HasilProdukLink = ""
	item.IsTayang = nil
	item.TanggalValidasiTayang = nil
	item.ValidatorTayang = ""
	item.KeteranganValidasi = ""
	item.HasilProdukValidasiFile = nil
	item.HasilProdukValidasiLink = ""
	item.TanggalTayangValidasi = nil
	item.AlasanTidakTayang = ""
	item.IsConfirmed = false
	item.TanggalKonfirmasi = nil
}

// keepReviewState copies identity and review state of stored onto an edited
// submission. Items are matched by id; new items start pending.
func keepReviewState(stored, edited *models.Submission) {
	edited.ID = stored.ID
	edited.NoComtab = stored.NoComtab
	if strings.TrimSpace(edited.Pin) == "" {
		edited.Pin = stored.Pin
	}
	edited.TanggalSubmit = stored.TanggalSubmit
	edited.TanggalOrder = stored.TanggalOrder
	edited.IsConfirmed = stored.IsConfirmed
	edited.TanggalKonfirmasi = stored.TanggalKonfirmasi
	edited.TanggalReview = stored.TanggalReview
	edited.IsOutputValidated = stored.IsOutputValidated
	edited.TanggalValidasiOutput = stored.TanggalValidasiOutput
	edited.CreatedAt = stored.CreatedAt

	for _, item := range edited.ContentItems {
		if item == nil {
			continue
		}
		prev := stored.FindItem(item.ID)
		if prev == nil {
			resetItemReview(item)
			continue
		}
		item.Status = prev.Status
		item.AlasanPenolakan = prev.AlasanPenolakan
		item.DiprosesOleh = prev.DiprosesOleh
		item.TanggalDiproses = prev.TanggalDiproses
		item.HasilProdukFile = prev.HasilProdukFile
		item.HasilProdukLink = prev.HasilProdukLink
		item.IsTayang = prev.IsTayang
		item.TanggalValidasiTayang = prev.TanggalValidasiTayang
		item.ValidatorTayang = prev.ValidatorTayang
		item.KeteranganValidasi = prev.KeteranganValidasi
		item.HasilProdukValidasiFile = prev.HasilProdukValidasiFile
		item.HasilProdukValidasiLink = prev.HasilProdukValidasiLink
		item.TanggalTayangValidasi = prev.TanggalTayangValidasi
		item.AlasanTidakTayang = prev.AlasanTidakTayang
		item.IsConfirmed = prev.IsConfirmed
		item.TanggalKonfirmasi = prev.TanggalKonfirmasi
	}
}

// persistAttachments converts every file slot to its stored shape
func persistAttachments(m *attachment.Materializer, sub *models.Submission) error {
	convert := func(a **models.Attachment) error {
		stored, err := m.Persist(*a)
		if err != nil {
			return err
		}
		*a = stored
		return nil
	}

	for _, slot := range []**models.Attachment{&sub.UploadedBuktiMengetahui, &sub.SuratPermohonan, &sub.ProposalKegiatan} {
		if err := convert(slot); err != nil {
			return err
		}
	}
	docs := sub.DokumenPendukung[:0]
	for _, doc := range sub.DokumenPendukung {
		if err := convert(&doc); err != nil {
			return err
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	sub.DokumenPendukung = docs

	for _, item := range sub.ContentItems {
		if item == nil {
			continue
		}
		for _, slot := range item.SourceSlots() {
			if err := convert(slot.File); err != nil {
				return err
			}
		}
		if err := convert(&item.HasilProdukFile); err != nil {
			return err
		}
		if err := convert(&item.HasilProdukValidasiFile); err != nil {
			return err
		}
	}
	return nil
}
