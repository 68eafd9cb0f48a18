// Package wizard implements the four-step pengajuan form: basic info, content type
// selection, per-item detail, and credentials with final confirmation.
package wizard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/validation"
)

// Step is a position in the form
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepContentTypes
	StepContentDetail
	StepCredentials
)

var (
	// ErrCannotAdvance is returned by Next when the current step is incomplete
	ErrCannotAdvance = errors.New("current step is incomplete")
	// ErrFirstStep is returned by Back on the first step
	ErrFirstStep = errors.New("already at the first step")
	// ErrLastStep is returned by Next on the last step; use Submit instead
	ErrLastStep = errors.New("already at the last step")
	// ErrUnknownContentType is returned for content types outside the catalogue
	ErrUnknownContentType = errors.New("unknown content type")
)

// StepError carries the field errors that blocked a transition
type StepError struct {
	Step   Step
	Errors []validation.ValidationError
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %d validation errors", e.Step, len(e.Errors))
}

func (e *StepError) Unwrap() error { return ErrCannotAdvance }

// Draft is the state of one form session. Submission holds the values entered so far;
// Draft keeps the step, the selected types, and whether it edits a stored submission.
type Draft struct {
	Submission *models.Submission
	step       Step
	selected   []string
	editMode   bool
	validator  *validation.Validator
	now        func() time.Time
	suffix     func() string
}

// Option configures a Draft
type Option func(*Draft)

// WithValidator supplies a validator seeded with the tracking codes already in use
func WithValidator(v *validation.Validator) Option {
	return func(d *Draft) { d.validator = v }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(d *Draft) { d.now = now }
}

// WithIDSuffix overrides the random suffix of generated item ids
func WithIDSuffix(suffix func() string) Option {
	return func(d *Draft) { d.suffix = suffix }
}

// New starts an empty draft on step 1
func New(opts ...Option) *Draft {
	d := &Draft{
		Submission: &models.Submission{ContentItems: []*models.ContentItem{}},
		step:       StepBasicInfo,
		validator:  validation.NewValidator(),
		now:        time.Now,
		suffix:     func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:9] },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FromSubmission loads a submission into a draft. In edit mode stored attachment
// metadata is turned back into previews, and the tracking code is not checked for
// uniqueness against itself.
func FromSubmission(sub *models.Submission, editMode bool, opts ...Option) (*Draft, error) {
	d := New(opts...)
	d.Submission = sub
	d.editMode = editMode
	if sub.ContentItems == nil {
		sub.ContentItems = []*models.ContentItem{}
	}
	d.selected = sub.ContentTypes()

	if editMode {
		if err := previewAttachments(sub); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func previewAttachments(sub *models.Submission) error {
	convert := func(a **models.Attachment) error {
		p, err := attachment.ToPreview(*a)
		if err != nil {
			return err
		}
		*a = p
		return nil
	}
	for _, slot := range []**models.Attachment{&sub.UploadedBuktiMengetahui, &sub.SuratPermohonan, &sub.ProposalKegiatan} {
		if err := convert(slot); err != nil {
			return err
		}
	}
	for i := range sub.DokumenPendukung {
		if err := convert(&sub.DokumenPendukung[i]); err != nil {
			return err
		}
	}
	for _, item := range sub.ContentItems {
		if item == nil {
			continue
		}
		for _, slot := range item.SourceSlots() {
			if err := convert(slot.File); err != nil {
				return err
			}
		}
	}
	return nil
}

// Step returns the current step
func (d *Draft) Step() Step { return d.step }

// EditMode reports whether the draft edits a stored submission
func (d *Draft) EditMode() bool { return d.editMode }

// SelectedTypes returns the selected content types in selection order
func (d *Draft) SelectedTypes() []string {
	return append([]string(nil), d.selected...)
}

// Check returns the errors that block leaving the given step
func (d *Draft) Check(step Step) []validation.ValidationError {
	sub := d.Submission
	switch step {
	case StepBasicInfo:
		return d.validator.ValidateBasicInfo(sub)
	case StepContentTypes:
		return d.validator.ValidateContentSelection(d.selected)
	case StepContentDetail:
		return d.validator.ValidateContentItems(sub.ContentItems)
	case StepCredentials:
		return d.validator.ValidateCredentials(sub, !d.editMode)
	default:
		return []validation.ValidationError{{Field: "step", Message: "Langkah tidak dikenal", Value: int(step)}}
	}
}

// CanAdvance reports whether the current step is complete
func (d *Draft) CanAdvance() bool {
	return len(d.Check(d.step)) == 0
}

// Next moves forward one step when the current one is complete
func (d *Draft) Next() error {
	if d.step >= StepCredentials {
		return ErrLastStep
	}
	if errs := d.Check(d.step); len(errs) > 0 {
		return &StepError{Step: d.step, Errors: errs}
	}
	d.step++
	return nil
}

// Back moves back one step; values are kept
func (d *Draft) Back() error {
	if d.step <= StepBasicInfo {
		return ErrFirstStep
	}
	d.step--
	return nil
}

// Submit re-checks every step and returns the finished submission. Timestamps are
// stamped; review state is left to the reviewers.
func (d *Draft) Submit() (*models.Submission, []validation.ValidationError) {
	var errs []validation.ValidationError
	for _, step := range []Step{StepBasicInfo, StepContentTypes, StepContentDetail, StepCredentials} {
		errs = append(errs, d.Check(step)...)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	sub := d.Submission
	now := d.now()
	if sub.TanggalSubmit == nil || !d.editMode {
		sub.TanggalSubmit = models.NewDate(now)
	}
	if sub.TanggalOrder == nil {
		sub.TanggalOrder = models.NewDate(now)
	}
	sub.LastModified = models.NewDate(now)
	seq := make(map[string]int)
	for _, item := range sub.ContentItems {
		seq[item.JenisKonten]++
		if item.ID == "" {
			item.ID = d.newItem(item.JenisKonten, seq[item.JenisKonten]).ID
		}
		if item.Status == "" {
			item.Status = models.ItemPending
		}
		if item.Tema == "" {
			item.Tema = sub.Tema
		}
		if item.MediaPemerintah == nil {
			item.MediaPemerintah = []string{}
		}
		if item.MediaMassa == nil {
			item.MediaMassa = []string{}
		}
		item.ClearDisabledSources()
	}
	return sub, nil
}
