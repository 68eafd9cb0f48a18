package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/models"
)

// ValidationError represents a single field-level validation error. Field uses the
// client's field names so the form can highlight the input inline.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Validator provides validation methods for pengajuan drafts and imported snapshots
type Validator struct {
	noComtabCache map[string]bool
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		noComtabCache: make(map[string]bool),
	}
}

// SetNoComtabCache adds tracking codes already in use to the uniqueness cache. Codes
// seen earlier are kept.
func (v *Validator) SetNoComtabCache(codes []string) {
	for _, code := range codes {
		v.AddNoComtab(code)
	}
}

// AddNoComtab adds a tracking code to the uniqueness cache
func (v *Validator) AddNoComtab(code string) {
	v.noComtabCache[normalizeNoComtab(code)] = true
}

// NoComtabTaken reports whether the tracking code is already in use
func (v *Validator) NoComtabTaken(code string) bool {
	return v.noComtabCache[normalizeNoComtab(code)]
}

func normalizeNoComtab(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateBasicInfo checks step 1: tema, judul, petugas pelaksana and supervisor
func (v *Validator) ValidateBasicInfo(sub *models.Submission) []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(sub.Tema) == "" {
		errs = append(errs, ValidationError{Field: "tema", Message: "Tema wajib diisi"})
	}
	if strings.TrimSpace(sub.Judul) == "" {
		errs = append(errs, ValidationError{Field: "judul", Message: "Judul wajib diisi"})
	}
	if strings.TrimSpace(sub.PetugasPelaksana) == "" {
		errs = append(errs, ValidationError{Field: "petugasPelaksana", Message: "Petugas pelaksana wajib diisi"})
	}
	if strings.TrimSpace(sub.Supervisor) == "" {
		errs = append(errs, ValidationError{Field: "supervisor", Message: "Supervisor wajib diisi"})
	}
	return errs
}

// ValidateContentSelection checks step 2: at least one known content type selected
func (v *Validator) ValidateContentSelection(types []string) []ValidationError {
	if len(types) == 0 {
		return []ValidationError{{Field: "jenisKonten", Message: "Pilih minimal satu jenis konten"}}
	}
	var errs []ValidationError
	for _, t := range types {
		if _, ok := models.ContentTypeNames[t]; !ok {
			errs = append(errs, ValidationError{Field: "jenisKonten", Message: "Jenis konten tidak dikenal", Value: t})
		}
	}
	return errs
}

// ValidateContentItems checks step 3: every item has a name and the full timeline
func (v *Validator) ValidateContentItems(items []*models.ContentItem) []ValidationError {
	var errs []ValidationError
	for i, item := range items {
		prefix := fmt.Sprintf("contentItems[%d].", i)
		if item == nil {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("contentItems[%d]", i), Message: "Item konten kosong"})
			continue
		}
		if strings.TrimSpace(item.Nama) == "" {
			errs = append(errs, ValidationError{Field: prefix + "nama", Message: "Nama konten wajib diisi"})
		}
		errs = append(errs, requireDate(prefix+"tanggalOrderMasuk", "Tanggal order masuk", item.TanggalOrderMasuk)...)
		errs = append(errs, requireDate(prefix+"tanggalJadi", "Tanggal jadi", item.TanggalJadi)...)
		errs = append(errs, requireDate(prefix+"tanggalTayang", "Tanggal tayang", item.TanggalTayang)...)

		for _, slot := range item.SourceSlots() {
			if !item.HasSource(slot.Key) {
				continue
			}
			errs = append(errs, validateLink(prefix+slot.Key, *slot.File)...)
		}
	}
	return errs
}

// ValidateCredentials checks step 4: bukti mengetahui, credentials and, for new
// submissions, tracking code uniqueness
func (v *Validator) ValidateCredentials(sub *models.Submission, isNew bool) []ValidationError {
	var errs []ValidationError
	if sub.UploadedBuktiMengetahui.IsEmpty() {
		errs = append(errs, ValidationError{Field: "uploadedBuktiMengetahui", Message: "Bukti mengetahui wajib diunggah"})
	} else {
		errs = append(errs, validateLink("uploadedBuktiMengetahui", sub.UploadedBuktiMengetahui)...)
	}

	if strings.TrimSpace(sub.NoComtab) == "" {
		errs = append(errs, ValidationError{Field: "noComtab", Message: "No Comtab wajib diisi"})
	} else if isNew && v.NoComtabTaken(sub.NoComtab) {
		errs = append(errs, ValidationError{Field: "noComtab", Message: "No Comtab sudah digunakan", Value: sub.NoComtab})
	}

	if strings.TrimSpace(sub.Pin) == "" {
		errs = append(errs, ValidationError{Field: "pin", Message: "PIN wajib diisi"})
	}
	return errs
}

// ValidateSubmission re-runs every step check before a submission is stored
func (v *Validator) ValidateSubmission(sub *models.Submission, isNew bool) []ValidationError {
	var errs []ValidationError
	errs = append(errs, v.ValidateBasicInfo(sub)...)
	errs = append(errs, v.ValidateContentSelection(sub.ContentTypes())...)
	errs = append(errs, v.ValidateContentItems(sub.ContentItems)...)
	errs = append(errs, v.ValidateCredentials(sub, isNew)...)
	errs = append(errs, validateLink("suratPermohonan", sub.SuratPermohonan)...)
	errs = append(errs, validateLink("proposalKegiatan", sub.ProposalKegiatan)...)
	for i, doc := range sub.DokumenPendukung {
		errs = append(errs, validateLink(fmt.Sprintf("dokumenPendukung[%d]", i), doc)...)
	}
	return errs
}

// ValidateSnapshot validates a record loaded from a browser-local snapshot. Snapshots
// predate server-side review, so only structural rules are enforced: identity, known
// item statuses, parsable dates, and publication fields only on approved items.
func (v *Validator) ValidateSnapshot(sub *models.Submission) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(sub.NoComtab) == "" {
		errs = append(errs, ValidationError{Field: "noComtab", Message: "noComtab is required"})
	} else if v.NoComtabTaken(sub.NoComtab) {
		errs = append(errs, ValidationError{Field: "noComtab", Message: "duplicate noComtab", Value: sub.NoComtab})
	}
	if strings.TrimSpace(sub.Judul) == "" {
		errs = append(errs, ValidationError{Field: "judul", Message: "judul is required"})
	}

	errs = append(errs, validDate("tanggalOrder", sub.TanggalOrder)...)
	errs = append(errs, validDate("tanggalSubmit", sub.TanggalSubmit)...)
	errs = append(errs, validDate("tanggalReview", sub.TanggalReview)...)
	errs = append(errs, validDate("tanggalValidasiOutput", sub.TanggalValidasiOutput)...)

	for i, item := range sub.ContentItems {
		if item == nil {
			continue
		}
		prefix := fmt.Sprintf("contentItems[%d].", i)
		switch item.EffectiveStatus() {
		case models.ItemPending, models.ItemApproved, models.ItemRejected:
		default:
			errs = append(errs, ValidationError{
				Field:   prefix + "status",
				Message: "invalid status, must be one of: pending, approved, rejected",
				Value:   string(item.Status),
			})
		}
		if item.EffectiveStatus() != models.ItemApproved && item.IsTayang != nil {
			errs = append(errs, ValidationError{Field: prefix + "isTayang", Message: "publication validation requires an approved item"})
		}
		if item.EffectiveStatus() == models.ItemRejected && strings.TrimSpace(item.AlasanPenolakan) == "" {
			errs = append(errs, ValidationError{Field: prefix + "alasanPenolakan", Message: "rejected items must carry a rejection reason"})
		}
		errs = append(errs, validDate(prefix+"tanggalOrderMasuk", item.TanggalOrderMasuk)...)
		errs = append(errs, validDate(prefix+"tanggalJadi", item.TanggalJadi)...)
		errs = append(errs, validDate(prefix+"tanggalTayang", item.TanggalTayang)...)
	}

	return errs
}

func requireDate(field, label string, d *models.Date) []ValidationError {
	if d == nil || (d.Raw == "" && d.Time.IsZero()) {
		return []ValidationError{{Field: field, Message: label + " wajib diisi"}}
	}
	return validDate(field, d)
}

func validDate(field string, d *models.Date) []ValidationError {
	if d != nil && d.Raw != "" && !d.Valid() {
		return []ValidationError{{Field: field, Message: "Format tanggal tidak valid", Value: d.Raw}}
	}
	return nil
}

func validateLink(field string, a *models.Attachment) []ValidationError {
	if a == nil || a.Kind != models.AttachmentLink {
		return nil
	}
	if err := attachment.ValidateLink(a.Link); err != nil {
		return []ValidationError{{Field: field, Message: "URL tidak valid", Value: a.Link}}
	}
	return nil
}

// FromBindingError converts the error returned by gin's binding into field errors.
// Errors that are not validator errors (malformed JSON) become a single body error.
func FromBindingError(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Field: "body", Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   lowerFirst(fe.Field()),
			Message: bindingMessage(fe),
			Value:   fe.Value(),
		})
	}
	return out
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "wajib diisi"
	case "oneof":
		return "harus salah satu dari: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len":
		return fmt.Sprintf("harus %s karakter", fe.Param())
	case "numeric":
		return "harus berupa angka"
	case "url":
		return "URL tidak valid"
	default:
		return fmt.Sprintf("gagal validasi %s", fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
