package wizard

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/validation"
)

var fixedNow = time.Date(2025, time.August, 14, 9, 30, 0, 0, time.UTC)

func newTestDraft(opts ...Option) *Draft {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDSuffix(func() string { return "abc123def" }),
	}
	return New(append(base, opts...)...)
}

func fillBasicInfo(d *Draft) {
	d.Submission.Tema = "Kesehatan"
	d.Submission.Judul = "Kampanye Imunisasi"
	d.Submission.PetugasPelaksana = "Rina"
	d.Submission.Supervisor = "Budi"
}

func fillItems(d *Draft) {
	for _, item := range d.Submission.ContentItems {
		item.TanggalOrderMasuk = models.NewDate(fixedNow)
		item.TanggalJadi = models.NewDate(fixedNow.AddDate(0, 0, 3))
		item.TanggalTayang = models.NewDate(fixedNow.AddDate(0, 0, 7))
	}
}

func TestDraft_StepGating(t *testing.T) {
	d := newTestDraft()

	if d.Step() != StepBasicInfo {
		t.Fatalf("new draft at step %d, want 1", d.Step())
	}
	if err := d.Back(); !errors.Is(err, ErrFirstStep) {
		t.Errorf("Back() on step 1 = %v, want ErrFirstStep", err)
	}

	err := d.Next()
	var stepErr *StepError
	if !errors.As(err, &stepErr) || !errors.Is(err, ErrCannotAdvance) {
		t.Fatalf("Next() with empty basic info = %v, want StepError", err)
	}
	if len(stepErr.Errors) != 4 {
		t.Errorf("got %d errors, want 4: %+v", len(stepErr.Errors), stepErr.Errors)
	}

	fillBasicInfo(d)
	if err := d.Next(); err != nil {
		t.Fatalf("Next() after basic info: %v", err)
	}

	if d.CanAdvance() {
		t.Error("step 2 must require a content type")
	}
	if err := d.SelectType(models.JenisVideo); err != nil {
		t.Fatalf("SelectType: %v", err)
	}
	if err := d.Next(); err != nil {
		t.Fatalf("Next() after selection: %v", err)
	}

	if d.CanAdvance() {
		t.Error("step 3 must require the item timeline")
	}
	fillItems(d)
	if err := d.Next(); err != nil {
		t.Fatalf("Next() after item detail: %v", err)
	}

	if d.Step() != StepCredentials {
		t.Fatalf("step = %d, want 4", d.Step())
	}
	if err := d.Next(); !errors.Is(err, ErrLastStep) {
		t.Errorf("Next() on last step = %v, want ErrLastStep", err)
	}

	if err := d.Back(); err != nil || d.Step() != StepContentDetail {
		t.Errorf("Back() = %v, step %d", err, d.Step())
	}
	if d.Submission.Judul != "Kampanye Imunisasi" {
		t.Error("Back must keep entered values")
	}
}

func TestDraft_SelectAndDeselect(t *testing.T) {
	d := newTestDraft()
	d.Submission.Tema = "Pendidikan"

	if err := d.SelectType(models.JenisInfografis); err != nil {
		t.Fatal(err)
	}
	if err := d.SelectType(models.JenisAudio); err != nil {
		t.Fatal(err)
	}
	if err := d.SelectType(models.JenisInfografis); err != nil {
		t.Fatal(err)
	}

	if got := len(d.Submission.ContentItems); got != 2 {
		t.Fatalf("got %d items, want 2", got)
	}
	first := d.Submission.ContentItems[0]
	if first.Nama != "Infografis 1" {
		t.Errorf("Nama = %q, want Infografis 1", first.Nama)
	}
	wantID := "infografis-1-" + "1755163800000" + "-abc123def"
	if first.ID != wantID {
		t.Errorf("ID = %q, want %q", first.ID, wantID)
	}
	if first.Tema != "Pendidikan" || first.Status != models.ItemPending {
		t.Errorf("new item not initialised: %+v", first)
	}

	d.DeselectType(models.JenisInfografis)
	if diff := cmp.Diff([]string{models.JenisAudio}, d.SelectedTypes()); diff != "" {
		t.Errorf("SelectedTypes mismatch (-want +got):\n%s", diff)
	}
	for _, item := range d.Submission.ContentItems {
		if item.JenisKonten == models.JenisInfografis {
			t.Error("deselecting must remove every item of the type")
		}
	}

	if err := d.SelectType("podcast"); !errors.Is(err, ErrUnknownContentType) {
		t.Errorf("SelectType(podcast) = %v, want ErrUnknownContentType", err)
	}
}

func TestDraft_SetQuantityPreservesExisting(t *testing.T) {
	d := newTestDraft()
	if err := d.SelectType(models.JenisVideo); err != nil {
		t.Fatal(err)
	}
	d.Submission.ContentItems[0].Nama = "Video Utama"

	if err := d.SetQuantity(models.JenisVideo, 3); err != nil {
		t.Fatal(err)
	}
	items := d.Submission.ContentItems
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].Nama != "Video Utama" {
		t.Errorf("first item replaced: %q", items[0].Nama)
	}
	if items[2].Nama != "Video 3" || !strings.HasPrefix(items[2].ID, "video-3-") {
		t.Errorf("third item = %q (%s)", items[2].Nama, items[2].ID)
	}

	if err := d.SetQuantity(models.JenisVideo, 1); err != nil {
		t.Fatal(err)
	}
	if d.Quantity(models.JenisVideo) != 1 || d.Submission.ContentItems[0].Nama != "Video Utama" {
		t.Errorf("shrinking lost the first item: %+v", d.Submission.ContentItems)
	}

	if err := d.SetQuantity(models.JenisVideo, 0); err != nil {
		t.Fatal(err)
	}
	if len(d.SelectedTypes()) != 0 || len(d.Submission.ContentItems) != 0 {
		t.Error("quantity 0 must deselect the type")
	}
}

func TestDraft_DuplicateNoComtabBlocksSubmit(t *testing.T) {
	v := validation.NewValidator()
	v.SetNoComtabCache([]string{"1234/IKP/01/2025"})

	d := newTestDraft(WithValidator(v))
	fillBasicInfo(d)
	_ = d.SelectType(models.JenisBumper)
	fillItems(d)
	d.Submission.UploadedBuktiMengetahui = models.NewLinkAttachment("https://example.com/bukti.pdf")
	d.Submission.NoComtab = "1234/IKP/01/2025"
	d.Submission.Pin = "4321"

	sub, errs := d.Submit()
	if sub != nil {
		t.Fatal("Submit must not return a submission when noComtab is taken")
	}
	if len(errs) != 1 || errs[0].Field != "noComtab" {
		t.Errorf("errors = %+v, want one noComtab error", errs)
	}

	d.Submission.NoComtab = "5678/IKP/01/2025"
	sub, errs = d.Submit()
	if len(errs) != 0 {
		t.Fatalf("Submit: %+v", errs)
	}
	if !sub.TanggalSubmit.Time.Equal(fixedNow) || !sub.LastModified.Time.Equal(fixedNow) {
		t.Error("Submit must stamp tanggalSubmit and lastModified")
	}
}

func TestDraft_SubmitDropsDisabledSources(t *testing.T) {
	d := newTestDraft()
	fillBasicInfo(d)
	_ = d.SelectType(models.JenisInfografis)
	fillItems(d)
	d.Submission.UploadedBuktiMengetahui = models.NewLinkAttachment("https://example.com/bukti.pdf")
	d.Submission.NoComtab = "0001/IKP/08/2025"
	d.Submission.Pin = "4321"

	item := d.Submission.ContentItems[0]
	item.SourceType = []string{models.SourceSurat}
	item.SuratFile = models.NewLinkAttachment("https://example.com/surat.pdf")
	// toggle off, and a link that would not validate
	item.NarasiFile = models.NewLinkAttachment("bukan url")

	sub, errs := d.Submit()
	if len(errs) != 0 {
		t.Fatalf("Submit: %+v", errs)
	}
	got := sub.ContentItems[0]
	if got.NarasiFile != nil {
		t.Errorf("narasiFile = %+v, want cleared", got.NarasiFile)
	}
	if got.SuratFile.Link != "https://example.com/surat.pdf" {
		t.Errorf("suratFile = %+v, want kept", got.SuratFile)
	}
}

func TestFromSubmission_EditModeSkipsOwnCode(t *testing.T) {
	v := validation.NewValidator()
	v.SetNoComtabCache([]string{"1111/IKP/02/2025"})

	stored := &models.Submission{
		NoComtab: "1111/IKP/02/2025",
		Pin:      "9999",
		UploadedBuktiMengetahui: &models.Attachment{
			Kind: models.AttachmentPersisted,
			Meta: &models.FileMeta{Name: "bukti.png", Type: "image/png", Base64: "data:image/png;base64,AAAA"},
		},
		ContentItems: []*models.ContentItem{{ID: "audio-1-1-x", Nama: "Audio 1", JenisKonten: models.JenisAudio}},
	}

	d, err := FromSubmission(stored, true, WithValidator(v))
	if err != nil {
		t.Fatalf("FromSubmission: %v", err)
	}
	if !d.EditMode() {
		t.Error("draft should be in edit mode")
	}
	if got := stored.UploadedBuktiMengetahui.Kind; got != models.AttachmentPreview {
		t.Errorf("bukti kind = %s, want preview", got)
	}
	if errs := d.Check(StepCredentials); len(errs) != 0 {
		t.Errorf("edit mode must not flag its own noComtab: %+v", errs)
	}
	if diff := cmp.Diff([]string{models.JenisAudio}, d.SelectedTypes()); diff != "" {
		t.Errorf("SelectedTypes mismatch (-want +got):\n%s", diff)
	}
}

func TestCredentialGenerator(t *testing.T) {
	zero := func() *CredentialGenerator {
		return &CredentialGenerator{
			Rand: bytes.NewReader(make([]byte, 64)),
			Now:  func() time.Time { return fixedNow },
		}
	}

	creds, err := zero().Generate(nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if creds.NoComtab != "1000/IKP/08/2025" || creds.Pin != "1000" {
		t.Errorf("Generate() = %+v", creds)
	}

	_, err = zero().Generate(func(string) bool { return true })
	if !errors.Is(err, ErrCredentialsExhausted) {
		t.Errorf("Generate with every code taken = %v, want ErrCredentialsExhausted", err)
	}

	g := NewCredentialGenerator()
	d := newTestDraft()
	creds, err = d.GenerateCredentials(g)
	if err != nil {
		t.Fatalf("GenerateCredentials: %v", err)
	}
	if len(creds.Pin) != 4 || !strings.Contains(creds.NoComtab, "/IKP/") {
		t.Errorf("unexpected credentials %+v", creds)
	}
	if d.Submission.NoComtab != creds.NoComtab || d.Submission.Pin != creds.Pin {
		t.Error("credentials not written to the draft")
	}
}
