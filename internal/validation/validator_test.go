package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pengajuan-konten-api/internal/models"
)

func fields(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func sameFields(got []ValidationError, want []string) bool {
	g := fields(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func datedItem(name string) *models.ContentItem {
	now := time.Date(2025, time.August, 14, 0, 0, 0, 0, time.UTC)
	return &models.ContentItem{
		Nama:              name,
		JenisKonten:       models.JenisInfografis,
		TanggalOrderMasuk: models.NewDate(now),
		TanggalJadi:       models.NewDate(now.AddDate(0, 0, 2)),
		TanggalTayang:     models.NewDate(now.AddDate(0, 0, 5)),
	}
}

func TestValidateBasicInfo(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name       string
		sub        *models.Submission
		wantFields []string
	}{
		{
			name: "complete",
			sub:  &models.Submission{Tema: "Kesehatan", Judul: "Imunisasi", PetugasPelaksana: "Rina", Supervisor: "Budi"},
		},
		{
			name:       "empty",
			sub:        &models.Submission{},
			wantFields: []string{"tema", "judul", "petugasPelaksana", "supervisor"},
		},
		{
			name:       "whitespace only",
			sub:        &models.Submission{Tema: "  ", Judul: "Imunisasi", PetugasPelaksana: "Rina", Supervisor: "\t"},
			wantFields: []string{"tema", "supervisor"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateBasicInfo(tt.sub)
			if !sameFields(errs, tt.wantFields) {
				t.Errorf("Expected %v, got %v", tt.wantFields, fields(errs))
			}
		})
	}
}

func TestValidateContentSelection(t *testing.T) {
	v := NewValidator()

	if errs := v.ValidateContentSelection(nil); !sameFields(errs, []string{"jenisKonten"}) {
		t.Errorf("Expected selection error, got %v", errs)
	}
	if errs := v.ValidateContentSelection([]string{models.JenisAudio, models.JenisBumper}); len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
	errs := v.ValidateContentSelection([]string{models.JenisVideo, "podcast"})
	if len(errs) != 1 || errs[0].Value != "podcast" {
		t.Errorf("Expected unknown type error, got %v", errs)
	}
}

func TestValidateContentItems(t *testing.T) {
	v := NewValidator()

	missingName := datedItem(" ")
	noDates := &models.ContentItem{Nama: "Audio", JenisKonten: models.JenisAudio}
	badDate := datedItem("Video")
	badDate.TanggalJadi = models.ParseDate("bukan tanggal")
	badLink := datedItem("Foto")
	badLink.SourceType = []string{models.SourceSurat}
	badLink.SuratFile = models.NewLinkAttachment("not a url")
	goodLink := datedItem("Bumper")
	goodLink.SourceType = []string{models.SourceNarasi, models.SourcePendukungFoto}
	goodLink.NarasiFile = models.NewLinkAttachment("https://drive.example.go.id/narasi")
	// switched off, so the stale link is not checked
	goodLink.SuratFile = models.NewLinkAttachment("not a url")

	errs := v.ValidateContentItems([]*models.ContentItem{missingName, noDates, badDate, badLink, goodLink, nil})
	want := []string{
		"contentItems[0].nama",
		"contentItems[1].tanggalOrderMasuk",
		"contentItems[1].tanggalJadi",
		"contentItems[1].tanggalTayang",
		"contentItems[2].tanggalJadi",
		"contentItems[3].surat",
		"contentItems[5]",
	}
	if !sameFields(errs, want) {
		t.Errorf("Expected %v, got %v", want, fields(errs))
	}
}

func TestValidateCredentials(t *testing.T) {
	v := NewValidator()
	v.SetNoComtabCache([]string{"0001/IKP/08/2025"})

	bukti := models.NewLinkAttachment("https://drive.example.go.id/bukti")

	tests := []struct {
		name       string
		sub        *models.Submission
		isNew      bool
		wantFields []string
	}{
		{
			name:  "new and unused",
			sub:   &models.Submission{NoComtab: "0002/IKP/08/2025", Pin: "1234", UploadedBuktiMengetahui: bukti},
			isNew: true,
		},
		{
			name:       "new and taken, case-insensitive",
			sub:        &models.Submission{NoComtab: " 0001/ikp/08/2025", Pin: "1234", UploadedBuktiMengetahui: bukti},
			isNew:      true,
			wantFields: []string{"noComtab"},
		},
		{
			name:  "edit keeps own code",
			sub:   &models.Submission{NoComtab: "0001/IKP/08/2025", Pin: "1234", UploadedBuktiMengetahui: bukti},
			isNew: false,
		},
		{
			name:       "nothing filled",
			sub:        &models.Submission{},
			isNew:      true,
			wantFields: []string{"uploadedBuktiMengetahui", "noComtab", "pin"},
		},
		{
			name:       "bukti link invalid",
			sub:        &models.Submission{NoComtab: "0003/IKP/08/2025", Pin: "1234", UploadedBuktiMengetahui: models.NewLinkAttachment("javascript:alert(1)")},
			isNew:      true,
			wantFields: []string{"uploadedBuktiMengetahui"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateCredentials(tt.sub, tt.isNew)
			if !sameFields(errs, tt.wantFields) {
				t.Errorf("Expected %v, got %v", tt.wantFields, fields(errs))
			}
		})
	}
}

func TestValidateSubmission_CollectsEveryStep(t *testing.T) {
	v := NewValidator()
	sub := &models.Submission{
		Judul:            "Imunisasi",
		SuratPermohonan:  models.NewLinkAttachment("bad link"),
		DokumenPendukung: []*models.Attachment{models.NewLinkAttachment("https://ok.example.go.id/a"), models.NewLinkAttachment("::")},
	}

	got := fields(v.ValidateSubmission(sub, true))
	for _, want := range []string{"tema", "jenisKonten", "uploadedBuktiMengetahui", "suratPermohonan", "dokumenPendukung[1]"} {
		found := false
		for _, f := range got {
			if f == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %s in %v", want, got)
		}
	}
	for _, f := range got {
		if f == "dokumenPendukung[0]" {
			t.Error("Valid supporting document link must not be reported")
		}
	}
}

func TestNoComtabCache(t *testing.T) {
	v := NewValidator()
	if v.NoComtabTaken("0001/IKP/08/2025") {
		t.Error("Empty cache should not report a code as taken")
	}
	v.AddNoComtab("0001/IKP/08/2025 ")
	if !v.NoComtabTaken("0001/ikp/08/2025") {
		t.Error("Added code should be taken regardless of case and spaces")
	}
	v.SetNoComtabCache([]string{"0009/IKP/08/2025"})
	if !v.NoComtabTaken("0009/IKP/08/2025") {
		t.Error("SetNoComtabCache should add the given codes")
	}
	if !v.NoComtabTaken("0001/IKP/08/2025") {
		t.Error("SetNoComtabCache should keep codes added earlier")
	}
}

func TestValidateSnapshot(t *testing.T) {
	tayang := true

	tests := []struct {
		name       string
		sub        *models.Submission
		wantFields []string
	}{
		{
			name: "minimal record",
			sub:  &models.Submission{NoComtab: "0001/IKP/08/2025", Judul: "Imunisasi"},
		},
		{
			name:       "missing identity",
			sub:        &models.Submission{},
			wantFields: []string{"noComtab", "judul"},
		},
		{
			name: "bad dates",
			sub: &models.Submission{
				NoComtab:      "0002/IKP/08/2025",
				Judul:         "Imunisasi",
				TanggalSubmit: models.ParseDate("kemarin"),
				ContentItems: []*models.ContentItem{
					{Nama: "Poster", TanggalTayang: models.ParseDate("minggu depan")},
				},
			},
			wantFields: []string{"tanggalSubmit", "contentItems[0].tanggalTayang"},
		},
		{
			name: "item state rules",
			sub: &models.Submission{
				NoComtab: "0003/IKP/08/2025",
				Judul:    "Imunisasi",
				ContentItems: []*models.ContentItem{
					{Status: "archived"},
					{Status: models.ItemPending, IsTayang: &tayang},
					{Status: models.ItemRejected},
					{Status: models.ItemApproved, IsTayang: &tayang},
					nil,
				},
			},
			wantFields: []string{"contentItems[0].status", "contentItems[1].isTayang", "contentItems[2].alasanPenolakan"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := NewValidator().ValidateSnapshot(tt.sub)
			got := fields(errs)
			if !sameFields(errs, tt.wantFields) {
				t.Errorf("Expected %v, got %v", tt.wantFields, got)
			}
		})
	}
}

func TestValidateSnapshot_Duplicate(t *testing.T) {
	v := NewValidator()
	v.SetNoComtabCache([]string{"0001/IKP/08/2025"})

	errs := v.ValidateSnapshot(&models.Submission{NoComtab: "0001/IKP/08/2025", Judul: "x"})
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "duplicate") {
		t.Errorf("Expected duplicate error, got %v", errs)
	}
}

func TestFromBindingError(t *testing.T) {
	type decision struct {
		Status string `validate:"required,oneof=approved rejected"`
		Link   string `validate:"omitempty,url"`
	}

	err := validator.New().Struct(decision{Status: "maybe", Link: "nope"})
	errs := FromBindingError(err)
	if !sameFields(errs, []string{"status", "link"}) {
		t.Fatalf("Expected status and link errors, got %v", fields(errs))
	}
	if errs[0].Message != "harus salah satu dari: approved, rejected" {
		t.Errorf("Unexpected oneof message %q", errs[0].Message)
	}
	if errs[1].Message != "URL tidak valid" {
		t.Errorf("Unexpected url message %q", errs[1].Message)
	}

	body := FromBindingError(errors.New("unexpected EOF"))
	if len(body) != 1 || body[0].Field != "body" {
		t.Errorf("Expected a single body error, got %v", body)
	}
}

func BenchmarkValidateSubmission(b *testing.B) {
	v := NewValidator()
	sub := &models.Submission{
		NoComtab:                "0001/IKP/08/2025",
		Pin:                     "1234",
		Tema:                    "Kesehatan",
		Judul:                   "Imunisasi",
		PetugasPelaksana:        "Rina",
		Supervisor:              "Budi",
		UploadedBuktiMengetahui: models.NewLinkAttachment("https://drive.example.go.id/bukti"),
	}
	for i := 0; i < 10; i++ {
		sub.ContentItems = append(sub.ContentItems, datedItem("Poster"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v.ValidateSubmission(sub, true)
	}
}
