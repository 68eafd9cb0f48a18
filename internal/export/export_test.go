package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/xuri/excelize/v2"
)

func boolPtr(b bool) *bool { return &b }

func sampleSubmissions() []*models.Submission {
	tayang := time.Date(2025, time.August, 3, 10, 0, 0, 0, time.UTC)
	return []*models.Submission{
		{
			NoComtab: "1234/IKP/08/2025", Judul: `Sosialisasi "Cek Fakta"`, Tema: "Literasi Digital",
			PetugasPelaksana: "Rina", Supervisor: "Budi", IsConfirmed: true,
			TanggalSubmit:           models.NewDate(time.Date(2025, time.August, 1, 8, 0, 0, 0, time.UTC)),
			UploadedBuktiMengetahui: &models.Attachment{Kind: models.AttachmentPersisted, Meta: &models.FileMeta{Name: "bukti.pdf"}},
			DokumenPendukung: []*models.Attachment{
				models.NewLinkAttachment("https://example.com/a.pdf"),
				{Kind: models.AttachmentPersisted, Meta: &models.FileMeta{Name: "b.docx"}},
			},
			ContentItems: []*models.ContentItem{
				{
					ID: "video-1-1-a", Nama: "Video 1", JenisKonten: models.JenisVideo,
					MediaPemerintah: []string{"Instagram", "YouTube"},
					Status:          models.ItemApproved, IsTayang: boolPtr(true),
					TanggalTayang:   models.NewDate(tayang),
					HasilProdukLink: "https://example.com/hasil.mp4",
				},
				{
					ID: "infografis-1-1-b", Nama: "Infografis 1", JenisKonten: models.JenisInfografis,
					Status: models.ItemRejected, AlasanPenolakan: "Materi belum lengkap",
					IsTayang:      boolPtr(true),
					TanggalTayang: &models.Date{Raw: "31/02/2025"},
				},
			},
		},
		{NoComtab: "5678/IKP/08/2025", Judul: "Tanpa konten"},
	}
}

func column(t *testing.T, header string) int {
	t.Helper()
	for i, h := range Headers() {
		if h == header {
			return i
		}
	}
	t.Fatalf("no column %q", header)
	return -1
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name string
		in   *models.Date
		want string
	}{
		{"absent", nil, DateMissing},
		{"empty", &models.Date{}, DateMissing},
		{"unparsable", &models.Date{Raw: "besok"}, DateInvalid},
		{"august uses Agt", models.NewDate(time.Date(2025, time.August, 7, 0, 0, 0, 0, time.UTC)), "07 Agt 2025"},
		{"may uses Mei", models.NewDate(time.Date(2024, time.May, 21, 0, 0, 0, 0, time.UTC)), "21 Mei 2024"},
		{"december", models.NewDate(time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)), "31 Des 2023"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.in, time.UTC); got != tt.want {
				t.Errorf("FormatDate() = %q, want %q", got, tt.want)
			}
		})
	}

	jakarta := time.FixedZone("WIB", 7*3600)
	late := models.NewDate(time.Date(2025, time.October, 31, 20, 0, 0, 0, time.UTC))
	if got := FormatDate(late, jakarta); got != "01 Nov 2025" {
		t.Errorf("FormatDate in WIB = %q, want 01 Nov 2025", got)
	}
}

func TestFlatten_RowCount(t *testing.T) {
	subs := sampleSubmissions()
	subs = append(subs, &models.Submission{NoComtab: "x", ContentItems: []*models.ContentItem{{}, {}, {}}})

	rows := Flatten(subs)
	want := 0
	for _, s := range subs {
		if n := len(s.ContentItems); n > 1 {
			want += n
		} else {
			want++
		}
	}
	if len(rows) != want {
		t.Fatalf("Flatten() = %d rows, want %d", len(rows), want)
	}
	for i, r := range rows {
		if r.Number != i+1 {
			t.Errorf("row %d numbered %d", i, r.Number)
		}
	}
	if rows[2].Item != nil || rows[2].Submission.NoComtab != "5678/IKP/08/2025" {
		t.Errorf("submission without items should get one placeholder row: %+v", rows[2])
	}
}

func TestRowValues(t *testing.T) {
	rows := Flatten(sampleSubmissions())
	approved := rows[0].Values(time.UTC)
	rejected := rows[1].Values(time.UTC)
	empty := rows[2].Values(time.UTC)

	if len(approved) != len(Columns) || len(Columns) < 50 {
		t.Fatalf("got %d values for %d columns", len(approved), len(Columns))
	}

	checks := []struct {
		values []string
		header string
		want   string
	}{
		{approved, "Bukti Mengetahui", "bukti.pdf"},
		{approved, "Dokumen Pendukung", "https://example.com/a.pdf; b.docx"},
		{approved, "Media Pemerintah", "Instagram, YouTube"},
		{approved, "Jenis Konten", "Video"},
		{approved, "Tanggal Tayang", "03 Agt 2025"},
		{approved, "Tanggal Jadi", DateMissing},
		{approved, "Status Konten", "Disetujui"},
		{approved, "Status Tayang", "Tayang"},
		{approved, "Hasil Produk", "https://example.com/hasil.mp4"},
		{approved, "Status Workflow", "Selesai"},
		{rejected, "Tanggal Tayang", DateInvalid},
		{rejected, "Alasan Penolakan", "Materi belum lengkap"},
		{rejected, "Status Tayang", placeholder},
		{empty, "Nama Konten", placeholder},
		{empty, "Tanggal Submit", DateMissing},
		{empty, "Jumlah Konten", "0"},
	}
	for _, c := range checks {
		if got := c.values[column(t, c.header)]; got != c.want {
			t.Errorf("%s = %q, want %q", c.header, got, c.want)
		}
	}
}

func TestRowValues_SourceToggles(t *testing.T) {
	sub := &models.Submission{NoComtab: "0001/IKP/08/2025", ContentItems: []*models.ContentItem{{
		ID: "audio-1", JenisKonten: models.JenisAudio,
		SourceType:       []string{models.SourceAudioDubbing},
		NarasiFile:       models.NewLinkAttachment("https://example.com/narasi.docx"),
		AudioDubbingFile: &models.Attachment{Kind: models.AttachmentPersisted, Meta: &models.FileMeta{Name: "dubbing.mp3"}},
	}}}
	values := Flatten([]*models.Submission{sub})[0].Values(time.UTC)

	if got := values[column(t, "Sumber")]; got != models.SourceAudioDubbing {
		t.Errorf("Sumber = %q", got)
	}
	if got := values[column(t, "File Narasi")]; got != "" {
		t.Errorf("File Narasi = %q, want blank for a disabled source", got)
	}
	if got := values[column(t, "Audio Dubbing")]; got != "dubbing.mp3" {
		t.Errorf("Audio Dubbing = %q, want dubbing.mp3", got)
	}
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	enc := &Encoder{Format: FormatCSV, Location: time.UTC}
	if _, err := enc.Encode(&buf, Flatten(sampleSubmissions())); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], `"No","No Comtab","Judul"`) {
		t.Errorf("header = %.60s", lines[0])
	}
	if !strings.Contains(lines[1], `"Sosialisasi ""Cek Fakta"""`) {
		t.Errorf("embedded quotes not escaped: %.120s", lines[1])
	}
	if !strings.HasPrefix(lines[3], `"3","5678/IKP/08/2025"`) {
		t.Errorf("placeholder row = %.60s", lines[3])
	}
}

func TestEncodeXLSX(t *testing.T) {
	var buf bytes.Buffer
	enc := &Encoder{Format: FormatXLSX, Location: time.UTC}
	if _, err := enc.Encode(&buf, Flatten(sampleSubmissions())); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{SheetName}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[0][1] != "No Comtab" || rows[1][1] != "1234/IKP/08/2025" {
		t.Errorf("unexpected cells %q %q", rows[0][1], rows[1][1])
	}
	width, err := f.GetColWidth(SheetName, "C")
	if err != nil || width != 40 {
		t.Errorf("column C width = %v (%v), want 40", width, err)
	}
}

func TestParseFormatAndFilename(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatCSV {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if f, err := ParseFormat("XLSX"); err != nil || f != FormatXLSX {
		t.Errorf("ParseFormat(XLSX) = %v, %v", f, err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("pdf must be rejected")
	}
	day := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	if got := FormatXLSX.Filename(day); got != "rekap-data-detail-2025-01-05.xlsx" {
		t.Errorf("Filename() = %s", got)
	}
}

func TestEncode_UnsupportedFormatWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	enc := &Encoder{Format: "pdf"}
	if _, err := enc.Encode(&buf, Flatten(sampleSubmissions())); err == nil {
		t.Fatal("expected an error")
	}
	if buf.Len() != 0 {
		t.Error("a failed export must not write partial output")
	}
}
