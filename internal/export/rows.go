// Package export flattens submissions into one row per content item and encodes the
// rows as CSV or as an xlsx workbook.
package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/workflow"
)

// placeholder fills item columns of a submission without content items
const placeholder = "-"

// Row is one exported line: a submission with one of its items, or with Item nil when
// the submission has no items.
type Row struct {
	Number     int
	Submission *models.Submission
	Item       *models.ContentItem
}

// Flatten expands submissions into rows. The result has max(1, len(items)) rows per
// submission, in input order.
func Flatten(subs []*models.Submission) []Row {
	rows := make([]Row, 0, len(subs))
	n := 0
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if len(sub.ContentItems) == 0 {
			n++
			rows = append(rows, Row{Number: n, Submission: sub})
			continue
		}
		for _, item := range sub.ContentItems {
			n++
			rows = append(rows, Row{Number: n, Submission: sub, Item: item})
		}
	}
	return rows
}

// Column is one exported field
type Column struct {
	Header string
	Width  float64
	value  func(r Row, loc *time.Location) string
}

func subColumn(header string, width float64, f func(*models.Submission) string) Column {
	return Column{Header: header, Width: width, value: func(r Row, _ *time.Location) string {
		return f(r.Submission)
	}}
}

func subDate(header string, f func(*models.Submission) *models.Date) Column {
	return Column{Header: header, Width: 16, value: func(r Row, loc *time.Location) string {
		return FormatDate(f(r.Submission), loc)
	}}
}

func itemColumn(header string, width float64, f func(*models.ContentItem) string) Column {
	return Column{Header: header, Width: width, value: func(r Row, _ *time.Location) string {
		if r.Item == nil {
			return placeholder
		}
		return f(r.Item)
	}}
}

func itemDate(header string, f func(*models.ContentItem) *models.Date) Column {
	return Column{Header: header, Width: 16, value: func(r Row, loc *time.Location) string {
		if r.Item == nil {
			return placeholder
		}
		return FormatDate(f(r.Item), loc)
	}}
}

// publication columns are only meaningful for approved items
func pubColumn(header string, width float64, f func(*models.ContentItem) string) Column {
	return itemColumn(header, width, func(c *models.ContentItem) string {
		if c.EffectiveStatus() != models.ItemApproved {
			return placeholder
		}
		return f(c)
	})
}

func pubDate(header string, f func(*models.ContentItem) *models.Date) Column {
	return Column{Header: header, Width: 16, value: func(r Row, loc *time.Location) string {
		if r.Item == nil || r.Item.EffectiveStatus() != models.ItemApproved {
			return placeholder
		}
		return FormatDate(f(r.Item), loc)
	}}
}

// fileColumn renders a source slot, blank when its toggle is off
func fileColumn(header, source string, f func(*models.ContentItem) *models.Attachment) Column {
	return itemColumn(header, 30, func(c *models.ContentItem) string {
		if !c.HasSource(source) {
			return ""
		}
		return f(c).Name()
	})
}

func yesNo(b bool) string {
	if b {
		return "Ya"
	}
	return "Tidak"
}

func fileOrLink(a *models.Attachment, link string) string {
	if name := a.Name(); name != "" {
		return name
	}
	return link
}

var statusLabels = map[models.ItemStatus]string{
	models.ItemPending:  "Menunggu",
	models.ItemApproved: "Disetujui",
	models.ItemRejected: "Ditolak",
}

var stageLabels = map[workflow.Stage]string{
	workflow.StageSubmitted:  "Diajukan",
	workflow.StageReview:     "Review",
	workflow.StageValidation: "Validasi",
	workflow.StageCompleted:  "Selesai",
}

// Columns is the ordered column set shared by the CSV and xlsx encoders
var Columns = []Column{
	{Header: "No", Width: 6, value: func(r Row, _ *time.Location) string { return strconv.Itoa(r.Number) }},
	subColumn("No Comtab", 20, func(s *models.Submission) string { return s.NoComtab }),
	subColumn("Judul", 40, func(s *models.Submission) string { return s.Judul }),
	subColumn("Tema", 20, func(s *models.Submission) string { return s.Tema }),
	subColumn("Petugas Pelaksana", 22, func(s *models.Submission) string { return s.PetugasPelaksana }),
	subColumn("Supervisor", 22, func(s *models.Submission) string { return s.Supervisor }),
	subDate("Tanggal Order", func(s *models.Submission) *models.Date { return s.TanggalOrder }),
	subDate("Tanggal Submit", func(s *models.Submission) *models.Date { return s.TanggalSubmit }),
	subDate("Terakhir Diubah", func(s *models.Submission) *models.Date { return s.LastModified }),
	subDate("Tanggal Review", func(s *models.Submission) *models.Date { return s.TanggalReview }),
	subDate("Tanggal Validasi Output", func(s *models.Submission) *models.Date { return s.TanggalValidasiOutput }),
	subColumn("Status Workflow", 16, func(s *models.Submission) string { return stageLabels[workflow.StageOf(s)] }),
	subColumn("Dikonfirmasi", 12, func(s *models.Submission) string { return yesNo(s.IsConfirmed) }),
	subDate("Tanggal Konfirmasi", func(s *models.Submission) *models.Date { return s.TanggalKonfirmasi }),
	subColumn("Output Divalidasi", 16, func(s *models.Submission) string { return yesNo(s.IsOutputValidated) }),
	subColumn("Bukti Mengetahui", 30, func(s *models.Submission) string { return s.UploadedBuktiMengetahui.Name() }),
	subColumn("Surat Permohonan", 30, func(s *models.Submission) string { return s.SuratPermohonan.Name() }),
	subColumn("Proposal Kegiatan", 30, func(s *models.Submission) string { return s.ProposalKegiatan.Name() }),
	subColumn("Dokumen Pendukung", 40, func(s *models.Submission) string {
		names := make([]string, 0, len(s.DokumenPendukung))
		for _, d := range s.DokumenPendukung {
			if n := d.Name(); n != "" {
				names = append(names, n)
			}
		}
		return strings.Join(names, "; ")
	}),
	subColumn("Jumlah Konten", 14, func(s *models.Submission) string { return strconv.Itoa(len(s.ContentItems)) }),

	itemColumn("ID Konten", 36, func(c *models.ContentItem) string { return c.ID }),
	itemColumn("Nama Konten", 30, func(c *models.ContentItem) string { return c.Nama }),
	itemColumn("Jenis Konten", 16, func(c *models.ContentItem) string {
		if name, ok := models.ContentTypeNames[c.JenisKonten]; ok {
			return name
		}
		return c.JenisKonten
	}),
	itemColumn("Tema Konten", 20, func(c *models.ContentItem) string { return c.Tema }),
	itemColumn("Media Pemerintah", 30, func(c *models.ContentItem) string { return strings.Join(c.MediaPemerintah, ", ") }),
	itemColumn("Media Massa", 30, func(c *models.ContentItem) string { return strings.Join(c.MediaMassa, ", ") }),
	itemColumn("Narasi", 50, func(c *models.ContentItem) string { return c.NarasiText }),
	itemColumn("Sumber", 30, func(c *models.ContentItem) string { return strings.Join(c.SourceType, ", ") }),
	fileColumn("File Narasi", models.SourceNarasi, func(c *models.ContentItem) *models.Attachment { return c.NarasiFile }),
	fileColumn("File Surat", models.SourceSurat, func(c *models.ContentItem) *models.Attachment { return c.SuratFile }),
	fileColumn("Audio Dubbing", models.SourceAudioDubbing, func(c *models.ContentItem) *models.Attachment { return c.AudioDubbingFile }),
	fileColumn("Audio Dubbing Lain-lain", models.SourceAudioDubbingLainLain, func(c *models.ContentItem) *models.Attachment { return c.AudioDubbingLainLainFile }),
	fileColumn("Audio Backsound", models.SourceAudioBacksound, func(c *models.ContentItem) *models.Attachment { return c.AudioBacksoundFile }),
	fileColumn("Audio Backsound Lain-lain", models.SourceAudioBacksoundLainLain, func(c *models.ContentItem) *models.Attachment { return c.AudioBacksoundLainLainFile }),
	fileColumn("Pendukung Video", models.SourcePendukungVideo, func(c *models.ContentItem) *models.Attachment { return c.PendukungVideoFile }),
	fileColumn("Pendukung Foto", models.SourcePendukungFoto, func(c *models.ContentItem) *models.Attachment { return c.PendukungFotoFile }),
	fileColumn("Pendukung Lain-lain", models.SourcePendukungLainLain, func(c *models.ContentItem) *models.Attachment { return c.PendukungLainLainFile }),
	itemDate("Tanggal Order Masuk", func(c *models.ContentItem) *models.Date { return c.TanggalOrderMasuk }),
	itemDate("Tanggal Jadi", func(c *models.ContentItem) *models.Date { return c.TanggalJadi }),
	itemDate("Tanggal Tayang", func(c *models.ContentItem) *models.Date { return c.TanggalTayang }),
	itemColumn("Keterangan", 30, func(c *models.ContentItem) string { return c.Keterangan }),
	itemColumn("Status Konten", 14, func(c *models.ContentItem) string { return statusLabels[c.EffectiveStatus()] }),
	itemColumn("Alasan Penolakan", 30, func(c *models.ContentItem) string {
		if c.EffectiveStatus() != models.ItemRejected {
			return ""
		}
		return c.AlasanPenolakan
	}),
	itemColumn("Diproses Oleh", 20, func(c *models.ContentItem) string { return c.DiprosesOleh }),
	itemDate("Tanggal Diproses", func(c *models.ContentItem) *models.Date { return c.TanggalDiproses }),
	itemColumn("Hasil Produk", 30, func(c *models.ContentItem) string { return fileOrLink(c.HasilProdukFile, c.HasilProdukLink) }),
	pubColumn("Status Tayang", 16, func(c *models.ContentItem) string {
		switch {
		case c.IsTayang == nil:
			return "Belum divalidasi"
		case *c.IsTayang:
			return "Tayang"
		default:
			return "Tidak Tayang"
		}
	}),
	pubDate("Tanggal Validasi Tayang", func(c *models.ContentItem) *models.Date { return c.TanggalValidasiTayang }),
	pubColumn("Validator Tayang", 20, func(c *models.ContentItem) string { return c.ValidatorTayang }),
	pubColumn("Keterangan Validasi", 30, func(c *models.ContentItem) string { return c.KeteranganValidasi }),
	pubColumn("Hasil Produk Validasi", 30, func(c *models.ContentItem) string {
		return fileOrLink(c.HasilProdukValidasiFile, c.HasilProdukValidasiLink)
	}),
	pubDate("Tanggal Tayang Validasi", func(c *models.ContentItem) *models.Date { return c.TanggalTayangValidasi }),
	pubColumn("Alasan Tidak Tayang", 30, func(c *models.ContentItem) string { return c.AlasanTidakTayang }),
	itemColumn("Konten Dikonfirmasi", 16, func(c *models.ContentItem) string { return yesNo(c.IsConfirmed) }),
	itemDate("Tanggal Konfirmasi Konten", func(c *models.ContentItem) *models.Date { return c.TanggalKonfirmasi }),
}

// Headers returns the column headers in order
func Headers() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Header
	}
	return out
}

// Values renders a row in column order
func (r Row) Values(loc *time.Location) []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.value(r, loc)
	}
	return out
}
