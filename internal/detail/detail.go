// Package detail builds the read-only view of one submission shown by the detail
// dialog: an info tab, a files tab and a content tab.
package detail

import (
	"time"

	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/export"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/workflow"
)

// View is the detail of one submission
type View struct {
	Info     Info                `json:"info"`
	Workflow workflow.Assessment `json:"workflow"`
	Files    []File              `json:"files"`
	Items    []Item              `json:"items"`
}

// Info is the first tab
type Info struct {
	ID                    int64  `json:"id"`
	NoComtab              string `json:"noComtab"`
	Judul                 string `json:"judul"`
	Tema                  string `json:"tema"`
	PetugasPelaksana      string `json:"petugasPelaksana"`
	Supervisor            string `json:"supervisor"`
	TanggalOrder          string `json:"tanggalOrder"`
	TanggalSubmit         string `json:"tanggalSubmit"`
	LastModified          string `json:"lastModified"`
	TanggalReview         string `json:"tanggalReview"`
	TanggalKonfirmasi     string `json:"tanggalKonfirmasi"`
	TanggalValidasiOutput string `json:"tanggalValidasiOutput"`
	IsConfirmed           bool   `json:"isConfirmed"`
	IsOutputValidated     bool   `json:"isOutputValidated"`
}

// File is one attachment rendered for display. Thumbnail is only set for images.
type File struct {
	Label     string `json:"label"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	MIMEType  string `json:"type,omitempty"`
	IsImage   bool   `json:"isImage"`
	Preview   string `json:"preview,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Item is one content item on the content tab
type Item struct {
	ID                string   `json:"id"`
	Nama              string   `json:"nama"`
	JenisKonten       string   `json:"jenisKonten"`
	JenisLabel        string   `json:"jenisLabel"`
	Tema              string   `json:"tema"`
	MediaPemerintah   []string `json:"mediaPemerintah"`
	MediaMassa        []string `json:"mediaMassa"`
	NarasiText        string   `json:"narasiText,omitempty"`
	Sources           []File   `json:"sources"`
	TanggalOrderMasuk string   `json:"tanggalOrderMasuk"`
	TanggalJadi       string   `json:"tanggalJadi"`
	TanggalTayang     string   `json:"tanggalTayang"`
	Keterangan        string   `json:"keterangan,omitempty"`

	Status          models.ItemStatus `json:"status"`
	AlasanPenolakan string            `json:"alasanPenolakan,omitempty"`
	DiprosesOleh    string            `json:"diprosesOleh,omitempty"`
	TanggalDiproses string            `json:"tanggalDiproses,omitempty"`
	HasilProduk     *File             `json:"hasilProduk,omitempty"`

	// Publication is nil until the item is approved
	Publication *Publication `json:"publication,omitempty"`
}

// Publication is the publication validation block of an approved item
type Publication struct {
	Validated             bool   `json:"validated"`
	IsTayang              *bool  `json:"isTayang,omitempty"`
	TanggalValidasiTayang string `json:"tanggalValidasiTayang"`
	ValidatorTayang       string `json:"validatorTayang,omitempty"`
	KeteranganValidasi    string `json:"keteranganValidasi,omitempty"`
	TanggalTayangValidasi string `json:"tanggalTayangValidasi"`
	AlasanTidakTayang     string `json:"alasanTidakTayang,omitempty"`
	HasilProdukValidasi   *File  `json:"hasilProdukValidasi,omitempty"`
}

// Build renders the detail of sub with dates in loc
func Build(sub *models.Submission, loc *time.Location) *View {
	date := func(d *models.Date) string { return export.FormatDate(d, loc) }

	v := &View{
		Info: Info{
			ID:                    sub.ID,
			NoComtab:              sub.NoComtab,
			Judul:                 sub.Judul,
			Tema:                  sub.Tema,
			PetugasPelaksana:      sub.PetugasPelaksana,
			Supervisor:            sub.Supervisor,
			TanggalOrder:          date(sub.TanggalOrder),
			TanggalSubmit:         date(sub.TanggalSubmit),
			LastModified:          date(sub.LastModified),
			TanggalReview:         date(sub.TanggalReview),
			TanggalKonfirmasi:     date(sub.TanggalKonfirmasi),
			TanggalValidasiOutput: date(sub.TanggalValidasiOutput),
			IsConfirmed:           sub.IsConfirmed,
			IsOutputValidated:     sub.IsOutputValidated,
		},
		Workflow: workflow.Evaluate(sub),
		Files:    []File{},
		Items:    make([]Item, 0, len(sub.ContentItems)),
	}

	appendFile := func(label string, a *models.Attachment) {
		if f := fileOf(label, a); f != nil {
			v.Files = append(v.Files, *f)
		}
	}
	appendFile("Bukti Mengetahui", sub.UploadedBuktiMengetahui)
	appendFile("Surat Permohonan", sub.SuratPermohonan)
	appendFile("Proposal Kegiatan", sub.ProposalKegiatan)
	for _, doc := range sub.DokumenPendukung {
		appendFile("Dokumen Pendukung", doc)
	}

	for _, it := range sub.ContentItems {
		if it == nil {
			continue
		}
		v.Items = append(v.Items, buildItem(it, date))
	}
	return v
}

func buildItem(it *models.ContentItem, date func(*models.Date) string) Item {
	item := Item{
		ID:                it.ID,
		Nama:              it.Nama,
		JenisKonten:       it.JenisKonten,
		JenisLabel:        models.ContentTypeNames[it.JenisKonten],
		Tema:              it.Tema,
		MediaPemerintah:   nonNil(it.MediaPemerintah),
		MediaMassa:        nonNil(it.MediaMassa),
		NarasiText:        it.NarasiText,
		Sources:           []File{},
		TanggalOrderMasuk: date(it.TanggalOrderMasuk),
		TanggalJadi:       date(it.TanggalJadi),
		TanggalTayang:     date(it.TanggalTayang),
		Keterangan:        it.Keterangan,
		Status:            it.EffectiveStatus(),
		DiprosesOleh:      it.DiprosesOleh,
		HasilProduk:       fileOrLink("Hasil Produk", it.HasilProdukFile, it.HasilProdukLink),
	}
	if it.TanggalDiproses != nil {
		item.TanggalDiproses = date(it.TanggalDiproses)
	}
	if item.Status == models.ItemRejected {
		item.AlasanPenolakan = it.AlasanPenolakan
	}
	for _, slot := range it.SourceSlots() {
		if !it.HasSource(slot.Key) {
			continue
		}
		if f := fileOf(slot.Label, *slot.File); f != nil {
			item.Sources = append(item.Sources, *f)
		}
	}

	if item.Status == models.ItemApproved {
		item.Publication = &Publication{
			Validated:             it.IsTayang != nil,
			IsTayang:              it.IsTayang,
			TanggalValidasiTayang: date(it.TanggalValidasiTayang),
			ValidatorTayang:       it.ValidatorTayang,
			KeteranganValidasi:    it.KeteranganValidasi,
			TanggalTayangValidasi: date(it.TanggalTayangValidasi),
			HasilProdukValidasi:   fileOrLink("Hasil Produk Validasi", it.HasilProdukValidasiFile, it.HasilProdukValidasiLink),
		}
		if it.IsTayang != nil && !*it.IsTayang {
			item.Publication.AlasanTidakTayang = it.AlasanTidakTayang
		}
	}
	return item
}

func fileOf(label string, a *models.Attachment) *File {
	if a.IsEmpty() {
		return nil
	}
	return &File{
		Label:     label,
		Name:      a.Name(),
		Kind:      string(a.Kind),
		MIMEType:  a.MIMEType(),
		IsImage:   attachment.IsImage(a),
		Preview:   attachment.PreviewURL(a),
		Thumbnail: attachment.ThumbnailURL(a),
	}
}

func fileOrLink(label string, a *models.Attachment, link string) *File {
	if f := fileOf(label, a); f != nil {
		return f
	}
	if link == "" {
		return nil
	}
	return fileOf(label, models.NewLinkAttachment(link))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
