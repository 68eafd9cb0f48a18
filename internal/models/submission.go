package models

import (
	"time"
)

// Content types a pengajuan can request
const (
	JenisInfografis   = "infografis"
	JenisNaskahBerita = "naskah-berita"
	JenisAudio        = "audio"
	JenisVideo        = "video"
	JenisFotografis   = "fotografis"
	JenisBumper       = "bumper"
)

// ContentTypeNames maps each content type to its display name
var ContentTypeNames = map[string]string{
	JenisInfografis:   "Infografis",
	JenisNaskahBerita: "Naskah Berita",
	JenisAudio:        "Audio",
	JenisVideo:        "Video",
	JenisFotografis:   "Fotografis",
	JenisBumper:       "Bumper",
}

// ContentTypeOrder is the display order of content types
var ContentTypeOrder = []string{
	JenisInfografis, JenisNaskahBerita, JenisAudio, JenisVideo, JenisFotografis, JenisBumper,
}

// ItemStatus is the review state of a content item
type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemApproved ItemStatus = "approved"
	ItemRejected ItemStatus = "rejected"
)

// Decided reports whether a reviewer has approved or rejected the item
func (s ItemStatus) Decided() bool {
	return s == ItemApproved || s == ItemRejected
}

// Source material slots a content item may carry
const (
	SourceNarasi                 = "narasi"
	SourceSurat                  = "surat"
	SourceAudioDubbing           = "audio-dubbing"
	SourceAudioDubbingLainLain   = "audio-dubbing-lain-lain"
	SourceAudioBacksound         = "audio-backsound"
	SourceAudioBacksoundLainLain = "audio-backsound-lain-lain"
	SourcePendukungVideo         = "pendukung-video"
	SourcePendukungFoto          = "pendukung-foto"
	SourcePendukungLainLain      = "pendukung-lain-lain"
)

// Submission is one pengajuan: a public-service request for communication content
type Submission struct {
	ID               int64  `json:"id"`
	NoComtab         string `json:"noComtab"`
	Pin              string `json:"pin"`
	Judul            string `json:"judul"`
	Tema             string `json:"tema"`
	PetugasPelaksana string `json:"petugasPelaksana"`
	Supervisor       string `json:"supervisor"`

	TanggalOrder          *Date `json:"tanggalOrder,omitempty"`
	TanggalSubmit         *Date `json:"tanggalSubmit,omitempty"`
	LastModified          *Date `json:"lastModified,omitempty"`
	TanggalReview         *Date `json:"tanggalReview,omitempty"`
	TanggalValidasiOutput *Date `json:"tanggalValidasiOutput,omitempty"`

	UploadedBuktiMengetahui *Attachment   `json:"uploadedBuktiMengetahui,omitempty"`
	SuratPermohonan         *Attachment   `json:"suratPermohonan,omitempty"`
	ProposalKegiatan        *Attachment   `json:"proposalKegiatan,omitempty"`
	DokumenPendukung        []*Attachment `json:"dokumenPendukung,omitempty"`

	ContentItems []*ContentItem `json:"contentItems"`

	IsConfirmed       bool   `json:"isConfirmed"`
	TanggalKonfirmasi *Date  `json:"tanggalKonfirmasi,omitempty"`
	IsOutputValidated bool   `json:"isOutputValidated"`
	WorkflowStage     string `json:"workflowStage,omitempty"`

	// Set by the store; zero until the submission is first saved
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContentTypes returns the distinct content types of the submission's items in
// first-seen order
func (s *Submission) ContentTypes() []string {
	seen := make(map[string]bool)
	var types []string
	for _, item := range s.ContentItems {
		if item == nil || item.JenisKonten == "" || seen[item.JenisKonten] {
			continue
		}
		seen[item.JenisKonten] = true
		types = append(types, item.JenisKonten)
	}
	return types
}

// FindItem returns the content item with the given id
func (s *Submission) FindItem(id string) *ContentItem {
	for _, item := range s.ContentItems {
		if item != nil && item.ID == id {
			return item
		}
	}
	return nil
}

// ContentItem is one deliverable requested within a submission
type ContentItem struct {
	ID              string   `json:"id"`
	Nama            string   `json:"nama"`
	JenisKonten     string   `json:"jenisKonten"`
	Tema            string   `json:"tema,omitempty"`
	MediaPemerintah []string `json:"mediaPemerintah"`
	MediaMassa      []string `json:"mediaMassa"`

	NarasiText string   `json:"narasiText,omitempty"`
	SourceType []string `json:"sourceType,omitempty"`

	NarasiFile                 *Attachment `json:"narasiFile,omitempty"`
	SuratFile                  *Attachment `json:"suratFile,omitempty"`
	AudioDubbingFile           *Attachment `json:"audioDubbingFile,omitempty"`
	AudioDubbingLainLainFile   *Attachment `json:"audioDubbingLainLainFile,omitempty"`
	AudioBacksoundFile         *Attachment `json:"audioBacksoundFile,omitempty"`
	AudioBacksoundLainLainFile *Attachment `json:"audioBacksoundLainLainFile,omitempty"`
	PendukungVideoFile         *Attachment `json:"pendukungVideoFile,omitempty"`
	PendukungFotoFile          *Attachment `json:"pendukungFotoFile,omitempty"`
	PendukungLainLainFile      *Attachment `json:"pendukungLainLainFile,omitempty"`

	TanggalOrderMasuk *Date  `json:"tanggalOrderMasuk,omitempty"`
	TanggalJadi       *Date  `json:"tanggalJadi,omitempty"`
	TanggalTayang     *Date  `json:"tanggalTayang,omitempty"`
	Keterangan        string `json:"keterangan,omitempty"`

	Status          ItemStatus `json:"status,omitempty"`
	AlasanPenolakan string     `json:"alasanPenolakan,omitempty"`
	DiprosesOleh    string     `json:"diprosesoleh,omitempty"`
	TanggalDiproses *Date      `json:"tanggalDiproses,omitempty"`

	HasilProdukFile *Attachment `json:"hasilProdukFile,omitempty"`
	HasilProdukLink string      `json:"hasilProdukLink,omitempty"`

	IsTayang                *bool       `json:"isTayang,omitempty"`
	TanggalValidasiTayang   *Date       `json:"tanggalValidasiTayang,omitempty"`
	ValidatorTayang         string      `json:"validatorTayang,omitempty"`
	KeteranganValidasi      string      `json:"keteranganValidasi,omitempty"`
	HasilProdukValidasiFile *Attachment `json:"hasilProdukValidasiFile,omitempty"`
	HasilProdukValidasiLink string      `json:"hasilProdukValidasiLink,omitempty"`
	TanggalTayangValidasi   *Date       `json:"tanggalTayangValidasi,omitempty"`
	AlasanTidakTayang       string      `json:"alasanTidakTayang,omitempty"`

	IsConfirmed       bool  `json:"isConfirmed"`
	TanggalKonfirmasi *Date `json:"tanggalKonfirmasi,omitempty"`
}

// EffectiveStatus treats a missing status as pending
func (c *ContentItem) EffectiveStatus() ItemStatus {
	if c.Status == "" {
		return ItemPending
	}
	return c.Status
}

// SourceSlot pairs a source toggle with the attachment stored for it
type SourceSlot struct {
	Key   string
	Label string
	File  **Attachment
}

// SourceSlots lists the nine source material slots in display order
func (c *ContentItem) SourceSlots() []SourceSlot {
	return []SourceSlot{
		{Key: SourceNarasi, Label: "File Narasi", File: &c.NarasiFile},
		{Key: SourceSurat, Label: "Surat", File: &c.SuratFile},
		{Key: SourceAudioDubbing, Label: "Audio Dubbing", File: &c.AudioDubbingFile},
		{Key: SourceAudioDubbingLainLain, Label: "Audio Dubbing Lain-lain", File: &c.AudioDubbingLainLainFile},
		{Key: SourceAudioBacksound, Label: "Audio Backsound", File: &c.AudioBacksoundFile},
		{Key: SourceAudioBacksoundLainLain, Label: "Audio Backsound Lain-lain", File: &c.AudioBacksoundLainLainFile},
		{Key: SourcePendukungVideo, Label: "Pendukung Video", File: &c.PendukungVideoFile},
		{Key: SourcePendukungFoto, Label: "Pendukung Foto", File: &c.PendukungFotoFile},
		{Key: SourcePendukungLainLain, Label: "Pendukung Lain-lain", File: &c.PendukungLainLainFile},
	}
}

// HasSource reports whether the given source toggle is switched on
func (c *ContentItem) HasSource(key string) bool {
	for _, s := range c.SourceType {
		if s == key {
			return true
		}
	}
	return false
}

// ClearDisabledSources empties every source slot whose toggle is off
func (c *ContentItem) ClearDisabledSources() {
	for _, slot := range c.SourceSlots() {
		if !c.HasSource(slot.Key) {
			*slot.File = nil
		}
	}
}
