package attachment

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/pengajuan-konten-api/internal/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		mimeType string
		want     bool
	}{
		{"png by mime", "upload", "image/png", true},
		{"jpeg by extension", "foto.JPG", "", true},
		{"pdf", "surat.pdf", "application/pdf", false},
		{"no hints", "berkas", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsImageFile(tt.file, tt.mimeType); got != tt.want {
				t.Errorf("IsImageFile(%q, %q) = %v, want %v", tt.file, tt.mimeType, got, tt.want)
			}
		})
	}
}

func TestValidateLink(t *testing.T) {
	valid := []string{"https://drive.google.com/file/d/abc", "http://example.go.id/a.pdf"}
	invalid := []string{"", "drive.google.com/file", "ftp://example.com/a", "https://", "not a url"}

	for _, link := range valid {
		if err := ValidateLink(link); err != nil {
			t.Errorf("ValidateLink(%q) = %v, want nil", link, err)
		}
	}
	for _, link := range invalid {
		if err := ValidateLink(link); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ValidateLink(%q) = %v, want ErrInvalidURL", link, err)
		}
	}
}

func TestMaterialize_ImageGetsThumbnail(t *testing.T) {
	content := pngBytes(t, 640, 320)
	raw, err := FromReader(bytes.NewReader(content), "poster.png", "", 0)
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	if raw.Raw.Type != "image/png" {
		t.Errorf("sniffed type = %s, want image/png", raw.Raw.Type)
	}

	m := &Materializer{Thumbnails: DefaultThumbnailOptions}
	preview, err := m.Materialize(raw)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if preview.Kind != models.AttachmentPreview {
		t.Fatalf("kind = %s, want preview", preview.Kind)
	}
	if !strings.HasPrefix(preview.Meta.ThumbnailBase64, "data:image/jpeg;base64,") {
		t.Fatalf("thumbnail is not a JPEG data URL: %.40s", preview.Meta.ThumbnailBase64)
	}

	thumb, err := DecodeDataURL(preview.Meta.ThumbnailBase64)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("jpeg.Decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() > 200 || b.Dy() > 200 {
		t.Errorf("thumbnail %dx%d exceeds 200x200", b.Dx(), b.Dy())
	}
	if b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("thumbnail %dx%d, want 200x100 (aspect kept)", b.Dx(), b.Dy())
	}
}

func TestMaterialize_PDFHasNoThumbnail(t *testing.T) {
	raw, err := FromReader(strings.NewReader("%PDF-1.4 test"), "surat.pdf", "application/pdf", 0)
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	m := &Materializer{}
	preview, err := m.Materialize(raw)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if preview.Meta.ThumbnailBase64 != "" || preview.Meta.Preview != "" {
		t.Error("pdf must not get an image preview")
	}
	if preview.Name() != "surat.pdf" {
		t.Errorf("name = %s", preview.Name())
	}
	if IsImage(preview) {
		t.Error("pdf reported as image")
	}
}

func TestMaterialize_ThumbnailFailureFallsBack(t *testing.T) {
	raw, err := FromReader(strings.NewReader("not really a png"), "rusak.png", "image/png", 0)
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	var failed string
	m := &Materializer{OnThumbnailError: func(name string, err error) { failed = name }}

	preview, err := m.Materialize(raw)
	if err != nil {
		t.Fatalf("Materialize must not fail on thumbnail errors: %v", err)
	}
	if failed != "rusak.png" {
		t.Errorf("OnThumbnailError not called, got %q", failed)
	}
	if preview.Meta.ThumbnailBase64 != preview.Meta.Base64 {
		t.Error("thumbnail should fall back to the full-size base64")
	}
}

func TestFromReader_TooLarge(t *testing.T) {
	_, err := FromReader(strings.NewReader("0123456789"), "a.txt", "text/plain", 5)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("FromReader() err = %v, want ErrFileTooLarge", err)
	}
}

func TestPersistAndBackToPreview(t *testing.T) {
	raw, _ := FromReader(strings.NewReader("isi dokumen"), "proposal.txt", "text/plain", 0)
	m := &Materializer{}

	persisted, err := m.Persist(raw)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if persisted.Kind != models.AttachmentPersisted {
		t.Fatalf("kind = %s, want persisted", persisted.Kind)
	}
	if persisted.Meta.URL != "" {
		t.Error("persisted metadata must not carry a preview URL")
	}
	if persisted.Meta.Base64 == "" {
		t.Error("persisted metadata lost its content")
	}

	preview, err := ToPreview(persisted)
	if err != nil {
		t.Fatalf("ToPreview: %v", err)
	}
	if preview.Kind != models.AttachmentPreview || preview.Meta.URL != persisted.Meta.Base64 {
		t.Errorf("ToPreview() = %+v", preview.Meta)
	}

	link := models.NewLinkAttachment("https://example.com/a.pdf")
	if got, _ := m.Persist(link); got != link {
		t.Error("links must pass through Persist unchanged")
	}
}

func TestInput_ModeSwitchingDiscardsValue(t *testing.T) {
	var changes []*models.Attachment
	in := NewInput(nil)
	in.OnChange = func(a *models.Attachment) { changes = append(changes, a) }

	raw, _ := FromReader(strings.NewReader("x"), "a.txt", "text/plain", 0)
	in.SetFile(raw)
	if in.Value() != raw {
		t.Fatal("file not accepted")
	}

	in.SwitchMode(ModeLink)
	if in.Value() != nil {
		t.Error("switching mode must discard the uploaded file")
	}

	if in.SetLink("bukan url") {
		t.Error("invalid link accepted")
	}
	if in.Error() == "" || in.Value() != nil {
		t.Error("invalid link must set an inline error and leave the slot empty")
	}

	if !in.SetLink("https://example.com/berkas.pdf") {
		t.Fatal("valid link rejected")
	}
	if in.Error() != "" || in.Value().Link != "https://example.com/berkas.pdf" {
		t.Errorf("unexpected state: err=%q value=%+v", in.Error(), in.Value())
	}

	in.Remove()
	if in.Value() != nil {
		t.Error("Remove must clear the slot")
	}
	if last := changes[len(changes)-1]; last != nil {
		t.Error("OnChange should receive nil on removal")
	}
}

func TestNewInput_LinkStartsInLinkMode(t *testing.T) {
	in := NewInput(models.NewLinkAttachment("https://example.com/x"))
	if in.Mode() != ModeLink {
		t.Errorf("mode = %s, want link", in.Mode())
	}
}
