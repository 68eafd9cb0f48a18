// Package attachment converts file slots between their four representations:
// an uploaded raw file, a materialized preview, the persisted metadata, and an
// external link.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pengajuan-konten-api/internal/models"
)

var (
	// ErrInvalidURL is returned for links that fail strict URL parsing
	ErrInvalidURL = errors.New("invalid URL")
	// ErrFileTooLarge is returned when an upload exceeds the configured limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrWrongKind is returned when a conversion is applied to the wrong representation
	ErrWrongKind = errors.New("attachment has the wrong representation for this conversion")
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".svg": true,
}

// IsImageFile reports whether a file is an image, by MIME type or by extension
func IsImageFile(name, mimeType string) bool {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return true
	}
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsImage reports whether the attachment holds an image. Links are judged by the
// extension of their path.
func IsImage(a *models.Attachment) bool {
	if a.IsEmpty() {
		return false
	}
	if a.Kind == models.AttachmentLink {
		u, err := url.Parse(a.Link)
		if err != nil {
			return false
		}
		return IsImageFile(u.Path, "")
	}
	return IsImageFile(a.Name(), a.MIMEType())
}

// ValidateLink applies strict URL parsing: absolute http(s) URL with a host
func ValidateLink(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return ErrInvalidURL
	}
	u, err := url.ParseRequestURI(link)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// FromLink builds a link attachment after strict URL validation
func FromLink(link string) (*models.Attachment, error) {
	if err := ValidateLink(link); err != nil {
		return nil, err
	}
	return models.NewLinkAttachment(strings.TrimSpace(link)), nil
}

// FromReader reads an uploaded file into a raw attachment. The declared type is
// replaced by a sniffed one when missing or generic.
func FromReader(r io.Reader, name, declaredType string, maxSize int64) (*models.Attachment, error) {
	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", name, err)
	}
	if maxSize > 0 && int64(len(content)) > maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, name, maxSize)
	}

	fileType := declaredType
	if fileType == "" || fileType == "application/octet-stream" {
		fileType = mimetype.Detect(content).String()
	}
	if i := strings.Index(fileType, ";"); i >= 0 {
		fileType = strings.TrimSpace(fileType[:i])
	}

	return &models.Attachment{
		Kind: models.AttachmentRaw,
		Raw: &models.RawFile{
			Name:         filepath.Base(name),
			Type:         fileType,
			Size:         int64(len(content)),
			LastModified: time.Now(),
			Content:      content,
		},
	}, nil
}

// FromUpload reads a multipart file part into a raw attachment
func FromUpload(fh *multipart.FileHeader, maxSize int64) (*models.Attachment, error) {
	if maxSize > 0 && fh.Size > maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, fh.Filename, maxSize)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return FromReader(f, fh.Filename, fh.Header.Get("Content-Type"), maxSize)
}

// Materializer turns raw uploads into previews, deriving a thumbnail for images
type Materializer struct {
	Thumbnails ThumbnailOptions
	// OnThumbnailError is called when a thumbnail cannot be derived; the preview then
	// falls back to the full-size image.
	OnThumbnailError func(name string, err error)
}

// Materialize converts a raw attachment into its preview representation. Other
// representations are returned unchanged.
func (m *Materializer) Materialize(a *models.Attachment) (*models.Attachment, error) {
	if a.IsEmpty() || a.Kind != models.AttachmentRaw {
		return a, nil
	}
	raw := a.Raw
	dataURL := DataURL(raw.Type, raw.Content)
	meta := &models.FileMeta{
		Name:         raw.Name,
		Size:         raw.Size,
		Type:         raw.Type,
		LastModified: raw.LastModified.UnixMilli(),
		Base64:       dataURL,
		URL:          dataURL,
	}

	if IsImageFile(raw.Name, raw.Type) {
		meta.Preview = dataURL
		thumb, err := Thumbnail(raw.Content, m.Thumbnails)
		if err != nil {
			if m.OnThumbnailError != nil {
				m.OnThumbnailError(raw.Name, err)
			}
			thumb = dataURL
		}
		meta.ThumbnailBase64 = thumb
	}

	return &models.Attachment{Kind: models.AttachmentPreview, Meta: meta}, nil
}

// Persist converts a preview into the stored metadata shape. Raw attachments are
// materialized first. Links and persisted values pass through.
func (m *Materializer) Persist(a *models.Attachment) (*models.Attachment, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	if a.Kind == models.AttachmentRaw {
		var err error
		if a, err = m.Materialize(a); err != nil {
			return nil, err
		}
	}
	if a.Kind != models.AttachmentPreview {
		return a, nil
	}
	meta := *a.Meta
	meta.URL = ""
	return &models.Attachment{Kind: models.AttachmentPersisted, Meta: &meta}, nil
}

// ToPreview turns stored metadata back into a preview for edit mode
func ToPreview(a *models.Attachment) (*models.Attachment, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	switch a.Kind {
	case models.AttachmentPreview, models.AttachmentLink:
		return a, nil
	case models.AttachmentPersisted:
		meta := *a.Meta
		meta.URL = PreviewURL(a)
		return &models.Attachment{Kind: models.AttachmentPreview, Meta: &meta}, nil
	default:
		return nil, ErrWrongKind
	}
}

// PreviewURL returns what a viewer should load to display the attachment
func PreviewURL(a *models.Attachment) string {
	if a.IsEmpty() {
		return ""
	}
	switch a.Kind {
	case models.AttachmentLink:
		return a.Link
	case models.AttachmentRaw:
		return DataURL(a.Raw.Type, a.Raw.Content)
	default:
		switch {
		case a.Meta.URL != "":
			return a.Meta.URL
		case a.Meta.Preview != "":
			return a.Meta.Preview
		default:
			return a.Meta.Base64
		}
	}
}

// ThumbnailURL returns the lightweight thumbnail for list rendering, falling back to
// the preview for images without one
func ThumbnailURL(a *models.Attachment) string {
	if !IsImage(a) {
		return ""
	}
	if (a.Kind == models.AttachmentPreview || a.Kind == models.AttachmentPersisted) && a.Meta.ThumbnailBase64 != "" {
		return a.Meta.ThumbnailBase64
	}
	return PreviewURL(a)
}

// DataURL encodes content as a base64 data URL
func DataURL(mimeType string, content []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// DecodeDataURL returns the content of a base64 data URL or of bare base64 text
func DecodeDataURL(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}
