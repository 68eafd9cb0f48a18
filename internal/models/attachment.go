package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AttachmentKind tags which representation an Attachment currently holds
type AttachmentKind string

const (
	// AttachmentRaw is an uploaded file held in memory before it is materialized
	AttachmentRaw AttachmentKind = "raw"
	// AttachmentPreview carries decoded content and preview URLs for display
	AttachmentPreview AttachmentKind = "preview"
	// AttachmentPersisted is the long-term stored metadata shape
	AttachmentPersisted AttachmentKind = "persisted"
	// AttachmentLink is an externally hosted file referenced by URL
	AttachmentLink AttachmentKind = "link"
)

// RawFile is the ephemeral content of an uploaded file
type RawFile struct {
	Name         string
	Type         string
	Size         int64
	LastModified time.Time
	Content      []byte
}

// FileMeta is the object shape shared by the preview and persisted representations.
// URL is only populated for previews.
type FileMeta struct {
	Name            string `json:"name"`
	Size            int64  `json:"size"`
	Type            string `json:"type"`
	LastModified    int64  `json:"lastModified"`
	Base64          string `json:"base64,omitempty"`
	URL             string `json:"url,omitempty"`
	Preview         string `json:"preview,omitempty"`
	ThumbnailBase64 string `json:"thumbnailBase64,omitempty"`
}

// Attachment is one file slot. Exactly one of Raw, Meta or Link is set, as named by Kind.
type Attachment struct {
	Kind AttachmentKind
	Raw  *RawFile
	Meta *FileMeta
	Link string
}

// NewLinkAttachment wraps an externally hosted URL
func NewLinkAttachment(link string) *Attachment {
	return &Attachment{Kind: AttachmentLink, Link: link}
}

// IsEmpty reports whether the slot holds nothing
func (a *Attachment) IsEmpty() bool {
	if a == nil {
		return true
	}
	switch a.Kind {
	case AttachmentRaw:
		return a.Raw == nil
	case AttachmentPreview, AttachmentPersisted:
		return a.Meta == nil
	case AttachmentLink:
		return a.Link == ""
	default:
		return true
	}
}

// Name returns the filename, or the link itself for link attachments
func (a *Attachment) Name() string {
	if a.IsEmpty() {
		return ""
	}
	switch a.Kind {
	case AttachmentRaw:
		return a.Raw.Name
	case AttachmentLink:
		return a.Link
	default:
		return a.Meta.Name
	}
}

// MIMEType returns the declared content type, empty for links
func (a *Attachment) MIMEType() string {
	if a.IsEmpty() {
		return ""
	}
	switch a.Kind {
	case AttachmentRaw:
		return a.Raw.Type
	case AttachmentLink:
		return ""
	default:
		return a.Meta.Type
	}
}

// MarshalJSON encodes links as plain strings and file shapes as metadata objects,
// matching what the form client stored.
func (a Attachment) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AttachmentLink:
		return json.Marshal(a.Link)
	case AttachmentRaw:
		if a.Raw == nil {
			return []byte("null"), nil
		}
		return json.Marshal(FileMeta{
			Name:         a.Raw.Name,
			Size:         a.Raw.Size,
			Type:         a.Raw.Type,
			LastModified: a.Raw.LastModified.UnixMilli(),
		})
	case AttachmentPreview, AttachmentPersisted:
		if a.Meta == nil {
			return []byte("null"), nil
		}
		return json.Marshal(a.Meta)
	default:
		return []byte("null"), nil
	}
}

func (a *Attachment) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = Attachment{}
		return nil
	}
	switch b[0] {
	case '"':
		var link string
		if err := json.Unmarshal(b, &link); err != nil {
			return err
		}
		if link == "" {
			*a = Attachment{}
			return nil
		}
		*a = Attachment{Kind: AttachmentLink, Link: link}
		return nil
	case '{':
		var meta FileMeta
		if err := json.Unmarshal(b, &meta); err != nil {
			return err
		}
		kind := AttachmentPersisted
		if meta.URL != "" {
			kind = AttachmentPreview
		}
		*a = Attachment{Kind: kind, Meta: &meta}
		return nil
	default:
		return fmt.Errorf("attachment must be a link string or file object")
	}
}
