package attachment

import (
	"github.com/pengajuan-konten-api/internal/models"
)

// Mode is how the user supplies a file slot
type Mode string

const (
	ModeUpload Mode = "upload"
	ModeLink   Mode = "link"
)

// Input holds the state of one file slot while a form is filled in. Only the value of
// the active mode is kept; OnChange receives every accepted value, nil on removal.
type Input struct {
	mode     Mode
	value    *models.Attachment
	linkErr  string
	OnChange func(*models.Attachment)
}

// NewInput starts a slot from an existing value, choosing the mode it implies
func NewInput(initial *models.Attachment) *Input {
	in := &Input{mode: ModeUpload}
	if !initial.IsEmpty() {
		in.value = initial
		if initial.Kind == models.AttachmentLink {
			in.mode = ModeLink
		}
	}
	return in
}

// Mode returns the active input mode
func (in *Input) Mode() Mode { return in.mode }

// Value returns the current value of the slot
func (in *Input) Value() *models.Attachment { return in.value }

// Error returns the inline error of the last rejected link, if any
func (in *Input) Error() string { return in.linkErr }

// SwitchMode changes between upload and link. Switching discards the other mode's value.
func (in *Input) SwitchMode(m Mode) {
	if m == in.mode {
		return
	}
	in.mode = m
	in.linkErr = ""
	in.set(nil)
}

// SetFile accepts an uploaded file, switching to upload mode
func (in *Input) SetFile(a *models.Attachment) {
	if in.mode != ModeUpload {
		in.mode = ModeUpload
	}
	in.linkErr = ""
	if a.IsEmpty() {
		in.set(nil)
		return
	}
	in.set(a)
}

// SetLink accepts an external link, switching to link mode. An invalid URL is kept as
// an inline error and leaves the slot empty; it is never returned as a failure.
func (in *Input) SetLink(link string) bool {
	if in.mode != ModeLink {
		in.mode = ModeLink
		in.set(nil)
	}
	a, err := FromLink(link)
	if err != nil {
		in.linkErr = "URL tidak valid"
		in.set(nil)
		return false
	}
	in.linkErr = ""
	in.set(a)
	return true
}

// Remove clears the slot
func (in *Input) Remove() {
	in.linkErr = ""
	in.set(nil)
}

func (in *Input) set(a *models.Attachment) {
	in.value = a
	if in.OnChange != nil {
		in.OnChange(a)
	}
}
