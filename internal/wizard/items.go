package wizard

import (
	"fmt"
	"strings"

	"github.com/pengajuan-konten-api/internal/models"
)

// SelectType adds a content type and synthesizes its first item. Selecting an
// already selected type is a no-op.
func (d *Draft) SelectType(jenis string) error {
	if _, ok := models.ContentTypeNames[jenis]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContentType, jenis)
	}
	if d.isSelected(jenis) {
		return nil
	}
	d.selected = append(d.selected, jenis)
	d.Submission.ContentItems = append(d.Submission.ContentItems, d.newItem(jenis, d.countOf(jenis)+1))
	return nil
}

// DeselectType removes a content type together with all of its items
func (d *Draft) DeselectType(jenis string) {
	kept := d.selected[:0]
	for _, t := range d.selected {
		if t != jenis {
			kept = append(kept, t)
		}
	}
	d.selected = kept

	items := make([]*models.ContentItem, 0, len(d.Submission.ContentItems))
	for _, item := range d.Submission.ContentItems {
		if item.JenisKonten != jenis {
			items = append(items, item)
		}
	}
	d.Submission.ContentItems = items
}

// SetQuantity sets how many items of a type the submission requests. Existing items
// are kept where their id prefix matches their position; missing positions get new
// items and positions beyond the quantity are dropped. Zero deselects the type.
func (d *Draft) SetQuantity(jenis string, n int) error {
	if _, ok := models.ContentTypeNames[jenis]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContentType, jenis)
	}
	if n <= 0 {
		d.DeselectType(jenis)
		return nil
	}
	if !d.isSelected(jenis) {
		d.selected = append(d.selected, jenis)
	}

	var existing []*models.ContentItem
	var others []*models.ContentItem
	for _, item := range d.Submission.ContentItems {
		if item.JenisKonten == jenis {
			existing = append(existing, item)
		} else {
			others = append(others, item)
		}
	}

	used := make(map[*models.ContentItem]bool)
	items := make([]*models.ContentItem, 0, n)
	for pos := 1; pos <= n; pos++ {
		var match *models.ContentItem
		prefix := itemIDPrefix(jenis, pos)
		for _, item := range existing {
			if !used[item] && strings.HasPrefix(item.ID, prefix) {
				match = item
				break
			}
		}
		if match == nil && pos <= len(existing) && !used[existing[pos-1]] {
			match = existing[pos-1]
		}
		if match == nil {
			match = d.newItem(jenis, pos)
		}
		used[match] = true
		items = append(items, match)
	}

	d.Submission.ContentItems = append(others, items...)
	return nil
}

// Quantity returns how many items of a type are requested
func (d *Draft) Quantity(jenis string) int {
	return d.countOf(jenis)
}

func (d *Draft) isSelected(jenis string) bool {
	for _, t := range d.selected {
		if t == jenis {
			return true
		}
	}
	return false
}

func (d *Draft) countOf(jenis string) int {
	n := 0
	for _, item := range d.Submission.ContentItems {
		if item.JenisKonten == jenis {
			n++
		}
	}
	return n
}

func (d *Draft) newItem(jenis string, seq int) *models.ContentItem {
	return &models.ContentItem{
		ID:              fmt.Sprintf("%s%d-%s", itemIDPrefix(jenis, seq), d.now().UnixMilli(), d.suffix()),
		Nama:            fmt.Sprintf("%s %d", models.ContentTypeNames[jenis], seq),
		JenisKonten:     jenis,
		Tema:            d.Submission.Tema,
		MediaPemerintah: []string{},
		MediaMassa:      []string{},
		Status:          models.ItemPending,
	}
}

func itemIDPrefix(jenis string, seq int) string {
	return fmt.Sprintf("%s-%d-", jenis, seq)
}
