package export

import (
	"fmt"
	"time"

	"github.com/pengajuan-konten-api/internal/models"
)

const (
	// DateMissing is rendered for a date that has not been set
	DateMissing = "Belum diisi"
	// DateInvalid is rendered for a date that could not be parsed
	DateInvalid = "Tanggal tidak valid"
)

var indonesianMonths = [...]string{
	"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agt", "Sep", "Okt", "Nov", "Des",
}

// FormatDate renders d as "dd MMM yyyy" with Indonesian month abbreviations in loc
func FormatDate(d *models.Date, loc *time.Location) string {
	if d == nil || (d.Raw == "" && d.Time.IsZero()) {
		return DateMissing
	}
	if !d.Valid() {
		return DateInvalid
	}
	t := d.Time
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%02d %s %d", t.Day(), indonesianMonths[t.Month()-1], t.Year())
}
