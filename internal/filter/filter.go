// Package filter implements the recap list search: independent predicates combined
// with AND, each skipped when set to its "all" or empty sentinel.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/workflow"
)

// All is the sentinel that disables a dimension
const All = "all"

// Period values
const (
	PeriodToday  = "today"
	Period7Days  = "7days"
	Period30Days = "30days"
	Period90Days = "90days"
)

var periodDays = map[string]int{
	Period7Days:  7,
	Period30Days: 30,
	Period90Days: 90,
}

// State is the set of filters applied to the recap list
type State struct {
	Search      string `form:"search" json:"search"`
	Status      string `form:"status" json:"status"`
	Period      string `form:"period" json:"period"`
	Staff       string `form:"staff" json:"staff"`
	Supervisor  string `form:"supervisor" json:"supervisor"`
	ContentType string `form:"content_type" json:"contentType"`
	MediaType   string `form:"media_type" json:"mediaType"`
}

func inactive(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == All
}

// IsZero reports whether every dimension is at its sentinel
func (s State) IsZero() bool {
	return inactive(s.Search) && inactive(s.Status) && inactive(s.Period) &&
		inactive(s.Staff) && inactive(s.Supervisor) && inactive(s.ContentType) && inactive(s.MediaType)
}

// Validate rejects unknown status and period values
func (s State) Validate() error {
	if !inactive(s.Status) && !workflow.Stage(s.Status).Valid() {
		return fmt.Errorf("invalid status %q, must be one of: all, submitted, review, validation, completed", s.Status)
	}
	if !inactive(s.Period) && s.Period != PeriodToday {
		if _, ok := periodDays[s.Period]; !ok {
			return fmt.Errorf("invalid period %q, must be one of: all, today, 7days, 30days, 90days", s.Period)
		}
	}
	return nil
}

// Apply returns the submissions matching every active dimension. With every dimension
// at its sentinel the input slice itself is returned.
func Apply(subs []*models.Submission, s State, now time.Time) []*models.Submission {
	if s.IsZero() {
		return subs
	}

	preds := s.predicates(now)
	out := make([]*models.Submission, 0, len(subs))
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if matchesAll(sub, preds) {
			out = append(out, sub)
		}
	}
	return out
}

type predicate func(*models.Submission) bool

func matchesAll(sub *models.Submission, preds []predicate) bool {
	for _, p := range preds {
		if !p(sub) {
			return false
		}
	}
	return true
}

func (s State) predicates(now time.Time) []predicate {
	var preds []predicate
	if !inactive(s.Search) {
		preds = append(preds, searchPredicate(s.Search))
	}
	if !inactive(s.Status) {
		stage := workflow.Stage(s.Status)
		preds = append(preds, func(sub *models.Submission) bool {
			return workflow.StageOf(sub) == stage
		})
	}
	if !inactive(s.Period) {
		preds = append(preds, periodPredicate(s.Period, now))
	}
	if !inactive(s.Staff) {
		preds = append(preds, func(sub *models.Submission) bool {
			return sub.PetugasPelaksana == s.Staff
		})
	}
	if !inactive(s.Supervisor) {
		preds = append(preds, func(sub *models.Submission) bool {
			return sub.Supervisor == s.Supervisor
		})
	}
	if !inactive(s.ContentType) {
		preds = append(preds, func(sub *models.Submission) bool {
			for _, item := range sub.ContentItems {
				if item != nil && strings.Contains(item.JenisKonten, s.ContentType) {
					return true
				}
			}
			return false
		})
	}
	if !inactive(s.MediaType) {
		preds = append(preds, func(sub *models.Submission) bool {
			for _, item := range sub.ContentItems {
				if item != nil && (contains(item.MediaPemerintah, s.MediaType) || contains(item.MediaMassa, s.MediaType)) {
					return true
				}
			}
			return false
		})
	}
	return preds
}

func searchPredicate(term string) predicate {
	term = strings.ToLower(strings.TrimSpace(term))
	return func(sub *models.Submission) bool {
		for _, field := range []string{sub.NoComtab, sub.Judul, sub.PetugasPelaksana, sub.Supervisor} {
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
		return false
	}
}

// periodPredicate keeps submissions whose tanggalSubmit falls in the window ending at
// now. "today" compares calendar days in now's location; submissions without a valid
// tanggalSubmit never match.
func periodPredicate(period string, now time.Time) predicate {
	if period == PeriodToday {
		y, m, d := now.Date()
		return func(sub *models.Submission) bool {
			if !sub.TanggalSubmit.Valid() {
				return false
			}
			sy, sm, sd := sub.TanggalSubmit.Time.In(now.Location()).Date()
			return sy == y && sm == m && sd == d
		}
	}
	days, ok := periodDays[period]
	if !ok {
		return func(*models.Submission) bool { return true }
	}
	cutoff := now.AddDate(0, 0, -days)
	return func(sub *models.Submission) bool {
		if !sub.TanggalSubmit.Valid() {
			return false
		}
		return !sub.TanggalSubmit.Time.Before(cutoff)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
