package filter

import (
	"sort"

	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/workflow"
)

// EmptyState tells the list view which placeholder to show
type EmptyState string

const (
	EmptyNone     EmptyState = ""
	EmptyNoData   EmptyState = "no_data"
	EmptyNotFound EmptyState = "not_found"
)

// Summary holds the aggregate counts shown above the recap list
type Summary struct {
	Total         int                    `json:"total"`
	Filtered      int                    `json:"filtered"`
	ByStage       map[workflow.Stage]int `json:"byStage"`
	ByContentType map[string]int         `json:"byContentType"`
	Items         ItemCounts             `json:"items"`
	EmptyState    EmptyState             `json:"emptyState,omitempty"`
}

// ItemCounts counts content items of the filtered submissions
type ItemCounts struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	Approved     int `json:"approved"`
	Rejected     int `json:"rejected"`
	Published    int `json:"published"`
	NotPublished int `json:"notPublished"`
}

// Summarize computes the counts for the filtered list. all is the unfiltered list and
// only decides the empty state: no data at all versus nothing matching.
func Summarize(all, filtered []*models.Submission) Summary {
	sum := Summary{
		Total:         len(all),
		Filtered:      len(filtered),
		ByStage:       make(map[workflow.Stage]int, len(workflow.Stages)),
		ByContentType: make(map[string]int),
	}
	for _, st := range workflow.Stages {
		sum.ByStage[st] = 0
	}

	for _, sub := range filtered {
		if sub == nil {
			continue
		}
		sum.ByStage[workflow.StageOf(sub)]++
		for _, item := range sub.ContentItems {
			if item == nil {
				continue
			}
			sum.ByContentType[item.JenisKonten]++
			sum.Items.Total++
			switch item.EffectiveStatus() {
			case models.ItemApproved:
				sum.Items.Approved++
				if item.IsTayang != nil {
					if *item.IsTayang {
						sum.Items.Published++
					} else {
						sum.Items.NotPublished++
					}
				}
			case models.ItemRejected:
				sum.Items.Rejected++
			default:
				sum.Items.Pending++
			}
		}
	}

	switch {
	case len(all) == 0:
		sum.EmptyState = EmptyNoData
	case len(filtered) == 0:
		sum.EmptyState = EmptyNotFound
	}
	return sum
}

// Options lists the distinct values the staff, supervisor, content type and media dropdowns offer
type Options struct {
	Staff        []string `json:"staff"`
	Supervisors  []string `json:"supervisors"`
	ContentTypes []string `json:"contentTypes"`
	Media        []string `json:"media"`
}

// OptionsOf collects sorted distinct dropdown values from the unfiltered list
func OptionsOf(subs []*models.Submission) Options {
	staff := map[string]bool{}
	supervisors := map[string]bool{}
	types := map[string]bool{}
	media := map[string]bool{}
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		staff[sub.PetugasPelaksana] = true
		supervisors[sub.Supervisor] = true
		for _, item := range sub.ContentItems {
			if item == nil {
				continue
			}
			types[item.JenisKonten] = true
			for _, m := range item.MediaPemerintah {
				media[m] = true
			}
			for _, m := range item.MediaMassa {
				media[m] = true
			}
		}
	}
	return Options{
		Staff:        keys(staff),
		Supervisors:  keys(supervisors),
		ContentTypes: keys(types),
		Media:        keys(media),
	}
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
