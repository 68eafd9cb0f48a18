// Package workflow derives the workflow stage of a submission from its confirmation
// flag and the review and publication state of its content items.
package workflow

import (
	"github.com/pengajuan-konten-api/internal/models"
)

// Stage is the derived position of a submission in the review workflow
type Stage string

const (
	StageSubmitted  Stage = "submitted"
	StageReview     Stage = "review"
	StageValidation Stage = "validation"
	StageCompleted  Stage = "completed"
)

// Stages lists every stage in workflow order
var Stages = []Stage{StageSubmitted, StageReview, StageValidation, StageCompleted}

// Valid reports whether s names a known stage
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// Completion tells apart the two ways a submission reaches StageCompleted
type Completion string

const (
	CompletionNone Completion = ""
	// CompletionAllRejected means every item was rejected, nothing to publish
	CompletionAllRejected Completion = "all_rejected"
	// CompletionValidated means every approved item has its publication validated
	CompletionValidated Completion = "validated"
)

// Assessment is the derived stage plus, for completed submissions, why
type Assessment struct {
	Stage      Stage      `json:"stage"`
	Completion Completion `json:"completion,omitempty"`
}

// Evaluate derives the workflow stage. It reads only IsConfirmed and the items'
// status and isTayang fields and never mutates s.
func Evaluate(s *models.Submission) Assessment {
	if s == nil || !s.IsConfirmed {
		return Assessment{Stage: StageSubmitted}
	}
	if len(s.ContentItems) == 0 {
		return Assessment{Stage: StageReview}
	}

	approved := 0
	awaitingValidation := 0
	for _, item := range s.ContentItems {
		if item == nil || !item.Status.Decided() {
			return Assessment{Stage: StageReview}
		}
		if item.Status == models.ItemApproved {
			approved++
			if item.IsTayang == nil {
				awaitingValidation++
			}
		}
	}

	if approved == 0 {
		return Assessment{Stage: StageCompleted, Completion: CompletionAllRejected}
	}
	if awaitingValidation > 0 {
		return Assessment{Stage: StageValidation}
	}
	return Assessment{Stage: StageCompleted, Completion: CompletionValidated}
}

// StageOf returns only the stage of Evaluate
func StageOf(s *models.Submission) Stage {
	return Evaluate(s).Stage
}

// Annotate stores the derived stage on the submission's WorkflowStage field, which is
// never trusted from input.
func Annotate(s *models.Submission) {
	if s == nil {
		return
	}
	s.WorkflowStage = string(StageOf(s))
}
