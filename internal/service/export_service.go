package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pengajuan-konten-api/internal/export"
	"github.com/pengajuan-konten-api/internal/filter"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/repository"
	"github.com/pengajuan-konten-api/internal/workflow"
	"github.com/rs/zerolog"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	loc   *time.Location
	now   func() time.Time
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, loc *time.Location, now func() time.Time, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		loc:   loc,
		now:   now,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// WriteRecap writes the filtered recap as one row per content item and returns the
// number of rows. Nothing is written when encoding fails.
func (s *exportService) WriteRecap(ctx context.Context, w io.Writer, format export.Format, state filter.State) (int, error) {
	if err := state.Validate(); err != nil {
		return 0, err
	}
	all, err := s.repos.Submission.List(ctx)
	if err != nil {
		return 0, err
	}
	filtered := filter.Apply(all, state, s.now().In(s.loc))
	rows := export.Flatten(filtered)

	enc := &export.Encoder{Format: format, Location: s.loc}
	written, err := enc.Encode(w, rows)
	if err != nil {
		s.log.Error().Err(err).Str("format", string(format)).Msg("Recap export failed")
		return 0, fmt.Errorf("failed to encode recap: %w", err)
	}

	s.log.Info().
		Str("format", string(format)).
		Int("submissions", len(filtered)).
		Int("rows", len(rows)).
		Int64("bytes", written).
		Msg("Recap export completed")
	return len(rows), nil
}

// StreamSnapshot streams every stored submission in the shape the browser-local store
// kept, so the output can be imported again
func (s *exportService) StreamSnapshot(ctx context.Context, w http.ResponseWriter, format string) error {
	s.log.Info().Str("format", format).Msg("Starting snapshot export")

	switch format {
	case "ndjson":
		return s.streamNDJSON(ctx, w)
	case "json", "":
		return s.streamJSON(ctx, w)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func (s *exportService) streamNDJSON(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename=submissions.ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := s.repos.Submission.StreamAll(ctx, func(sub *models.Submission) error {
		workflow.Annotate(sub)
		data, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	s.log.Info().Int("count", count).Msg("Snapshot export completed")
	return err
}

func (s *exportService) streamJSON(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=submissions.json")

	if _, err := w.Write([]byte("[")); err != nil {
		return err
	}
	first := true
	count := 0

	err := s.repos.Submission.StreamAll(ctx, func(sub *models.Submission) error {
		if !first {
			if _, err := w.Write([]byte(",")); err != nil {
				return err
			}
		}
		first = false

		workflow.Annotate(sub)
		data, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		count++
		return err
	})

	if _, werr := w.Write([]byte("]")); werr != nil && err == nil {
		err = werr
	}
	s.log.Info().Int("count", count).Msg("Snapshot export completed")
	return err
}

// GetCount returns the number of stored submissions
func (s *exportService) GetCount(ctx context.Context) (int, error) {
	return s.repos.Submission.Count(ctx)
}
