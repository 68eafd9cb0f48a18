package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pengajuan-konten-api/internal/config"
	"github.com/pengajuan-konten-api/internal/export"
	"github.com/pengajuan-konten-api/internal/filter"
	"github.com/pengajuan-konten-api/internal/service"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	loc      *time.Location
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		loc:      cfg.Server.Location(),
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// Export handles GET /v1/exports?format=...
// csv and xlsx render the filtered recap as a download; json and ndjson stream the
// whole submission snapshot.
func (h *ExportHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", string(export.FormatCSV))

	switch format {
	case "json", "ndjson":
		h.streamSnapshot(c, format)
		return
	}

	f, err := export.ParseFormat(format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: csv, xlsx, json, ndjson"})
		return
	}

	var state filter.State
	if err := c.ShouldBindQuery(&state); err != nil {
		writeBindingError(c, err)
		return
	}
	if err := state.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := contextWithTimeout(c, 2*time.Minute)
	defer cancel()

	// Buffered so a failed export still gets a JSON error instead of a partial file
	var buf bytes.Buffer
	rows, err := h.services.Export.WriteRecap(ctx, &buf, f, state)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("format", string(f)).
		Int("rows", rows).
		Int("bytes", buf.Len()).
		Msg("Recap export generated")

	filename := f.Filename(time.Now().In(h.loc))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("X-Export-Rows", strconv.Itoa(rows))
	c.Data(http.StatusOK, f.ContentType(), buf.Bytes())
}

func (h *ExportHandler) streamSnapshot(c *gin.Context, format string) {
	h.log.Info().Str("format", format).Msg("Starting snapshot export")

	if err := h.services.Export.StreamSnapshot(c.Request.Context(), c.Writer, format); err != nil {
		h.log.Error().Err(err).Str("format", format).Msg("Snapshot export failed")
		// Can't return error JSON after streaming has started
		return
	}
}
