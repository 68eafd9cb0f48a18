package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/config"
	"github.com/pengajuan-konten-api/internal/intake"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/service"
	"github.com/pengajuan-konten-api/internal/wizard"
	"github.com/rs/zerolog"
)

// multipartMemory is kept in memory while parsing a form; larger parts spill to disk
const multipartMemory = 32 << 20

// PengajuanHandler handles the public submission form
type PengajuanHandler struct {
	services     *service.Services
	cfg          *config.Config
	materializer *attachment.Materializer
	log          zerolog.Logger
}

// NewPengajuanHandler creates a new PengajuanHandler
func NewPengajuanHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *PengajuanHandler {
	log = log.With().Str("handler", "pengajuan").Logger()
	return &PengajuanHandler{
		services:     services,
		cfg:          cfg,
		materializer: service.NewMaterializer(cfg.Upload, log),
		log:          log,
	}
}

// decodeSubmission reads a pengajuan sent either as JSON or as multipart form data
func (h *PengajuanHandler) decodeSubmission(c *gin.Context) (*models.Submission, error) {
	if h.cfg.Upload.MaxRequestSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Upload.MaxRequestSize)
	}

	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return intake.DecodeJSON(c.Request.Body)
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	form := c.Request.MultipartForm
	defer form.RemoveAll()

	return intake.DecodeMultipart(form, intake.MultipartOptions{
		MaxFileSize:  h.cfg.Upload.MaxFileSize,
		Materializer: h.materializer,
	})
}

func credentialsResponse(sub *models.Submission) gin.H {
	return gin.H{
		"id":            sub.ID,
		"no_comtab":     sub.NoComtab,
		"pin_sandi":     sub.Pin,
		"workflowStage": sub.WorkflowStage,
	}
}

// Create handles POST /api/pengajuan
func (h *PengajuanHandler) Create(c *gin.Context) {
	ctx, cancel := contextWithTimeout(c, 30*time.Second)
	defer cancel()

	sub, err := h.decodeSubmission(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	created, replayed, err := h.services.Submission.Create(ctx, sub, c.GetHeader("Idempotency-Key"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	if replayed {
		h.log.Info().Int64("id", created.ID).Msg("Returning existing pengajuan for idempotency key")
		c.JSON(http.StatusOK, credentialsResponse(created))
		return
	}
	c.JSON(http.StatusCreated, credentialsResponse(created))
}

// Update handles PUT /api/pengajuan/:id. The current PIN is sent in X-Pin; a pin in
// the body replaces it.
func (h *PengajuanHandler) Update(c *gin.Context) {
	ctx, cancel := contextWithTimeout(c, 30*time.Second)
	defer cancel()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	pin := c.GetHeader("X-Pin")
	if pin == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Pin header is required"})
		return
	}

	sub, err := h.decodeSubmission(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	updated, err := h.services.Submission.Update(ctx, id, pin, sub)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, credentialsResponse(updated))
}

type lookupRequest struct {
	NoComtab string `json:"noComtab" binding:"required"`
	Pin      string `json:"pin" binding:"required"`
}

// Lookup handles POST /api/pengajuan/lookup and returns the stored submission for
// editing
func (h *PengajuanHandler) Lookup(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	sub, err := h.services.Submission.Lookup(c.Request.Context(), req.NoComtab, req.Pin)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// GenerateCredentials handles POST /api/pengajuan/credentials
func (h *PengajuanHandler) GenerateCredentials(c *gin.Context) {
	creds, err := h.services.Submission.GenerateCredentials(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, creds)
}

// ValidateStep handles POST /api/pengajuan/validate?step=N&mode=new|edit
func (h *PengajuanHandler) ValidateStep(c *gin.Context) {
	step, err := strconv.Atoi(c.DefaultQuery("step", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "step must be a number"})
		return
	}
	mode := c.DefaultQuery("mode", "new")
	if mode != "new" && mode != "edit" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be one of: new, edit"})
		return
	}

	sub, err := h.decodeSubmission(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	errs, err := h.services.Submission.ValidateStep(c.Request.Context(), sub, wizard.Step(step), mode == "new")
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"step":   step,
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}
