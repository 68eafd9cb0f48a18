package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pengajuan-konten-api/internal/filter"
	"github.com/pengajuan-konten-api/internal/service"
	"github.com/rs/zerolog"
)

// ReviewHandler handles the admin recap and review endpoints
type ReviewHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(services *service.Services, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		services: services,
		log:      log.With().Str("handler", "review").Logger(),
	}
}

func submissionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// List handles GET /v1/submissions
func (h *ReviewHandler) List(c *gin.Context) {
	var state filter.State
	if err := c.ShouldBindQuery(&state); err != nil {
		writeBindingError(c, err)
		return
	}
	if err := state.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Submission.List(c.Request.Context(), state)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Detail handles GET /v1/submissions/:id
func (h *ReviewHandler) Detail(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}
	view, err := h.services.Submission.Detail(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Confirm handles POST /v1/submissions/:id/confirm
func (h *ReviewHandler) Confirm(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}
	sub, err := h.services.Review.Confirm(c.Request.Context(), id, sessionFrom(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ReviewItem handles POST /v1/submissions/:id/items/:item_id/review
func (h *ReviewHandler) ReviewItem(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}
	var d service.ItemDecision
	if err := c.ShouldBindJSON(&d); err != nil {
		writeBindingError(c, err)
		return
	}

	sub, err := h.services.Review.ReviewItem(c.Request.Context(), id, c.Param("item_id"), d, sessionFrom(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ValidatePublication handles POST /v1/submissions/:id/items/:item_id/publication
func (h *ReviewHandler) ValidatePublication(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}
	var d service.PublicationDecision
	if err := c.ShouldBindJSON(&d); err != nil {
		writeBindingError(c, err)
		return
	}

	sub, err := h.services.Review.ValidatePublication(c.Request.Context(), id, c.Param("item_id"), d, sessionFrom(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ValidateOutput handles POST /v1/submissions/:id/output-validation
func (h *ReviewHandler) ValidateOutput(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}
	sub, err := h.services.Review.ValidateOutput(c.Request.Context(), id, sessionFrom(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
