package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/intake"
	"github.com/pengajuan-konten-api/internal/service"
	"github.com/pengajuan-konten-api/internal/validation"
	"github.com/pengajuan-konten-api/internal/wizard"
	"github.com/rs/zerolog"
)

// writeError maps service errors onto HTTP responses. Unknown errors are logged and
// reported as 500 without their message.
func writeError(c *gin.Context, log zerolog.Logger, err error) {
	var failed *service.ValidationFailedError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &failed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"errors": failed.Errors,
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "pengajuan not found"})
	case errors.Is(err, service.ErrInvalidPin):
		c.JSON(http.StatusForbidden, gin.H{"error": "no comtab atau PIN salah"})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrNotConfirmed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, attachment.ErrFileTooLarge), errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, intake.ErrMalformed), errors.Is(err, attachment.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wizard.ErrCredentialsExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// writeBindingError reports a request body or query that failed gin binding
func writeBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "invalid request",
		"errors": validation.FromBindingError(err),
	})
}
