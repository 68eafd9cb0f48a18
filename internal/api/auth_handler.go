package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pengajuan-konten-api/internal/auth"
	"github.com/rs/zerolog"
)

const sessionKey = "session"

// AuthHandler handles the admin login endpoints
type AuthHandler struct {
	sessions *auth.Manager
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(sessions *auth.Manager, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	token, sess, err := h.sessions.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.log.Warn().Str("username", req.Username).Str("client_ip", c.ClientIP()).Msg("Login rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "username atau password salah"})
			return
		}
		writeError(c, h.log, err)
		return
	}

	h.log.Info().Str("username", sess.Username).Str("session_id", sess.ID).Msg("Admin logged in")
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"username":   sess.Username,
		"expires_at": sess.ExpiresAt.Format(time.RFC3339),
	})
}

// Session handles GET /v1/auth/session and reports the remaining lifetime
func (h *AuthHandler) Session(c *gin.Context) {
	sess := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"username":          sess.Username,
		"issued_at":         sess.IssuedAt.Format(time.RFC3339),
		"expires_at":        sess.ExpiresAt.Format(time.RFC3339),
		"remaining_seconds": int64(sess.Remaining(time.Now()).Seconds()),
	})
}

// sessionMiddleware rejects requests without a valid admin bearer token
func sessionMiddleware(sessions *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		sess, err := sessions.Parse(header)
		if err != nil {
			msg := "invalid session"
			if errors.Is(err, auth.ErrSessionExpired) {
				msg = "session expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *auth.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*auth.Session)
	return sess
}
