package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"grocery-storefront/internal/backend"
	"grocery-storefront/internal/cartstore"
	"grocery-storefront/internal/domain"
	"grocery-storefront/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "session_id"
	sessionCtxKey = "storefront.session"
)

type startSessionRequest struct {
	Access  string `json:"access" binding:"required"`
	Refresh string `json:"refresh"`
}

type sessionResponse struct {
	SessionID string          `json:"session_id"`
	Cart      cartstore.State `json:"cart"`
	Listing   session.View    `json:"listing"`
}

// sessionMiddleware resolves the caller's session from the X-Session-ID
// header, falling back to the session_id cookie.
func sessionMiddleware(sessions SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(sessionHeader))
		if id == "" {
			if cookie, err := c.Cookie(sessionCookie); err == nil {
				id = cookie
			}
		}
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}
		sess, err := sessions.Get(id)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
			return
		}
		c.Set(sessionCtxKey, sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionCtxKey).(*session.Session)
}

func (h *handlers) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "access token is required"})
		return
	}
	sess, err := h.deps.Sessions.Start(c.Request.Context(), backend.Tokens{Access: req.Access, Refresh: req.Refresh})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrMissingToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, session.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired credentials"})
		default:
			h.logger.Error("start session failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": domain.UserMessage(err)})
		}
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.ID, 0, "/", "", false, true)
	c.Header(sessionHeader, sess.ID)
	c.JSON(http.StatusCreated, sessionResponse{
		SessionID: sess.ID,
		Cart:      sess.Cart.State(),
		Listing:   sess.Listing.View(),
	})
}

func (h *handlers) endSession(c *gin.Context) {
	sess := currentSession(c)
	if err := h.deps.Sessions.End(sess.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		h.logger.Error("end session failed", zap.String("session_id", sess.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not end session"})
		return
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}
