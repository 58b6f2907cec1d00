package api

import (
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	adminRole = models.RoleAdmin

	ctxUser  = "user"
	ctxToken = "token"

	sessionHeader = "X-Session-ID"
)

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// requireAuth rejects requests without a valid bearer token
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			h.respondError(c, apperr.AuthError(apperr.Unauthorized, apperr.AuthInvalidCredential, "Authentication required."))
			return
		}
		user, err := h.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Set(ctxUser, user)
		c.Set(ctxToken, token)
		c.Next()
	}
}

// optionalAuth attaches the user when a valid token is sent and ignores bad ones
func (h *Handler) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := h.auth.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(ctxUser, user)
				c.Set(ctxToken, token)
			}
		}
		c.Next()
	}
}

// requireRole must run after requireAuth
func (h *Handler) requireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.Role.AtLeast(role) {
			h.respondError(c, apperr.AuthError(apperr.Forbidden, apperr.AuthInsufficientPerm, ""))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

const (
	userSessionPrefix  = "user:"
	guestSessionPrefix = "guest:"
)

// sessionID keys the cart: signed-in users share one cart across devices,
// guests carry theirs in X-Session-ID. A guest without one is issued a new id.
// Guest ids always live under guest: so no header can name a user's cart.
func sessionID(c *gin.Context) string {
	if user := currentUser(c); user != nil {
		return userSessionPrefix + user.ID
	}
	sid := strings.TrimSpace(c.GetHeader(sessionHeader))
	switch {
	case sid == "" || sid == guestSessionPrefix:
		sid = guestSessionPrefix + uuid.New().String()
	case !strings.HasPrefix(sid, guestSessionPrefix):
		sid = guestSessionPrefix + sid
	}
	c.Header(sessionHeader, sid)
	return sid
}
