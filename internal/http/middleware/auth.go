// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller. Authenticate runs globally and never
// rejects an anonymous request: room listing and reference content are
// public. RequireUser guards the routes that need an identity.
//
// With a token manager configured, identity comes from a Bearer JWT. Without
// one (local development), the X-User-ID header is trusted as-is.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/medic-community-backend/internal/auth"
)

const (
	ctxKeyUserID = "userID"
	ctxKeyRole   = "role"

	// HeaderUserID carries the caller in development mode.
	HeaderUserID = "X-User-ID"
)

// TokenValidator validates bearer tokens. *auth.Manager satisfies it.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// UserID returns the authenticated caller, or "".
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Authenticate attaches the caller's id under the "userID" context key.
//
// Behavior:
//   - tokens != nil: a present Authorization header must hold a valid Bearer
//     token, otherwise 401. No header means anonymous.
//   - tokens == nil: X-User-ID (trimmed) is used when present.
func Authenticate(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
				c.Set(ctxKeyUserID, uid)
			}
			c.Next()
			return
		}

		hdr := strings.TrimSpace(c.GetHeader("Authorization"))
		if hdr == "" {
			c.Next()
			return
		}
		scheme, token, found := strings.Cut(hdr, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c, "malformed Authorization header")
			return
		}
		claims, err := tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			lg := LoggerFrom(c)
			lg.Debug().Err(err).Msg("bearer token rejected")
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ctxKeyUserID, claims.Subject)
		if claims.Role != "" {
			c.Set(ctxKeyRole, claims.Role)
		}
		c.Next()
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="medic-community"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
