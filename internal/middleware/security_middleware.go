package middleware

import (
	"strings"

	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/auth"
	"bakaaro-pos/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	HeaderUserID = "X-User-ID"

	userKey = "user"
)

// Authenticate resolves the caller and stores the user for the handlers.
// The id comes from a bearer token; with allowUserIDHeader the legacy
// X-User-ID header is accepted when no token is sent.
func Authenticate(resolver *auth.Resolver, tokens *auth.TokenService, allowUserIDHeader bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID string

		header := c.GetHeader("Authorization")
		switch {
		case header != "":
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				RespondError(c, apperr.Unauthenticated("Authorization header must start with Bearer"))
				return
			}
			claims, err := tokens.Validate(strings.TrimSpace(tokenString))
			if err != nil {
				RespondError(c, apperr.Unauthenticated("Invalid or expired token"))
				return
			}
			userID = claims.Subject
		case allowUserIDHeader:
			userID = strings.TrimSpace(c.GetHeader(HeaderUserID))
		default:
			RespondError(c, apperr.Unauthenticated("Authorization header is required"))
			return
		}

		// Re-read on every request: deactivation and role changes apply at once.
		user, err := resolver.Resolve(c.Request.Context(), userID)
		if err != nil {
			RespondError(c, err)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by Authenticate, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// RequireAdmin lets only admins through.
func RequireAdmin() gin.HandlerFunc {
	return requireRole(auth.RequireAdmin)
}

// RequireStaffOrAdmin lets any known role through.
func RequireStaffOrAdmin() gin.HandlerFunc {
	return requireRole(auth.RequireStaffOrAdmin)
}

func requireRole(check func(*models.User) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := check(CurrentUser(c)); err != nil {
			RespondError(c, err)
			return
		}
		c.Next()
	}
}
