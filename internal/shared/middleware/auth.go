package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskboard/server/internal/module/auth"
	"github.com/taskboard/server/internal/shared/response"
)

const (
	// UserIDKey is the gin context key for the authenticated user id.
	UserIDKey = "user_id"
	// EmailKey is the gin context key for the authenticated email.
	EmailKey = "email"

	bearerPrefix = "Bearer "
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller identity on the context.
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.Abort()
			response.Unauthorized(c, "authorization header required")
			return
		}

		claims, err := validator.ValidateToken(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			c.Abort()
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Next()
	}
}

// GetUserID returns the authenticated user id, or uuid.Nil.
func GetUserID(c *gin.Context) uuid.UUID {
	if val, exists := c.Get(UserIDKey); exists {
		if id, ok := val.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
