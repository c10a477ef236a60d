package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aliskhannn/prok/internal/api/respond"
	"github.com/aliskhannn/prok/internal/auth"
)

const userIDKey = "user_id"

// TokenParser verifies access tokens.
type TokenParser interface {
	Parse(tokenString string) (*auth.Claims, error)
}

// bearer extracts the token from the Authorization header.
func bearer(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// RequireAuth rejects requests without a valid bearer token with 401.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := tokens.Parse(bearer(c))
		if err != nil {
			respond.Abort(c, http.StatusUnauthorized, err)
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

// OptionalAuth attaches the user of a valid token and lets anonymous
// requests through.
func OptionalAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := tokens.Parse(bearer(c)); err == nil {
			c.Set(userIDKey, claims.UserID)
		}
		c.Next()
	}
}

// UserID returns the authenticated user, or uuid.Nil for anonymous requests.
func UserID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil
	}

	id, _ := v.(uuid.UUID)
	return id
}
