package middleware

import (
	"context"
	"net/http"
	"strings"

	"todo_webapp/internal/domain"

	"github.com/gin-gonic/gin"
)

// Authenticator resolves a bearer token to a session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Session, error)
}

// JWT rejects requests without a valid bearer token and stores user_id in the context.
func JWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, auth) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// OptionalJWT sets user_id when the token is valid and lets anonymous requests through.
func OptionalJWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, auth)
		c.Next()
	}
}

func authenticate(c *gin.Context, auth Authenticator) bool {
	sess, err := auth.Authenticate(c.Request.Context(), bearer(c.GetHeader("Authorization")))
	if err != nil || !sess.Authenticated() {
		return false
	}
	c.Set("user_id", sess.UserID)
	return true
}

func bearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
