package auth

import (
	"net/http"

	"projecttracker/internal/session"

	"github.com/gin-gonic/gin"
)

// Middleware rejects requests without a valid session token and stores the
// session in the request context for handlers.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		id, err := ParseSessionToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		sess := &session.Session{UserID: id.UserID, Email: id.Email, Name: id.Name}
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		c.Next()
	}
}
