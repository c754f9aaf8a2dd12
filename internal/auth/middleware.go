package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ownerKey = "userId"

// RequireOwner rejects requests without a valid bearer token and stores
// the owner id in the context for handlers.
func RequireOwner(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		claims, err := tokens.Validate(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(ownerKey, claims.UserID)
		c.Next()
	}
}

// OptionalOwner sets the owner id when a valid token is present and lets
// anonymous requests through untouched.
func OptionalOwner(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c); ok {
			if claims, err := tokens.Validate(tokenString); err == nil {
				c.Set(ownerKey, claims.UserID)
			}
		}
		c.Next()
	}
}

// OwnerID returns the authenticated owner id, or "" for anonymous requests.
func OwnerID(c *gin.Context) string {
	return c.GetString(ownerKey)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
