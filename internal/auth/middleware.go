package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/frankenlab/frankend/pkg/types"
)

const userContextKey = "auth.user"

// Middleware returns a gin middleware that requires a valid bearer token and
// stores the authenticated user on the request context.
func Middleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		user, err := service.Authenticate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user stored by Middleware. The second
// return is false on routes that skipped authentication.
func CurrentUser(c *gin.Context) (*types.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*types.User)
	return user, ok
}
