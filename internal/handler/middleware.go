package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prperemyshlev/videotube-service/internal/domain"
	"github.com/prperemyshlev/videotube-service/internal/service"
)

const (
	userContextKey        = "user"
	accessTokenContextKey = "access_token"
)

// extractAccessToken reads the access token from its cookie, falling back to a Bearer header
func extractAccessToken(c *gin.Context) string {
	if token, err := c.Cookie(accessTokenCookie); err == nil && token != "" {
		return token
	}

	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware verifies the access token and attaches the sanitized user to the context
func AuthMiddleware(accounts service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractAccessToken(c)

		user, err := accounts.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}

		c.Set(userContextKey, user)
		c.Set(accessTokenContextKey, token)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the user when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuthMiddleware(accounts service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractAccessToken(c)
		if token == "" {
			c.Next()
			return
		}

		user, err := accounts.Authenticate(c.Request.Context(), token)
		if err != nil {
			if service.KindOf(err) == service.KindInternal {
				respondError(c, err)
				return
			}
			c.Next()
			return
		}

		c.Set(userContextKey, user)
		c.Set(accessTokenContextKey, token)
		c.Next()
	}
}

func currentUser(c *gin.Context) (*domain.SanitizedUser, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*domain.SanitizedUser)
	return user, ok
}
