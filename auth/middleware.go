package auth

import (
	"net/http"
	"strings"

	"tambola/models"
	"tambola/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Middleware authenticates requests and loads the account into the gin
// context under "user".
type Middleware struct {
	issuer *TokenIssuer
	users  service.UserService
}

// NewMiddleware creates the authentication middleware
func NewMiddleware(issuer *TokenIssuer, users service.UserService) *Middleware {
	return &Middleware{issuer: issuer, users: users}
}

// Handler validates the bearer token, resolves the account and rejects
// banned users. Websocket clients cannot set headers, so a token query
// parameter is accepted as a fallback.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		claims, err := m.issuer.Verify(tokenString)
		if err != nil {
			log.WithError(err).Debug("Token verification failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := m.users.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown account"})
			return
		}
		if user.IsBanned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account is banned"})
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// CurrentUser pulls the authenticated account from the gin context
func CurrentUser(c *gin.Context) *models.User {
	return c.MustGet("user").(*models.User)
}
