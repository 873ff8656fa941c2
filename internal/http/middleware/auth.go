package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"student-violation-service/internal/auth"
	"student-violation-service/internal/model"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
	actorContextKey     = "actor"
)

// Auth validates the bearer token and attaches the caller identity to the
// request context. Handlers pull it out with MustActor and pass it into the
// services explicitly; nothing below the handler layer reads request state.
func Auth(parser *auth.Parser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(authorizationHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authorization header missing"})
			return
		}
		parts := strings.SplitN(raw, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid authorization header"})
			return
		}
		claims, err := parser.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
			return
		}
		c.Set(actorContextKey, claims.Actor())
		c.Next()
	}
}

func MustActor(c *gin.Context) (model.Actor, bool) {
	value, exists := c.Get(actorContextKey)
	if !exists {
		return model.Actor{}, false
	}
	actor, ok := value.(model.Actor)
	if !ok {
		return model.Actor{}, false
	}
	return actor, true
}

// SetActor is a test hook for injecting an identity without a token.
func SetActor(c *gin.Context, actor model.Actor) {
	c.Set(actorContextKey, actor)
}
