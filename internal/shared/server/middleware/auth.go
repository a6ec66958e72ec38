package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/shared/auth"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/respond"
)

const (
	userIDKey   = "userId"
	identityKey = "identity"
)

// Auth verifies the session cookie and stores the identity in context.
func Auth(sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		id, ok := sessions.Verify(func(name string) (string, bool) {
			v, err := c.Cookie(name)
			if err != nil {
				return "", false
			}
			return v, true
		})
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Не авторизован", nil)
			return
		}

		c.Set(userIDKey, id.UserID)
		c.Set(identityKey, id)
		c.Next()
	}
}

// ForbidRoles rejects non-safe methods for the listed roles.
func ForbidRoles(roles ...string) gin.HandlerFunc {
	denied := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		denied[r] = struct{}{}
	}
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if _, ok := denied[IdentityFromContext(c).Role]; ok {
			respond.Error(c, http.StatusForbidden, "forbidden", "Недостаточно прав", nil)
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// IdentityFromContext fetches the session identity set by the auth middleware.
func IdentityFromContext(c *gin.Context) auth.Identity {
	if c == nil {
		return auth.Identity{}
	}
	val, _ := c.Get(identityKey)
	if id, ok := val.(auth.Identity); ok {
		return id
	}
	return auth.Identity{}
}

// SetIdentity stores an identity the same way Auth does. Used by tests and
// internal callers that authenticate by other means.
func SetIdentity(c *gin.Context, id auth.Identity) {
	c.Set(userIDKey, id.UserID)
	c.Set(identityKey, id)
}
