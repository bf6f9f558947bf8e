package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hykura1501/e-commerce/internal/logging"
	"github.com/hykura1501/e-commerce/internal/security"
)

const userKey = "cart.user_id"

// Authn identifies the shopper from an optional bearer token. Requests
// without one pass through as anonymous; a bad token is rejected.
type Authn struct {
	tokens *security.Tokens
}

func NewAuthn(tokens *security.Tokens) *Authn {
	return &Authn{tokens: tokens}
}

func (a *Authn) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			unauth(c, "invalid_request", "malformed authorization header")
			return
		}
		claims, err := a.tokens.Verify(raw)
		if err != nil {
			logging.From(c).Warn("bearer rejected", "err", err)
			unauth(c, "invalid_token", "invalid jwt")
			return
		}
		c.Set(userKey, claims.Subject)
		logging.With(c, logging.From(c).With("user_id", claims.Subject))
		c.Next()
	}
}

// UserID is the authenticated user of the request, or "".
func UserID(c *gin.Context) string {
	return c.GetString(userKey)
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code, "message": desc})
}
