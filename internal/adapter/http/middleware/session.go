package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hykura1501/e-commerce/internal/logging"
)

const (
	SessionHeader = "X-Cart-Session"
	sessionKey    = "cart.session_id"
)

// Session resolves the visitor session. A missing or malformed id is
// replaced by a fresh one, which is echoed so the client can keep it.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(SessionHeader, id)
		c.Set(sessionKey, id)
		logging.With(c, logging.From(c).With("session_id", id))
		c.Next()
	}
}

func SessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
