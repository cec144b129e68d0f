package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// requestIDMaxLen bounds client supplied ids, they end up in logs
const requestIDMaxLen = 64

// RequestID reuses X-Request-ID or generates a UUID, and echoes it back
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header("X-Request-ID", rid)

		c.Next()
	}
}
