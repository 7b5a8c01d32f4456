package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	// requestIDMaxLen ограничивает внешний id, чтобы он не раздувал логи
	requestIDMaxLen = 64
)

// RequestID берёт X-Request-ID из запроса или генерирует UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(RequestIDKey, rid)
		c.Header(requestIDHeader, rid)

		c.Next()
	}
}
