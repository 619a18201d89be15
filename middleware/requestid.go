package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/seo-optimizer/insights/requestid"
)

// RequestID assigns a unique request ID to each request. An incoming
// X-Request-ID header is reused; otherwise a new UUID v4 is generated.
// The ID is echoed in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestid.Header)
		if id == "" {
			id = uuid.New().String()
		}

		c.Request = c.Request.WithContext(requestid.NewContext(c.Request.Context(), id))
		c.Header(requestid.Header, id)
		c.Next()
	}
}
