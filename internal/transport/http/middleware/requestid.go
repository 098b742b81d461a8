package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/marketboard/ad-scheduler/internal/requestid"
)

// RequestID propagates the caller's correlation ID, minting one when
// the request arrives without it. The ID lands in the request context
// and is echoed back in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestid.Header)
		if id == "" {
			id = requestid.New()
		}

		c.Request = c.Request.WithContext(requestid.Into(c.Request.Context(), id))
		c.Header(requestid.Header, id)
		c.Next()
	}
}
