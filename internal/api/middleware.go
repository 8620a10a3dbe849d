package api

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets conservative response headers on every route.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// BodySizeLimit rejects request bodies larger than max bytes. Hook
// payloads are small; anything huge is either a bug or an attack.
func BodySizeLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			Error(c, http.StatusRequestEntityTooLarge, "request body too large")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}

// LoopbackOnly rejects requests that do not originate from localhost.
// The hook API is a local trust boundary, not a network service.
func LoopbackOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			Error(c, http.StatusForbidden, "hook API is loopback only")
			c.Abort()
			return
		}
		c.Next()
	}
}
