// Package api holds shared HTTP plumbing for the hook server: the
// response envelope and middleware.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope for every JSON endpoint.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success writes a 200 envelope with the given data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Error writes an error envelope with the given status.
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}
