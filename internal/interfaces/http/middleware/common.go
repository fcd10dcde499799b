// Package middleware provides HTTP middleware for the portal backend.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys and headers shared by the middleware chain
const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"

	// MaxRequestIDLength caps client supplied request IDs
	MaxRequestIDLength = 128
)

// RequestID adds a unique request ID to each request. A client supplied
// X-Request-ID is reused when it is not oversized.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > MaxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// getRequestID retrieves the request ID set by RequestID
func getRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// abortWithError answers with the standard error envelope
func abortWithError(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"success": false,
		"message": message,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if id := getRequestID(c); id != "" {
		body["error"].(gin.H)["request_id"] = id
	}
	c.AbortWithStatusJSON(status, body)
}

// NoRoute answers unknown routes with the standard error envelope
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "ERR_NOT_FOUND", "Route not found")
	}
}
