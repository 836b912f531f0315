package utils

import (
	"time"

	"github.com/gin-gonic/gin"
)

// SuccessResponse wraps a successful API payload.
func SuccessResponse(message string, data interface{}) gin.H {
	return gin.H{
		"success":   true,
		"message":   message,
		"data":      data,
		"timestamp": time.Now().UTC(),
	}
}

// ErrorResponse wraps a failed API payload with a specific reason.
func ErrorResponse(message, detail string) gin.H {
	return gin.H{
		"success":   false,
		"message":   message,
		"error":     detail,
		"timestamp": time.Now().UTC(),
	}
}
