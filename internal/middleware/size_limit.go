package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MultipartOverhead is the slack allowed on top of the payload for multipart boundaries and headers
const MultipartOverhead = int64(8 * 1024)

// SizeLimit function is a middleware that caps the request body at maxBodyBytes plus MultipartOverhead.
// Reads past the cap fail with *http.MaxBytesError, which handlers answer with 413.
func SizeLimit(maxBodyBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes+MultipartOverhead)
		c.Next()
	}
}
