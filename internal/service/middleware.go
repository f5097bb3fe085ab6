package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/contact-manager/internal/logging"
)

// requestIDHeader carries the request id in both directions. An id sent by a proxy in front of
// the service is kept, otherwise a new one is generated.
const requestIDHeader = "X-Request-ID"

// requestID stores the request id in the request context so that logging.FromContext adds it to
// every log entry of the request.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger writes one structured log line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger := logging.FromContext(c.Request.Context())
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request", args...)
		} else {
			logger.Info("request", args...)
		}
	}
}

// recovered answers a request whose handler panicked. The process keeps running.
func (s *Service) recovered(c *gin.Context, err any) {
	logging.FromContext(c.Request.Context()).Error("panic while handling request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"panic", err,
	)
	if isAPI(c) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}
	s.render(c, http.StatusInternalServerError, "index.html", gin.H{"Total": 0},
		failure("An internal error occurred. Please try again later."))
	c.Abort()
}

func isAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}
