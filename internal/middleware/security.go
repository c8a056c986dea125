// Package middleware holds the gin middleware shared by the HTTP surface.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// CorrelationIDKey is the gin context key holding the request's correlation ID
const CorrelationIDKey = "correlation_id"

// SecurityHeaders adds security headers to all responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		// The API only serves JSON; nothing should be rendered from it
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Referrer-Policy", "no-referrer")
		// Client health data
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}

// CorrelationID tags each request with an ID, reusing X-Correlation-ID or X-Request-ID when sent
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = c.GetHeader("X-Request-ID")
		}
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(CorrelationIDKey, correlationID)
		c.Header("X-Correlation-ID", correlationID)

		c.Next()
	}
}

// AccessLogger writes one structured entry per request. Server errors log at error,
// client errors at warn.
func AccessLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"correlation_id": c.GetString(CorrelationIDKey),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"query":          c.Request.URL.RawQuery,
			"status":         status,
			"latency":        time.Since(start).String(),
			"client_ip":      c.ClientIP(),
			"response_size":  c.Writer.Size(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

// Recovery turns a handler panic into a coded 500 response
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"correlation_id": c.GetString(CorrelationIDKey),
			"path":           c.Request.URL.Path,
			"panic":          recovered,
		}).Error("Handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      "Internal server error",
			"code":       domain.ErrInternalServer,
			"request_id": c.GetString(CorrelationIDKey),
		})
	})
}
