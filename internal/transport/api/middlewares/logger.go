package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger пишет в лог каждый запрос с его статусом, временем обработки и ошибками.
func Logger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := l.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"clientIP":  c.ClientIP(),
			"requestID": c.GetString(RequestIDKey),
		})
		if identity := CurrentIdentity(c); identity.UserID != 0 {
			entry = entry.WithField("userID", identity.UserID)
		}

		switch {
		case len(c.Errors) > 0 && c.Writer.Status() >= 500:
			entry.WithField("errors", c.Errors.String()).Error("HTTP Request")
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Warn("HTTP Request")
		default:
			entry.Info("HTTP Request")
		}
	}
}
