package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// AccessLog writes one line per request. Level follows the status code.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("remote_ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
		}
		if c.Request.URL.RawQuery != "" {
			fields = append(fields, slog.String("query", c.Request.URL.RawQuery))
		}
		if user := CurrentUser(c); user != nil {
			fields = append(fields, slog.String("user_id", user.ID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, slog.String("error", c.Errors.String()))
		}

		level := slog.LevelInfo
		if status >= 400 {
			level = slog.LevelWarn
		}
		if status >= 500 {
			level = slog.LevelError
		}
		Logger(c).LogAttrs(c.Request.Context(), level, "HTTP request", fields...)
	}
}
