package middleware

import (
	"log/slog"

	"bakaaro-pos/internal/apperr"

	"github.com/gin-gonic/gin"
)

// RespondError writes err as {"error": ...} with the status of its kind and
// aborts the chain. Internal errors also carry "details" and are logged.
func RespondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	body := gin.H{"error": apperr.Message(err)}

	if apperr.KindOf(err) == apperr.KindInternal {
		body["details"] = err.Error()
		Logger(c).ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
