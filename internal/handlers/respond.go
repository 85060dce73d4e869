// Package handlers exposes the POS services over HTTP.
package handlers

import (
	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/middleware"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes the body into dest or writes a 400.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		middleware.RespondError(c, apperr.InvalidInput("Invalid input"))
		return false
	}
	return true
}

func respondError(c *gin.Context, err error) {
	middleware.RespondError(c, err)
}

func message(text string) gin.H {
	return gin.H{"message": text}
}
