package handlers

import (
	"net/http"
	"strings"

	"bakaaro-pos/internal/ai"
	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AskRequest struct {
	Message string `json:"message"`
}

type AIHandler struct {
	assistant *ai.Assistant
}

func NewAIHandler(assistant *ai.Assistant) *AIHandler {
	return &AIHandler{assistant: assistant}
}

func (h *AIHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		respondError(c, apperr.InvalidInput("Message is required"))
		return
	}

	reply, err := h.assistant.Ask(c.Request.Context(), middleware.CurrentUser(c), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
