package handlers

import (
	"net/http"

	"bakaaro-pos/internal/middleware"
	"bakaaro-pos/internal/services"

	"github.com/gin-gonic/gin"
)

type BranchHandler struct {
	svc *services.BranchService
}

func NewBranchHandler(svc *services.BranchService) *BranchHandler {
	return &BranchHandler{svc: svc}
}

func (h *BranchHandler) List(c *gin.Context) {
	branches, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, branches)
}

func (h *BranchHandler) Create(c *gin.Context) {
	var in services.BranchInput
	if !bindJSON(c, &in) {
		return
	}

	branch, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, branch)
}

func (h *BranchHandler) Update(c *gin.Context) {
	var in services.BranchInput
	if !bindJSON(c, &in) {
		return
	}

	branch, err := h.svc.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, branch)
}

func (h *BranchHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Branch deleted successfully"))
}

func (h *BranchHandler) ToggleStatus(c *gin.Context) {
	branch, err := h.svc.ToggleStatus(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, branch)
}
