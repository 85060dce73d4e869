package handlers

import (
	"net/http"

	"bakaaro-pos/internal/middleware"
	"bakaaro-pos/internal/services"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	svc *services.SaleService
}

func NewSaleHandler(svc *services.SaleService) *SaleHandler {
	return &SaleHandler{svc: svc}
}

func (h *SaleHandler) List(c *gin.Context) {
	sales, err := h.svc.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

// Create - checkout of a cart
func (h *SaleHandler) Create(c *gin.Context) {
	var in services.SaleInput
	if !bindJSON(c, &in) {
		return
	}

	sale, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func (h *SaleHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Sale deleted successfully"))
}
