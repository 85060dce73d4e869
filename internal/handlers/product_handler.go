package handlers

import (
	"net/http"

	"bakaaro-pos/internal/middleware"
	"bakaaro-pos/internal/services"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	svc *services.ProductService
}

func NewProductHandler(svc *services.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// --- GET: List the branch catalog ---
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.svc.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// --- GET: Look a product up by barcode (scanner) ---
func (h *ProductHandler) Scan(c *gin.Context) {
	product, err := h.svc.FindByBarcode(c.Request.Context(), middleware.CurrentUser(c), c.Param("barcode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// --- POST: Add a new product ---
func (h *ProductHandler) Create(c *gin.Context) {
	var in services.ProductInput
	if !bindJSON(c, &in) {
		return
	}

	product, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// --- PUT: Replace the product fields ---
func (h *ProductHandler) Update(c *gin.Context) {
	var in services.ProductInput
	if !bindJSON(c, &in) {
		return
	}

	product, err := h.svc.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// --- DELETE: Remove a product ---
// Past sales keep their lines; the product shows as null there.
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Product deleted successfully"))
}
