package handlers

import (
	"net/http"

	"bakaaro-pos/internal/middleware"
	"bakaaro-pos/internal/services"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	svc *services.ReportService
}

func NewReportHandler(svc *services.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// --- GET: /api/reports/sales?from=YYYY-MM-DD&to=YYYY-MM-DD ---
func (h *ReportHandler) Sales(c *gin.Context) {
	summary, err := h.svc.SalesSummary(c.Request.Context(), middleware.CurrentUser(c), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- GET: /api/reports/valuation ---
// Monetary value of the branch inventory, grouped by category.
func (h *ReportHandler) Valuation(c *gin.Context) {
	valuation, err := h.svc.StockValuation(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, valuation)
}
