package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/auth"
	"bakaaro-pos/internal/config"
	"bakaaro-pos/internal/database"
	"bakaaro-pos/internal/models"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// SalesSummary holds the dashboard figures of one branch.
type SalesSummary struct {
	Branch          string                  `json:"branch"`
	From            string                  `json:"from,omitempty"`
	To              string                  `json:"to,omitempty"`
	TotalRevenue    float64                 `json:"totalRevenue"`
	TotalSales      int64                   `json:"totalSales"`
	UnitsSold       int64                   `json:"unitsSold"`
	ByPaymentMethod []database.PaymentTotal `json:"byPaymentMethod"`
	TopSelling      []database.ProductSales `json:"topSelling"`
	RecentSales     []models.Sale           `json:"recentSales"`
}

// ValuationItem is a single row of the valuation table.
type ValuationItem struct {
	ProductID  string  `json:"productId"`
	Name       string  `json:"name"`
	Barcode    string  `json:"barcode"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	TotalValue float64 `json:"totalValue"`
}

// CategoryGroup is one category of the valuation table.
type CategoryGroup struct {
	Category string          `json:"category"`
	Items    []ValuationItem `json:"items"`
	Subtotal float64         `json:"subtotal"`
}

type StockValuation struct {
	Branch            string           `json:"branch"`
	Categories        []CategoryGroup  `json:"categories"`
	GrandTotal        float64          `json:"grandTotal"`
	LowStockThreshold int              `json:"lowStockThreshold"`
	LowStock          []models.Product `json:"lowStock"`
}

type ReportService struct {
	db  *gorm.DB
	cfg config.Reports
}

func NewReportService(db *gorm.DB, cfg *config.Config) *ReportService {
	return &ReportService{db: db, cfg: cfg.Reports}
}

// SalesSummary reports the caller's branch sales. from and to are optional
// YYYY-MM-DD dates, both inclusive.
func (s *ReportService) SalesSummary(ctx context.Context, caller *models.User, from, to string) (*SalesSummary, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	period, err := parsePeriod(from, to)
	if err != nil {
		return nil, err
	}

	totals, err := database.GetSalesTotals(ctx, s.db, caller.Branch, period)
	if err != nil {
		return nil, dbError(err)
	}
	byMethod, err := database.GetPaymentBreakdown(ctx, s.db, caller.Branch, period)
	if err != nil {
		return nil, dbError(err)
	}
	top, err := database.GetTopSelling(ctx, s.db, caller.Branch, period, s.limit(s.cfg.TopSellingLimit, 5))
	if err != nil {
		return nil, dbError(err)
	}

	recent := []models.Sale{}
	q := preloadItems(s.db.WithContext(ctx)).Where("branch = ?", caller.Branch)
	if period.From != nil {
		q = q.Where("date >= ?", period.From.UTC())
	}
	if period.To != nil {
		q = q.Where("date < ?", period.To.UTC())
	}
	err = q.Order("date DESC").Limit(s.limit(s.cfg.RecentSalesLimit, 10)).Find(&recent).Error
	if err != nil {
		return nil, dbError(err)
	}

	return &SalesSummary{
		Branch:          caller.Branch,
		From:            strings.TrimSpace(from),
		To:              strings.TrimSpace(to),
		TotalRevenue:    totals.Revenue,
		TotalSales:      totals.SaleCount,
		UnitsSold:       totals.UnitsSold,
		ByPaymentMethod: byMethod,
		TopSelling:      top,
		RecentSales:     recent,
	}, nil
}

// StockValuation prices the caller's branch inventory by category.
func (s *ReportService) StockValuation(ctx context.Context, caller *models.User) (*StockValuation, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}

	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("branch = ?", caller.Branch).
		Order("category, name").
		Find(&products).Error
	if err != nil {
		return nil, dbError(err)
	}

	result := &StockValuation{
		Branch:            caller.Branch,
		Categories:        []CategoryGroup{},
		LowStockThreshold: s.cfg.LowStockThreshold,
		LowStock:          []models.Product{},
	}
	groups := make(map[string]*CategoryGroup)
	for _, p := range products {
		category := p.Category
		if category == "" {
			category = "Uncategorized"
		}
		group, ok := groups[category]
		if !ok {
			group = &CategoryGroup{Category: category, Items: []ValuationItem{}}
			groups[category] = group
		}

		value := float64(p.Quantity) * p.Price
		group.Items = append(group.Items, ValuationItem{
			ProductID:  p.ID,
			Name:       p.Name,
			Barcode:    p.Barcode,
			Quantity:   p.Quantity,
			Price:      p.Price,
			TotalValue: value,
		})
		group.Subtotal += value
		result.GrandTotal += value

		if p.Quantity <= s.cfg.LowStockThreshold {
			result.LowStock = append(result.LowStock, p)
		}
	}

	for _, group := range groups {
		result.Categories = append(result.Categories, *group)
	}
	sort.Slice(result.Categories, func(i, j int) bool {
		return result.Categories[i].Category < result.Categories[j].Category
	})
	return result, nil
}

func (s *ReportService) limit(configured, fallback int) int {
	if configured > 0 {
		return configured
	}
	return fallback
}

func parsePeriod(from, to string) (database.Period, error) {
	var p database.Period
	if from = strings.TrimSpace(from); from != "" {
		t, err := time.ParseInLocation(dateLayout, from, time.UTC)
		if err != nil {
			return p, apperr.InvalidInput("from must be a date in YYYY-MM-DD format")
		}
		p.From = &t
	}
	if to = strings.TrimSpace(to); to != "" {
		t, err := time.ParseInLocation(dateLayout, to, time.UTC)
		if err != nil {
			return p, apperr.InvalidInput("to must be a date in YYYY-MM-DD format")
		}
		end := t.AddDate(0, 0, 1)
		p.To = &end
	}
	if p.From != nil && p.To != nil && !p.From.Before(*p.To) {
		return p, apperr.InvalidInput("from must not be after to")
	}
	return p, nil
}
