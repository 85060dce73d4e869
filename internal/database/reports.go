package database

import (
	"context"
	"time"

	"bakaaro-pos/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Period bounds a report. A nil end leaves that side open; To is exclusive.
type Period struct {
	From *time.Time
	To   *time.Time
}

// SalesTotals is the headline of a branch's sales report.
type SalesTotals struct {
	Revenue   float64 `json:"revenue"`
	SaleCount int64   `json:"saleCount"`
	UnitsSold int64   `json:"unitsSold"`
}

// PaymentTotal groups revenue by payment method.
type PaymentTotal struct {
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	SaleCount     int64                `json:"saleCount"`
	Revenue       float64              `json:"revenue"`
}

// ProductSales is one row of the best-seller table.
type ProductSales struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Sold        int64   `json:"sold"`
	Revenue     float64 `json:"revenue"`
}

func salesScope(db *gorm.DB, branch string, p Period) *gorm.DB {
	q := db.Where("sales.branch = ?", branch)
	if p.From != nil {
		q = q.Where("sales.date >= ?", p.From.UTC())
	}
	if p.To != nil {
		q = q.Where("sales.date < ?", p.To.UTC())
	}
	return q
}

// GetSalesTotals sums revenue, sale count and units sold for a branch.
func GetSalesTotals(ctx context.Context, db *gorm.DB, branch string, p Period) (*SalesTotals, error) {
	var result SalesTotals
	db = db.WithContext(ctx)

	// COALESCE gives 0 instead of NULL when there are no sales
	err := salesScope(db.Model(&models.Sale{}), branch, p).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&result.Revenue).Error
	if err != nil {
		return nil, errors.Wrap(err, "sum revenue")
	}

	err = salesScope(db.Model(&models.Sale{}), branch, p).
		Count(&result.SaleCount).Error
	if err != nil {
		return nil, errors.Wrap(err, "count sales")
	}

	err = salesScope(db.Table("sale_items").Joins("JOIN sales ON sales.id = sale_items.sale_id"), branch, p).
		Select("COALESCE(SUM(sale_items.quantity), 0)").
		Scan(&result.UnitsSold).Error
	if err != nil {
		return nil, errors.Wrap(err, "sum units")
	}

	return &result, nil
}

// GetPaymentBreakdown groups a branch's sales by payment method.
func GetPaymentBreakdown(ctx context.Context, db *gorm.DB, branch string, p Period) ([]PaymentTotal, error) {
	rows := []PaymentTotal{}
	err := salesScope(db.WithContext(ctx).Model(&models.Sale{}), branch, p).
		Select("payment_method, COUNT(*) AS sale_count, COALESCE(SUM(total_price), 0) AS revenue").
		Group("payment_method").
		Order("payment_method").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "payment breakdown")
	}
	return rows, nil
}

// GetTopSelling ranks products by units sold. Deleted products keep their
// row with an empty name.
func GetTopSelling(ctx context.Context, db *gorm.DB, branch string, p Period, limit int) ([]ProductSales, error) {
	rows := []ProductSales{}
	err := salesScope(db.WithContext(ctx).Table("sale_items"), branch, p).
		Select("sale_items.product_id AS product_id, COALESCE(MAX(products.name), '') AS product_name, " +
			"SUM(sale_items.quantity) AS sold, SUM(sale_items.quantity * sale_items.price) AS revenue").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Joins("LEFT JOIN products ON products.id = sale_items.product_id").
		Group("sale_items.product_id").
		Order("sold DESC, product_id").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "top selling")
	}
	return rows, nil
}
