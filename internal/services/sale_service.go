package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/auth"
	"bakaaro-pos/internal/database"
	"bakaaro-pos/internal/models"

	"gorm.io/gorm"
)

type SaleItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type SaleInput struct {
	Items         []SaleItemInput      `json:"items"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
}

type SaleService struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewSaleService(db *gorm.DB, logger *slog.Logger) *SaleService {
	return &SaleService{db: db, logger: logger, now: time.Now}
}

// Create records a sale and takes its items out of stock. The whole cart is
// one transaction: when any line fails no stock moves and no sale is written.
func (s *SaleService) Create(ctx context.Context, caller *models.User, in SaleInput) (*models.Sale, error) {
	if len(in.Items) == 0 {
		return nil, apperr.InvalidInput("Items array is required and cannot be empty")
	}
	if !in.PaymentMethod.Valid() {
		return nil, apperr.InvalidInput("Invalid or missing payment method")
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, apperr.InvalidInput("items[%d].productId is required", i)
		}
		if item.Quantity < 1 {
			return nil, apperr.InvalidInput("items[%d].quantity must be at least 1", i)
		}
	}

	sale := models.Sale{
		Items:         make([]models.SaleItem, 0, len(in.Items)),
		PaymentMethod: in.PaymentMethod,
		Branch:        caller.Branch,
		CreatedBy:     caller.ID,
		Date:          s.now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range in.Items {
			var product models.Product
			err := tx.Where("id = ?", item.ProductID).First(&product).Error
			if database.IsNotFound(err) {
				return apperr.NotFound("Product not found: %s", item.ProductID)
			}
			if err != nil {
				return dbError(err)
			}

			if product.Quantity < item.Quantity {
				return errInsufficientStock(product.Name)
			}
			if product.Branch != caller.Branch {
				return apperr.Forbidden("Product %s belongs to another branch", product.Name)
			}

			// Conditional decrement: a concurrent sale that took the stock
			// first leaves no row to update.
			res := tx.Model(&models.Product{}).
				Where("id = ? AND quantity >= ?", product.ID, item.Quantity).
				Update("quantity", gorm.Expr("quantity - ?", item.Quantity))
			if res.Error != nil {
				return dbError(res.Error)
			}
			if res.RowsAffected == 0 {
				return errInsufficientStock(product.Name)
			}

			sale.TotalPrice += product.Price * float64(item.Quantity)
			sale.Items = append(sale.Items, models.SaleItem{
				ProductID: product.ID,
				Quantity:  item.Quantity,
				Price:     product.Price, // Snapshot
			})
		}

		if err := tx.Create(&sale).Error; err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sale created",
		slog.String("saleId", sale.ID),
		slog.String("branch", sale.Branch),
		slog.String("createdBy", sale.CreatedBy),
		slog.Int("items", len(sale.Items)),
		slog.Float64("totalPrice", sale.TotalPrice),
	)

	return s.get(ctx, sale.ID)
}

// List returns the caller's branch sales, newest first, with each line's
// product at its current catalog state.
func (s *SaleService) List(ctx context.Context, caller *models.User) ([]models.Sale, error) {
	sales := []models.Sale{}
	err := preloadItems(s.db.WithContext(ctx)).
		Where("branch = ?", caller.Branch).
		Order("date DESC").
		Find(&sales).Error
	if err != nil {
		return nil, dbError(err)
	}
	return sales, nil
}

// Delete removes a sale and its lines. Stock that was sold is not returned.
func (s *SaleService) Delete(ctx context.Context, caller *models.User, id string) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sale models.Sale
		err := tx.Where("id = ?", id).First(&sale).Error
		if database.IsNotFound(err) {
			return apperr.NotFound("Sale not found")
		}
		if err != nil {
			return dbError(err)
		}
		if sale.Branch != caller.Branch {
			return apperr.Forbidden("Forbidden: Sale belongs to another branch")
		}

		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleItem{}).Error; err != nil {
			return dbError(err)
		}
		if err := tx.Delete(&sale).Error; err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "sale deleted", slog.String("saleId", id), slog.String("branch", caller.Branch))
	return nil
}

func (s *SaleService) get(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	if err := preloadItems(s.db.WithContext(ctx)).Where("id = ?", id).First(&sale).Error; err != nil {
		return nil, dbError(err)
	}
	return &sale, nil
}

// preloadItems loads sale lines in cart order with their current products.
func preloadItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sale_items.id") }).
		Preload("Items.Product")
}

func errInsufficientStock(name string) error {
	return apperr.Conflict("Insufficient stock for product: %s", name)
}
