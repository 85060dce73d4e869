package services

import (
	"context"
	"log/slog"
	"strings"

	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/auth"
	"bakaaro-pos/internal/database"
	"bakaaro-pos/internal/models"

	"gorm.io/gorm"
)

// ProductInput is the writable part of a product. Any branch sent by the
// client is ignored; products belong to the caller's branch.
type ProductInput struct {
	Name        string   `json:"name" validate:"required,max=150"`
	Brand       string   `json:"brand" validate:"required,max=100"`
	Category    string   `json:"category" validate:"required,max=100"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Quantity    *int     `json:"quantity" validate:"required,gte=0"`
	Barcode     string   `json:"barcode" validate:"required,max=64"`
	Description string   `json:"description"`
}

func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Category = strings.TrimSpace(in.Category)
	in.Barcode = strings.TrimSpace(in.Barcode)
}

type ProductService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewProductService(db *gorm.DB, logger *slog.Logger) *ProductService {
	return &ProductService{db: db, logger: logger}
}

// List returns the caller's branch catalog ordered by name.
func (s *ProductService) List(ctx context.Context, caller *models.User) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.WithContext(ctx).
		Where("branch = ?", caller.Branch).
		Order("name").
		Find(&products).Error
	if err != nil {
		return nil, dbError(err)
	}
	return products, nil
}

// FindByBarcode looks a product up for the scanner. Products of other
// branches are reported as missing.
func (s *ProductService) FindByBarcode(ctx context.Context, caller *models.User, barcode string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Where("barcode = ? AND branch = ?", strings.TrimSpace(barcode), caller.Branch).
		First(&product).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, dbError(err)
	}
	return &product, nil
}

func (s *ProductService) Create(ctx context.Context, caller *models.User, in ProductInput) (*models.Product, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, apperr.Forbidden("Only administrators can add products")
	}
	in.normalize()
	if err := validateInput(in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if taken, err := barcodeTaken(db, in.Barcode, ""); err != nil {
		return nil, err
	} else if taken {
		return nil, errBarcodeTaken()
	}

	product := models.Product{
		Name:        in.Name,
		Brand:       in.Brand,
		Category:    in.Category,
		Price:       *in.Price,
		Quantity:    *in.Quantity,
		Barcode:     in.Barcode,
		Description: in.Description,
		Branch:      caller.Branch,
	}
	if err := db.Create(&product).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errBarcodeTaken()
		}
		return nil, dbError(err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("productId", product.ID),
		slog.String("barcode", product.Barcode),
		slog.String("branch", product.Branch),
	)
	return &product, nil
}

func (s *ProductService) Update(ctx context.Context, caller *models.User, id string, in ProductInput) (*models.Product, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, apperr.Forbidden("Only administrators can update products")
	}
	in.normalize()
	if err := validateInput(in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	product, err := loadOwnedProduct(db, caller, id)
	if err != nil {
		return nil, err
	}

	if in.Barcode != product.Barcode {
		if taken, err := barcodeTaken(db, in.Barcode, product.ID); err != nil {
			return nil, err
		} else if taken {
			return nil, errBarcodeTaken()
		}
	}

	product.Name = in.Name
	product.Brand = in.Brand
	product.Category = in.Category
	product.Price = *in.Price
	product.Quantity = *in.Quantity
	product.Barcode = in.Barcode
	product.Description = in.Description

	if err := db.Save(product).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errBarcodeTaken()
		}
		return nil, dbError(err)
	}
	return product, nil
}

// SetPrice changes only the price of a product.
func (s *ProductService) SetPrice(ctx context.Context, caller *models.User, id string, price float64) (*models.Product, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, apperr.Forbidden("Only administrators can update products")
	}
	if price < 0 {
		return nil, apperr.InvalidInput("price must be greater than or equal to 0")
	}

	db := s.db.WithContext(ctx)
	product, err := loadOwnedProduct(db, caller, id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(product).Update("price", price).Error; err != nil {
		return nil, dbError(err)
	}
	product.Price = price

	s.logger.InfoContext(ctx, "product price changed",
		slog.String("productId", product.ID),
		slog.Float64("price", price),
	)
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, caller *models.User, id string) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return apperr.Forbidden("Only administrators can delete products")
	}

	db := s.db.WithContext(ctx)
	product, err := loadOwnedProduct(db, caller, id)
	if err != nil {
		return err
	}
	if err := db.Delete(product).Error; err != nil {
		return dbError(err)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("productId", product.ID),
		slog.String("branch", product.Branch),
	)
	return nil
}

func loadOwnedProduct(db *gorm.DB, caller *models.User, id string) (*models.Product, error) {
	var product models.Product
	err := db.Where("id = ?", id).First(&product).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, dbError(err)
	}
	if product.Branch != caller.Branch {
		return nil, apperr.Forbidden("Forbidden: Product belongs to another branch")
	}
	return &product, nil
}

// barcodeTaken checks the whole store, every branch included.
func barcodeTaken(db *gorm.DB, barcode, exceptID string) (bool, error) {
	q := db.Model(&models.Product{}).Where("barcode = ?", barcode)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, dbError(err)
	}
	return n > 0, nil
}

func errBarcodeTaken() error {
	return apperr.Conflict("Product with this barcode already exists")
}
