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

type BranchInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Address string `json:"address" validate:"max=255"`
	Phone   string `json:"phone" validate:"max=50"`
	Manager string `json:"manager" validate:"max=100"`
	Active  *bool  `json:"active"`
}

func (in *BranchInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Manager = strings.TrimSpace(in.Manager)
}

// BranchService manages store locations. Users, products and sales refer
// to a branch by its name, so a rename is carried over to them.
type BranchService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewBranchService(db *gorm.DB, logger *slog.Logger) *BranchService {
	return &BranchService{db: db, logger: logger}
}

func (s *BranchService) List(ctx context.Context) ([]models.Branch, error) {
	branches := []models.Branch{}
	if err := s.db.WithContext(ctx).Order("name").Find(&branches).Error; err != nil {
		return nil, dbError(err)
	}
	return branches, nil
}

func (s *BranchService) Create(ctx context.Context, caller *models.User, in BranchInput) (*models.Branch, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateInput(in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if taken, err := branchNameTaken(db, in.Name, ""); err != nil {
		return nil, err
	} else if taken {
		return nil, errBranchNameTaken()
	}

	branch := models.Branch{
		Name:    in.Name,
		Address: in.Address,
		Phone:   in.Phone,
		Manager: in.Manager,
		Active:  in.Active == nil || *in.Active,
	}
	if err := db.Create(&branch).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errBranchNameTaken()
		}
		return nil, dbError(err)
	}

	s.logger.InfoContext(ctx, "branch created", slog.String("branchId", branch.ID), slog.String("name", branch.Name))
	return &branch, nil
}

// Update replaces every field of the branch. A new name is written to the
// users, products and sales of the branch in the same transaction.
func (s *BranchService) Update(ctx context.Context, caller *models.User, id string, in BranchInput) (*models.Branch, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var branch models.Branch
	var oldName string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadBranch(tx, id, &branch); err != nil {
			return err
		}
		oldName = branch.Name

		if in.Name != oldName {
			if taken, err := branchNameTaken(tx, in.Name, branch.ID); err != nil {
				return err
			} else if taken {
				return errBranchNameTaken()
			}
		}

		branch.Name = in.Name
		branch.Address = in.Address
		branch.Phone = in.Phone
		branch.Manager = in.Manager
		if in.Active != nil {
			branch.Active = *in.Active
		}
		if err := tx.Save(&branch).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errBranchNameTaken()
			}
			return dbError(err)
		}

		if in.Name == oldName {
			return nil
		}
		for _, model := range []any{&models.User{}, &models.Product{}, &models.Sale{}} {
			err := tx.Model(model).Where("branch = ?", oldName).Update("branch", in.Name).Error
			if err != nil {
				return dbError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if oldName != branch.Name {
		s.logger.InfoContext(ctx, "branch renamed",
			slog.String("branchId", branch.ID),
			slog.String("from", oldName),
			slog.String("to", branch.Name),
		)
	}
	return &branch, nil
}

// Delete removes a branch nobody refers to any more.
func (s *BranchService) Delete(ctx context.Context, caller *models.User, id string) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}

	var branch models.Branch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadBranch(tx, id, &branch); err != nil {
			return err
		}

		for _, model := range []any{&models.User{}, &models.Product{}} {
			var n int64
			if err := tx.Model(model).Where("branch = ?", branch.Name).Count(&n).Error; err != nil {
				return dbError(err)
			}
			if n > 0 {
				return apperr.Conflict("Branch %s still has staff or products assigned", branch.Name)
			}
		}

		if err := tx.Delete(&branch).Error; err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "branch deleted", slog.String("branchId", branch.ID), slog.String("name", branch.Name))
	return nil
}

// ToggleStatus flips the active flag and nothing else.
func (s *BranchService) ToggleStatus(ctx context.Context, caller *models.User, id string) (*models.Branch, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var branch models.Branch
	if err := loadBranch(db, id, &branch); err != nil {
		return nil, err
	}

	branch.Active = !branch.Active
	if err := db.Model(&branch).Update("active", branch.Active).Error; err != nil {
		return nil, dbError(err)
	}
	return &branch, nil
}

// Exists reports whether a branch with name is registered.
func (s *BranchService) Exists(ctx context.Context, name string) (bool, error) {
	taken, err := branchNameTaken(s.db.WithContext(ctx), name, "")
	return taken, err
}

func loadBranch(db *gorm.DB, id string, dest *models.Branch) error {
	err := db.Where("id = ?", id).First(dest).Error
	if database.IsNotFound(err) {
		return apperr.NotFound("Branch not found")
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

func branchNameTaken(db *gorm.DB, name, exceptID string) (bool, error) {
	q := db.Model(&models.Branch{}).Where("name = ?", name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, dbError(err)
	}
	return n > 0, nil
}

func errBranchNameTaken() error {
	return apperr.Conflict("Branch with this name already exists")
}
