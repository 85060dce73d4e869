// Package auth resolves callers to users and decides what they may do.
package auth

import (
	"context"

	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/database"
	"bakaaro-pos/internal/models"

	"gorm.io/gorm"
)

// Resolver turns a user id asserted by a request into the stored user.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve fails with Unauthenticated when rawID is empty, unknown or
// belongs to a deactivated user.
func (r *Resolver) Resolve(ctx context.Context, rawID string) (*models.User, error) {
	if rawID == "" {
		return nil, apperr.Unauthenticated("No user ID provided")
	}

	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", rawID).First(&user).Error
	if database.IsNotFound(err) {
		return nil, apperr.Unauthenticated("User not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "Authentication failed")
	}
	if !user.Active {
		return nil, apperr.Unauthenticated("User account is inactive")
	}

	user.PasswordHash = ""
	return &user, nil
}
