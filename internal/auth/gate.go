package auth

import (
	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/models"
)

// RequireAdmin passes only for admins.
func RequireAdmin(user *models.User) error {
	if user == nil || user.Role != models.RoleAdmin {
		return apperr.Forbidden("Admin access required")
	}
	return nil
}

// RequireStaffOrAdmin passes for every known role.
func RequireStaffOrAdmin(user *models.User) error {
	if user == nil || !user.Role.Valid() {
		return apperr.Forbidden("Staff or Admin access required")
	}
	return nil
}
