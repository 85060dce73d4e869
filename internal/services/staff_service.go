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

// StaffInput creates or edits a user. Role defaults to staff, branch to
// the caller's branch and active to true.
type StaffInput struct {
	Username string      `json:"username" validate:"required,max=50"`
	Password string      `json:"password"`
	Name     string      `json:"name" validate:"required,max=100"`
	Role     models.Role `json:"role"`
	Branch   string      `json:"branch"`
	Active   *bool       `json:"active"`
}

func (in *StaffInput) applyDefaults(caller *models.User) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.Branch = strings.TrimSpace(in.Branch)
	if in.Role == "" {
		in.Role = models.RoleStaff
	}
	if in.Branch == "" {
		in.Branch = caller.Branch
	}
}

func (in *StaffInput) active() bool {
	return in.Active == nil || *in.Active
}

type StaffService struct {
	db     *gorm.DB
	hasher *auth.Hasher
	logger *slog.Logger
}

func NewStaffService(db *gorm.DB, hasher *auth.Hasher, logger *slog.Logger) *StaffService {
	return &StaffService{db: db, hasher: hasher, logger: logger}
}

// List returns the users of the caller's branch ordered by name.
func (s *StaffService) List(ctx context.Context, caller *models.User) ([]models.User, error) {
	users := []models.User{}
	err := s.db.WithContext(ctx).
		Omit("password_hash").
		Where("branch = ?", caller.Branch).
		Order("name").
		Find(&users).Error
	if err != nil {
		return nil, dbError(err)
	}
	return users, nil
}

func (s *StaffService) Create(ctx context.Context, caller *models.User, in StaffInput) (*models.User, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	in.applyDefaults(caller)
	if err := validateStaff(in); err != nil {
		return nil, err
	}
	if err := checkOwnBranch(caller, in.Branch); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, apperr.InvalidInput("password is required")
	}

	db := s.db.WithContext(ctx)
	if err := checkBranchExists(db, in.Branch); err != nil {
		return nil, err
	}
	if taken, err := usernameTaken(db, in.Username, ""); err != nil {
		return nil, err
	} else if taken {
		return nil, errUsernameTaken()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, hashError(err)
	}

	user := models.User{
		Username:     in.Username,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         in.Role,
		Branch:       in.Branch,
		Active:       in.active(),
	}
	if err := db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errUsernameTaken()
		}
		return nil, dbError(err)
	}

	s.logger.InfoContext(ctx, "staff member created",
		slog.String("userId", user.ID),
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)),
		slog.String("branch", user.Branch),
	)
	user.PasswordHash = ""
	return &user, nil
}

// Update replaces the profile. The password changes only when a non-blank
// one is given.
func (s *StaffService) Update(ctx context.Context, caller *models.User, id string, in StaffInput) (*models.User, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	in.applyDefaults(caller)
	if err := validateStaff(in); err != nil {
		return nil, err
	}
	if err := checkOwnBranch(caller, in.Branch); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	user, err := loadOwnedUser(db, caller, id)
	if err != nil {
		return nil, err
	}
	if in.Username != user.Username {
		if taken, err := usernameTaken(db, in.Username, user.ID); err != nil {
			return nil, err
		} else if taken {
			return nil, errUsernameTaken()
		}
	}

	user.Username = in.Username
	user.Name = in.Name
	user.Role = in.Role
	user.Branch = in.Branch
	user.Active = in.active()
	if strings.TrimSpace(in.Password) != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, hashError(err)
		}
		user.PasswordHash = hash
	}

	if err := db.Save(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errUsernameTaken()
		}
		return nil, dbError(err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *StaffService) Delete(ctx context.Context, caller *models.User, id string) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	user, err := loadOwnedUser(db, caller, id)
	if err != nil {
		return err
	}
	if user.ID == caller.ID {
		return apperr.InvalidInput("You cannot delete your own account")
	}
	if err := db.Delete(user).Error; err != nil {
		return dbError(err)
	}

	s.logger.InfoContext(ctx, "staff member deleted", slog.String("userId", user.ID), slog.String("username", user.Username))
	return nil
}

// ToggleStatus flips the active flag. Deactivated users can no longer
// log in or call the API.
func (s *StaffService) ToggleStatus(ctx context.Context, caller *models.User, id string) (*models.User, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	user, err := loadOwnedUser(db, caller, id)
	if err != nil {
		return nil, err
	}
	if user.ID == caller.ID {
		return nil, apperr.InvalidInput("You cannot deactivate your own account")
	}

	user.Active = !user.Active
	if err := db.Model(user).Update("active", user.Active).Error; err != nil {
		return nil, dbError(err)
	}

	s.logger.InfoContext(ctx, "staff status toggled", slog.String("userId", user.ID), slog.Bool("active", user.Active))
	user.PasswordHash = ""
	return user, nil
}

func validateStaff(in StaffInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if !in.Role.Valid() {
		return apperr.InvalidInput("role must be one of admin, staff, cashier")
	}
	return nil
}

func loadOwnedUser(db *gorm.DB, caller *models.User, id string) (*models.User, error) {
	var user models.User
	err := db.Where("id = ?", id).First(&user).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("Staff member not found")
	}
	if err != nil {
		return nil, dbError(err)
	}
	if user.Branch != caller.Branch {
		return nil, apperr.Forbidden("Forbidden: Staff member belongs to another branch")
	}
	return &user, nil
}

func usernameTaken(db *gorm.DB, username, exceptID string) (bool, error) {
	q := db.Model(&models.User{}).Where("username = ?", username)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, dbError(err)
	}
	return n > 0, nil
}

func checkBranchExists(db *gorm.DB, name string) error {
	var n int64
	if err := db.Model(&models.Branch{}).Where("name = ?", name).Count(&n).Error; err != nil {
		return dbError(err)
	}
	if n == 0 {
		return apperr.InvalidInput("Branch does not exist: %s", name)
	}
	return nil
}

// checkOwnBranch keeps admins from placing staff outside their own branch.
func checkOwnBranch(caller *models.User, branch string) error {
	if branch != caller.Branch {
		return apperr.Forbidden("Forbidden: Staff can only be assigned to your branch")
	}
	return nil
}

func errUsernameTaken() error {
	return apperr.Conflict("Username already exists")
}
