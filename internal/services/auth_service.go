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

type RegisterInput struct {
	Username string      `json:"username" validate:"required,max=50"`
	Password string      `json:"password" validate:"required"`
	Name     string      `json:"name" validate:"required,max=100"`
	Role     models.Role `json:"role"`
	Branch   string      `json:"branch" validate:"required,max=100"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Profile is the user as shown to the client after login or registration.
type Profile struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	Branch    string      `json:"branch"`
	LoginTime *time.Time  `json:"loginTime,omitempty"`
}

func profileOf(u *models.User) Profile {
	return Profile{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role, Branch: u.Branch}
}

type LoginResult struct {
	User      Profile   `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthService struct {
	db     *gorm.DB
	hasher *auth.Hasher
	tokens *auth.TokenService
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, hasher *auth.Hasher, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{db: db, hasher: hasher, tokens: tokens, logger: logger, now: time.Now}
}

// Register creates an active user. The first registration on an empty
// branch directory also creates its branch.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Profile, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.Branch = strings.TrimSpace(in.Branch)
	if in.Role == "" {
		in.Role = models.RoleStaff
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, apperr.InvalidInput("role must be one of admin, staff, cashier")
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
		Active:       true,
	}
	bootstrapped := false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if taken, err := usernameTaken(tx, in.Username, ""); err != nil {
			return err
		} else if taken {
			return apperr.Conflict("User already exists")
		}

		var branches int64
		if err := tx.Model(&models.Branch{}).Count(&branches).Error; err != nil {
			return dbError(err)
		}
		if branches == 0 {
			if err := tx.Create(&models.Branch{Name: in.Branch, Active: true}).Error; err != nil {
				return dbError(err)
			}
			bootstrapped = true
		} else if err := checkBranchExists(tx, in.Branch); err != nil {
			return err
		}

		if err := tx.Create(&user).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("User already exists")
			}
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("userId", user.ID),
		slog.String("username", user.Username),
		slog.String("branch", user.Branch),
		slog.Bool("branchCreated", bootstrapped),
	)
	p := profileOf(&user)
	return &p, nil
}

// Login checks the credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", in.Username).First(&user).Error
	if err != nil && !database.IsNotFound(err) {
		return nil, dbError(err)
	}
	if err != nil || !user.Active {
		return nil, apperr.Unauthenticated("Invalid credentials or inactive user")
	}
	if !s.hasher.Verify(user.PasswordHash, in.Password) {
		s.logger.WarnContext(ctx, "login failed", slog.String("username", user.Username))
		return nil, apperr.Unauthenticated("Invalid credentials")
	}

	token, expiresAt, err := s.tokens.Generate(&user)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to generate token")
	}

	loginTime := s.now().UTC()
	profile := profileOf(&user)
	profile.LoginTime = &loginTime

	s.logger.InfoContext(ctx, "user logged in", slog.String("userId", user.ID), slog.String("username", user.Username))
	return &LoginResult{User: profile, Token: token, ExpiresAt: expiresAt}, nil
}
