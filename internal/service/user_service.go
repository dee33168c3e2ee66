package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/pkg/jwt"
	"voice-dialogue-demo/backend/pkg/logger"

	"gorm.io/gorm"
)

// TokenIssuer mints and checks the token pair handed out at login.
type TokenIssuer interface {
	GenerateTokenPair(subject jwt.Subject) (jwt.TokenPair, error)
	ValidateRefreshToken(tokenString string) (*jwt.JWTClaims, error)
}

// UserService handles user-related operations
type UserService struct {
	db     *gorm.DB
	tokens TokenIssuer
	log    *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, tokens TokenIssuer, log *logger.Logger) *UserService {
	return &UserService{db: db, tokens: tokens, log: log.With("service", "UserService")}
}

// Register creates a new user
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	email := models.NormalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserAlreadyExists
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hashed, err := models.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Lifecycle: models.Lifecycle{Status: models.StatusActive},
		Username:  username,
		Email:     email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Password:  hashed,
		IsActive:  true,
		Role:      string(jwt.RoleUser),
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	s.log.Info("user registered", "user_uid", user.UID)
	return &user, nil
}

// Login authenticates by email or username and returns a fresh token pair
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, jwt.TokenPair, error) {
	identifier := strings.TrimSpace(req.Identifier)

	q := s.db.WithContext(ctx)
	if strings.Contains(identifier, "@") {
		q = q.Where("email = ?", models.NormalizeEmail(identifier))
	} else {
		q = q.Where("username = ?", identifier)
	}

	var user models.User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jwt.TokenPair{}, ErrInvalidCredentials
		}
		return nil, jwt.TokenPair{}, err
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		return nil, jwt.TokenPair{}, ErrInvalidCredentials
	}
	if !user.CanLogin() {
		return nil, jwt.TokenPair{}, ErrInactiveUser
	}

	pair, err := s.tokens.GenerateTokenPair(subjectOf(&user))
	if err != nil {
		return nil, jwt.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		s.log.LogError(err, "failed to record last login", "user_uid", user.UID)
	}
	user.LastLogin = &now

	return &user, pair, nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (jwt.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return jwt.TokenPair{}, ErrInvalidToken
	}

	user, err := s.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return jwt.TokenPair{}, ErrInvalidToken
		}
		return jwt.TokenPair{}, err
	}
	if !user.CanLogin() {
		return jwt.TokenPair{}, ErrInactiveUser
	}

	return s.tokens.GenerateTokenPair(subjectOf(user))
}

// GetByID retrieves a user that has not been removed
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Scopes(models.NotRemoved).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// IsActive reports whether the account behind an access token may still act.
func (s *UserService) IsActive(ctx context.Context, id uint) (bool, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "is_active", "status").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.CanLogin(), nil
}

// UpdateProfile applies a partial profile update.
func (s *UserService) UpdateProfile(ctx context.Context, id uint, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username != user.Username {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("username = ? AND id <> ?", username, id).Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrUsernameTaken
			}
			updates["username"] = username
		}
	}
	if req.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*req.LastName)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, id uint, req *models.ChangePasswordRequest) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !models.CheckPasswordHash(req.OldPassword, user.Password) {
		return ErrWrongPassword
	}

	hashed, err := models.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(user).Update("password", hashed).Error
}

// Deactivate soft-deletes the account.
func (s *UserService) Deactivate(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Scopes(models.NotRemoved).
		Updates(map[string]any{"status": models.StatusRemoved, "is_active": false})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	s.log.Info("user deactivated", "user_id", id)
	return nil
}

// UpdateRole changes the role of a user. Admins are also staff.
func (s *UserService) UpdateRole(ctx context.Context, id uint, role jwt.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, invalid("role", "role must be user or admin")
	}
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"role":     string(role),
		"is_staff": role == jwt.RoleAdmin,
	}).Error
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func subjectOf(u *models.User) jwt.Subject {
	role := jwt.Role(u.Role)
	if u.IsStaff && role != jwt.RoleAdmin {
		role = jwt.RoleAdmin
	}
	return jwt.Subject{
		ID:       u.ID,
		UID:      u.UID,
		Email:    u.Email,
		Username: u.Username,
		Role:     role,
	}
}
