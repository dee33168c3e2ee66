package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents an account. Login is by email or username.
type User struct {
	Base
	Lifecycle
	Username  string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName string     `gorm:"type:varchar(255)" json:"first_name"`
	LastName  string     `gorm:"type:varchar(255)" json:"last_name"`
	Password  string     `gorm:"not null" json:"-"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	IsStaff   bool       `gorm:"not null;default:false" json:"is_staff"`
	Role      string     `gorm:"type:varchar(16);not null;default:user" json:"role"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// CanLogin reports whether the account may authenticate.
func (u *User) CanLogin() bool {
	return u.IsActive && u.Status == StatusActive
}

// RegisterRequest is the request structure for creating a new user
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=255"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginRequest accepts either an email or a username in Identifier.
type LoginRequest struct {
	Identifier string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// UpdateProfileRequest is a partial profile update.
type UpdateProfileRequest struct {
	Username  *string `json:"username" binding:"omitempty,min=3,max=255"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// ChangePasswordRequest swaps the current password for a new one.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// UpdateRoleRequest is used by admins to change a user's role.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizeEmail lower-cases the domain part of an address.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
