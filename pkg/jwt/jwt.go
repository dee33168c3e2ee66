package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrWrongKind    = errors.New("token kind mismatch")
)

// Role is the coarse authorization level carried in a token.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// JWTClaims represents the claims in a JWT token
type JWTClaims struct {
	UserID   uint   `json:"user_id"`
	UserUID  string `json:"user_uid"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Kind     Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims grant role. Admins hold every role.
func (c *JWTClaims) HasRole(role Role) bool {
	return c.Role == role || c.Role == RoleAdmin
}

// TokenPair is what login and refresh hand back to clients.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Subject identifies the user a token is minted for.
type Subject struct {
	ID       uint
	UID      string
	Email    string
	Username string
	Role     Role
}
