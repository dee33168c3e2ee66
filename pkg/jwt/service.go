package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultIssuer = "voice-dialogue"

// Service signs and validates access and refresh tokens
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

// NewService creates a new JWT service
func NewService(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *Service {
	if accessExpiry == 0 {
		accessExpiry = 24 * time.Hour
	}
	if refreshExpiry == 0 {
		refreshExpiry = 7 * 24 * time.Hour
	}
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}

	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
}

// GenerateTokenPair mints a fresh access and refresh token for subject.
func (s *Service) GenerateTokenPair(subject Subject) (TokenPair, error) {
	access, err := s.sign(subject, KindAccess, s.accessSecret, s.accessExpiry)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(subject, KindRefresh, s.refreshSecret, s.refreshExpiry)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateToken validates an access token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	return s.parse(tokenString, KindAccess, s.accessSecret)
}

// ValidateRefreshToken validates a refresh token and returns the claims
func (s *Service) ValidateRefreshToken(tokenString string) (*JWTClaims, error) {
	return s.parse(tokenString, KindRefresh, s.refreshSecret)
}

func (s *Service) sign(subject Subject, kind Kind, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	role := subject.Role
	if !role.Valid() {
		role = RoleUser
	}

	claims := &JWTClaims{
		UserID:   subject.ID,
		UserUID:  subject.UID,
		Email:    subject.Email,
		Username: subject.Username,
		Role:     role,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultIssuer,
			Subject:   subject.UID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *Service) parse(tokenString string, kind Kind, secret []byte) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&JWTClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return secret, nil
		},
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}

	return claims, nil
}
