package middleware

import (
	"context"
	"strings"

	"voice-dialogue-demo/backend/pkg/errors"
	"voice-dialogue-demo/backend/pkg/jwt"
	"voice-dialogue-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware
const (
	ClaimsKey = "claims"
	UserIDKey = "userId"
)

// TokenValidator is the part of the JWT service the auth middleware needs.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwt.JWTClaims, error)
}

// JWTAuthMiddleware checks that the request has a valid JWT and adds claims to the context.
// Browsers cannot set headers on WebSocket upgrades, so a "token" query parameter is accepted too.
func JWTAuthMiddleware(validator TokenValidator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authorization header is required"))
			c.Abort()
			return
		}

		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := validator.ValidateToken(token)
		if err != nil {
			log.Warn("Invalid JWT token", "error", err.Error(), "path", c.Request.URL.Path)
			c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)

		c.Next()
	}
}

// ActiveUserChecker reports whether a token's user may still act.
type ActiveUserChecker interface {
	IsActive(ctx context.Context, id uint) (bool, error)
}

// RequireActiveUser rejects tokens whose account has since been deactivated
// or removed. It must run after JWTAuthMiddleware.
func RequireActiveUser(checker ActiveUserChecker, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
			c.Abort()
			return
		}

		active, err := checker.IsActive(c.Request.Context(), claims.UserID)
		if err != nil {
			log.LogError(err, "Failed to check account status", "user_id", claims.UserID)
			c.Error(errors.NewInternalServerError("INTERNAL_ERROR", "Could not verify account"))
			c.Abort()
			return
		}
		if !active {
			c.Error(errors.NewUnauthorizedError("ACCOUNT_INACTIVE", "This account is inactive"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole returns a middleware that requires the user to have a specific role
func RequireRole(role jwt.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
			c.Abort()
			return
		}

		if !claims.HasRole(role) {
			c.Error(errors.NewForbiddenError("INSUFFICIENT_ROLE", "Your role does not allow this operation"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// ClaimsFrom returns the claims stored by JWTAuthMiddleware.
func ClaimsFrom(c *gin.Context) (*jwt.JWTClaims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.JWTClaims)
	return claims, ok
}
