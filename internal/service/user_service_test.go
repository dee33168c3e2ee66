package service

import (
	"context"
	"testing"
	"time"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/pkg/jwt"
	"voice-dialogue-demo/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*UserService, *jwt.Service) {
	t.Helper()
	tokens := jwt.NewService("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	return NewUserService(newTestDB(t), tokens, logger.Discard()), tokens
}

func register(t *testing.T, svc *UserService) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username:  "alice",
		Email:     "Alice@Example.COM",
		Password:  "correct-horse",
		FirstName: "Alice",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens := newUserService(t)
	ctx := context.Background()

	u := register(t, svc)
	assert.Equal(t, "Alice@example.com", u.Email)
	assert.NotEqual(t, "correct-horse", u.Password)

	_, err := svc.Register(ctx, &models.RegisterRequest{Username: "other", Email: "Alice@EXAMPLE.com", Password: "12345678"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	_, err = svc.Register(ctx, &models.RegisterRequest{Username: "alice", Email: "a2@example.com", Password: "12345678"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	for _, identifier := range []string{"alice", "Alice@example.com"} {
		got, pair, err := svc.Login(ctx, &models.LoginRequest{Identifier: identifier, Password: "correct-horse"})
		require.NoError(t, err, identifier)
		assert.Equal(t, u.ID, got.ID)
		assert.NotNil(t, got.LastLogin)

		claims, err := tokens.ValidateToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, u.ID, claims.UserID)
		assert.Equal(t, jwt.RoleUser, claims.Role)
	}

	_, _, err = svc.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, &models.LoginRequest{Identifier: "nobody", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	register(t, svc)

	_, pair, err := svc.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, next.AccessToken)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDeactivateBlocksLogin(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	u := register(t, svc)

	_, pair, err := svc.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, u.ID))
	assert.ErrorIs(t, svc.Deactivate(ctx, u.ID), ErrUserNotFound)

	_, _, err = svc.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInactiveUser)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProfileAndPassword(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	u := register(t, svc)

	_, err := svc.Register(ctx, &models.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "12345678"})
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, u.ID, &models.UpdateProfileRequest{Username: strPtr("bob")})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	updated, err := svc.UpdateProfile(ctx, u.ID, &models.UpdateProfileRequest{LastName: strPtr("Liddell")})
	require.NoError(t, err)
	assert.Equal(t, "Liddell", updated.LastName)
	assert.Equal(t, "Alice", updated.FirstName)

	err = svc.ChangePassword(ctx, u.ID, &models.ChangePasswordRequest{OldPassword: "nope", NewPassword: "new-password"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, &models.ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "new-password"}))
	_, _, err = svc.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "new-password"})
	require.NoError(t, err)
}

func TestUpdateRole(t *testing.T) {
	svc, tokens := newUserService(t)
	ctx := context.Background()
	u := register(t, svc)

	_, err := svc.UpdateRole(ctx, u.ID, jwt.Role("root"))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	got, err := svc.UpdateRole(ctx, u.ID, jwt.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, got.IsStaff)

	_, pair, err := svc.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "correct-horse"})
	require.NoError(t, err)
	claims, err := tokens.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, jwt.RoleAdmin, claims.Role)
}
