package api

import (
	"net/http"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/internal/service"
	"voice-dialogue-demo/backend/pkg/jwt"
	"voice-dialogue-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles registration, login and token refresh
type AuthHandler struct {
	users  *service.UserService
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *service.UserService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login authenticates by email or username and returns a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, pair, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.FromGin(c).Info("User logged in", "user_uid", user.UID, "role", user.Role)

	c.JSON(http.StatusOK, loginResponse{TokenPair: pair, User: user})
}

// Refresh exchanges a refresh token for a new pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	pair, err := h.users.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

type loginResponse struct {
	jwt.TokenPair
	User *models.User `json:"user"`
}
