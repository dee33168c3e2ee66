package api

import (
	"net/http"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ChatHistoryHandler exposes saved conversations
type ChatHistoryHandler struct {
	history *service.ChatHistoryService
}

// NewChatHistoryHandler creates a ChatHistoryHandler
func NewChatHistoryHandler(history *service.ChatHistoryService) *ChatHistoryHandler {
	return &ChatHistoryHandler{history: history}
}

// RegisterRoutes mounts the chat history endpoints on an authenticated group.
func (h *ChatHistoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	histories := rg.Group("/chat-history")
	{
		histories.GET("", h.List)
		histories.POST("", h.Create)
		histories.GET("/:uid", h.Retrieve)
		histories.PATCH("/:uid", h.Update)
		histories.DELETE("/:uid", h.Delete)
	}
}

// List returns the caller's saved chats, newest first
func (h *ChatHistoryHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	rows, err := h.history.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Create snapshots a conversation under a unique title
func (h *ChatHistoryHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.CreateChatHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	history, err := h.history.Create(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, history)
}

// Retrieve returns the saved snapshot and the live transcript side by side
func (h *ChatHistoryHandler) Retrieve(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	detail, err := h.history.Retrieve(c.Request.Context(), actor, c.Param("uid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Update renames or deactivates a saved chat
func (h *ChatHistoryHandler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.UpdateChatHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	history, err := h.history.Update(c.Request.Context(), actor, c.Param("uid"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// Delete removes a saved chat together with its conversation's turns
func (h *ChatHistoryHandler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.history.Delete(c.Request.Context(), actor, c.Param("uid")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
