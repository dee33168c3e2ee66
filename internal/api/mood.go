package api

import (
	"net/http"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// MoodHandler exposes the mood registry
type MoodHandler struct {
	moods *service.MoodService
}

// NewMoodHandler creates a MoodHandler
func NewMoodHandler(moods *service.MoodService) *MoodHandler {
	return &MoodHandler{moods: moods}
}

// RegisterRoutes mounts the mood endpoints on an authenticated group.
func (h *MoodHandler) RegisterRoutes(rg *gin.RouterGroup) {
	moods := rg.Group("/mood")
	{
		moods.GET("", h.List)
		moods.POST("", h.Create)
		moods.GET("/:uid", h.Get)
		moods.PATCH("/:uid", h.Update)
		moods.DELETE("/:uid", h.Delete)
	}
}

func (h *MoodHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	moods, err := h.moods.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, moods)
}

func (h *MoodHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.CreateMoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	mood, err := h.moods.Create(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mood)
}

func (h *MoodHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	mood, err := h.moods.Get(c.Request.Context(), actor, c.Param("uid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mood)
}

func (h *MoodHandler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.UpdateMoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	mood, err := h.moods.Update(c.Request.Context(), actor, c.Param("uid"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mood)
}

func (h *MoodHandler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.moods.Delete(c.Request.Context(), actor, c.Param("uid")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
