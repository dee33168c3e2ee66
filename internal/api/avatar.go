package api

import (
	"io"
	"net/http"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/internal/service"
	"voice-dialogue-demo/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// AvatarHandler exposes the voice profile registry
type AvatarHandler struct {
	avatars      *service.AvatarService
	maxVideoSize int64
}

// NewAvatarHandler creates an AvatarHandler. Uploads above maxVideoSize bytes are rejected.
func NewAvatarHandler(avatars *service.AvatarService, maxVideoSize int64) *AvatarHandler {
	return &AvatarHandler{avatars: avatars, maxVideoSize: maxVideoSize}
}

// RegisterRoutes mounts the avatar endpoints on an authenticated group.
func (h *AvatarHandler) RegisterRoutes(rg *gin.RouterGroup) {
	avatars := rg.Group("/avatar")
	{
		avatars.GET("", h.List)
		avatars.POST("", h.Create)
		avatars.GET("/:uid", h.Get)
		avatars.PATCH("/:uid", h.Update)
		avatars.DELETE("/:uid", h.Delete)
		avatars.POST("/:uid/video", h.UploadVideo)
	}
}

// List returns the caller's avatars and the global ones
func (h *AvatarHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	avatars, err := h.avatars.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avatars)
}

// Create registers a voice profile
func (h *AvatarHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.CreateAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	avatar, err := h.avatars.Create(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, avatar)
}

// Get returns one avatar
func (h *AvatarHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	avatar, err := h.avatars.Get(c.Request.Context(), actor, c.Param("uid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avatar)
}

// Update applies a partial update
func (h *AvatarHandler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.UpdateAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	avatar, err := h.avatars.Update(c.Request.Context(), actor, c.Param("uid"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avatar)
}

// Delete soft-deletes an avatar
func (h *AvatarHandler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.avatars.Delete(c.Request.Context(), actor, c.Param("uid")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadVideo stores the multipart "video" file as the avatar's demo video
func (h *AvatarHandler) UploadVideo(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	file, err := c.FormFile("video")
	if err != nil {
		bindError(c, err)
		return
	}
	if h.maxVideoSize > 0 && file.Size > h.maxVideoSize {
		respondError(c, errors.NewBadRequestError("FILE_TOO_LARGE", "Video exceeds the maximum upload size"))
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, err)
		return
	}

	avatar, err := h.avatars.AttachVideo(c.Request.Context(), actor, c.Param("uid"), file.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avatar)
}
