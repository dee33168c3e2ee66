package router

import (
	stderrors "errors"
	"net/http"
	"strings"

	"voice-dialogue-demo/backend/pkg/errors"
	"voice-dialogue-demo/backend/pkg/storage"

	"github.com/gin-gonic/gin"
)

// mountMedia serves stored audio and video under base. Local blobs are served
// from disk; stores that implement storage.BlobReader are proxied. Stores
// with their own public URLs (GCS) need no route.
func (r *Router) mountMedia(base string) {
	c := r.Container
	if c.MediaRoot != "" {
		r.Engine.Static(base, c.MediaRoot)
		return
	}
	if reader, ok := c.Blobs.(storage.BlobReader); ok {
		r.Engine.GET(strings.TrimRight(base, "/")+"/*key", serveBlob(reader))
	}
}

func serveBlob(reader storage.BlobReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		data, err := reader.Get(c.Request.Context(), key)
		if err != nil {
			if stderrors.Is(err, storage.ErrBlobNotFound) || stderrors.Is(err, storage.ErrInvalidKey) {
				c.Error(errors.NewNotFoundError("MEDIA_NOT_FOUND", "Media not found"))
				return
			}
			c.Error(err)
			return
		}
		c.Header("Cache-Control", "public, max-age=86400")
		c.Data(http.StatusOK, storage.ContentType(key), data)
	}
}
