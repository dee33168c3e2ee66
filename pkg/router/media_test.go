package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"voice-dialogue-demo/backend/pkg/di"
	"voice-dialogue-demo/backend/pkg/errors"
	"voice-dialogue-demo/backend/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type objectStore map[string][]byte

func (o objectStore) Put(_ context.Context, key string, data []byte) (string, error) {
	o[key] = data
	return storage.PublicURL("/media", key), nil
}

func (o objectStore) Delete(_ context.Context, key string) error {
	delete(o, key)
	return nil
}

func (o objectStore) Get(_ context.Context, key string) ([]byte, error) {
	key, err := storage.CleanKey(key)
	if err != nil {
		return nil, err
	}
	data, ok := o[key]
	if !ok {
		return nil, storage.ErrBlobNotFound
	}
	return data, nil
}

func TestMediaIsProxiedForReadableStores(t *testing.T) {
	gin.SetMode(gin.TestMode)
	blobs := objectStore{}
	ref, err := blobs.Put(context.Background(), "audio/ai_abc.mp3", []byte("mp3"))
	assert.NoError(t, err)

	r := &Router{Engine: gin.New(), Container: &di.Container{Blobs: blobs}}
	r.Engine.Use(errors.ErrorHandler())
	r.mountMedia("/media/")

	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, ref, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "mp3", w.Body.String())

	w = httptest.NewRecorder()
	r.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/audio/missing.mp3", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "MEDIA_NOT_FOUND")
}
