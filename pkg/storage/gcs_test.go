package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGCS speaks just enough of the JSON API for object insert and delete.
type fakeGCS struct {
	mu      sync.Mutex
	bodies  []string
	deleted []string
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()

	const objectPath = "/storage/v1/b/media/o/"
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/upload/storage/v1/b/media/o":
		f.bodies = append(f.bodies, string(body))
		if r.URL.Query().Get("uploadType") == "resumable" {
			w.Header().Set("Location", "http://"+r.Host+"/upload/session")
			w.WriteHeader(http.StatusOK)
			return
		}
		writeObject(w)
	case r.Method == http.MethodPut && r.URL.Path == "/upload/session":
		f.bodies = append(f.bodies, string(body))
		writeObject(w)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, objectPath):
		name := strings.TrimPrefix(r.URL.Path, objectPath)
		f.deleted = append(f.deleted, name)
		if strings.Contains(name, "missing") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":404,"message":"No such object"}}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusTeapot)
	}
}

func writeObject(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"bucket":"media","name":"audio/user_abc.mp3","contentType":"audio/mpeg"}`)
}

func newFakeGCSStore(t *testing.T, publicBase string) (*GCSStore, *fakeGCS) {
	t.Helper()

	fake := &fakeGCS{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	t.Setenv("STORAGE_EMULATOR_HOST", srv.URL)

	store, err := NewGCSStore(context.Background(), GCSConfig{Bucket: "media", PublicBaseURL: publicBase})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, fake
}

func TestGCSStorePutReturnsPublicURL(t *testing.T) {
	store, fake := newFakeGCSStore(t, "https://cdn.example.com/")
	ctx := context.Background()

	ref, err := store.Put(ctx, "audio/user_abc.mp3", []byte("mp3 bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/audio/user_abc.mp3", ref)

	fake.mu.Lock()
	uploaded := strings.Join(fake.bodies, "\n")
	fake.mu.Unlock()
	assert.Contains(t, uploaded, "mp3 bytes")

	_, err = store.Put(ctx, "../escape", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestGCSStoreDefaultsToBucketURL(t *testing.T) {
	store, _ := newFakeGCSStore(t, "")

	ref, err := store.Put(context.Background(), "audio/user_abc.mp3", []byte("mp3"))
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/media/audio/user_abc.mp3", ref)
}

func TestGCSStoreDeleteIgnoresMissingObjects(t *testing.T) {
	store, fake := newFakeGCSStore(t, "")
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "audio/user_abc.mp3"))
	require.NoError(t, store.Delete(ctx, "audio/missing.mp3"))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"audio/user_abc.mp3", "audio/missing.mp3"}, fake.deleted)
}

func TestNewGCSStoreRequiresBucket(t *testing.T) {
	_, err := NewGCSStore(context.Background(), GCSConfig{})
	assert.Error(t, err)
}
