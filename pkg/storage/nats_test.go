package storage

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runJetStream(t *testing.T) *server.Server {
	t.Helper()

	opts := natstest.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	srv := natstest.RunServer(&opts)
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestNATSStoreRoundTrip(t *testing.T) {
	srv := runJetStream(t)

	store, err := NewNATSStore(srv.ClientURL(), "VOICE_MEDIA", "/media")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ref, err := store.Put(ctx, "audio/ai_abc.mp3", []byte("mp3 bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/media/audio/ai_abc.mp3", ref)

	data, err := store.Get(ctx, "audio/ai_abc.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3 bytes"), data)

	require.NoError(t, store.Ping(context.Background()))

	require.NoError(t, store.Delete(ctx, "audio/ai_abc.mp3"))
	_, err = store.Get(ctx, "audio/ai_abc.mp3")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	_, err = store.Get(ctx, "../escape")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNATSStoreBindsExistingBucket(t *testing.T) {
	srv := runJetStream(t)

	first, err := NewNATSStore(srv.ClientURL(), "VOICE_MEDIA", "/media")
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = first.Put(ctx, "video/user/av1/demo.mp4", []byte("video"))
	require.NoError(t, err)

	second, err := NewNATSStore(srv.ClientURL(), "VOICE_MEDIA", "/media")
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	data, err := second.Get(ctx, "video/user/av1/demo.mp4")
	require.NoError(t, err)
	assert.Equal(t, []byte("video"), data)
}
