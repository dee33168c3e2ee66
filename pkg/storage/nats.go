package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const natsPingTimeout = 2 * time.Second

// NATSStore keeps blobs in a JetStream object store bucket. Blobs are not
// reachable by clients directly; the router serves them through Get under
// baseURL.
type NATSStore struct {
	conn    *nats.Conn
	store   nats.ObjectStore
	bucket  string
	baseURL string
}

// NewNATSStore connects to url and creates or binds the bucket.
func NewNATSStore(url, bucket, baseURL string) (*NATSStore, error) {
	conn, err := nats.Connect(url, nats.Name("voice-dialogue-media"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}

	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "Conversation audio and avatar video",
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			conn.Close()
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucket, err)
		}
		store, err = js.ObjectStore(bucket)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucket, err)
		}
	}

	return &NATSStore{conn: conn, store: store, bucket: bucket, baseURL: baseURL}, nil
}

// Put saves data under key and returns the URL the router serves it from.
func (s *NATSStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}

	_, err = s.store.Put(&nats.ObjectMeta{
		Name: key,
		Headers: nats.Header{
			"Content-Type": []string{ContentType(key)},
		},
	}, bytes.NewReader(data), nats.Context(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, s.bucket, err)
	}

	return PublicURL(s.baseURL, key), nil
}

// Get reads the blob stored under key.
func (s *NATSStore) Get(ctx context.Context, key string) ([]byte, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := s.store.GetBytes(key, nats.Context(ctx))
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, s.bucket, err)
	}
	return data, nil
}

// Delete removes key. Missing objects are ignored.
func (s *NATSStore) Delete(_ context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := s.store.Delete(key); err != nil && !errors.Is(err, nats.ErrObjectNotFound) {
		return fmt.Errorf("failed to delete object '%s' from bucket '%s': %w", key, s.bucket, err)
	}
	return nil
}

// Ping reports whether the server connection is usable.
func (s *NATSStore) Ping(ctx context.Context) error {
	if !s.conn.IsConnected() {
		return fmt.Errorf("nats connection is %s", s.conn.Status())
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, natsPingTimeout)
		defer cancel()
	}
	return s.conn.FlushWithContext(ctx)
}

// Close drains the connection.
func (s *NATSStore) Close() error {
	return s.conn.Drain()
}
