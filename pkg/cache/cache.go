package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Store is a byte-oriented cache. The in-memory Cache and the redis client
// both satisfy it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type item struct {
	value      []byte
	expiration int64
}

func (it item) expired(now int64) bool {
	return it.expiration != 0 && now > it.expiration
}

// Cache is a thread-safe in-memory cache with expiration
type Cache struct {
	mu       sync.RWMutex
	items    map[string]item
	maxItems int
	stop     chan struct{}
}

// New creates a cache that purges expired entries every cleanupInterval.
// maxItems <= 0 means unbounded.
func New(cleanupInterval time.Duration, maxItems int) *Cache {
	c := &Cache{
		items:    make(map[string]item),
		maxItems: maxItems,
		stop:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}
	return c
}

// Get returns a copy of the value stored under key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || it.expired(time.Now().UnixNano()) {
		return nil, false, nil
	}
	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, true, nil
}

// Set stores value under key. ttl <= 0 never expires.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.evictOne()
	}
	c.items[key] = item{value: stored, expiration: exp}
	return nil
}

// Del removes keys.
func (c *Cache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the janitor.
func (c *Cache) Close() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

// evictOne drops an expired entry if there is one, else the entry closest to expiry.
func (c *Cache) evictOne() {
	now := time.Now().UnixNano()
	var (
		victim string
		best   int64 = -1
	)
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
			return
		}
		if it.expiration != 0 && (best < 0 || it.expiration < best) {
			victim, best = k, it.expiration
		}
	}
	if best < 0 {
		for k := range c.items {
			victim = k
			break
		}
	}
	delete(c.items, victim)
}

func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now().UnixNano()
			c.mu.Lock()
			for k, it := range c.items {
				if it.expired(now) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

// GetJSON decodes the cached value under key into dst.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw, ttl)
}

// Noop is a Store that never hits. Used when caching is disabled.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Del(context.Context, ...string) error { return nil }
