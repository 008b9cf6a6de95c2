// Package cache is a best-effort cache-aside layer. Every failure of the
// backing store is reported as a miss; callers always fall back to the
// authoritative store.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss matches every *Miss via errors.Is.
var ErrMiss = errors.New("cache miss")

// Miss is returned by Get when no usable entry exists. Cause is set when the
// backing store failed rather than simply not holding the key.
type Miss struct {
	Key   string
	Cause error
}

func (m *Miss) Error() string {
	if m.Cause != nil {
		return "cache miss " + m.Key + ": " + m.Cause.Error()
	}
	return "cache miss " + m.Key
}

func (m *Miss) Is(target error) bool { return target == ErrMiss }
func (m *Miss) Unwrap() error { return m.Cause }

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Redis stores entries as plain strings with a TTL.
type Redis struct {
	RDB redis.Cmdable
}

func NewRedis(rdb redis.Cmdable) *Redis { return &Redis{RDB: rdb} }

func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.RDB.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &Miss{Key: key}
	}
	if err != nil {
		return nil, &Miss{Key: key, Cause: err}
	}
	return b, nil
}

func (c *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.RDB.Set(ctx, key, value, ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context, key string) error {
	return c.RDB.Del(ctx, key).Err()
}

// Memory is an in-process Cache used when no Redis is configured.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	val    []byte
	expiry time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memEntry{}, now: time.Now}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, &Miss{Key: key}
	}
	if !e.expiry.IsZero() && !c.now().Before(e.expiry) {
		delete(c.entries, key)
		return nil, &Miss{Key: key}
	}
	return append([]byte(nil), e.val...), nil
}

func (c *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memEntry{val: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiry = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *Memory) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(_ context.Context, key string) ([]byte, error) { return nil, &Miss{Key: key} }
func (Nop) Put(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Invalidate(context.Context, string) error { return nil }
