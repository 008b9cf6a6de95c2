package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ReadThrough fronts an authoritative loader with a Cache. Concurrent misses
// for the same key share one load. A load never writes back over a Put or
// Invalidate that happened while it was running.
type ReadThrough struct {
	cache   Cache
	ttl     time.Duration
	log     *zap.Logger
	lookups *prometheus.CounterVec // result=hit|miss|error
	group   singleflight.Group

	mu      sync.Mutex
	loading map[string]bool // key -> written while the load ran
}

func NewReadThrough(c Cache, ttl time.Duration, log *zap.Logger, lookups *prometheus.CounterVec) *ReadThrough {
	if c == nil {
		c = Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReadThrough{cache: c, ttl: ttl, log: log, lookups: lookups, loading: make(map[string]bool)}
}

// Get returns the cached bytes for key, loading and populating on miss.
// Errors from load are returned as is; cache errors never are.
func (r *ReadThrough) Get(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, error) {
	b, err := r.cache.Get(ctx, key)
	if err == nil {
		r.count("hit")
		return b, nil
	}
	var miss *Miss
	if errors.As(err, &miss) && miss.Cause != nil {
		r.count("error")
		r.log.Warn("cache_get_failed", zap.String("key", key), zap.Error(miss.Cause))
	} else {
		r.count("miss")
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.Lock()
		r.loading[key] = false
		r.mu.Unlock()

		fresh, err := load(ctx)

		r.mu.Lock()
		defer r.mu.Unlock()
		overwritten := r.loading[key]
		delete(r.loading, key)
		if err != nil {
			return nil, err
		}
		if overwritten {
			r.log.Debug("cache_fill_skipped", zap.String("key", key))
		} else if perr := r.cache.Put(ctx, key, fresh, r.ttl); perr != nil {
			r.log.Warn("cache_put_failed", zap.String("key", key), zap.Error(perr))
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Put overwrites key. Failures are logged, not returned.
func (r *ReadThrough) Put(ctx context.Context, key string, value []byte) {
	r.touch(key)
	if err := r.cache.Put(ctx, key, value, r.ttl); err != nil {
		r.log.Warn("cache_put_failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops key. Failures are logged, not returned.
func (r *ReadThrough) Invalidate(ctx context.Context, key string) {
	r.touch(key)
	if err := r.cache.Invalidate(ctx, key); err != nil {
		r.log.Warn("cache_invalidate_failed", zap.String("key", key), zap.Error(err))
	}
}

// touch marks an in-flight load of key as stale.
func (r *ReadThrough) touch(key string) {
	r.mu.Lock()
	if _, ok := r.loading[key]; ok {
		r.loading[key] = true
	}
	r.mu.Unlock()
}

func (r *ReadThrough) count(result string) {
	if r.lookups != nil {
		r.lookups.WithLabelValues(result).Inc()
	}
}

// GetJSON is Get for a JSON-serialized T. A corrupt entry is dropped and
// reloaded once.
func GetJSON[T any](ctx context.Context, r *ReadThrough, key string, load func(context.Context) (T, error)) (T, error) {
	loadJSON := func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}
	var out T
	b, err := r.Get(ctx, key, loadJSON)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err == nil {
		return out, nil
	}
	r.Invalidate(ctx, key)
	if b, err = r.Get(ctx, key, loadJSON); err != nil {
		return out, err
	}
	out = *new(T)
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return out, nil
}

// PutJSON serializes v and overwrites key.
func PutJSON(ctx context.Context, r *ReadThrough, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		r.log.Warn("cache_encode_failed", zap.String("key", key), zap.Error(err))
		r.Invalidate(ctx, key)
		return
	}
	r.Put(ctx, key, b)
}
