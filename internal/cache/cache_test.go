package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
)

func newRedisCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb), mr
}

func TestRedisRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	want := []byte(`{"id":"o-1","totalAmount":"12.5"}`)
	if err := c.Put(ctx, "order:o-1", want, 5*time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get(ctx, "order:o-1")
	if err != nil || string(got) != string(want) {
		t.Fatalf("Get = %q, %v", got, err)
	}

	mr.FastForward(5*time.Minute + time.Second)
	if _, err := c.Get(ctx, "order:o-1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestRedisUnavailableIsMiss(t *testing.T) {
	c, mr := newRedisCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "order:x")
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	var m *Miss
	if !errors.As(err, &m) || m.Cause == nil {
		t.Fatalf("expected miss with cause, got %#v", err)
	}
}

func TestReadThroughLoadsOnceThenHits(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisCache(t)
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lookups"}, []string{"result"})
	rt := NewReadThrough(c, 5*time.Minute, nil, lookups)

	var loads int32
	load := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&loads, 1)
		return []byte(`"v1"`), nil
	}

	for i := 0; i < 3; i++ {
		b, err := rt.Get(ctx, "product:p", load)
		if err != nil || string(b) != `"v1"` {
			t.Fatalf("Get = %q, %v", b, err)
		}
	}
	if loads != 1 {
		t.Fatalf("loads = %d, want 1", loads)
	}
	if hits := testutil.ToFloat64(lookups.WithLabelValues("hit")); hits != 2 {
		t.Fatalf("hits = %v, want 2", hits)
	}

	rt.Invalidate(ctx, "product:p")
	if _, err := rt.Get(ctx, "product:p", load); err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if loads != 2 {
		t.Fatalf("loads = %d, want reload after invalidate", loads)
	}
}

func TestReadThroughSurvivesDeadCache(t *testing.T) {
	c, mr := newRedisCache(t)
	mr.Close()
	rt := NewReadThrough(c, time.Minute, nil, nil)

	b, err := rt.Get(context.Background(), "order:o", func(context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})
	if err != nil || string(b) != "fresh" {
		t.Fatalf("Get = %q, %v", b, err)
	}
	rt.Invalidate(context.Background(), "order:o")
}

func TestReadThroughPropagatesLoadError(t *testing.T) {
	rt := NewReadThrough(NewMemory(), time.Minute, nil, nil)
	boom := errors.New("not found")
	_, err := rt.Get(context.Background(), "order:o", func(context.Context) ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, err := rt.cache.Get(context.Background(), "order:o"); !errors.Is(err, ErrMiss) {
		t.Fatalf("failed load must not populate cache")
	}
}

func TestReadThroughCollapsesConcurrentMisses(t *testing.T) {
	rt := NewReadThrough(NewMemory(), time.Minute, nil, nil)
	release := make(chan struct{})
	var loads int32
	load := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return []byte("x"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = rt.Get(context.Background(), "k", load)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if loads != 1 {
		t.Fatalf("loads = %d, want 1", loads)
	}
}

func TestReadThroughLoadDoesNotOverwriteConcurrentPut(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	rt := NewReadThrough(mem, time.Minute, nil, nil)

	loaded := make(chan struct{})
	resume := make(chan struct{})
	done := make(chan []byte)
	go func() {
		b, _ := rt.Get(ctx, "order:o-1", func(context.Context) ([]byte, error) {
			close(loaded)
			<-resume
			return []byte(`"active"`), nil
		})
		done <- b
	}()

	<-loaded
	rt.Put(ctx, "order:o-1", []byte(`"canceled"`))
	close(resume)
	if b := <-done; string(b) != `"active"` {
		t.Fatalf("reader got %q", b)
	}

	b, err := mem.Get(ctx, "order:o-1")
	if err != nil || string(b) != `"canceled"` {
		t.Fatalf("cache = %q, %v; stale load overwrote the put", b, err)
	}
	if n := len(rt.loading); n != 0 {
		t.Fatalf("%d loads still tracked", n)
	}
}

func TestReadThroughLoadDoesNotResurrectInvalidated(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	rt := NewReadThrough(mem, time.Minute, nil, nil)

	loaded := make(chan struct{})
	resume := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = rt.Get(ctx, "order:o-1", func(context.Context) ([]byte, error) {
			close(loaded)
			<-resume
			return []byte(`"before delete"`), nil
		})
	}()

	<-loaded
	rt.Invalidate(ctx, "order:o-1")
	close(resume)
	<-done

	if _, err := mem.Get(ctx, "order:o-1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

type snapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestGetJSONAndCorruptEntry(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	rt := NewReadThrough(mem, time.Minute, nil, nil)

	_ = mem.Put(ctx, "product:p", []byte("{not json"), time.Minute)
	got, err := GetJSON(ctx, rt, "product:p", func(context.Context) (snapshot, error) {
		return snapshot{ID: "p", Name: "Pen"}, nil
	})
	if err != nil || got.Name != "Pen" {
		t.Fatalf("GetJSON = %+v, %v", got, err)
	}
	b, err := mem.Get(ctx, "product:p")
	if err != nil || string(b) != `{"id":"p","name":"Pen"}` {
		t.Fatalf("cache not repaired: %q, %v", b, err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	now := time.Unix(1000, 0)
	mem.now = func() time.Time { return now }

	_ = mem.Put(ctx, "k", []byte("v"), time.Minute)
	if _, err := mem.Get(ctx, "k"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	now = now.Add(time.Minute)
	if _, err := mem.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss at expiry, got %v", err)
	}
}
