package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"stockflow/internal/domain"
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestGuard_ReserveCompleteReplay(t *testing.T) {
	rdb := newFakeRedis()
	g := &Guard{rdb: rdb, ttl: TTL}
	ctx := context.Background()

	id, reserved, err := g.Reserve(ctx, "sale", "abc")
	if err != nil || !reserved || id != "" {
		t.Fatalf("expected fresh reservation, got id=%q reserved=%v err=%v", id, reserved, err)
	}
	if rdb.ttls["idem:sale:abc"] != 24*time.Hour {
		t.Fatalf("expected 24h ttl, got %s", rdb.ttls["idem:sale:abc"])
	}

	if _, _, err := g.Reserve(ctx, "sale", "abc"); !domain.IsConflictError(err) {
		t.Fatalf("expected ConflictError while in flight, got %v", err)
	}

	if err := g.Complete(ctx, "sale", "abc", "42"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	id, reserved, err = g.Reserve(ctx, "sale", "abc")
	if err != nil || reserved || id != "42" {
		t.Fatalf("expected replay of 42, got id=%q reserved=%v err=%v", id, reserved, err)
	}

	if _, reserved, _ := g.Reserve(ctx, "purchase", "abc"); !reserved {
		t.Fatalf("scopes must not share keys")
	}
}

func TestGuard_ReleaseAllowsRetry(t *testing.T) {
	g := &Guard{rdb: newFakeRedis(), ttl: TTL}
	ctx := context.Background()

	if _, reserved, _ := g.Reserve(ctx, "return", "k"); !reserved {
		t.Fatalf("expected reservation")
	}
	if err := g.Release(ctx, "return", "k"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, reserved, err := g.Reserve(ctx, "return", "k"); err != nil || !reserved {
		t.Fatalf("expected fresh reservation after release, got reserved=%v err=%v", reserved, err)
	}
}

func TestGuard_ConcurrentReserveSingleWinner(t *testing.T) {
	g := &Guard{rdb: newFakeRedis(), ttl: TTL}
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, reserved, _ := g.Reserve(context.Background(), "sale", "same"); reserved {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one reservation, got %d", wins.Load())
	}
}

func TestGuard_RedisError(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("connection refused")
	g := &Guard{rdb: rdb, ttl: TTL}

	if _, _, err := g.Reserve(context.Background(), "sale", "k"); err == nil || domain.IsConflictError(err) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
}
