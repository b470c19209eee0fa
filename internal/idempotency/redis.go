// Package idempotency remembers which Idempotency-Key produced which
// resource so a retried POST does not record the same transaction twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stockflow/internal/domain"
)

const (
	keyFormat = "idem:%s:%s"
	pending   = "pending"

	TTL = 24 * time.Hour
)

// commands is the subset of redis.Cmdable the guard needs.
type commands interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Guard reserves keys in Redis. A key holds "pending" while its request runs
// and the created resource id once it completed.
type Guard struct {
	rdb commands
	ttl time.Duration
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func NewGuard(rdb redis.Cmdable) *Guard {
	return &Guard{rdb: rdb, ttl: TTL}
}

func Key(scope, key string) string {
	return fmt.Sprintf(keyFormat, scope, key)
}

// Reserve claims key for scope. When the key already completed it returns the
// stored resource id and reserved=false. A key whose first request is still
// running yields a ConflictError.
func (g *Guard) Reserve(ctx context.Context, scope, key string) (storedID string, reserved bool, err error) {
	k := Key(scope, key)
	ok, err := g.rdb.SetNX(ctx, k, pending, g.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	val, err := g.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired or released between the two calls; try once more.
		ok, err = g.rdb.SetNX(ctx, k, pending, g.ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return "", true, nil
		}
		return "", false, domain.NewConflictError("a request with this Idempotency-Key is in progress")
	}
	if err != nil {
		return "", false, fmt.Errorf("read idempotency key: %w", err)
	}
	if val == pending {
		return "", false, domain.NewConflictError("a request with this Idempotency-Key is in progress")
	}
	return val, false, nil
}

// Complete stores the id of the resource the reserved request created.
func (g *Guard) Complete(ctx context.Context, scope, key, id string) error {
	if err := g.rdb.Set(ctx, Key(scope, key), id, g.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release drops a reservation whose request failed so it can be retried.
func (g *Guard) Release(ctx context.Context, scope, key string) error {
	if err := g.rdb.Del(ctx, Key(scope, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
