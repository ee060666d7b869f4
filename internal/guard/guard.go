// Package guard provides best-effort suppression of rapid repeated mutation
// submissions. Markers are advisory throttling only; the authoritative funds
// check happens under the wallet row lock.
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard tracks short-lived markers per owner and operation kind. Locked and
// Lock are split because funding arms its marker before the atomic write while
// withdrawals and transfers arm it only after a successful apply.
type Guard interface {
	// Locked reports whether a marker is currently armed for the key.
	Locked(ctx context.Context, key string) (bool, error)
	// Lock arms the marker for the configured window.
	Lock(ctx context.Context, key string) error
}

// Key builds the marker key for an operation kind and owner, e.g.
// "funding:1b4e...".
func Key(kind, ownerID string) string {
	return kind + ":" + ownerID
}

// RedisGuard stores markers in Redis with a fixed TTL. It fails closed: a
// Redis error is surfaced to the caller and the mutation is rejected, trading
// availability for never weakening the throttle.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard builds a Redis-backed guard with the given marker window.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// Locked reports whether a marker exists for the key.
func (g *RedisGuard) Locked(ctx context.Context, key string) (bool, error) {
	if err := g.client.Get(ctx, key).Err(); err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("guard lookup: %w", err)
	}
	return true, nil
}

// Lock arms the marker. SetNX keeps an existing marker's expiry intact when
// two submissions race.
func (g *RedisGuard) Lock(ctx context.Context, key string) error {
	if err := g.client.SetNX(ctx, key, "1", g.ttl).Err(); err != nil {
		return fmt.Errorf("guard reservation: %w", err)
	}
	return nil
}

type memoryGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	markers map[string]time.Time
	now     func() time.Time
}

// NewMemory creates an in-memory guard for tests.
func NewMemory(ttl time.Duration) Guard {
	return &memoryGuard{ttl: ttl, markers: make(map[string]time.Time), now: time.Now}
}

func (g *memoryGuard) Locked(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	expiry, ok := g.markers[key]
	if !ok {
		return false, nil
	}
	if g.now().After(expiry) {
		delete(g.markers, key)
		return false, nil
	}
	return true, nil
}

func (g *memoryGuard) Lock(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if expiry, ok := g.markers[key]; ok && g.now().Before(expiry) {
		return nil
	}
	g.markers[key] = g.now().Add(g.ttl)
	return nil
}
