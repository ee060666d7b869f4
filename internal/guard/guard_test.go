package guard

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisGuard(t *testing.T) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisGuard(client, 30*time.Second), mr
}

func TestRedisGuardLockCycle(t *testing.T) {
	g, mr := setupRedisGuard(t)
	ctx := context.Background()
	key := Key("funding", "owner-1")

	locked, err := g.Locked(ctx, key)
	if err != nil {
		t.Fatalf("locked: %v", err)
	}
	if locked {
		t.Fatal("expected key unlocked before Lock")
	}

	if err := g.Lock(ctx, key); err != nil {
		t.Fatalf("lock: %v", err)
	}

	locked, err = g.Locked(ctx, key)
	if err != nil {
		t.Fatalf("locked: %v", err)
	}
	if !locked {
		t.Fatal("expected key locked after Lock")
	}

	// Markers expire after the window.
	mr.FastForward(31 * time.Second)

	locked, err = g.Locked(ctx, key)
	if err != nil {
		t.Fatalf("locked after expiry: %v", err)
	}
	if locked {
		t.Fatal("expected marker to expire")
	}
}

func TestRedisGuardKeysAreIndependent(t *testing.T) {
	g, _ := setupRedisGuard(t)
	ctx := context.Background()

	if err := g.Lock(ctx, Key("funding", "owner-1")); err != nil {
		t.Fatalf("lock: %v", err)
	}

	// A funding marker must not block withdrawals, nor other owners.
	for _, key := range []string{Key("withdrawal", "owner-1"), Key("funding", "owner-2")} {
		locked, err := g.Locked(ctx, key)
		if err != nil {
			t.Fatalf("locked %s: %v", key, err)
		}
		if locked {
			t.Fatalf("expected %s unlocked", key)
		}
	}
}

func TestRedisGuardFailsClosed(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	g := NewRedisGuard(client, 30*time.Second)

	mr.Close()

	if _, err := g.Locked(context.Background(), Key("funding", "owner-1")); err == nil {
		t.Fatal("expected error when guard store is unreachable")
	}
}

func TestMemoryGuardExpiry(t *testing.T) {
	g := NewMemory(10 * time.Millisecond)
	ctx := context.Background()
	key := Key("transfer", "owner-1")

	if err := g.Lock(ctx, key); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locked, _ := g.Locked(ctx, key); !locked {
		t.Fatal("expected key locked")
	}

	time.Sleep(20 * time.Millisecond)

	if locked, _ := g.Locked(ctx, key); locked {
		t.Fatal("expected marker to expire")
	}
}
