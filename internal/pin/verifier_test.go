package pin

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

type mapSource map[string][]byte

func (m mapSource) PINHash(_ context.Context, ownerID string) ([]byte, error) {
	hash, ok := m[ownerID]
	if !ok {
		return nil, errors.New("owner not found")
	}
	return hash, nil
}

func setupVerifier(t *testing.T, maxAttempts int) (*Service, *miniredis.Miniredis, string) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}

	ownerID := "owner-1"
	source := mapSource{ownerID: hash}
	svc := NewService(source, client, maxAttempts, 5*time.Minute, 10*time.Minute)
	return svc, mr, ownerID
}

func TestVerifyCorrectPIN(t *testing.T) {
	svc, _, owner := setupVerifier(t, 5)
	if err := svc.Verify(context.Background(), owner, "1234"); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyWrongPIN(t *testing.T) {
	svc, _, owner := setupVerifier(t, 5)
	if err := svc.Verify(context.Background(), owner, "9999"); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected invalid pin, got %v", err)
	}
}

func TestVerifyLockoutAfterMaxAttempts(t *testing.T) {
	svc, mr, owner := setupVerifier(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.Verify(ctx, owner, "9999"); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("attempt %d: expected invalid pin, got %v", i, err)
		}
	}

	// The cap is reached: even the correct PIN is rejected.
	if err := svc.Verify(ctx, owner, "1234"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected lockout, got %v", err)
	}

	// Lockout clears once the window passes.
	mr.FastForward(6 * time.Minute)
	if err := svc.Verify(ctx, owner, "1234"); err != nil {
		t.Fatalf("verify after window: %v", err)
	}
}

func TestVerifyResetsCounterOnSuccess(t *testing.T) {
	svc, _, owner := setupVerifier(t, 3)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.Verify(ctx, owner, "9999"); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("expected invalid pin, got %v", err)
		}
	}
	if err := svc.Verify(ctx, owner, "1234"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// The earlier failures no longer count toward the cap.
	for i := 0; i < 2; i++ {
		if err := svc.Verify(ctx, owner, "9999"); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("expected invalid pin after reset, got %v", err)
		}
	}
}

func TestVerifyCachesHash(t *testing.T) {
	svc, _, owner := setupVerifier(t, 5)
	ctx := context.Background()

	if err := svc.Verify(ctx, owner, "1234"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// Drop the source entry; the cached hash must still satisfy lookups.
	for k := range svc.source.(mapSource) {
		delete(svc.source.(mapSource), k)
	}
	if err := svc.Verify(ctx, owner, "1234"); err != nil {
		t.Fatalf("verify from cache: %v", err)
	}
}
