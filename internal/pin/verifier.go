// Package pin verifies transaction PINs with a failure lockout window.
package pin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidPIN indicates the supplied PIN did not match the stored hash.
	ErrInvalidPIN = errors.New("invalid pin")

	// ErrTooManyAttempts indicates the owner exceeded the failed-attempt cap
	// and is locked out for the remainder of the window.
	ErrTooManyAttempts = errors.New("too many failed pin attempts")
)

// Source resolves the stored bcrypt PIN hash for an owner.
type Source interface {
	PINHash(ctx context.Context, ownerID string) ([]byte, error)
}

// Verifier checks a PIN for an owner.
type Verifier interface {
	Verify(ctx context.Context, ownerID, pin string) error
}

// Service verifies PINs against bcrypt hashes, caching hashes in Redis and
// counting consecutive failures per owner. After MaxAttempts failures inside
// the window the owner is locked out until the counter expires.
type Service struct {
	source      Source
	cache       *redis.Client
	maxAttempts int
	window      time.Duration
	cacheTTL    time.Duration
}

// NewService builds a PIN verifier.
func NewService(source Source, cache *redis.Client, maxAttempts int, window, cacheTTL time.Duration) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Service{source: source, cache: cache, maxAttempts: maxAttempts, window: window, cacheTTL: cacheTTL}
}

// Verify checks the PIN. A wrong PIN increments the failure counter; a correct
// one resets it.
func (s *Service) Verify(ctx context.Context, ownerID, pin string) error {
	attemptsKey := "pin_attempts:" + ownerID

	attempts, err := s.cache.Get(ctx, attemptsKey).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("pin attempts lookup: %w", err)
	}
	if err == nil {
		if n, convErr := strconv.Atoi(attempts); convErr == nil && n >= s.maxAttempts {
			return ErrTooManyAttempts
		}
	}

	hash, err := s.hashFor(ctx, ownerID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(pin)); err != nil {
		next := 1
		if n, convErr := strconv.Atoi(attempts); convErr == nil {
			next = n + 1
		}
		if err := s.cache.Set(ctx, attemptsKey, next, s.window).Err(); err != nil {
			return fmt.Errorf("record pin attempt: %w", err)
		}
		return ErrInvalidPIN
	}

	if err := s.cache.Set(ctx, attemptsKey, 0, s.window).Err(); err != nil {
		return fmt.Errorf("reset pin attempts: %w", err)
	}
	return nil
}

func (s *Service) hashFor(ctx context.Context, ownerID string) ([]byte, error) {
	cacheKey := "pin:" + ownerID

	cached, err := s.cache.Get(ctx, cacheKey).Result()
	if err == nil && cached != "" {
		return []byte(cached), nil
	}
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pin cache lookup: %w", err)
	}

	hash, err := s.source.PINHash(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, string(hash), s.cacheTTL).Err(); err != nil {
		return nil, fmt.Errorf("cache pin hash: %w", err)
	}
	return hash, nil
}
