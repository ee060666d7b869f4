package person

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidPINFormat rejects registration PINs that are not 4-6 digits.
	ErrInvalidPINFormat = errors.New("pin must be 4 to 6 digits")

	// ErrBlacklisted rejects registration for a denylisted phone number.
	ErrBlacklisted = errors.New("phone number is not eligible for registration")
)

// Service manages wallet owner lifecycle.
type Service struct {
	repo      Repository
	blacklist Blacklist
}

// NewService creates a new person service.
func NewService(repo Repository, blacklist Blacklist) *Service {
	return &Service{repo: repo, blacklist: blacklist}
}

// RegisterInput captures data required to register an owner.
type RegisterInput struct {
	Phone string
	PIN   string
}

// Register creates a person with a hashed transaction PIN and their wallet in
// one atomic unit.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Person, error) {
	if !validPIN(input.PIN) {
		return Person{}, ErrInvalidPINFormat
	}
	if s.blacklist.Blacklisted(input.Phone) {
		return Person{}, ErrBlacklisted
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.PIN), bcrypt.DefaultCost)
	if err != nil {
		return Person{}, err
	}

	p := Person{
		ID:        uuid.NewString(),
		Phone:     input.Phone,
		PINHash:   hash,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Person{}, err
	}

	return p, nil
}

// Get fetches a person by identifier.
func (s *Service) Get(ctx context.Context, id string) (Person, error) {
	return s.repo.FindByID(ctx, id)
}

func validPIN(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
