package person

import (
	"context"
	"sync"

	"github.com/kudi-pay/kudi_pay/internal/ledger"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]Person
	byPhone map[string]string
	store   ledger.Store
}

// NewMemoryRepository constructs an in-memory repository for tests. Wallet
// provisioning is delegated to the given store to mirror the atomic
// person+wallet creation of the Postgres implementation.
func NewMemoryRepository(store ledger.Store) Repository {
	return &memoryRepository{
		byID:    make(map[string]Person),
		byPhone: make(map[string]string),
		store:   store,
	}
}

func (r *memoryRepository) Create(ctx context.Context, p Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byPhone[p.Phone]; exists {
		return ErrExists
	}
	if _, err := r.store.CreateWallet(ctx, p.ID); err != nil {
		return err
	}
	r.byID[p.ID] = p
	r.byPhone[p.Phone] = p.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return Person{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) PINHash(_ context.Context, ownerID string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.PINHash, nil
}
