package ledger

import "github.com/shopspring/decimal"

// SeedLedgerBalance is a test helper that overwrites the ledger balance for an
// owner when using the in-memory store.
func SeedLedgerBalance(s Store, ownerID string, amount decimal.Decimal) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if w, exists := mem.wallets[ownerID]; exists {
			w.LedgerBalance = amount
		}
	}
}

// SeedSettledBalance is a test helper that overwrites the settled balance for
// an owner when using the in-memory store.
func SeedSettledBalance(s Store, ownerID string, amount decimal.Decimal) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if w, exists := mem.wallets[ownerID]; exists {
			w.Balance = amount
		}
	}
}

// DeactivateWallet is a test helper that flips the is_active flag off for an
// owner when using the in-memory store.
func DeactivateWallet(s Store, ownerID string) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if w, exists := mem.wallets[ownerID]; exists {
			w.IsActive = false
			w.Status = StatusInactive
		}
	}
}
