package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type inMemoryStore struct {
	mu           sync.RWMutex
	wallets      map[string]*Wallet
	transactions map[string][]Transaction
	references   map[string]struct{}
	settled      map[string]struct{}
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests.
func NewInMemory() Store {
	return &inMemoryStore{
		wallets:      make(map[string]*Wallet),
		transactions: make(map[string][]Transaction),
		references:   make(map[string]struct{}),
		settled:      make(map[string]struct{}),
	}
}

func (s *inMemoryStore) CreateWallet(_ context.Context, ownerID string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[ownerID]; exists {
		return Wallet{}, fmt.Errorf("wallet exists for owner %s", ownerID)
	}
	w := &Wallet{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Balance:         decimal.Zero,
		PreviousBalance: decimal.Zero,
		LedgerBalance:   decimal.Zero,
		Status:          StatusActive,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
	}
	s.wallets[ownerID] = w
	return *w, nil
}

func (s *inMemoryStore) WalletByOwner(_ context.Context, ownerID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[ownerID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return *w, nil
}

func (s *inMemoryStore) Credit(_ context.Context, ownerID string, amount decimal.Decimal, reference string) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(ownerID, "", TypeCredit, amount, reference)
}

func (s *inMemoryStore) Debit(_ context.Context, ownerID string, amount decimal.Decimal, reference string) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(ownerID, "", TypeDebit, amount, reference)
}

func (s *inMemoryStore) mutateLocked(ownerID, counterpartyID, txType string, amount decimal.Decimal, reference string) (Mutation, error) {
	w, ok := s.wallets[ownerID]
	if !ok {
		return Mutation{}, ErrWalletNotFound
	}
	if !w.IsActive {
		return Mutation{}, ErrWalletInactive
	}
	if _, dup := s.references[reference]; dup {
		return Mutation{}, fmt.Errorf("%w: %s", ErrDuplicateReference, reference)
	}

	before := w.LedgerBalance
	var after decimal.Decimal
	switch txType {
	case TypeCredit:
		after = before.Add(amount)
	case TypeDebit:
		if before.LessThan(amount) {
			return Mutation{}, ErrInsufficientFunds
		}
		after = before.Sub(amount)
	default:
		return Mutation{}, fmt.Errorf("unknown transaction type %q", txType)
	}

	w.LedgerBalance = after
	s.references[reference] = struct{}{}
	s.transactions[ownerID] = append(s.transactions[ownerID], Transaction{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		CounterpartyID: counterpartyID,
		Type:           txType,
		Amount:         amount,
		AmountBefore:   before,
		AmountAfter:    after,
		Reference:      reference,
		Status:         TxStatusSuccess,
		CreatedAt:      time.Now().UTC(),
	})

	return Mutation{Reference: reference, LedgerBefore: before, LedgerAfter: after}, nil
}

func (s *inMemoryStore) Transfer(_ context.Context, ownerID, counterpartyID string, amount decimal.Decimal, debitRef, creditRef string) (TransferMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Both legs are validated before either applies, so a rejection leaves no
	// trace on either wallet.
	sender, ok := s.wallets[ownerID]
	if !ok {
		return TransferMutation{}, ErrWalletNotFound
	}
	recipient, ok := s.wallets[counterpartyID]
	if !ok {
		return TransferMutation{}, ErrWalletNotFound
	}
	if !sender.IsActive || !recipient.IsActive {
		return TransferMutation{}, ErrWalletInactive
	}
	for _, ref := range []string{debitRef, creditRef} {
		if _, dup := s.references[ref]; dup {
			return TransferMutation{}, fmt.Errorf("%w: %s", ErrDuplicateReference, ref)
		}
	}
	if sender.LedgerBalance.LessThan(amount) {
		return TransferMutation{}, ErrInsufficientFunds
	}

	debit, err := s.mutateLocked(ownerID, counterpartyID, TypeDebit, amount, debitRef)
	if err != nil {
		return TransferMutation{}, err
	}
	credit, err := s.mutateLocked(counterpartyID, ownerID, TypeCredit, amount, creditRef)
	if err != nil {
		return TransferMutation{}, err
	}

	return TransferMutation{
		DebitReference:  debitRef,
		CreditReference: creditRef,
		SenderLedger:    debit.LedgerAfter,
		RecipientLedger: credit.LedgerAfter,
	}, nil
}

func (s *inMemoryStore) SettleCredit(_ context.Context, ownerID string, amount decimal.Decimal, reference string) error {
	return s.settle(ownerID, TypeCredit, amount, reference)
}

func (s *inMemoryStore) SettleDebit(_ context.Context, ownerID string, amount decimal.Decimal, reference string) error {
	return s.settle(ownerID, TypeDebit, amount, reference)
}

func (s *inMemoryStore) settle(ownerID, direction string, amount decimal.Decimal, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.settled[reference]; done {
		return ErrAlreadySettled
	}
	w, ok := s.wallets[ownerID]
	if !ok {
		return ErrWalletNotFound
	}

	var next decimal.Decimal
	switch direction {
	case TypeCredit:
		next = w.Balance.Add(amount)
	case TypeDebit:
		if w.Balance.LessThan(amount) {
			return ErrSettlementShortfall
		}
		next = w.Balance.Sub(amount)
	default:
		return fmt.Errorf("unknown settlement direction %q", direction)
	}

	w.PreviousBalance = w.Balance
	w.Balance = next
	s.settled[reference] = struct{}{}
	return nil
}

func (s *inMemoryStore) Transactions(_ context.Context, ownerID string, limit, offset int) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.transactions[ownerID]
	out := make([]Transaction, 0, limit)
	// Newest first: history is stored in append order.
	for i := len(history) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, history[i])
	}
	return out, nil
}
