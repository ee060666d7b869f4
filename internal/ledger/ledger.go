package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrWalletNotFound occurs when no wallet exists for the requested owner.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds occurs when the ledger balance cannot cover a
	// requested debit. The check always runs after the row lock is held.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletInactive occurs when a mutation targets a wallet whose
	// is_active flag is off. Settlement of already-accepted mutations is not
	// gated by this flag.
	ErrWalletInactive = errors.New("wallet is not active")

	// ErrDuplicateReference indicates a transaction reference collision. References
	// are generated, so a collision is a programming bug rather than a retryable
	// condition.
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrAlreadySettled indicates a settlement reference was applied before.
	// Replayed queue deliveries surface this and must be acknowledged without
	// touching balances again.
	ErrAlreadySettled = errors.New("settlement already applied")

	// ErrSettlementShortfall indicates a settlement debit would push the settled
	// balance negative even though the ledger check passed at mutation time.
	// This is a consistency fault, never corrected silently.
	ErrSettlementShortfall = errors.New("settled balance shortfall")
)

// Wallet statuses. Status is administrative metadata; IsActive independently
// gates whether mutations are permitted.
const (
	StatusActive     = "ACTIVE"
	StatusInactive   = "INACTIVE"
	StatusTerminated = "TERMINATED"
	StatusBlocked    = "BLOCKED"
)

// Transaction types and terminal statuses.
const (
	TypeCredit = "CREDIT"
	TypeDebit  = "DEBIT"

	TxStatusPending = "PENDING"
	TxStatusSuccess = "SUCCESS"
	TxStatusFailed  = "FAILED"
)

// Wallet is a stored-value account. Balance and PreviousBalance belong to the
// settlement path; LedgerBalance is updated synchronously at mutation time.
type Wallet struct {
	ID              string
	OwnerID         string
	Balance         decimal.Decimal
	PreviousBalance decimal.Decimal
	LedgerBalance   decimal.Decimal
	Status          string
	IsActive        bool
	CreatedAt       time.Time
}

// Transaction is one immutable row of wallet history.
type Transaction struct {
	ID             string
	OwnerID        string
	CounterpartyID string
	Type           string
	Amount         decimal.Decimal
	AmountBefore   decimal.Decimal
	AmountAfter    decimal.Decimal
	Reference      string
	Status         string
	CreatedAt      time.Time
}

// Mutation reports the ledger balance transition produced by a single
// credit or debit.
type Mutation struct {
	Reference    string
	LedgerBefore decimal.Decimal
	LedgerAfter  decimal.Decimal
}

// TransferMutation reports both legs of a completed transfer.
type TransferMutation struct {
	DebitReference  string
	CreditReference string
	SenderLedger    decimal.Decimal
	RecipientLedger decimal.Decimal
}

// Store is the contract implemented by wallet storage backends. Every mutation
// method executes as one atomic unit: the balance update and its transaction
// row commit together or not at all.
type Store interface {
	// CreateWallet provisions a zero-balance active wallet for the owner.
	CreateWallet(ctx context.Context, ownerID string) (Wallet, error)

	// WalletByOwner performs a non-locking snapshot read.
	WalletByOwner(ctx context.Context, ownerID string) (Wallet, error)

	// Credit locks the wallet row, raises the ledger balance and appends a
	// CREDIT transaction under the given reference.
	Credit(ctx context.Context, ownerID string, amount decimal.Decimal, reference string) (Mutation, error)

	// Debit locks the wallet row, verifies funds while holding the lock,
	// lowers the ledger balance and appends a DEBIT transaction.
	Debit(ctx context.Context, ownerID string, amount decimal.Decimal, reference string) (Mutation, error)

	// Transfer moves amount between two wallets. Both rows are locked in
	// ascending owner-id order and both legs commit in the same transaction.
	Transfer(ctx context.Context, ownerID, counterpartyID string, amount decimal.Decimal, debitRef, creditRef string) (TransferMutation, error)

	// SettleCredit applies a settlement credit to the spendable balance,
	// snapshotting the prior value into PreviousBalance. The reference is
	// recorded so a replay returns ErrAlreadySettled.
	SettleCredit(ctx context.Context, ownerID string, amount decimal.Decimal, reference string) error

	// SettleDebit is the debit counterpart of SettleCredit. A balance that
	// cannot cover the amount yields ErrSettlementShortfall.
	SettleDebit(ctx context.Context, ownerID string, amount decimal.Decimal, reference string) error

	// Transactions lists wallet history newest first.
	Transactions(ctx context.Context, ownerID string, limit, offset int) ([]Transaction, error)
}
