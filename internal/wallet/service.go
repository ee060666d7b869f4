package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kudi-pay/kudi_pay/internal/guard"
	"github.com/kudi-pay/kudi_pay/internal/ledger"
	"github.com/kudi-pay/kudi_pay/internal/pin"
	"github.com/kudi-pay/kudi_pay/internal/settlement"
)

// Guard marker kinds, one per mutation operation.
const (
	guardFunding    = "funding"
	guardWithdrawal = "withdrawal"
	guardTransfer   = "transfer"
)

// Service is the balance-mutation engine: it validates a proposed mutation,
// applies it atomically through the store and hands the settlement leg to the
// queue. Requests on the same wallet serialize through the store's row lock.
type Service struct {
	store  ledger.Store
	guard  guard.Guard
	pins   pin.Verifier
	events settlement.Publisher
	logger *slog.Logger
}

// NewService wires the mutation engine.
func NewService(store ledger.Store, g guard.Guard, pins pin.Verifier, events settlement.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, guard: g, pins: pins, events: events, logger: logger}
}

// Receipt reports the outcome of a fund or withdraw mutation.
type Receipt struct {
	Reference     string
	LedgerBalance decimal.Decimal
}

// TransferReceipt reports the outcome of a transfer.
type TransferReceipt struct {
	DebitReference  string
	CreditReference string
	LedgerBalance   decimal.Decimal
}

// Fund credits the owner's ledger balance. A credit needs no funds check, so
// the wallet lookup before the atomic write is read-only.
func (s *Service) Fund(ctx context.Context, ownerID string, amount decimal.Decimal) (Receipt, error) {
	if !amount.IsPositive() {
		return Receipt{}, ErrInvalidAmount
	}
	if err := validOwnerID(ownerID); err != nil {
		return Receipt{}, err
	}

	key := guard.Key(guardFunding, ownerID)
	if err := s.checkGuard(ctx, key); err != nil {
		return Receipt{}, err
	}

	if _, err := s.store.WalletByOwner(ctx, ownerID); err != nil {
		return Receipt{}, mapStoreErr(err)
	}

	if err := s.guard.Lock(ctx, key); err != nil {
		return Receipt{}, err
	}

	reference := uuid.NewString()
	mutation, err := s.store.Credit(ctx, ownerID, amount, reference)
	if err != nil {
		return Receipt{}, mapStoreErr(err)
	}

	s.publish(ctx, settlement.Event{
		Kind:      settlement.KindCredit,
		OwnerID:   ownerID,
		Amount:    amount,
		Reference: reference,
	})

	return Receipt{Reference: reference, LedgerBalance: mutation.LedgerAfter}, nil
}

// Withdraw debits the owner's ledger balance after PIN verification. The funds
// check runs inside the store while the row lock is held, so concurrent
// withdrawals on one wallet cannot both pass it.
func (s *Service) Withdraw(ctx context.Context, ownerID string, amount decimal.Decimal, pinCode string) (Receipt, error) {
	if !amount.IsPositive() {
		return Receipt{}, ErrInvalidAmount
	}
	if err := validOwnerID(ownerID); err != nil {
		return Receipt{}, err
	}

	key := guard.Key(guardWithdrawal, ownerID)
	if err := s.checkGuard(ctx, key); err != nil {
		return Receipt{}, err
	}

	if err := s.verifyPIN(ctx, ownerID, pinCode); err != nil {
		return Receipt{}, err
	}

	reference := uuid.NewString()
	mutation, err := s.store.Debit(ctx, ownerID, amount, reference)
	if err != nil {
		return Receipt{}, mapStoreErr(err)
	}

	if err := s.guard.Lock(ctx, key); err != nil {
		return Receipt{}, err
	}

	s.publish(ctx, settlement.Event{
		Kind:      settlement.KindDebit,
		OwnerID:   ownerID,
		Amount:    amount,
		Reference: reference,
	})

	return Receipt{Reference: reference, LedgerBalance: mutation.LedgerAfter}, nil
}

// Transfer moves funds between two wallets as one atomic unit: both leg
// updates and both history rows commit together or not at all.
func (s *Service) Transfer(ctx context.Context, ownerID, counterpartyID string, amount decimal.Decimal, pinCode string) (TransferReceipt, error) {
	if ownerID == counterpartyID {
		return TransferReceipt{}, ErrSameAccount
	}
	if !amount.IsPositive() {
		return TransferReceipt{}, ErrInvalidAmount
	}
	if err := validOwnerID(ownerID, counterpartyID); err != nil {
		return TransferReceipt{}, err
	}

	key := guard.Key(guardTransfer, ownerID)
	if err := s.checkGuard(ctx, key); err != nil {
		return TransferReceipt{}, err
	}

	if err := s.verifyPIN(ctx, ownerID, pinCode); err != nil {
		return TransferReceipt{}, err
	}

	debitRef := uuid.NewString()
	creditRef := uuid.NewString()
	mutation, err := s.store.Transfer(ctx, ownerID, counterpartyID, amount, debitRef, creditRef)
	if err != nil {
		return TransferReceipt{}, mapStoreErr(err)
	}

	if err := s.guard.Lock(ctx, key); err != nil {
		return TransferReceipt{}, err
	}

	s.publish(ctx, settlement.Event{
		Kind:            settlement.KindTransfer,
		OwnerID:         ownerID,
		CounterpartyID:  counterpartyID,
		Amount:          amount,
		Reference:       debitRef,
		CreditReference: creditRef,
	})

	return TransferReceipt{
		DebitReference:  debitRef,
		CreditReference: creditRef,
		LedgerBalance:   mutation.SenderLedger,
	}, nil
}

// Wallet returns a snapshot of the owner's wallet.
func (s *Service) Wallet(ctx context.Context, ownerID string) (ledger.Wallet, error) {
	if err := validOwnerID(ownerID); err != nil {
		return ledger.Wallet{}, err
	}
	w, err := s.store.WalletByOwner(ctx, ownerID)
	if err != nil {
		return ledger.Wallet{}, mapStoreErr(err)
	}
	return w, nil
}

// Transactions lists wallet history newest first. Invalid paging values fall
// back to the defaults instead of erroring.
func (s *Service) Transactions(ctx context.Context, ownerID string, limit, offset int) ([]ledger.Transaction, error) {
	if err := validOwnerID(ownerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.store.WalletByOwner(ctx, ownerID); err != nil {
		return nil, mapStoreErr(err)
	}

	return s.store.Transactions(ctx, ownerID, limit, offset)
}

// validOwnerID rejects malformed owner identifiers before they reach the
// store, where a non-UUID value would only surface as a cast failure.
func validOwnerID(ids ...string) error {
	for _, id := range ids {
		if uuid.Validate(id) != nil {
			return ErrNotFound
		}
	}
	return nil
}

func (s *Service) checkGuard(ctx context.Context, key string) error {
	locked, err := s.guard.Locked(ctx, key)
	if err != nil {
		// Fail closed: an unreachable guard store rejects the mutation rather
		// than dropping the throttle.
		return fmt.Errorf("guard check: %w", err)
	}
	if locked {
		return ErrRateLimited
	}
	return nil
}

func (s *Service) verifyPIN(ctx context.Context, ownerID, pinCode string) error {
	err := s.pins.Verify(ctx, ownerID, pinCode)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pin.ErrInvalidPIN):
		return ErrInvalidPIN
	case errors.Is(err, pin.ErrTooManyAttempts):
		return ErrTooManyAttempts
	default:
		return err
	}
}

// publish is fire-and-forget: a failed publish delays settlement but never
// rolls back the committed mutation.
func (s *Service) publish(ctx context.Context, event settlement.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("settlement publish failed",
			slog.String("kind", event.Kind),
			slog.String("owner_id", event.OwnerID),
			slog.String("reference", event.Reference),
			slog.Any("error", err))
	}
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, ledger.ErrWalletNotFound):
		return ErrNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, ledger.ErrWalletInactive):
		return ErrWalletInactive
	default:
		return err
	}
}
