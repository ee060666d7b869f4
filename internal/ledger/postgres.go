package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// PostgresStore persists wallets, transactions and settlements in PostgreSQL.
// Row locks are taken with SELECT ... FOR UPDATE scoped to the enclosing
// transaction, so mutations on the same wallet serialize at the database.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed wallet store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const walletColumns = `id, owner_id, balance::text, previous_balance::text, ledger_balance::text, status, is_active, created_at`

// CreateWallet provisions a zero-balance active wallet for the owner.
func (s *PostgresStore) CreateWallet(ctx context.Context, ownerID string) (Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse owner id: %w", err)
	}

	id := uuid.New()
	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, previous_balance, ledger_balance, status, is_active, created_at)
        VALUES ($1, $2, 0, 0, 0, $3, TRUE, $4)`, id, owner, StatusActive, now)
	if err != nil {
		return Wallet{}, err
	}

	return Wallet{
		ID:              id.String(),
		OwnerID:         ownerID,
		Balance:         decimal.Zero,
		PreviousBalance: decimal.Zero,
		LedgerBalance:   decimal.Zero,
		Status:          StatusActive,
		IsActive:        true,
		CreatedAt:       now,
	}, nil
}

// WalletByOwner performs a non-locking snapshot read.
func (s *PostgresStore) WalletByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1`, ownerID)
	return scanWallet(row)
}

// Credit locks the wallet row, raises the ledger balance and appends a CREDIT
// transaction in the same database transaction.
func (s *PostgresStore) Credit(ctx context.Context, ownerID string, amount decimal.Decimal, reference string) (Mutation, error) {
	return s.mutate(ctx, ownerID, "", TypeCredit, amount, reference)
}

// Debit locks the wallet row, verifies funds under the lock, lowers the ledger
// balance and appends a DEBIT transaction in the same database transaction.
func (s *PostgresStore) Debit(ctx context.Context, ownerID string, amount decimal.Decimal, reference string) (Mutation, error) {
	return s.mutate(ctx, ownerID, "", TypeDebit, amount, reference)
}

func (s *PostgresStore) mutate(ctx context.Context, ownerID, counterpartyID, txType string, amount decimal.Decimal, reference string) (Mutation, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Mutation{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	before, err := lockLedgerBalance(ctx, tx, ownerID)
	if err != nil {
		return Mutation{}, err
	}

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

	if err := writeLedgerBalance(ctx, tx, ownerID, after); err != nil {
		return Mutation{}, err
	}
	if err := appendTransaction(ctx, tx, Transaction{
		OwnerID:        ownerID,
		CounterpartyID: counterpartyID,
		Type:           txType,
		Amount:         amount,
		AmountBefore:   before,
		AmountAfter:    after,
		Reference:      reference,
	}); err != nil {
		return Mutation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Mutation{}, err
	}

	return Mutation{Reference: reference, LedgerBefore: before, LedgerAfter: after}, nil
}

// Transfer debits the sender and credits the recipient in one transaction.
// Rows are always locked in ascending owner-id order so two opposite-direction
// transfers cannot deadlock.
func (s *PostgresStore) Transfer(ctx context.Context, ownerID, counterpartyID string, amount decimal.Decimal, debitRef, creditRef string) (TransferMutation, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferMutation{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	first, second := ownerID, counterpartyID
	if second < first {
		first, second = second, first
	}
	balances := make(map[string]decimal.Decimal, 2)
	for _, owner := range []string{first, second} {
		bal, err := lockLedgerBalance(ctx, tx, owner)
		if err != nil {
			return TransferMutation{}, err
		}
		balances[owner] = bal
	}

	senderBefore := balances[ownerID]
	if senderBefore.LessThan(amount) {
		return TransferMutation{}, ErrInsufficientFunds
	}
	recipientBefore := balances[counterpartyID]

	senderAfter := senderBefore.Sub(amount)
	recipientAfter := recipientBefore.Add(amount)

	if err := writeLedgerBalance(ctx, tx, ownerID, senderAfter); err != nil {
		return TransferMutation{}, err
	}
	if err := writeLedgerBalance(ctx, tx, counterpartyID, recipientAfter); err != nil {
		return TransferMutation{}, err
	}

	if err := appendTransaction(ctx, tx, Transaction{
		OwnerID:        ownerID,
		CounterpartyID: counterpartyID,
		Type:           TypeDebit,
		Amount:         amount,
		AmountBefore:   senderBefore,
		AmountAfter:    senderAfter,
		Reference:      debitRef,
	}); err != nil {
		return TransferMutation{}, err
	}
	if err := appendTransaction(ctx, tx, Transaction{
		OwnerID:        counterpartyID,
		CounterpartyID: ownerID,
		Type:           TypeCredit,
		Amount:         amount,
		AmountBefore:   recipientBefore,
		AmountAfter:    recipientAfter,
		Reference:      creditRef,
	}); err != nil {
		return TransferMutation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferMutation{}, err
	}

	return TransferMutation{
		DebitReference:  debitRef,
		CreditReference: creditRef,
		SenderLedger:    senderAfter,
		RecipientLedger: recipientAfter,
	}, nil
}

// SettleCredit moves settled balance upward for the owner, once per reference.
func (s *PostgresStore) SettleCredit(ctx context.Context, ownerID string, amount decimal.Decimal, reference string) error {
	return s.settle(ctx, ownerID, TypeCredit, amount, reference)
}

// SettleDebit moves settled balance downward for the owner, once per reference.
func (s *PostgresStore) SettleDebit(ctx context.Context, ownerID string, amount decimal.Decimal, reference string) error {
	return s.settle(ctx, ownerID, TypeDebit, amount, reference)
}

func (s *PostgresStore) settle(ctx context.Context, ownerID, direction string, amount decimal.Decimal, reference string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	tag, err := tx.Exec(ctx, `INSERT INTO settlements (reference, applied_at) VALUES ($1, $2)
        ON CONFLICT (reference) DO NOTHING`, reference, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadySettled
	}

	var balanceText string
	if err := tx.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE owner_id = $1 FOR UPDATE`, ownerID).Scan(&balanceText); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWalletNotFound
		}
		return err
	}
	balance, err := decimal.NewFromString(balanceText)
	if err != nil {
		return fmt.Errorf("parse settled balance: %w", err)
	}

	var next decimal.Decimal
	switch direction {
	case TypeCredit:
		next = balance.Add(amount)
	case TypeDebit:
		if balance.LessThan(amount) {
			return ErrSettlementShortfall
		}
		next = balance.Sub(amount)
	default:
		return fmt.Errorf("unknown settlement direction %q", direction)
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET previous_balance = balance, balance = $2, updated_at = $3
        WHERE owner_id = $1`, ownerID, next.String(), time.Now().UTC()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Transactions lists wallet history newest first.
func (s *PostgresStore) Transactions(ctx context.Context, ownerID string, limit, offset int) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT id, owner_id, COALESCE(counterparty_id::text, ''), type,
            amount::text, amount_before::text, amount_after::text, reference, status, created_at
        FROM transactions WHERE owner_id = $1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Transaction
	for rows.Next() {
		var rec Transaction
		var amount, before, after string
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.CounterpartyID, &rec.Type,
			&amount, &before, &after, &rec.Reference, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if rec.AmountBefore, err = decimal.NewFromString(before); err != nil {
			return nil, err
		}
		if rec.AmountAfter, err = decimal.NewFromString(after); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func lockLedgerBalance(ctx context.Context, tx pgx.Tx, ownerID string) (decimal.Decimal, error) {
	var text string
	var active bool
	if err := tx.QueryRow(ctx, `SELECT ledger_balance::text, is_active FROM wallets WHERE owner_id = $1 FOR UPDATE`, ownerID).Scan(&text, &active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrWalletNotFound
		}
		return decimal.Zero, err
	}
	if !active {
		return decimal.Zero, ErrWalletInactive
	}
	balance, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse ledger balance: %w", err)
	}
	return balance, nil
}

func writeLedgerBalance(ctx context.Context, tx pgx.Tx, ownerID string, balance decimal.Decimal) error {
	_, err := tx.Exec(ctx, `UPDATE wallets SET ledger_balance = $2, updated_at = $3 WHERE owner_id = $1`,
		ownerID, balance.String(), time.Now().UTC())
	return err
}

func appendTransaction(ctx context.Context, tx pgx.Tx, rec Transaction) error {
	var counterparty any
	if rec.CounterpartyID != "" {
		counterparty = rec.CounterpartyID
	}
	_, err := tx.Exec(ctx, `INSERT INTO transactions (id, owner_id, counterparty_id, type, amount, amount_before, amount_after, reference, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New(), rec.OwnerID, counterparty, rec.Type,
		rec.Amount.String(), rec.AmountBefore.String(), rec.AmountAfter.String(),
		rec.Reference, TxStatusSuccess, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateReference, rec.Reference)
		}
		return err
	}
	return nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	var id, owner uuid.UUID
	var balance, previous, ledger string
	var createdAt time.Time
	if err := row.Scan(&id, &owner, &balance, &previous, &ledger, &w.Status, &w.IsActive, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}

	var err error
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return Wallet{}, err
	}
	if w.PreviousBalance, err = decimal.NewFromString(previous); err != nil {
		return Wallet{}, err
	}
	if w.LedgerBalance, err = decimal.NewFromString(ledger); err != nil {
		return Wallet{}, err
	}

	w.ID = id.String()
	w.OwnerID = owner.String()
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
