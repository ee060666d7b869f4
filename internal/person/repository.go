package person

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudi-pay/kudi_pay/internal/ledger"
)

var (
	// ErrNotFound occurs when no person exists for the identifier.
	ErrNotFound = errors.New("person not found")

	// ErrExists occurs when the phone number is already registered.
	ErrExists = errors.New("person already registered")
)

// Repository persists wallet owners. It also serves as the PIN hash source for
// the verifier.
type Repository interface {
	// Create stores the person and provisions their zero-balance wallet in
	// one atomic unit.
	Create(ctx context.Context, p Person) error
	FindByID(ctx context.Context, id string) (Person, error)
	PINHash(ctx context.Context, ownerID string) ([]byte, error)
}

const uniqueViolation = "23505"

// PostgresRepository stores people in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the person row and their wallet row in a single transaction,
// so an owner can never exist without a wallet.
func (r *PostgresRepository) Create(ctx context.Context, p Person) error {
	personID, err := uuid.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("parse person id: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO people (id, phone, pin_hash, created_at)
        VALUES ($1, $2, $3, $4)`, personID, p.Phone, p.PINHash, p.CreatedAt.UTC()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrExists
		}
		return err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, previous_balance, ledger_balance, status, is_active, created_at)
        VALUES ($1, $2, 0, 0, 0, $3, TRUE, $4)`, uuid.New(), personID, ledger.StatusActive, time.Now().UTC()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindByID fetches a person by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Person, error) {
	var p Person
	var personID uuid.UUID
	var createdAt time.Time
	err := r.db.QueryRow(ctx, `SELECT id, phone, pin_hash, created_at FROM people WHERE id = $1`, id).
		Scan(&personID, &p.Phone, &p.PINHash, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Person{}, ErrNotFound
		}
		return Person{}, err
	}
	p.ID = personID.String()
	p.CreatedAt = createdAt.UTC()
	return p, nil
}

// PINHash resolves the stored bcrypt hash for the owner.
func (r *PostgresRepository) PINHash(ctx context.Context, ownerID string) ([]byte, error) {
	var hash []byte
	err := r.db.QueryRow(ctx, `SELECT pin_hash FROM people WHERE id = $1`, ownerID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return hash, nil
}
