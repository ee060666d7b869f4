// Package settlement moves accepted ledger mutations into the settled balance
// asynchronously, consuming events from a durable queue with at-least-once
// delivery.
package settlement

import (
	"context"

	"github.com/shopspring/decimal"
)

// Event kinds published by the mutation engine.
const (
	KindCredit   = "credit"
	KindDebit    = "debit"
	KindTransfer = "transfer"
)

// Event describes one settlement to apply. Reference carries the originating
// transaction reference and doubles as the settlement idempotency key; a
// transfer additionally carries the credit-leg reference so each leg is
// idempotent on its own.
type Event struct {
	Kind            string          `json:"kind"`
	OwnerID         string          `json:"owner_id"`
	CounterpartyID  string          `json:"counterparty_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Reference       string          `json:"reference"`
	CreditReference string          `json:"credit_reference,omitempty"`
	Attempts        int             `json:"attempts,omitempty"`
}

// Publisher enqueues settlement events. The mutation engine treats publishing
// as fire-and-forget: failures are logged, never rolled back.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
