package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kudi-pay/kudi_pay/internal/ledger"
)

const dequeueWait = 5 * time.Second

// Dispatcher consumes settlement events and applies them to the settled
// balance. Delivery is at-least-once, so every application is idempotent on
// the event's transaction reference.
type Dispatcher struct {
	store       ledger.Store
	queue       *RedisQueue
	logger      *slog.Logger
	maxAttempts int
}

// NewDispatcher builds a settlement dispatcher.
func NewDispatcher(store ledger.Store, queue *RedisQueue, logger *slog.Logger, maxAttempts int) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Dispatcher{store: store, queue: queue, logger: logger, maxAttempts: maxAttempts}
}

// Run consumes events until the context is canceled. It is intended to run as
// a single consumer per queue.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		event, ok, err := d.queue.Dequeue(ctx, dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error("settlement dequeue failed", slog.Any("error", err))
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}

		d.Process(ctx, event)
	}
}

// Process applies one event, requeueing transient failures up to the attempt
// cap and parking poisoned events on the dead letter list.
func (d *Dispatcher) Process(ctx context.Context, event Event) {
	err := d.apply(ctx, event)
	switch {
	case err == nil:
		return
	case errors.Is(err, ledger.ErrAlreadySettled):
		d.logger.Debug("settlement replay skipped",
			slog.String("kind", event.Kind), slog.String("reference", event.Reference))
	case errors.Is(err, ledger.ErrSettlementShortfall), errors.Is(err, ledger.ErrWalletNotFound):
		// Consistency fault: the ledger check passed at mutation time, so the
		// settled balance must cover it. Alert and park, never clamp.
		d.logger.Error("settlement consistency fault",
			slog.String("kind", event.Kind),
			slog.String("owner_id", event.OwnerID),
			slog.String("reference", event.Reference),
			slog.Any("error", err))
		d.park(ctx, event)
	default:
		event.Attempts++
		if event.Attempts >= d.maxAttempts {
			d.logger.Error("settlement retries exhausted",
				slog.String("reference", event.Reference),
				slog.Int("attempts", event.Attempts),
				slog.Any("error", err))
			d.park(ctx, event)
			return
		}
		d.logger.Warn("settlement failed, requeueing",
			slog.String("reference", event.Reference),
			slog.Int("attempts", event.Attempts),
			slog.Any("error", err))
		if pubErr := d.queue.Publish(ctx, event); pubErr != nil {
			d.logger.Error("settlement requeue failed", slog.Any("error", pubErr))
		}
	}
}

func (d *Dispatcher) apply(ctx context.Context, event Event) error {
	switch event.Kind {
	case KindCredit:
		return d.store.SettleCredit(ctx, event.OwnerID, event.Amount, event.Reference)
	case KindDebit:
		return d.store.SettleDebit(ctx, event.OwnerID, event.Amount, event.Reference)
	case KindTransfer:
		// Each leg is idempotent on its own reference, so a replay after a
		// partial application only re-runs the missing leg.
		err := d.store.SettleDebit(ctx, event.OwnerID, event.Amount, event.Reference)
		if err != nil && !errors.Is(err, ledger.ErrAlreadySettled) {
			return err
		}
		creditErr := d.store.SettleCredit(ctx, event.CounterpartyID, event.Amount, event.CreditReference)
		if creditErr != nil && !errors.Is(creditErr, ledger.ErrAlreadySettled) {
			return creditErr
		}
		if err != nil && creditErr != nil {
			return ledger.ErrAlreadySettled
		}
		return nil
	default:
		d.logger.Warn("unknown settlement kind", slog.String("kind", event.Kind))
		return nil
	}
}

func (d *Dispatcher) park(ctx context.Context, event Event) {
	if err := d.queue.DeadLetter(ctx, event); err != nil {
		d.logger.Error("dead letter failed",
			slog.String("reference", event.Reference), slog.Any("error", err))
	}
}
