package settlement

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kudi-pay/kudi_pay/internal/ledger"
	"github.com/kudi-pay/kudi_pay/internal/logging"
)

const testQueue = "wallet_settlements"

func setupDispatcher(t *testing.T) (*Dispatcher, *RedisQueue, ledger.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := ledger.NewInMemory()
	queue := NewRedisQueue(client, testQueue)
	dispatcher := NewDispatcher(store, queue, logging.Discard(), 3)
	return dispatcher, queue, store, mr
}

func newWallet(t *testing.T, store ledger.Store) string {
	t.Helper()
	ownerID := uuid.NewString()
	_, err := store.CreateWallet(context.Background(), ownerID)
	require.NoError(t, err)
	return ownerID
}

func TestQueueRoundtrip(t *testing.T) {
	_, queue, _, _ := setupDispatcher(t)
	ctx := context.Background()

	sent := Event{
		Kind:      KindCredit,
		OwnerID:   "owner-1",
		Amount:    decimal.NewFromInt(100),
		Reference: "ref-1",
	}
	require.NoError(t, queue.Publish(ctx, sent))

	got, ok, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sent.Kind, got.Kind)
	require.Equal(t, sent.OwnerID, got.OwnerID)
	require.Equal(t, sent.Reference, got.Reference)
	require.True(t, sent.Amount.Equal(got.Amount))
}

func TestProcessCredit(t *testing.T) {
	dispatcher, _, store, _ := setupDispatcher(t)
	ctx := context.Background()
	owner := newWallet(t, store)

	dispatcher.Process(ctx, Event{
		Kind:      KindCredit,
		OwnerID:   owner,
		Amount:    decimal.NewFromInt(100),
		Reference: "ref-credit",
	})

	w, err := store.WalletByOwner(ctx, owner)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(100)))
}

func TestProcessReplayIsIdempotent(t *testing.T) {
	dispatcher, _, store, _ := setupDispatcher(t)
	ctx := context.Background()
	owner := newWallet(t, store)

	event := Event{
		Kind:      KindCredit,
		OwnerID:   owner,
		Amount:    decimal.NewFromInt(100),
		Reference: "ref-replayed",
	}
	dispatcher.Process(ctx, event)
	dispatcher.Process(ctx, event)

	w, err := store.WalletByOwner(ctx, owner)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(100)), "replay must not double count, got %s", w.Balance)
}

func TestProcessDebit(t *testing.T) {
	dispatcher, _, store, _ := setupDispatcher(t)
	ctx := context.Background()
	owner := newWallet(t, store)
	ledger.SeedSettledBalance(store, owner, decimal.NewFromInt(200))

	dispatcher.Process(ctx, Event{
		Kind:      KindDebit,
		OwnerID:   owner,
		Amount:    decimal.NewFromInt(50),
		Reference: "ref-debit",
	})

	w, err := store.WalletByOwner(ctx, owner)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(150)))
	require.True(t, w.PreviousBalance.Equal(decimal.NewFromInt(200)))
}

func TestProcessTransferAppliesBothLegs(t *testing.T) {
	dispatcher, _, store, _ := setupDispatcher(t)
	ctx := context.Background()
	sender := newWallet(t, store)
	recipient := newWallet(t, store)
	ledger.SeedSettledBalance(store, sender, decimal.NewFromInt(200))

	event := Event{
		Kind:            KindTransfer,
		OwnerID:         sender,
		CounterpartyID:  recipient,
		Amount:          decimal.NewFromInt(50),
		Reference:       "transfer-debit",
		CreditReference: "transfer-credit",
	}
	dispatcher.Process(ctx, event)

	senderWallet, err := store.WalletByOwner(ctx, sender)
	require.NoError(t, err)
	require.True(t, senderWallet.Balance.Equal(decimal.NewFromInt(150)))

	recipientWallet, err := store.WalletByOwner(ctx, recipient)
	require.NoError(t, err)
	require.True(t, recipientWallet.Balance.Equal(decimal.NewFromInt(50)))

	// A replay re-runs neither leg.
	dispatcher.Process(ctx, event)
	senderWallet, _ = store.WalletByOwner(ctx, sender)
	recipientWallet, _ = store.WalletByOwner(ctx, recipient)
	require.True(t, senderWallet.Balance.Equal(decimal.NewFromInt(150)))
	require.True(t, recipientWallet.Balance.Equal(decimal.NewFromInt(50)))
}

func TestProcessShortfallGoesToDeadLetter(t *testing.T) {
	dispatcher, _, store, mr := setupDispatcher(t)
	ctx := context.Background()
	owner := newWallet(t, store)

	// A debit the settled balance cannot cover is a consistency fault: parked,
	// never clamped, never retried.
	dispatcher.Process(ctx, Event{
		Kind:      KindDebit,
		OwnerID:   owner,
		Amount:    decimal.NewFromInt(50),
		Reference: "ref-shortfall",
	})

	w, err := store.WalletByOwner(ctx, owner)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.Zero))

	dead, err := mr.List(testQueue + ":dead")
	require.NoError(t, err)
	require.Len(t, dead, 1)
	require.Contains(t, dead[0], "ref-shortfall")

	require.False(t, mr.Exists(testQueue))
}

func TestProcessUnknownWalletGoesToDeadLetter(t *testing.T) {
	dispatcher, _, _, mr := setupDispatcher(t)

	dispatcher.Process(context.Background(), Event{
		Kind:      KindCredit,
		OwnerID:   uuid.NewString(),
		Amount:    decimal.NewFromInt(10),
		Reference: "ref-orphan",
	})

	dead, err := mr.List(testQueue + ":dead")
	require.NoError(t, err)
	require.Len(t, dead, 1)
	require.Contains(t, dead[0], "ref-orphan")
}
