// The settler consumes settlement events from the queue and applies them to
// the settled wallet balances. It runs as a single consumer, decoupled from
// the synchronous mutation path.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kudi-pay/kudi_pay/internal/config"
	"github.com/kudi-pay/kudi_pay/internal/infra"
	"github.com/kudi-pay/kudi_pay/internal/ledger"
	"github.com/kudi-pay/kudi_pay/internal/logging"
	"github.com/kudi-pay/kudi_pay/internal/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}()

	store := ledger.NewPostgresStore(pool)
	queue := settlement.NewRedisQueue(cache, cfg.QueueName)
	dispatcher := settlement.NewDispatcher(store, queue, logger, cfg.SettleAttempts)

	logger.Info("settler started", "queue", cfg.QueueName)

	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("settler stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("settler exited cleanly")
}
