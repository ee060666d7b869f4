package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kudi-pay/kudi_pay/internal/config"
	"github.com/kudi-pay/kudi_pay/internal/guard"
	"github.com/kudi-pay/kudi_pay/internal/ledger"
	"github.com/kudi-pay/kudi_pay/internal/middleware"
	"github.com/kudi-pay/kudi_pay/internal/person"
	"github.com/kudi-pay/kudi_pay/internal/pin"
	"github.com/kudi-pay/kudi_pay/internal/settlement"
	"github.com/kudi-pay/kudi_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	store := ledger.NewPostgresStore(d.DB)
	personRepo := person.NewPostgresRepository(d.DB)

	blacklist, err := person.LoadBlacklistFile(d.Cfg.BlacklistFile)
	if err != nil {
		return err
	}

	rateGuard := guard.NewRedisGuard(d.Cache, d.Cfg.GuardTTL)
	pinVerifier := pin.NewService(personRepo, d.Cache, d.Cfg.PinMaxAttempts, d.Cfg.PinAttemptWindow, d.Cfg.PinCacheTTL)
	queue := settlement.NewRedisQueue(d.Cache, d.Cfg.QueueName)

	walletSvc := wallet.NewService(store, rateGuard, pinVerifier, queue, d.Logger)
	personSvc := person.NewService(personRepo, blacklist)

	walletHandler := wallet.NewHandler(walletSvc)
	personHandler := person.NewHandler(personSvc)

	api := app.Group("/api/v1")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	api.Post("/people", personHandler.Register)

	api.Post("/wallets/fund", walletHandler.Fund)
	api.Post("/wallets/withdraw", walletHandler.Withdraw)
	api.Post("/wallets/transfer", walletHandler.Transfer)
	api.Get("/wallets/:ownerId", walletHandler.Get)
	api.Get("/wallets/:ownerId/transactions", walletHandler.Transactions)

	return nil
}
