package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/SendrPay/SendrPay-sub002/internal/chain"
	"github.com/SendrPay/SendrPay-sub002/internal/config"
	"github.com/SendrPay/SendrPay-sub002/internal/identity"
	"github.com/SendrPay/SendrPay-sub002/internal/linking"
	"github.com/SendrPay/SendrPay-sub002/internal/middleware"
	"github.com/SendrPay/SendrPay-sub002/internal/notification"
	"github.com/SendrPay/SendrPay-sub002/internal/payments"
	"github.com/SendrPay/SendrPay-sub002/internal/pending"
	"github.com/SendrPay/SendrPay-sub002/internal/token"
	"github.com/SendrPay/SendrPay-sub002/internal/transfer"
	"github.com/SendrPay/SendrPay-sub002/internal/vault"
	"github.com/SendrPay/SendrPay-sub002/internal/wallet"
)

// usdcMint is the canonical USDC mint seeded alongside the native asset.
const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Chain   chain.Client
	Pending *pending.Store
	Logger  *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.WebhookAuth(d.Cfg.WebhookSecret))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Repositories; memory implementations carry dev mode without Postgres.
	var identityRepo identity.Repository
	var walletRepo wallet.Repository
	var tokenRepo token.Repository
	var recordRepo transfer.Repository
	var linkStore linking.Store
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		tokenRepo = token.NewPostgresRepository(d.DB)
		recordRepo = transfer.NewPostgresRepository(d.DB)
		linkStore = linking.NewPostgresStore(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
		walletRepo = wallet.NewMemoryRepository()
		tokenRepo = token.NewMemoryRepository()
		recordRepo = transfer.NewMemoryRepository()
		linkStore = linking.NewMemoryStore()
	}

	seedCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tokenRepo.Upsert(seedCtx, token.NativeToken()); err != nil {
		return fmt.Errorf("seed native token: %w", err)
	}
	if err := tokenRepo.Upsert(seedCtx, token.Token{Ticker: "USDC", Mint: usdcMint, Decimals: 6}); err != nil {
		return fmt.Errorf("seed usdc token: %w", err)
	}

	chainClient := d.Chain
	if chainClient == nil {
		if d.Cfg.RPCURL != "" {
			chainClient = chain.NewRPCClient(d.Cfg.RPCURL)
		} else {
			chainClient = chain.NewSimulator(d.Cfg.NetworkFee)
		}
	}

	pendingStore := d.Pending
	if pendingStore == nil {
		pendingStore = pending.NewStore(d.Cfg.PendingTTL)
	}

	keyVault, err := vault.New(d.Cfg.MasterKey)
	if err != nil {
		return fmt.Errorf("build vault: %w", err)
	}

	// Services and handlers
	resolver := identity.NewResolver(identityRepo)
	walletSvc := wallet.NewService(walletRepo, keyVault)
	notifier := notification.NewLoggerNotifier(d.Logger)
	engine := transfer.NewEngine(chainClient, recordRepo, transfer.Config{
		FeeAccount:     d.Cfg.FeeAccount,
		FeeRateBps:     d.Cfg.FeeRateBps,
		RentReserve:    d.Cfg.RentReserve,
		NetworkFee:     d.Cfg.NetworkFee,
		ConfirmTimeout: d.Cfg.ConfirmTimeout,
	}, d.Logger)
	coordinator := linking.NewCoordinator(linkStore, d.Cfg.PendingTTL, d.Logger)
	paymentSvc := payments.NewService(resolver, walletSvc, tokenRepo, pendingStore, engine, notifier)

	paymentHandler := payments.NewHandler(paymentSvc)
	linkingHandler := linking.NewHandler(coordinator, resolver)
	walletHandler := wallet.NewHandler(walletSvc, chainClient)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.PaymentRateLimit(d.Cache, 10)
	RegisterPaymentRoutes(api, paymentHandler, rateLimiter)
	RegisterLinkingRoutes(api, linkingHandler)
	RegisterWalletRoutes(api, walletHandler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
