package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/adapter/events"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/metrics"
	memStorage "wallet-ledger/internal/adapter/storage/memory"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/adapter/ws"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// repositories is the storage backend selected by storage.driver.
type repositories struct {
	wallets       ports.WalletRepository
	transactions  ports.TransactionRepository
	users         ports.UserRepository
	notifications ports.NotificationRepository
	idempotency   ports.IdempotencyRepository
	audit         ports.AuditRepository
	transactor    ports.DBTransactor
	health        ports.HealthChecker
	close         func()
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("events", cfg.Events.Driver).
		Msg("Starting Wallet Ledger")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set")
	}
	fees, err := domain.ParseFeePolicy(cfg.Ledger.WithdrawalFeeFlat, cfg.Ledger.WithdrawalFeeRate)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid withdrawal fee policy")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Storage backend
	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer repos.close()
	healthCheckers := []ports.HealthChecker{repos.health}

	// Optional Redis: idempotency fast path, rate limiting, cross-process events
	var (
		rdb              *goredis.Client
		idempotencyCache ports.IdempotencyCache
		rateLimitStore   *redisStorage.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err = redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		idempotencyCache = redisStorage.NewIdempotencyCache(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	// Settlement event bus
	var (
		publisher  ports.EventPublisher
		subscriber ports.EventSubscriber
		localBus   *events.LocalBus
	)
	switch cfg.Events.Driver {
	case "redis":
		bus := redisStorage.NewEventBus(rdb, cfg.Events.Channel, log)
		publisher, subscriber = bus, bus
	default:
		localBus = events.NewLocalBus(cfg.Events.Buffer, log)
		publisher, subscriber = localBus, localBus
	}

	m := metrics.New()
	hub := ws.NewHub(log)

	// Core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authSvc := service.NewAuthService(repos.users, hashSvc, tokenSvc, log)
	walletSvc := service.NewWalletService(repos.wallets, cfg.Ledger.DefaultCurrency, log)
	settlementSvc := service.NewSettlementService(
		repos.transactions,
		repos.wallets,
		repos.transactor,
		publisher,
		m,
		service.SettlementConfig{AllowReversals: cfg.Ledger.AllowReversals},
		log,
	)
	intakeSvc := service.NewIntakeService(
		repos.transactions,
		repos.wallets,
		repos.idempotency,
		idempotencyCache,
		repos.transactor,
		settlementSvc,
		m,
		service.IntakeConfig{
			Currency:            cfg.Ledger.DefaultCurrency,
			AutoApproveDeposits: cfg.Ledger.AutoApproveDeposits,
			Fees:                fees,
		},
		log,
	)
	reportingSvc := service.NewReportingService(repos.transactions, repos.wallets, repos.transactor)
	notificationSvc := service.NewNotificationService(repos.notifications, hub, log)
	auditSvc := service.NewAuditService(repos.audit, log)

	if err := subscriber.Subscribe(ctx, notificationSvc.HandleSettled); err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe to settlement events")
	}

	if cfg.Auth.AdminUsername != "" {
		if _, err := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
			log.Fatal().Err(err).Str("username", cfg.Auth.AdminUsername).Msg("Failed to bootstrap admin account")
		}
	}

	// Setup Gin router with all routes
	gin.SetMode(ginMode(cfg.Server.Mode))
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:         authSvc,
		WalletSvc:       walletSvc,
		IntakeSvc:       intakeSvc,
		SettlementSvc:   settlementSvc,
		ReportingSvc:    reportingSvc,
		NotificationSvc: notificationSvc,
		TokenSvc:        tokenSvc,
		Stream:          hub,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  healthCheckers,
		AuditSvc:        auditSvc,
		Metrics:         m,
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	hub.Close()
	if localBus != nil {
		localBus.Close()
	}
	stop()
	auditSvc.Wait()

	log.Info().Msg("Server exited")
}

func openRepositories(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	if cfg.Storage.Driver == "memory" {
		store := memStorage.NewStore()
		return &repositories{
			wallets:       memStorage.NewWalletRepo(store),
			transactions:  memStorage.NewTransactionRepo(store),
			users:         memStorage.NewUserRepo(store),
			notifications: memStorage.NewNotificationRepo(store),
			idempotency:   memStorage.NewIdempotencyRepo(store),
			audit:         memStorage.NewAuditRepo(store),
			transactor:    store,
			health:        memStorage.HealthCheck{},
			close:         func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pgStorage.InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &repositories{
		wallets:       pgStorage.NewWalletRepo(pool),
		transactions:  pgStorage.NewTransactionRepo(pool),
		users:         pgStorage.NewUserRepo(pool),
		notifications: pgStorage.NewNotificationRepo(pool),
		idempotency:   pgStorage.NewIdempotencyRepo(pool),
		audit:         pgStorage.NewAuditRepo(pool),
		transactor:    pgStorage.NewTransactor(pool),
		health:        pgStorage.NewHealthCheck(pool),
		close:         pool.Close,
	}, nil
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
