package handler

import (
	"net/http"

	"wallet-ledger/internal/adapter/http/middleware"
	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// MetricsExporter records HTTP metrics and serves the scrape endpoint.
type MetricsExporter interface {
	middleware.HTTPObserver
	Handler() http.Handler
}

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc         ports.AuthService
	WalletSvc       ports.WalletService
	IntakeSvc       ports.IntakeService
	SettlementSvc   ports.SettlementService
	ReportingSvc    ports.ReportingService
	NotificationSvc ports.NotificationService
	TokenSvc        ports.TokenService
	Stream          NotificationStream         // nil = websocket push disabled
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	AuditSvc        ports.AuditService // nil = audit logging disabled
	Metrics         MetricsExporter    // nil = metrics disabled
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// --- Wallet owner routes ---
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.IntakeSvc, deps.ReportingSvc)
	wallet := v1.Group("/wallet", jwtAuth, middleware.RequireRole(domain.RoleUser, domain.RoleAdmin))
	{
		wallet.GET("", rl("wallet_read"), walletHandler.GetWallet)
		wallet.GET("/transactions", rl("wallet_read"), walletHandler.ListTransactions)
		wallet.GET("/transactions/:id", rl("wallet_read"), walletHandler.GetTransaction)
		wallet.POST("/transactions", rl("wallet_write"), walletHandler.CreateTransaction)
		wallet.POST("/deposits", rl("wallet_write"), walletHandler.CreateDeposit)
		wallet.POST("/withdrawals", rl("wallet_write"), walletHandler.CreateWithdrawal)
	}

	notificationHandler := NewNotificationHandler(deps.NotificationSvc, deps.Stream, deps.Logger)
	notifications := v1.Group("/notifications", jwtAuth, rl("notifications"))
	{
		notifications.GET("", notificationHandler.List)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
		if deps.Stream != nil {
			notifications.GET("/ws", notificationHandler.Stream)
		}
	}

	// --- Administration ---
	adminHandler := NewAdminHandler(deps.SettlementSvc, deps.WalletSvc, deps.ReportingSvc)
	admin := v1.Group("/admin", jwtAuth, middleware.RequireRole(domain.RoleAdmin), rl("admin"))
	{
		admin.GET("/transactions", adminHandler.ListTransactions)
		admin.PATCH("/transactions/:id/status", adminHandler.SettleTransaction)
		admin.POST("/transactions/:id/reverse", adminHandler.ReverseTransaction)
		admin.PATCH("/wallets/:id/status", adminHandler.SetWalletStatus)
		admin.GET("/wallets/:id/stats", adminHandler.WalletStats)
		admin.GET("/wallets/:id/reconcile", adminHandler.Reconcile)
	}

	return r
}
