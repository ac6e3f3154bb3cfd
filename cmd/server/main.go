package main

import (
	"context"
	"log"
	"time"

	"go-cargo-portal/internal/auth"
	"go-cargo-portal/internal/billing"
	"go-cargo-portal/internal/config"
	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/handlers"
	"go-cargo-portal/internal/lifecycle"
	"go-cargo-portal/internal/logger"
	"go-cargo-portal/internal/middleware"
	"go-cargo-portal/internal/outbox"
	"go-cargo-portal/internal/payment"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	auth.SetSecret(cfg.JWTSecret)
	database.Connect(cfg.DBDSN)

	// --- Optional infrastructure: each piece degrades independently ---

	// Redis-backed rate limiting when available, per-process otherwise
	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.L.Warnw("redis unreachable, falling back to in-memory rate limiter", "err", err)
			limiter = middleware.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		} else {
			limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindow)
		}
	} else {
		limiter = middleware.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	// Notification broker; without it the outbox runs in degraded mode
	var publisher outbox.Publisher
	if cfg.AMQPURL != "" {
		pub, err := outbox.NewRabbitPublisher(cfg.AMQPURL)
		if err != nil {
			logger.L.Warnw("rabbitmq unreachable, notifications disabled", "err", err)
		} else {
			publisher = pub
			defer pub.Close()
		}
	}

	var stripeGW *payment.StripeGateway
	if cfg.StripeSecretKey != "" {
		stripeGW = payment.NewStripeGateway(cfg.StripeSecretKey)
	}

	var paypalGW *payment.PayPalGateway
	if cfg.PayPalClientID != "" && cfg.PayPalSecret != "" {
		gw, err := payment.NewPayPalGateway(cfg.PayPalClientID, cfg.PayPalSecret, cfg.PayPalEnv)
		if err != nil {
			logger.L.Warnw("paypal client init failed, paypal disabled", "err", err)
		} else {
			paypalGW = gw
		}
	}

	reconciler := billing.NewReconciler(database.DB)
	manager := lifecycle.NewManager(database.DB)
	handlers.Init(cfg, reconciler, manager, stripeGW, paypalGW)

	// Outbox dispatcher drains queued receipts and notifications
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	go outbox.NewDispatcher(database.DB, publisher).Start(dispatchCtx)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", cfg.BaseURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "x-api-key", "x-warehouse-key"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "online"}) })
	r.POST("/login", handlers.Login)
	r.POST("/register", handlers.Register)

	if cfg.AllowRegistration {
		log.Println("WARNING: Registration route is OPEN. Disable this in production!")
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		// ADMIN: back office
		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.POST("/users", handlers.CreateStaffUser)

			admin.GET("/packages", handlers.GetPackages)
			admin.GET("/packages/:tracking_number", handlers.GetPackage)
			admin.POST("/packages", handlers.CreatePackage)
			admin.PUT("/packages/:tracking_number", handlers.UpdatePackage)
			admin.PUT("/packages/:tracking_number/status", handlers.UpdatePackageStatus)
			admin.DELETE("/packages/:tracking_number", handlers.DeletePackage)
			admin.GET("/packages/:tracking_number/history", handlers.GetPackageHistory)

			admin.GET("/pre-alerts", handlers.ListPreAlerts)
			admin.PUT("/pre-alerts/:id/reject", handlers.RejectPreAlert)

			admin.GET("/invoices", handlers.ListInvoices)
			admin.POST("/invoices", handlers.CreateInvoice)
			admin.GET("/invoices/:invoice_number", handlers.GetInvoice)
			admin.POST("/invoices/mark-overdue", handlers.MarkInvoicesOverdue)

			admin.GET("/payments", handlers.ListPayments)
			admin.POST("/payments", handlers.RecordManualPayment)
			admin.POST("/payments/bulk", handlers.RecordBulkPayment)

			admin.GET("/pricing-rules", handlers.ListPricingRules)
			admin.POST("/pricing-rules", handlers.CreatePricingRule)
			admin.PUT("/pricing-rules/:id/active", handlers.SetPricingRuleActive)

			admin.GET("/inventory", handlers.ListInventory)
			admin.POST("/inventory/restock", handlers.RestockInventory)

			admin.POST("/keys", handlers.IssueWarehouseKey)
			admin.GET("/keys", handlers.ListWarehouseKeys)
			admin.DELETE("/keys/:key_id", handlers.RevokeWarehouseKey)

			admin.GET("/reports/dashboard", handlers.GetDashboard)
			admin.GET("/reports/revenue", handlers.GetRevenueReport)
			admin.GET("/audit-log", handlers.GetAuditLog)

			admin.POST("/ask", handlers.AskAssistant)
		}

		// CUSTOMER: self service
		customer := api.Group("/customer")
		customer.Use(middleware.RequireRole("customer", "admin"))
		{
			customer.GET("/packages", handlers.GetMyPackages)
			customer.GET("/packages/:tracking_number", handlers.TrackPackage)

			customer.POST("/pre-alerts", handlers.CreatePreAlert)
			customer.GET("/pre-alerts", handlers.GetMyPreAlerts)

			customer.GET("/invoices", handlers.GetMyInvoices)
			customer.GET("/invoices/:invoice_number", handlers.GetMyInvoice)

			customer.POST("/payments/card", handlers.PayInvoiceCard)
			customer.POST("/payments/paypal", handlers.CreatePayPalOrder)
			customer.POST("/payments/paypal/capture", handlers.CapturePayPalOrder)

			customer.POST("/quote", handlers.QuoteShipment)
		}

		// WAREHOUSE: staff with JWT warehouse role
		warehouse := api.Group("/warehouse")
		warehouse.Use(middleware.RequireRole("warehouse", "admin"))
		{
			warehouse.POST("/intake", handlers.IntakePackage)
			warehouse.PUT("/packages/:tracking_number/status", handlers.UpdatePackageStatus)
			warehouse.POST("/consolidations/check", handlers.CheckConsolidation)
			warehouse.POST("/consolidations", handlers.ExecuteConsolidation)
			warehouse.POST("/inventory/consume", handlers.ConsumeInventory)
		}
	}

	// Inter-system warehouse API: authenticated by API key instead of JWT,
	// rate limited per key
	ext := r.Group("/ext/warehouse")
	ext.Use(middleware.RequireAPIKey("packages:write"), middleware.RateLimitAPIKey(limiter))
	{
		ext.POST("/intake", handlers.IntakePackage)
		ext.PUT("/packages/:tracking_number/status", handlers.UpdatePackageStatus)
	}

	log.Println("Server starting on " + cfg.BaseURL)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
