package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appdirectory "github.com/wasatpay/backend/internal/application/directory"
	appinvoicing "github.com/wasatpay/backend/internal/application/invoicing"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/domain/shared"
	"github.com/wasatpay/backend/internal/infrastructure/auth"
	"github.com/wasatpay/backend/internal/infrastructure/cache"
	"github.com/wasatpay/backend/internal/infrastructure/config"
	"github.com/wasatpay/backend/internal/infrastructure/gateway"
	"github.com/wasatpay/backend/internal/infrastructure/logger"
	"github.com/wasatpay/backend/internal/infrastructure/persistence"
	"github.com/wasatpay/backend/internal/infrastructure/printing"
	"github.com/wasatpay/backend/internal/infrastructure/storage"
	"github.com/wasatpay/backend/internal/infrastructure/telemetry"
	"github.com/wasatpay/backend/internal/interfaces/http/handler"
	"github.com/wasatpay/backend/internal/interfaces/http/middleware"
	"github.com/wasatpay/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting WasatPay Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection with SQL logging mapped from the app log level
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories and unit of work
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	projectRepo := persistence.NewGormProjectRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	// Initialize OpenTelemetry (traces and metrics) when enabled
	var (
		tracerProvider *telemetry.TracerProvider
		meterProvider  *telemetry.MeterProvider
		billingMetrics *telemetry.BillingMetrics
	)
	if cfg.Telemetry.Enabled {
		ctx := context.Background()

		tracerProvider, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			SamplingRatio:     cfg.Telemetry.SamplingRatio,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize tracer provider", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()

		meterProvider, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize meter provider", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := meterProvider.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down meter provider", zap.Error(err))
			}
		}()

		billingMetrics, err = telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
			Meter:  meterProvider.Meter("billing"),
			Logger: log,
		})
		if err != nil {
			log.Fatal("Failed to initialize billing metrics", zap.Error(err))
		}

		log.Info("Telemetry enabled",
			zap.String("endpoint", cfg.Telemetry.CollectorEndpoint),
			zap.Float64("sampling_ratio", cfg.Telemetry.SamplingRatio),
		)
	}

	// Continuous profiling (Pyroscope), no-op unless enabled
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddr,
		ApplicationName:   cfg.App.Name,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	// Object storage for archived invoice PDFs
	objectStore, err := storage.NewFromConfig(&cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	log.Info("Object storage initialized", zap.String("driver", cfg.Storage.Driver))

	// Invoice PDF rendering (headless Chrome), optional
	var invoiceRenderer appinvoicing.InvoiceRenderer
	if cfg.PDF.Enabled {
		chromeRenderer, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
			DefaultTimeout:  cfg.PDF.Timeout,
			Headless:        true,
			DisableGPU:      true,
			NoSandbox:       true,
			PrintBackground: true,
			Logger:          log,
		})
		if err != nil {
			log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
		}
		pdfRenderer := printing.NewInvoicePDFRenderer(chromeRenderer, log,
			printing.WithPublicBaseURL(cfg.Payment.PublicBaseURL),
			printing.WithArchiveStore(objectStore),
		)
		defer func() {
			if err := pdfRenderer.Close(); err != nil {
				log.Error("Error closing PDF renderer", zap.Error(err))
			}
		}()
		invoiceRenderer = pdfRenderer
		log.Info("PDF rendering enabled", zap.Duration("timeout", cfg.PDF.Timeout))
	}

	// Payment status transition policy
	policy := invoicing.PaymentPolicyFromName(cfg.Payment.TransitionPolicy)
	log.Info("Payment transition policy configured", zap.String("policy", cfg.Payment.TransitionPolicy))

	// Webhook idempotency store: Redis when reachable, in-memory otherwise
	var idemStore shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory idempotency store", zap.Error(err))
		memStore := cache.NewInMemoryIdempotencyStore()
		defer func() {
			_ = memStore.Close()
		}()
		idemStore = memStore
	} else {
		defer func() {
			_ = redisStore.Close()
		}()
		idemStore = redisStore
		log.Info("Redis idempotency store connected")
	}

	// Initialize application services
	invoiceService := appinvoicing.NewInvoiceService(uow, invoiceRepo, invoiceRenderer, log)
	paymentService := appinvoicing.NewPaymentService(uow, paymentRepo, policy, billingMetrics, log)
	webhookService := appinvoicing.NewWebhookService(uow, policy, idemStore, shared.DefaultIdempotencyConfig(), log)
	customerService := appdirectory.NewCustomerService(customerRepo, log)
	projectService := appdirectory.NewProjectService(projectRepo, invoiceRepo, log)

	// JWT authentication service
	jwtService := auth.NewJWTService(cfg.JWT)

	// Payment gateways: a provider without webhook credentials stays disabled
	var stripeGateway, flutterwaveGateway handler.PaymentGateway
	if cfg.Payment.Stripe.WebhookSecret != "" {
		stripeGateway = gateway.NewStripeGateway(cfg.Payment.Stripe.WebhookSecret, log)
		log.Info("Stripe gateway configured")
	}
	if cfg.Payment.Flutterwave.WebhookSecretHash != "" {
		flutterwaveGateway = gateway.NewFlutterwaveGateway(cfg.Payment.Flutterwave.WebhookSecretHash, log)
		log.Info("Flutterwave gateway configured")
	}

	// Initialize HTTP handlers
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	publicHandler := handler.NewPublicHandler(invoiceService, paymentService)
	customerHandler := handler.NewCustomerHandler(customerService)
	projectHandler := handler.NewProjectHandler(projectService)
	webhookHandler := handler.NewWebhookHandler(stripeGateway, flutterwaveGateway, webhookService, log)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	// 8. Tracing/Metrics - OpenTelemetry instrumentation (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// OpenTelemetry HTTP instrumentation
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
	}

	// Per-request profiling labels when the profiler is running
	if profiler.IsEnabled() {
		engine.Use(middleware.Profiling())
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Payment provider webhook endpoints (no authentication; signature-verified)
	webhookGroup := engine.Group("/api/v1/webhooks")
	webhookGroup.POST("/stripe", webhookHandler.Stripe)
	webhookGroup.POST("/flutterwave", webhookHandler.Flutterwave)

	// Public payment page endpoints (no authentication; invoice UUID acts as capability)
	publicGroup := engine.Group("/api/v1/public")
	publicLimiter := middleware.NewRateLimiter(cfg.HTTP.PublicRateLimitRequests, cfg.HTTP.PublicRateLimitWindow)
	publicGroup.Use(middleware.PublicRateLimit(publicLimiter))
	publicGroup.GET("/invoices/:uuid", publicHandler.GetInvoice)
	publicGroup.POST("/invoices/:uuid/payments", publicHandler.InitiatePayment)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		SkipPathPrefixes: []string{
			"/api/v1/public",
			"/api/v1/webhooks",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Register domain route groups

	// Invoicing domain (invoices and their lifecycle)
	invoiceRoutes := router.NewDomainGroup("invoicing", "/invoices")
	invoiceRoutes.Use(middleware.RequireResourceWithConfig("invoice", middleware.PermissionConfig{Logger: log}))
	invoiceRoutes.POST("", invoiceHandler.Create)
	invoiceRoutes.GET("", invoiceHandler.List)
	invoiceRoutes.GET("/stats", invoiceHandler.GetStats)
	invoiceRoutes.POST("/check-overdue", invoiceHandler.CheckOverdue)
	invoiceRoutes.GET("/:id", invoiceHandler.GetByID)
	invoiceRoutes.PUT("/:id", invoiceHandler.Update)
	invoiceRoutes.DELETE("/:id", invoiceHandler.Delete)
	invoiceRoutes.POST("/:id/status", invoiceHandler.UpdateStatus)
	invoiceRoutes.GET("/:id/pdf", invoiceHandler.GetPDF)
	r.Register(invoiceRoutes)

	// Payments domain (payments and refunds)
	paymentRoutes := router.NewDomainGroup("payments", "/payments")
	paymentRoutes.Use(middleware.RequireResourceWithConfig("payment", middleware.PermissionConfig{Logger: log}))
	paymentRoutes.GET("", paymentHandler.List)
	paymentRoutes.GET("/stats", paymentHandler.GetStats)
	paymentRoutes.GET("/:id", paymentHandler.GetByID)
	paymentRoutes.POST("/:id/status", paymentHandler.UpdateStatus)
	paymentRoutes.POST("/:id/refunds", paymentHandler.CreateRefund)
	paymentRoutes.POST("/:id/refunds/:refundId/status", paymentHandler.UpdateRefundStatus)
	r.Register(paymentRoutes)

	// Directory domain (customers and projects that invoices reference)
	customerRoutes := router.NewDomainGroup("directory", "/customers")
	customerRoutes.Use(middleware.RequireResourceWithConfig("customer", middleware.PermissionConfig{Logger: log}))
	customerRoutes.POST("", customerHandler.Create)
	customerRoutes.GET("", customerHandler.List)
	customerRoutes.GET("/:id", customerHandler.GetByID)
	customerRoutes.PUT("/:id", customerHandler.Update)
	customerRoutes.POST("/:id/deactivate", customerHandler.Deactivate)
	customerRoutes.POST("/:id/activate", customerHandler.Activate)
	r.Register(customerRoutes)

	projectRoutes := router.NewDomainGroup("directory", "/projects")
	projectRoutes.Use(middleware.RequireResourceWithConfig("project", middleware.PermissionConfig{Logger: log}))
	projectRoutes.POST("", projectHandler.Create)
	projectRoutes.GET("", projectHandler.List)
	projectRoutes.GET("/code/:code", projectHandler.GetByCode)
	projectRoutes.GET("/:id", projectHandler.GetByID)
	projectRoutes.PUT("/:id", projectHandler.Update)
	projectRoutes.POST("/:id/status", projectHandler.UpdateStatus)
	r.Register(projectRoutes)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
