package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	fiscalapp "github.com/retailcore/backoffice/internal/application/fiscal"
	identityapp "github.com/retailcore/backoffice/internal/application/identity"
	inventoryapp "github.com/retailcore/backoffice/internal/application/inventory"
	tradeapp "github.com/retailcore/backoffice/internal/application/trade"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/domain/inventory"
	"github.com/retailcore/backoffice/internal/infrastructure/afip"
	"github.com/retailcore/backoffice/internal/infrastructure/auth"
	"github.com/retailcore/backoffice/internal/infrastructure/cache"
	"github.com/retailcore/backoffice/internal/infrastructure/config"
	"github.com/retailcore/backoffice/internal/infrastructure/event"
	"github.com/retailcore/backoffice/internal/infrastructure/logger"
	"github.com/retailcore/backoffice/internal/infrastructure/messaging"
	"github.com/retailcore/backoffice/internal/infrastructure/persistence"
	"github.com/retailcore/backoffice/internal/infrastructure/scheduler"
	"github.com/retailcore/backoffice/internal/infrastructure/storage"
	"github.com/retailcore/backoffice/internal/infrastructure/telemetry"
	"github.com/retailcore/backoffice/internal/interfaces/http/handler"
	"github.com/retailcore/backoffice/internal/interfaces/http/middleware"
	"github.com/retailcore/backoffice/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/retailcore/backoffice/docs"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Retail Back-Office API
//	@version		1.0
//	@description	Sales, quotes, stock and fiscal invoicing for a retail business
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// The OTLP log exporter is teed into the zap logger when telemetry is on
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry)
	if err != nil {
		panic("Failed to initialize log exporter: " + err.Error())
	}
	var extraCores []zapcore.Core
	if core := logProvider.Core(parseLevel(cfg.Log.Level)); core != nil {
		extraCores = append(extraCores, core)
	}
	log := logger.New(cfg.Log, extraCores...)
	defer func() { _ = log.Sync() }()

	log.Info("Starting retail back-office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Profiling, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Profiling.SpanProfiles {
		profiler.EnableSpanProfiles(tracerProvider)
	}

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
		zap.Bool("statement_pooling", cfg.Database.StatementPooling),
	)
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, log); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)

	metrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:    meterProvider.Meter("retail-backoffice/business"),
		Logger:   log,
		LowStock: productRepo,
	})
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	gate := identityapp.NewAuthorizer(identity.DefaultPolicy(), log)

	// Poolers in statement mode cannot hold a transaction open, so sales fall
	// back to per-line decrements with compensation.
	var txScope tradeapp.TransactionScope
	var ledger inventory.Ledger
	if cfg.Database.StatementPooling {
		sagaLedger := inventoryapp.NewSagaLedger(persistence.NewGormStockStore(db.DB), log)
		txScope = tradeapp.NewSagaTransactionScope(sagaLedger, saleRepo, quoteRepo, log)
		ledger = sagaLedger
	} else {
		txScope = persistence.NewGormTransactionScope(db.DB)
		ledger = persistence.NewGormInventoryLedger(db.DB)
	}

	claims, err := cache.NewClaimStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.Redis.RequireRedis),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create invoice claim store", zap.Error(err))
	}
	defer func() {
		if err := claims.Close(); err != nil {
			log.Warn("Failed to close invoice claim store", zap.Error(err))
		}
	}()

	var redisClient *redis.Client
	var blacklist auth.TokenBlacklist
	if rs, ok := claims.(*cache.RedisClaimStore); ok {
		redisClient = rs.Client()
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	} else {
		log.Warn("Redis unavailable, token revocation is process-local")
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	authority, err := afip.NewClient(&afip.Config{
		CUIT:        cfg.Fiscal.CUIT,
		AccessToken: cfg.Fiscal.AccessToken,
		Environment: cfg.Fiscal.Environment,
		BaseURL:     cfg.Fiscal.BaseURL,
		Timeout:     cfg.Fiscal.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create fiscal authority client", zap.Error(err))
	}

	// Events and audit
	eventBus := event.NewInMemoryEventBus(log)
	var relay *messaging.KafkaEventRelay
	if cfg.Kafka.Enabled {
		relay = messaging.NewKafkaEventRelay(
			messaging.NewKafkaWriter(cfg.Kafka, log),
			event.NewTradeEventSerializer(),
			log,
		)
		eventBus.Subscribe(relay)
		log.Info("Kafka event relay enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	recorder := event.NewAsyncAuditRecorder(auditRepo, event.AuditRecorderConfig{
		BufferSize: cfg.Audit.BufferSize,
		Workers:    cfg.Audit.Workers,
	}, log)
	recorder.Start()

	// Application services
	saleService := tradeapp.NewSaleService(gate, txScope, productRepo, customerRepo, saleRepo, log)
	saleService.SetEventPublisher(eventBus)
	saleService.SetAuditRecorder(recorder)
	saleService.SetMetrics(metrics)

	quoteService := tradeapp.NewQuoteService(gate, txScope, productRepo, customerRepo, quoteRepo, log)
	quoteService.SetEventPublisher(eventBus)
	quoteService.SetAuditRecorder(recorder)

	stockService := inventoryapp.NewStockService(gate, ledger, productRepo)

	invoiceService := fiscalapp.NewInvoiceService(gate, saleRepo, customerRepo, authority, claims, cfg.Fiscal.PointOfSale, log)
	invoiceService.SetClaimTTL(fiscalapp.ClaimTTLFor(cfg.Fiscal.Timeout))
	invoiceService.SetEventPublisher(eventBus)
	invoiceService.SetAuditRecorder(recorder)
	invoiceService.SetMetrics(metrics)

	if cfg.Storage.Enabled {
		archive, err := storage.NewS3VoucherArchive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create voucher archive", zap.Error(err))
		}
		bucketCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := archive.EnsureBucket(bucketCtx); err != nil {
			log.Warn("Failed to ensure voucher bucket", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
		cancel()
		invoiceService.SetArchive(archive)
		log.Info("Voucher archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	var sweeper *scheduler.QuoteExpirySweeper
	if cfg.Scheduler.QuoteExpiryEnabled {
		sweeper, err = scheduler.NewQuoteExpirySweeper(quoteService, cfg.Scheduler.QuoteExpiryInterval, log)
		if err != nil {
			log.Fatal("Failed to create quote expiry sweeper", zap.Error(err))
		}
		sweeper.Start(ctx)
		log.Info("Quote expiry sweeper started", zap.Duration("interval", cfg.Scheduler.QuoteExpiryInterval))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimit),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	engine := router.New(router.Config{
		ServiceName:   serviceName(cfg),
		ProfileLabels: profiler.IsEnabled(),
		Logger:        log,
		Meter:         meterProvider.Meter("retail-backoffice/http"),
		JWT: middleware.JWTMiddlewareConfig{
			JWTService:     auth.NewJWTService(cfg.JWT),
			TokenBlacklist: blacklist,
			Logger:         log,
		},
		RateLimiter: limiter,
		CORS: middleware.CORSConfig{
			AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
			AllowMethods:     cfg.HTTP.CORSAllowMethods,
			AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders:    []string{logger.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		},
		MaxBodySize: cfg.HTTP.MaxBodySize,
		Swagger: middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
		},
	}, router.Handlers{
		System:    handler.NewSystemHandler(cfg.App.Name, version, checks),
		Sale:      handler.NewSaleHandler(saleService, invoiceService),
		Quote:     handler.NewQuoteHandler(quoteService),
		Inventory: handler.NewInventoryHandler(stockService),
		Fiscal:    handler.NewFiscalHandler(invoiceService),
	})

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop producers before their sinks: the sweeper writes audit entries and events
	if sweeper != nil {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			log.Warn("Quote expiry sweeper did not stop cleanly", zap.Error(err))
		}
	}
	if limiter != nil {
		limiter.Stop()
	}
	if err := recorder.Stop(shutdownCtx); err != nil {
		log.Warn("Audit recorder did not drain", zap.Error(err))
	}
	if relay != nil {
		if err := relay.Close(); err != nil {
			log.Warn("Failed to flush Kafka relay", zap.Error(err))
		}
	}
	shutdownProvider(shutdownCtx, log, "tracer", tracerProvider.Shutdown)
	shutdownProvider(shutdownCtx, log, "meter", meterProvider.Shutdown)
	shutdownProvider(shutdownCtx, log, "log", logProvider.Shutdown)
	if err := profiler.Stop(); err != nil {
		log.Warn("Failed to stop profiler", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func serviceName(cfg *config.Config) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	if cfg.Telemetry.ServiceName != "" {
		return cfg.Telemetry.ServiceName
	}
	return cfg.App.Name
}

func parseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func shutdownProvider(ctx context.Context, log *zap.Logger, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Warn("Failed to shut down telemetry provider", zap.String("provider", name), zap.Error(err))
	}
}
