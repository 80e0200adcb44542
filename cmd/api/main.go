package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tomoki33/ordo-backend/internal/api/handlers"
	"github.com/tomoki33/ordo-backend/internal/api/middleware"
	"github.com/tomoki33/ordo-backend/internal/api/routes"
	"github.com/tomoki33/ordo-backend/internal/domain/analytics"
	"github.com/tomoki33/ordo-backend/internal/domain/expiration"
	"github.com/tomoki33/ordo-backend/internal/domain/notification"
	"github.com/tomoki33/ordo-backend/internal/domain/product"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/cache"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/persistence/kv"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/persistence/postgres/connection"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/persistence/postgres/migrations"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/scheduler"
	"github.com/tomoki33/ordo-backend/pkg/config"
	"github.com/tomoki33/ordo-backend/pkg/logger"
	"go.uber.org/zap"
)

// analyticsSchemaVersion is the current envelope version for key-value
// payloads persisted by the analytics and expiration engines.
const analyticsSchemaVersion = 1

// RequestLoggerMiddleware logs all incoming HTTP requests
func RequestLoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("Request completed",
			zap.String("path", path),
			zap.String("method", method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("") // Empty string will make it search in default locations
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	log := logger.NewLoggerWithLevel(cfg.Logging.Level)
	defer log.Sync()

	log.Info("Configuration loaded successfully")
	log.Info("Server mode: " + cfg.Server.Mode)

	// Set up Gin
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	gin.DefaultWriter = os.Stdout

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware(log))
	router.Use(middleware.NewMetricsMiddleware().CollectMetrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowedOrigins,
		AllowMethods: cfg.CORS.AllowedMethods,
		AllowHeaders: append(cfg.CORS.AllowedHeaders,
			"Accept-Encoding",
			"Content-Encoding",
			"Content-Type",
			"Authorization",
		),
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Encoding",
			"Content-Type",
		},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Connect to database
	db, err := connection.NewDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if err := migrations.AutoMigrate(db, log.Logger); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize Redis
	redisConfig := cache.NewConfigFromEnv(cfg)
	redisClient, err := cache.NewRedisClient(redisConfig)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Versioned key-value codec backing the analytics and expiration state
	codec := kv.NewCodec(kv.NewRedisStore(redisClient), analyticsSchemaVersion)

	// Initialize the analytics engine and hydrate persisted state
	ctx := context.Background()
	eventStore := analytics.NewEventStore(codec, log.Logger)
	engine := analytics.NewEngine(eventStore, codec, log.Logger)
	if err := engine.Load(ctx); err != nil {
		log.Fatal("Failed to load analytics state", zap.Error(err))
	}

	// Config supplies the baseline; user-persisted settings take precedence
	if engine.Settings() == analytics.DefaultSettings() {
		if err := engine.UpdateSettings(ctx, analytics.Settings{
			DataRetentionDays:             cfg.Analytics.DataRetentionDays,
			MinDataPoints:                 cfg.Analytics.MinDataPoints,
			SeasonalityDetectionThreshold: cfg.Analytics.SeasonalityDetectionThreshold,
			EnableRealTimeAnalysis:        cfg.Analytics.EnableRealTimeAnalysis,
		}); err != nil {
			log.Error("Failed to seed analytics settings", zap.Error(err))
		}
	}

	// Initialize repositories
	productRepo := product.NewRepository(db)
	ruleRepo := expiration.NewRuleRepository(db)
	notificationRepo := notification.NewRepository(db)

	// Initialize the expiration service
	expirationService := expiration.NewService(productRepo, ruleRepo, engine, codec, log.Logger)
	if err := expirationService.Load(ctx); err != nil {
		log.Fatal("Failed to load expiration settings", zap.Error(err))
	}
	if expirationService.Settings() == expiration.DefaultSettings() {
		if err := expirationService.UpdateSettings(ctx, expiration.Settings{
			ConsiderConsumptionPattern: cfg.Expiration.ConsiderConsumptionPattern,
			BatchAlertThreshold:        cfg.Expiration.BatchAlertThreshold,
			NotifyMinSeverity:          expiration.Severity(cfg.Expiration.NotifyMinSeverity),
		}); err != nil {
			log.Error("Failed to seed expiration settings", zap.Error(err))
		}
	}

	// Initialize logrus logger for the notification service
	notifLogger := logrus.New()
	notifLogger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Server.Mode == "production" {
		notifLogger.SetLevel(logrus.InfoLevel)
	} else {
		notifLogger.SetLevel(logrus.DebugLevel)
	}

	signalRepo := notification.NewSignalRepository(100, notifLogger)
	notificationService := notification.NewService(notificationRepo, signalRepo, notifLogger)

	// Product service records every mutation into the analytics engine
	productService := product.NewService(productRepo, engine, redisClient, log.Logger)

	// Create cache middleware and subscribe it to the inventory event bus so
	// mutations and analysis passes invalidate cached responses everywhere
	cacheMiddleware := middleware.NewCacheMiddleware(redisClient, "ordo", 5*time.Minute)
	cacheMiddleware.StartInvalidationListener(ctx)

	// Initialize and start the scheduler
	maintenanceScheduler := scheduler.NewScheduler(
		engine,
		expirationService,
		notificationService,
		productRepo,
		redisClient,
		cfg.Analytics.AnalysisInterval,
		log,
	)
	maintenanceScheduler.Start()
	log.Info("Maintenance scheduler started successfully")

	// Initialize handlers
	productHandler := handlers.NewProductHandler(productService)
	analyticsHandler := handlers.NewAnalyticsHandler(engine)
	expirationHandler := handlers.NewExpirationHandler(expirationService, ruleRepo)
	notificationHandler := handlers.NewNotificationHandler(notificationService, cfg.Auth.JWTSecret, log)

	// Health check routes (no /api prefix as these are system endpoints)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		if err := redisClient.Ping(c); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"component": "cache",
				"error":     err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
		})
	})

	// Register routes
	productRoutes := routes.NewProductRoutes(productHandler, cfg.Auth.JWTSecret)
	productRoutes.RegisterRoutes(router, cacheMiddleware)
	log.Info("Registered product routes at /api/products")

	analyticsRoutes := routes.NewAnalyticsRoutes(analyticsHandler, cfg.Auth.JWTSecret)
	analyticsRoutes.RegisterRoutes(router, cacheMiddleware)
	log.Info("Registered analytics routes at /api/analytics")

	expirationRoutes := routes.NewExpirationRoutes(expirationHandler, cfg.Auth.JWTSecret)
	expirationRoutes.RegisterRoutes(router, cacheMiddleware)
	log.Info("Registered expiration routes at /api/expiration")

	notificationRoutes := routes.NewNotificationRoutes(notificationHandler, cfg.Auth.JWTSecret)
	notificationRoutes.RegisterRoutes(router)
	log.Info("Registered notification routes at /api/notifications")

	// Start server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info(fmt.Sprintf("Server starting on port %d", cfg.Server.Port))

		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info("Shutting down server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited properly")
}
