package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"

	"github.com/marketplace-platform/webhook-service/internal/api/handlers"
	"github.com/marketplace-platform/webhook-service/internal/application"
	"github.com/marketplace-platform/webhook-service/internal/infrastructure/cache"
	"github.com/marketplace-platform/webhook-service/internal/infrastructure/dispatch"
	mongoRepo "github.com/marketplace-platform/webhook-service/internal/infrastructure/mongodb"
	"github.com/marketplace-platform/webhook-service/pkg/cloudevents"
	"github.com/marketplace-platform/webhook-service/pkg/idempotency"
	"github.com/marketplace-platform/webhook-service/pkg/kafka"
	"github.com/marketplace-platform/webhook-service/pkg/logging"
	"github.com/marketplace-platform/webhook-service/pkg/metrics"
	"github.com/marketplace-platform/webhook-service/pkg/middleware"
	"github.com/marketplace-platform/webhook-service/pkg/mongodb"
	"github.com/marketplace-platform/webhook-service/pkg/outbox"
	"github.com/marketplace-platform/webhook-service/pkg/resilience"
	"github.com/marketplace-platform/webhook-service/pkg/tracing"
)

const serviceName = "webhook-service"

func main() {
	config, err := loadConfig(viper.New())
	if err != nil {
		logging.New(logging.DefaultConfig(serviceName)).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = config.LogLevel
	logConfig.Environment = config.Environment
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting webhook-service API")
	ctx := context.Background()

	tracerProvider, err := tracing.Initialize(ctx, config.Tracing)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", config.Tracing.OTLPEndpoint, "enabled", config.Tracing.Enabled)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	// MongoDB with per-collection command metrics
	config.MongoDB.Monitor = mongodb.NewCommandMonitor(m)
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(context.Background())
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	db := mongoClient.Database()
	repos := mongoRepo.NewRepositories(db)
	if err := repos.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Error("Failed to create indexes")
		os.Exit(1)
	}

	// Kafka producer behind a circuit breaker
	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()
	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("kafka-producer"), logger.Logger, m)
	producer := kafka.NewInstrumentedProducer(kafkaProducer, breaker, m, logger)
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	outboxPublisher := outbox.NewPublisher(repos.Outbox, producer, logger, m, config.Outbox)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	schemas, err := application.LoadPayloadSchemas()
	if err != nil {
		logger.WithError(err).Error("Failed to load payload schemas")
		os.Exit(1)
	}

	appRepos := application.Repositories{
		Integrations:       cache.NewIntegrationRepository(repos.Integrations, config.IntegrationCacheTTL),
		SellerIntegrations: repos.SellerIntegrations,
		Sellers:            repos.Sellers,
		Orders:             repos.Orders,
		Products:           repos.Products,
	}

	dispatcher := dispatch.NewOutboxDispatcher(repos.Outbox, cloudevents.NewFactory("/"+serviceName), config.NotificationsTopic)
	processor := application.NewEventProcessor(appRepos, dispatcher, schemas, m, logger, config.SellerErrorLogLimit)

	var (
		ledger        idempotency.Ledger
		ledgerCleaner application.LedgerCleaner
	)
	if config.Webhooks.DedupEnabled {
		mongoLedger := idempotency.NewMongoLedger(db, config.Webhooks.DedupRetention)
		if err := mongoLedger.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Error("Failed to create processed event indexes")
			os.Exit(1)
		}
		ledger, ledgerCleaner = mongoLedger, mongoLedger
		logger.Info("Duplicate delivery detection enabled", "retention", config.Webhooks.DedupRetention)
	}

	webhookService := application.NewWebhookService(appRepos, processor, application.WebhookServiceConfig{
		Workers:         config.Webhooks.Workers,
		Ledger:          ledger,
		LedgerRetention: config.Webhooks.DedupRetention,
	}, m, logger)
	integrationService := application.NewIntegrationService(appRepos, logger)

	housekeeper := application.NewHousekeeper(repos.Outbox, ledgerCleaner, config.Housekeeping, logger)
	housekeeper.Start(ctx)
	defer housekeeper.Stop()

	if err := handlers.RegisterValidators(); err != nil {
		logger.WithError(err).Error("Failed to register validators")
		os.Exit(1)
	}

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(serviceName)))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	v1 := router.Group("/api/v1")
	handlers.NewWebhookHandler(webhookService, logger, config.MaxBodyBytes).RegisterRoutes(v1)
	handlers.NewIntegrationHandler(integrationService).RegisterRoutes(v1)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}
