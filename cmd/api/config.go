package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marketplace-platform/webhook-service/internal/application"
	"github.com/marketplace-platform/webhook-service/pkg/kafka"
	"github.com/marketplace-platform/webhook-service/pkg/logging"
	"github.com/marketplace-platform/webhook-service/pkg/mongodb"
	"github.com/marketplace-platform/webhook-service/pkg/outbox"
	"github.com/marketplace-platform/webhook-service/pkg/tracing"
)

// Config holds application configuration
type Config struct {
	ServerAddr  string
	Environment string
	LogLevel    logging.LogLevel

	MongoDB *mongodb.Config
	Kafka   *kafka.Config
	Tracing *tracing.Config
	Outbox  *outbox.PublisherConfig

	NotificationsTopic  string
	IntegrationCacheTTL time.Duration
	SellerErrorLogLimit int
	MaxBodyBytes        int64

	Webhooks     WebhookConfig
	Housekeeping application.HousekeepingConfig
}

// WebhookConfig holds gateway settings
type WebhookConfig struct {
	Workers        int
	DedupEnabled   bool
	DedupRetention time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", "development")

	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "marketplace")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("NOTIFICATIONS_TOPIC", kafka.Topics.SellerNotifications)
	v.SetDefault("OUTBOX_POLL_INTERVAL", "1s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)

	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("TRACING_ENABLED", true)

	v.SetDefault("INTEGRATION_CACHE_TTL", "1m")
	v.SetDefault("SELLER_ERROR_LOG_LIMIT", 100)
	v.SetDefault("WEBHOOK_MAX_BODY_BYTES", 1<<20)
	v.SetDefault("SUBSCRIPTION_WORKERS", 1)
	v.SetDefault("DEDUP_ENABLED", false)
	v.SetDefault("DEDUP_RETENTION", "72h")

	v.SetDefault("OUTBOX_RETENTION", "168h")
	v.SetDefault("HOUSEKEEPING_INTERVAL", "1h")
}

// loadConfig reads the environment and, when CONFIG_FILE is set, that file.
func loadConfig(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = v.GetString("MONGODB_URI")
	mongoConfig.Database = v.GetString("MONGODB_DATABASE")

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.ClientID = serviceName
	kafkaConfig.Brokers = splitList(v.GetString("KAFKA_BROKERS"))

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")
	tracingConfig.Environment = v.GetString("ENVIRONMENT")
	tracingConfig.Enabled = v.GetBool("TRACING_ENABLED")

	outboxConfig := outbox.DefaultPublisherConfig()
	outboxConfig.PollInterval = v.GetDuration("OUTBOX_POLL_INTERVAL")
	outboxConfig.BatchSize = v.GetInt("OUTBOX_BATCH_SIZE")

	return &Config{
		ServerAddr:          v.GetString("SERVER_ADDR"),
		Environment:         v.GetString("ENVIRONMENT"),
		LogLevel:            logging.ParseLevel(v.GetString("LOG_LEVEL")),
		MongoDB:             mongoConfig,
		Kafka:               kafkaConfig,
		Tracing:             tracingConfig,
		Outbox:              outboxConfig,
		NotificationsTopic:  v.GetString("NOTIFICATIONS_TOPIC"),
		IntegrationCacheTTL: v.GetDuration("INTEGRATION_CACHE_TTL"),
		SellerErrorLogLimit: v.GetInt("SELLER_ERROR_LOG_LIMIT"),
		MaxBodyBytes:        v.GetInt64("WEBHOOK_MAX_BODY_BYTES"),
		Webhooks: WebhookConfig{
			Workers:        v.GetInt("SUBSCRIPTION_WORKERS"),
			DedupEnabled:   v.GetBool("DEDUP_ENABLED"),
			DedupRetention: v.GetDuration("DEDUP_RETENTION"),
		},
		Housekeeping: application.HousekeepingConfig{
			Interval:        v.GetDuration("HOUSEKEEPING_INTERVAL"),
			OutboxRetention: v.GetDuration("OUTBOX_RETENTION"),
		},
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
