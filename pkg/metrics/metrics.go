package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the webhook service collectors.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Webhook pipeline metrics
	WebhooksReceived      *prometheus.CounterVec
	WebhookDuration       *prometheus.HistogramVec
	HandlerInvocations    *prometheus.CounterVec
	HandlerDuration       *prometheus.HistogramVec
	SellerErrorsRecorded  *prometheus.CounterVec
	NotificationsDispatch *prometheus.CounterVec
	DuplicateDeliveries   *prometheus.CounterVec

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Outbox metrics
	OutboxPending  prometheus.Gauge
	OutboxPublish  *prometheus.CounterVec
	OutboxRetries  *prometheus.CounterVec
	OutboxDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "marketplace",
	}
}

// New creates a new Metrics instance backed by its own registry.
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"service", "method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"service", "method", "path"})

	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "http_requests_in_flight",
		Help:        "Number of HTTP requests currently being processed",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.WebhooksReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "webhooks_received_total",
		Help:      "Webhook deliveries by provider and gateway result",
	}, []string{"service", "provider", "result"})

	m.WebhookDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "webhook_processing_duration_seconds",
		Help:      "Time spent fanning a delivery out to every subscription",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"service", "provider"})

	m.HandlerInvocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "webhook_handler_invocations_total",
		Help:      "Per-subscription routing outcomes",
	}, []string{"service", "event", "integration_type", "outcome"})

	m.HandlerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "webhook_handler_duration_seconds",
		Help:      "Handler execution time per event",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"service", "event"})

	m.SellerErrorsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "seller_integration_errors_total",
		Help:      "Entries appended to seller integration error logs",
	}, []string{"service", "code"})

	m.NotificationsDispatch = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "seller_notifications_dispatched_total",
		Help:      "Seller notifications handed to the dispatcher",
	}, []string{"service", "event", "status"})

	m.DuplicateDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "webhook_duplicate_deliveries_total",
		Help:      "Deliveries skipped because the provider event was already processed",
	}, []string{"service", "provider"})

	m.KafkaEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "kafka_events_published_total",
		Help:      "Total number of Kafka events published",
	}, []string{"service", "topic", "event_type", "status"})

	m.KafkaPublishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "kafka_publish_duration_seconds",
		Help:      "Kafka publish duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"service", "topic"})

	m.MongoDBOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "mongodb_operations_total",
		Help:      "Total number of MongoDB operations",
	}, []string{"service", "collection", "operation", "status"})

	m.MongoDBOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "mongodb_operation_duration_seconds",
		Help:      "MongoDB operation duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"service", "collection", "operation"})

	m.OutboxPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "outbox_pending_events",
		Help:        "Unpublished events seen by the last outbox poll",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.OutboxPublish = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "outbox_publish_total",
		Help:      "Outbox relay attempts",
	}, []string{"service", "event_type", "status"})

	m.OutboxRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "outbox_retries_total",
		Help:      "Outbox events scheduled for retry",
	}, []string{"service", "event_type"})

	m.OutboxDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "outbox_publish_duration_seconds",
		Help:      "Outbox relay duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"service", "event_type"})

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"service", "name"})

	m.CircuitBreakerTrips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of circuit breaker trips",
	}, []string{"service", "name"})

	registry.MustRegister(
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.HTTPRequestsInFlight,
		m.WebhooksReceived, m.WebhookDuration, m.HandlerInvocations, m.HandlerDuration,
		m.SellerErrorsRecorded, m.NotificationsDispatch, m.DuplicateDeliveries,
		m.KafkaEventsPublished, m.KafkaPublishDuration,
		m.MongoDBOperations, m.MongoDBOperationDuration,
		m.OutboxPending, m.OutboxPublish, m.OutboxRetries, m.OutboxDuration,
		m.CircuitBreakerState, m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns the HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordWebhookReceived records a delivery and the gateway result
// (accepted, not_found, invalid_signature, bad_request, duplicate, error).
func (m *Metrics) RecordWebhookReceived(provider, result string, duration time.Duration) {
	m.WebhooksReceived.WithLabelValues(m.serviceName, provider, result).Inc()
	m.WebhookDuration.WithLabelValues(m.serviceName, provider).Observe(duration.Seconds())
}

// RecordHandlerOutcome records a per-subscription routing outcome.
func (m *Metrics) RecordHandlerOutcome(event, integrationType, outcome string, duration time.Duration) {
	m.HandlerInvocations.WithLabelValues(m.serviceName, event, integrationType, outcome).Inc()
	m.HandlerDuration.WithLabelValues(m.serviceName, event).Observe(duration.Seconds())
}

// RecordSellerError records an entry appended to a seller error log
func (m *Metrics) RecordSellerError(code string) {
	m.SellerErrorsRecorded.WithLabelValues(m.serviceName, code).Inc()
}

// RecordDispatch records a seller notification dispatch
func (m *Metrics) RecordDispatch(event string, success bool) {
	m.NotificationsDispatch.WithLabelValues(m.serviceName, event, statusLabel(success)).Inc()
}

// RecordDuplicateDelivery records a delivery skipped by the processed-event ledger
func (m *Metrics) RecordDuplicateDelivery(provider string) {
	m.DuplicateDeliveries.WithLabelValues(m.serviceName, provider).Inc()
}

// RecordKafkaPublish records a Kafka publish
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// SetOutboxPending sets the number of pending outbox events
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}

// RecordOutboxPublish records an outbox relay attempt
func (m *Metrics) RecordOutboxPublish(eventType string, success bool, duration time.Duration) {
	m.OutboxPublish.WithLabelValues(m.serviceName, eventType, statusLabel(success)).Inc()
	m.OutboxDuration.WithLabelValues(m.serviceName, eventType).Observe(duration.Seconds())
}

// RecordOutboxRetry records an outbox retry
func (m *Metrics) RecordOutboxRetry(eventType string) {
	m.OutboxRetries.WithLabelValues(m.serviceName, eventType).Inc()
}

// SetCircuitBreakerState sets circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
