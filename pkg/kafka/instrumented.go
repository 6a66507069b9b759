package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/marketplace-platform/webhook-service/pkg/cloudevents"
	"github.com/marketplace-platform/webhook-service/pkg/logging"
	"github.com/marketplace-platform/webhook-service/pkg/resilience"
)

// PublishRecorder receives one observation per publish attempt.
type PublishRecorder interface {
	RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration)
}

// InstrumentedProducer adds tracing, metrics, logging and a circuit breaker
// around an EventPublisher.
type InstrumentedProducer struct {
	next    EventPublisher
	breaker *resilience.CircuitBreaker
	metrics PublishRecorder
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewInstrumentedProducer wraps next. breaker and metrics may be nil.
func NewInstrumentedProducer(next EventPublisher, breaker *resilience.CircuitBreaker, metrics PublishRecorder, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		next:    next,
		breaker: breaker,
		metrics: metrics,
		logger:  logger,
		tracer:  otel.Tracer("kafka-producer"),
	}
}

// PublishEvent publishes event through the breaker inside a producer span.
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error {
	ctx, span := p.tracer.Start(ctx, "kafka.publish "+topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", topic),
			attribute.String("cloudevents.event_type", event.Type),
			attribute.String("cloudevents.event_id", event.ID),
		),
	)
	defer span.End()

	start := time.Now()
	publish := func(ctx context.Context) error { return p.next.PublishEvent(ctx, topic, event) }

	var err error
	if p.breaker != nil {
		err = p.breaker.Execute(ctx, publish)
	} else {
		err = publish(ctx)
	}
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, duration)
	}
	p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, duration)

	return err
}
