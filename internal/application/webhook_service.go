package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/marketplace-platform/webhook-service/internal/domain"
	apperrors "github.com/marketplace-platform/webhook-service/pkg/errors"
	"github.com/marketplace-platform/webhook-service/pkg/idempotency"
	"github.com/marketplace-platform/webhook-service/pkg/logging"
	"github.com/marketplace-platform/webhook-service/pkg/tracing"
)

const tracerName = "webhook-service/application"

// WebhookRequest is one inbound provider delivery.
type WebhookRequest struct {
	Provider  string
	Sandbox   bool
	Signature string
	Body      []byte
}

// WebhookResult summarizes a processed delivery.
type WebhookResult struct {
	IntegrationID string
	Event         domain.EventName
	Verified      bool
	Duplicate     bool
	Outcomes      map[string]Outcome
}

// WebhookServiceConfig holds gateway tuning.
type WebhookServiceConfig struct {
	// Workers bounds concurrent subscriptions per delivery. 1 keeps the loop sequential.
	Workers int
	// Ledger, when set, drops redelivered events carrying an eventId.
	Ledger idempotency.Ledger
	// LedgerRetention is how long processed event IDs are remembered.
	LedgerRetention time.Duration
}

// WebhookService is the ingestion gateway: it resolves the integration,
// verifies and maps the payload, then fans out to every active seller subscription.
type WebhookService struct {
	repos     Repositories
	processor *EventProcessor
	locks     *sellerLocks
	config    WebhookServiceConfig
	metrics   PipelineMetrics
	logger    *logging.Logger
	tracer    trace.Tracer
}

// NewWebhookService creates a new WebhookService. metrics may be nil.
func NewWebhookService(
	repos Repositories,
	processor *EventProcessor,
	config WebhookServiceConfig,
	metrics PipelineMetrics,
	logger *logging.Logger,
) *WebhookService {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &WebhookService{
		repos:     repos,
		processor: processor,
		locks:     newSellerLocks(),
		config:    config,
		metrics:   metrics,
		logger:    logger.WithComponent("webhook-gateway"),
		tracer:    otel.Tracer(tracerName),
	}
}

// HandleWebhook processes one delivery. Request-level failures are returned
// as AppErrors; per-subscription failures are recorded against the seller
// and never fail the call.
func (s *WebhookService) HandleWebhook(ctx context.Context, req WebhookRequest) (result *WebhookResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "webhook.ingest", trace.WithAttributes(
		attribute.String("webhook.provider", req.Provider),
		attribute.Bool("webhook.sandbox", req.Sandbox),
	))
	defer func() {
		tracing.EndSpan(span, err)
		s.metrics.RecordWebhookReceived(req.Provider, resultLabel(result, err), time.Since(start))
	}()

	if req.Provider == "" {
		return nil, apperrors.ErrBadRequest("provider is required")
	}

	integration, err := s.repos.Integrations.FindByProvider(ctx, req.Provider)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to load integration").Wrap(err)
	}
	if integration == nil || !integration.Active {
		return nil, apperrors.ErrNotFound("Integration")
	}
	logger := s.logger.WithContext(ctx).WithFields(map[string]any{
		"provider":      integration.Provider,
		"integrationId": integration.IntegrationID,
	})

	raw, err := DecodePayload(req.Body)
	if err != nil {
		return nil, apperrors.ErrBadRequest(err.Error())
	}

	verified, err := VerifySignature(req.Body, req.Signature, integration.WebhookSecret)
	if err != nil {
		if errors.Is(err, ErrSignatureMismatch) {
			logger.Warn("Rejected webhook with invalid signature")
			return nil, apperrors.ErrInvalidSignature()
		}
		return nil, apperrors.ErrBadRequest(err.Error())
	}
	if !verified && integration.HasSecret() {
		logger.Warn("Unsigned webhook accepted for integration with a secret")
	}

	payload := MapPayload(raw, integration.ResponseMapping)
	result = &WebhookResult{
		IntegrationID: integration.IntegrationID,
		Event:         eventNameOf(payload),
		Verified:      verified,
		Outcomes:      make(map[string]Outcome),
	}
	span.SetAttributes(attribute.String("webhook.event", string(result.Event)))

	subscriptions, err := s.repos.SellerIntegrations.FindActiveByIntegration(ctx, integration.IntegrationID, req.Sandbox)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to load seller integrations").Wrap(err)
	}

	// Recorded last so a delivery rejected with 500 is applied when retried.
	if duplicate, err := s.markProcessed(ctx, integration, payload); err != nil {
		return nil, apperrors.ErrInternal("failed to record delivery").Wrap(err)
	} else if duplicate {
		logger.Info("Duplicate webhook delivery acknowledged", "eventId", stringField(payload, "eventId"))
		s.metrics.RecordDuplicateDelivery(integration.Provider)
		result.Duplicate = true
		return result, nil
	}
	logger.WebhookReceived(ctx, integration.Provider, string(result.Event), len(subscriptions), req.Sandbox)

	outcomes := s.fanOut(ctx, integration, subscriptions, payload)
	for i, sub := range subscriptions {
		if outcomes[i] != "" {
			result.Outcomes[sub.SellerID] = outcomes[i]
		}
	}
	return result, nil
}

// markProcessed reports whether the delivery was already seen. Deliveries
// without an eventId are always processed.
func (s *WebhookService) markProcessed(ctx context.Context, integration *domain.Integration, payload map[string]any) (bool, error) {
	if s.config.Ledger == nil {
		return false, nil
	}
	eventID := stringField(payload, "eventId")
	if eventID == "" {
		return false, nil
	}

	now := time.Now().UTC()
	err := s.config.Ledger.MarkProcessed(ctx, &idempotency.ProcessedEvent{
		IntegrationID:   integration.IntegrationID,
		ProviderEventID: eventID,
		Event:           string(eventNameOf(payload)),
		CorrelationID:   logging.CorrelationIDFromContext(ctx),
		ProcessedAt:     now,
		ExpiresAt:       now.Add(s.config.LedgerRetention),
	})
	if errors.Is(err, idempotency.ErrAlreadyProcessed) {
		return true, nil
	}
	return false, err
}

// fanOut runs every subscription, sequentially or on a bounded pool.
// Each subscription runs start to finish on one goroutine.
func (s *WebhookService) fanOut(ctx context.Context, integration *domain.Integration, subs []*domain.SellerIntegration, payload map[string]any) []Outcome {
	outcomes := make([]Outcome, len(subs))
	if s.config.Workers == 1 || len(subs) < 2 {
		for i, sub := range subs {
			outcomes[i] = s.processSubscription(ctx, integration, sub, payload)
		}
		return outcomes
	}

	sem := make(chan struct{}, s.config.Workers)
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sub *domain.SellerIntegration) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = s.processSubscription(ctx, integration, sub, payload)
		}(i, sub)
	}
	wg.Wait()
	return outcomes
}

// processSubscription handles one seller. An orphaned binding returns "".
func (s *WebhookService) processSubscription(ctx context.Context, integration *domain.Integration, sub *domain.SellerIntegration, payload map[string]any) Outcome {
	ctx, span := s.tracer.Start(ctx, "webhook.subscription", trace.WithAttributes(
		attribute.String("seller.id", sub.SellerID),
		attribute.String("seller_integration.id", sub.SellerIntegrationID),
	))
	defer span.End()

	unlock := s.locks.lock(sub.SellerID)
	defer unlock()

	logger := s.logger.WithContext(ctx).WithSeller(sub.SellerID, integration.IntegrationID)

	seller, err := s.repos.Sellers.FindByID(ctx, sub.SellerID)
	if err != nil {
		logger.WithError(err).Error("Failed to load seller")
		span.RecordError(err)
		return OutcomeFailed
	}
	if seller == nil {
		logger.Debug("Skipping orphaned seller integration", "sellerIntegrationId", sub.SellerIntegrationID)
		return ""
	}

	outcome := s.processor.Process(ctx, seller, integration, payload)
	span.SetAttributes(attribute.String("webhook.outcome", string(outcome)))
	return outcome
}

func resultLabel(result *WebhookResult, err error) string {
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return appErr.Code
		}
		return apperrors.CodeInternalError
	}
	if result != nil && result.Duplicate {
		return "duplicate"
	}
	return "accepted"
}
