package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marketplace-platform/webhook-service/internal/domain"
	"github.com/marketplace-platform/webhook-service/pkg/logging"
)

// Outcome is the result of routing one event for one seller subscription.
type Outcome string

const (
	OutcomeHandled     Outcome = "handled"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeCustom      Outcome = "custom"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeInvalidType Outcome = "invalid_type"
	OutcomeFailed      Outcome = "failed"
)

// errEntityNotFound signals an update event whose target does not exist.
var errEntityNotFound = errors.New("target entity not found")

// eventContext is one handler invocation: one event for one seller.
type eventContext struct {
	seller      *domain.Seller
	integration *domain.Integration
	event       domain.EventName
	payload     map[string]any
	logger      *logging.Logger
}

type handlerFunc func(h *eventHandlers, ctx context.Context, ec *eventContext) error

type route struct {
	allowed map[domain.IntegrationType]struct{}
	handle  handlerFunc
}

func (r route) allows(t domain.IntegrationType) bool {
	_, ok := r.allowed[t]
	return ok
}

func allow(types ...domain.IntegrationType) map[domain.IntegrationType]struct{} {
	m := make(map[domain.IntegrationType]struct{}, len(types))
	for _, t := range types {
		m[t] = struct{}{}
	}
	return m
}

const (
	marketplace   = domain.IntegrationTypeMarketplace
	warehouse     = domain.IntegrationTypeWarehouse
	dropshipping  = domain.IntegrationTypeDropshipping
	payment       = domain.IntegrationTypePayment
	shipping      = domain.IntegrationTypeShipping
	tax           = domain.IntegrationTypeTax
	crm           = domain.IntegrationTypeCRM
	marketing     = domain.IntegrationTypeMarketing
	advertising   = domain.IntegrationTypeAdvertising
	accounting    = domain.IntegrationTypeAccounting
	analytics     = domain.IntegrationTypeAnalytics
	automation    = domain.IntegrationTypeAutomation
	communication = domain.IntegrationTypeCommunication
	education     = domain.IntegrationTypeEducation
	security      = domain.IntegrationTypeSecurity
)

// registry is built once at package init and never mutated.
var registry = map[domain.EventName]route{
	domain.EventOrderCreated:          {allow(marketplace, dropshipping, warehouse), (*eventHandlers).orderCreated},
	domain.EventOrderUpdated:          {allow(marketplace, dropshipping, warehouse), (*eventHandlers).orderUpdated},
	domain.EventOrderFulfilled:        {allow(marketplace, dropshipping, warehouse, shipping), (*eventHandlers).orderFulfilled},
	domain.EventOrderCancelled:        {allow(marketplace, dropshipping, warehouse, payment), (*eventHandlers).orderCancelled},
	domain.EventOrderPaymentCompleted: {allow(payment, marketplace), (*eventHandlers).paymentSucceeded},
	domain.EventPaymentSucceeded:      {allow(payment), (*eventHandlers).paymentSucceeded},
	domain.EventOrderShipmentUpdated:  {allow(shipping, warehouse, dropshipping, marketplace), (*eventHandlers).shipmentUpdated},
	domain.EventShipmentUpdated:       {allow(shipping, warehouse, dropshipping), (*eventHandlers).shipmentUpdated},
	domain.EventTaxTransactionCreated: {allow(tax, accounting), (*eventHandlers).taxTransactionCreated},
	domain.EventTaxReportCreated:      {allow(tax, accounting), (*eventHandlers).taxReportCreated},

	domain.EventProductCreated:   {allow(marketplace, dropshipping, warehouse), (*eventHandlers).productCreated},
	domain.EventProductImported:  {allow(marketplace, dropshipping, warehouse), (*eventHandlers).productCreated},
	domain.EventProductUpdated:   {allow(marketplace, dropshipping, warehouse), (*eventHandlers).productUpdated},
	domain.EventProductSynced:    {allow(marketplace, dropshipping, warehouse), (*eventHandlers).productUpdated},
	domain.EventProductDeleted:   {allow(marketplace, dropshipping, warehouse), (*eventHandlers).productDeleted},
	domain.EventInventoryUpdated: {allow(warehouse, dropshipping, marketplace), (*eventHandlers).inventoryUpdated},

	domain.EventCustomerCreated:      {allow(crm, marketplace, marketing), (*eventHandlers).customerCreated},
	domain.EventCustomerUpdated:      {allow(crm, marketplace, marketing), (*eventHandlers).customerUpdated},
	domain.EventWithdrawalCreated:    {allow(payment, accounting), (*eventHandlers).withdrawalCreated},
	domain.EventWithdrawalUpdated:    {allow(payment, accounting), (*eventHandlers).withdrawalUpdated},
	domain.EventSellerRegistered:     {allow(marketplace, crm), (*eventHandlers).sellerConnection},
	domain.EventSellerUpdated:        {allow(marketplace, crm), (*eventHandlers).sellerConnection},
	domain.EventCampaignUpdated:      {allow(marketing, advertising), (*eventHandlers).campaignUpdated},
	domain.EventAdPerformanceUpdated: {allow(advertising, marketing), (*eventHandlers).adPerformanceUpdated},
	domain.EventTransactionRecorded:  {allow(accounting, payment), (*eventHandlers).transactionRecorded},
	domain.EventAnalyticsUpdated:     {allow(analytics), (*eventHandlers).analyticsUpdated},
	domain.EventAutomationTriggered:  {allow(automation), (*eventHandlers).providerActivity},
	domain.EventMessageSent:          {allow(communication), (*eventHandlers).providerActivity},
	domain.EventCourseUpdated:        {allow(education), (*eventHandlers).providerActivity},
	domain.EventSecurityAlert:        {allow(security), (*eventHandlers).securityAlert},
}

// EventProcessor routes a mapped payload for one seller subscription through
// the registry and isolates every failure to that subscription.
type EventProcessor struct {
	handlers *eventHandlers
	schemas  *PayloadSchemas
	errorLog *sellerErrorLog
	metrics  PipelineMetrics
	logger   *logging.Logger
}

// NewEventProcessor creates a new EventProcessor. metrics may be nil.
func NewEventProcessor(
	repos Repositories,
	dispatcher Dispatcher,
	schemas *PayloadSchemas,
	metrics PipelineMetrics,
	logger *logging.Logger,
	errorLogLimit int,
) *EventProcessor {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if errorLogLimit <= 0 {
		errorLogLimit = domain.DefaultIntegrationErrorLimit
	}
	errorLog := &sellerErrorLog{
		sellers: repos.Sellers,
		limit:   errorLogLimit,
		metrics: metrics,
		logger:  logger,
	}
	return &EventProcessor{
		handlers: &eventHandlers{
			orders:     repos.Orders,
			products:   repos.Products,
			sellers:    repos.Sellers,
			dispatcher: dispatcher,
			errorLog:   errorLog,
			metrics:    metrics,
		},
		schemas:  schemas,
		errorLog: errorLog,
		metrics:  metrics,
		logger:   logger.WithComponent("event-processor"),
	}
}

// Process handles the payload for one seller. A provider-reported error in
// the payload is logged against the seller whatever the handler outcome.
func (p *EventProcessor) Process(ctx context.Context, seller *domain.Seller, integration *domain.Integration, payload map[string]any) Outcome {
	ec := &eventContext{
		seller:      seller,
		integration: integration,
		event:       eventNameOf(payload),
		payload:     payload,
		logger:      p.logger.WithSeller(seller.SellerID, integration.IntegrationID),
	}

	start := time.Now()
	outcome, err := p.route(ctx, ec)
	duration := time.Since(start)

	p.metrics.RecordHandlerOutcome(string(ec.event), string(integration.Type), string(outcome), duration)
	ec.logger.HandlerOutcome(ctx, string(ec.event), string(outcome), duration, err)

	if msg, ok := providerError(payload); ok {
		p.errorLog.record(ctx, ec, domain.ErrorCodeProviderError, msg)
	}
	return outcome
}

func (p *EventProcessor) route(ctx context.Context, ec *eventContext) (Outcome, error) {
	r, ok := registry[ec.event]
	if !ok {
		if ec.event != "" && ec.integration.Type == domain.IntegrationTypeOther {
			err := p.handlers.notify(ctx, ec, domain.EventCustom, map[string]any{
				"event":   string(ec.event),
				"payload": ec.payload,
			})
			if err != nil {
				p.errorLog.record(ctx, ec, domain.ErrorCodeWebhookProcessingError, err.Error())
				return OutcomeFailed, err
			}
			return OutcomeCustom, nil
		}
		p.errorLog.record(ctx, ec, domain.ErrorCodeUnsupportedEvent, fmt.Sprintf("Unsupported event: %q", ec.event))
		return OutcomeUnsupported, nil
	}

	if !r.allows(ec.integration.Type) {
		p.errorLog.record(ctx, ec, domain.ErrorCodeInvalidEventType,
			fmt.Sprintf("Event %q is not allowed for %s integrations", ec.event, ec.integration.Type))
		return OutcomeInvalidType, nil
	}

	err := p.invoke(ctx, r, ec)
	switch {
	case err == nil:
		return OutcomeHandled, nil
	case errors.Is(err, errEntityNotFound):
		return OutcomeSkipped, nil
	default:
		p.errorLog.record(ctx, ec, domain.ErrorCodeWebhookProcessingError, err.Error())
		return OutcomeFailed, err
	}
}

// invoke validates the payload shape and runs the handler, converting a panic into an error.
func (p *EventProcessor) invoke(ctx context.Context, r route, ec *eventContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ec.logger.Panic(ctx, rec)
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()

	if err := p.schemas.Validate(ec.event, ec.payload); err != nil {
		return err
	}
	ec.payload = normalizeIdentifiers(ec.payload)
	return r.handle(p.handlers, ctx, ec)
}

// sellerErrorLog appends entries to the seller's bounded integration error log.
type sellerErrorLog struct {
	sellers domain.SellerRepository
	limit   int
	metrics PipelineMetrics
	logger  *logging.Logger
}

func (l *sellerErrorLog) record(ctx context.Context, ec *eventContext, code domain.ErrorCode, message string) {
	entry := domain.IntegrationError{
		Provider:  ec.integration.Provider,
		Event:     string(ec.event),
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	logger := ec.logger.WithContext(ctx)
	logger.Warn("Recording seller integration error", "code", code, "event", ec.event, "message", message)
	l.metrics.RecordSellerError(string(code))

	if err := l.sellers.AppendIntegrationError(ctx, ec.seller.SellerID, entry, l.limit); err != nil {
		logger.WithError(err).Error("Failed to append seller integration error", "code", code)
		return
	}
	if evicted := ec.seller.RecordIntegrationError(entry, l.limit); evicted > 0 {
		ec.logger.Debug("Evicted oldest integration errors", "evicted", evicted, "limit", l.limit)
	}
}
