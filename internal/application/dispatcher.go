package application

import (
	"context"
	"time"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

// Dispatcher notifies seller-side subscribers of a processed event. It is
// called once per successful handler, after the mutation is persisted.
type Dispatcher interface {
	Dispatch(ctx context.Context, sellerID string, event domain.EventName, data map[string]any) error
}

// PipelineMetrics receives webhook pipeline observations.
type PipelineMetrics interface {
	RecordWebhookReceived(provider, result string, duration time.Duration)
	RecordHandlerOutcome(event, integrationType, outcome string, duration time.Duration)
	RecordSellerError(code string)
	RecordDispatch(event string, success bool)
	RecordDuplicateDelivery(provider string)
}

type noopMetrics struct{}

func (noopMetrics) RecordWebhookReceived(string, string, time.Duration) {}
func (noopMetrics) RecordHandlerOutcome(string, string, string, time.Duration) {}
func (noopMetrics) RecordSellerError(string) {}
func (noopMetrics) RecordDispatch(string, bool) {}
func (noopMetrics) RecordDuplicateDelivery(string) {}

// Repositories groups the persistence ports used by the pipeline.
type Repositories struct {
	Integrations       domain.IntegrationRepository
	SellerIntegrations domain.SellerIntegrationRepository
	Sellers            domain.SellerRepository
	Orders             domain.OrderRepository
	Products           domain.ProductRepository
}
