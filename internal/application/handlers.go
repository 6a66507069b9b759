package application

import (
	"context"
	"fmt"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

// eventHandlers holds the domain mutators invoked through the registry.
type eventHandlers struct {
	orders     domain.OrderRepository
	products   domain.ProductRepository
	sellers    domain.SellerRepository
	dispatcher Dispatcher
	errorLog   *sellerErrorLog
	metrics    PipelineMetrics
}

// notify dispatches after persistence. It must be the last step of a handler.
func (h *eventHandlers) notify(ctx context.Context, ec *eventContext, event domain.EventName, data map[string]any) error {
	err := h.dispatcher.Dispatch(ctx, ec.seller.SellerID, event, data)
	h.metrics.RecordDispatch(string(event), err == nil)
	if err != nil {
		return fmt.Errorf("failed to dispatch %s: %w", event, err)
	}
	return nil
}

func (h *eventHandlers) saveSeller(ctx context.Context, seller *domain.Seller) error {
	if err := h.sellers.Save(ctx, seller); err != nil {
		return fmt.Errorf("failed to save seller: %w", err)
	}
	return nil
}

func (ec *eventContext) logEntry(status string, metadata map[string]any) domain.IntegrationLogEntry {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["integrationId"] = ec.integration.IntegrationID
	return domain.IntegrationLogEntry{
		Provider: ec.integration.Provider,
		Type:     string(ec.integration.Type),
		Event:    string(ec.event),
		Status:   status,
		Metadata: metadata,
	}
}

// compact drops nil values so optional payload fields are not stored as nulls.
func compact(m map[string]any) map[string]any {
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			delete(m, k)
		case *string:
			if t == nil {
				delete(m, k)
			} else {
				m[k] = *t
			}
		case *float64:
			if t == nil {
				delete(m, k)
			} else {
				m[k] = *t
			}
		case *int64:
			if t == nil {
				delete(m, k)
			} else {
				m[k] = *t
			}
		}
	}
	return m
}
