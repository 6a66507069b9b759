// Package dispatch delivers seller notifications through the transactional outbox.
package dispatch

import (
	"context"
	"fmt"

	"github.com/marketplace-platform/webhook-service/internal/domain"
	"github.com/marketplace-platform/webhook-service/pkg/cloudevents"
	"github.com/marketplace-platform/webhook-service/pkg/outbox"
)

// DefaultTopic is the Kafka topic seller notifications are relayed to.
const DefaultTopic = "marketplace.seller.notifications"

const aggregateType = "Seller"

// OutboxDispatcher implements application.Dispatcher by storing a CloudEvent
// in the outbox. The relay publishes it to Kafka asynchronously.
type OutboxDispatcher struct {
	repo    outbox.Repository
	factory *cloudevents.Factory
	topic   string
}

// NewOutboxDispatcher creates a new OutboxDispatcher. An empty topic uses DefaultTopic.
func NewOutboxDispatcher(repo outbox.Repository, factory *cloudevents.Factory, topic string) *OutboxDispatcher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &OutboxDispatcher{
		repo:    repo,
		factory: factory,
		topic:   topic,
	}
}

// Dispatch enqueues a notification addressed to sellerID
func (d *OutboxDispatcher) Dispatch(ctx context.Context, sellerID string, event domain.EventName, data map[string]any) error {
	ce := d.factory.NewSellerNotification(ctx, sellerID, string(event), data)

	evt, err := outbox.NewEvent(sellerID, aggregateType, d.topic, ce)
	if err != nil {
		return fmt.Errorf("failed to build notification for %s: %w", event, err)
	}
	if err := d.repo.Save(ctx, evt); err != nil {
		return fmt.Errorf("failed to enqueue notification for %s: %w", event, err)
	}
	return nil
}
