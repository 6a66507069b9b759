package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketplace-platform/webhook-service/internal/domain"
	"github.com/marketplace-platform/webhook-service/pkg/cloudevents"
	"github.com/marketplace-platform/webhook-service/pkg/logging"
	"github.com/marketplace-platform/webhook-service/pkg/outbox"
)

type outboxStub struct {
	saved []*outbox.Event
	err   error
}

func (s *outboxStub) Save(_ context.Context, e *outbox.Event) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, e)
	return nil
}

func (s *outboxStub) FindPending(context.Context, int) ([]*outbox.Event, error) { return nil, nil }
func (s *outboxStub) MarkPublished(context.Context, string) error                { return nil }
func (s *outboxStub) IncrementRetry(context.Context, string, string) error       { return nil }
func (s *outboxStub) DeletePublishedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestOutboxDispatcher_Dispatch(t *testing.T) {
	repo := &outboxStub{}
	d := NewOutboxDispatcher(repo, cloudevents.NewFactory("webhook-service"), "")
	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")

	err := d.Dispatch(ctx, "seller-1", domain.EventOrderCreated, map[string]any{"orderId": "ORD-1"})
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	evt := repo.saved[0]
	assert.Equal(t, "seller-1", evt.AggregateID)
	assert.Equal(t, "Seller", evt.AggregateType)
	assert.Equal(t, DefaultTopic, evt.Topic)
	assert.Equal(t, "marketplace.seller.order-created", evt.EventType)
	assert.False(t, evt.IsPublished())

	ce, err := evt.CloudEvent()
	require.NoError(t, err)
	assert.Equal(t, "seller/seller-1", ce.Subject)
	assert.Equal(t, "corr-1", ce.CorrelationID)
	assert.Equal(t, "seller-1", ce.SellerID)
	data, ok := ce.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "order created", data["event"])
	assert.Equal(t, map[string]any{"orderId": "ORD-1"}, data["data"])
}

func TestOutboxDispatcher_SaveFailure(t *testing.T) {
	repo := &outboxStub{err: errors.New("write concern timeout")}
	d := NewOutboxDispatcher(repo, cloudevents.NewFactory("webhook-service"), "custom.topic")

	err := d.Dispatch(context.Background(), "seller-1", domain.EventProductDeleted, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product deleted")
	assert.Contains(t, err.Error(), "write concern timeout")
}
