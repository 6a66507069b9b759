package cloudevents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketplace-platform/webhook-service/pkg/logging"
)

func TestTypeForEvent(t *testing.T) {
	assert.Equal(t, "marketplace.seller.order-created", TypeForEvent("order created"))
	assert.Equal(t, "marketplace.seller.ad-performance-updated", TypeForEvent("Ad  Performance updated"))
	assert.Equal(t, "marketplace.seller.custom-event", TypeForEvent("custom event"))
}

func TestFactory_NewSellerNotification(t *testing.T) {
	f := NewFactory("/marketplace/webhook-service")
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-9")
	evt := f.NewSellerNotification(ctx, "seller-1", "product created", map[string]any{"productId": "p-1"})

	assert.Equal(t, SpecVersion, evt.SpecVersion)
	assert.Equal(t, "marketplace.seller.product-created", evt.Type)
	assert.Equal(t, "seller/seller-1", evt.Subject)
	assert.Equal(t, "seller-1", evt.SellerID)
	assert.Equal(t, "corr-9", evt.CorrelationID)
	assert.Equal(t, fixed, evt.Time)
	assert.NotEmpty(t, evt.ID)

	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "1.0", decoded["specversion"])
	data := decoded["data"].(map[string]any)
	assert.Equal(t, "product created", data["event"])
}
