package application

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

func TestDecodePayload(t *testing.T) {
	payload, err := DecodePayload([]byte(`{"price": 9.99}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("9.99"), payload["price"])

	_, err = DecodePayload([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrPayloadNotObject)

	_, err = DecodePayload([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	_, err = DecodePayload([]byte(`not json`))
	assert.Error(t, err)
}

func TestMapPayload(t *testing.T) {
	raw, err := DecodePayload([]byte(`{
		"type": "order.paid",
		"data": {"order": {"id": "o-1", "lines": [{"sku": "A"}, {"sku": "B"}]}},
		"amount": 12
	}`))
	require.NoError(t, err)

	t.Run("no mapping passes through", func(t *testing.T) {
		assert.Equal(t, raw, MapPayload(raw, nil))
	})

	t.Run("mapped keys only, unresolved become nil", func(t *testing.T) {
		mapping := []domain.FieldMapping{
			{Key: "event", Path: "type"},
			{Key: "orderId", Path: "data.order.id"},
			{Key: "secondSku", Path: "data.order.lines.1.sku"},
			{Key: "missing", Path: "data.customer.email"},
			{Key: "throughScalar", Path: "amount.value"},
			{Key: "badIndex", Path: "data.order.lines.9.sku"},
		}
		out := MapPayload(raw, mapping)

		assert.Len(t, out, 6)
		assert.Equal(t, "order.paid", out["event"])
		assert.Equal(t, "o-1", out["orderId"])
		assert.Equal(t, "B", out["secondSku"])
		for _, key := range []string{"missing", "throughScalar", "badIndex"} {
			v, ok := out[key]
			assert.True(t, ok, key)
			assert.Nil(t, v, key)
		}
	})

	t.Run("mapping is deterministic", func(t *testing.T) {
		mapping := []domain.FieldMapping{{Key: "event", Path: "type"}, {Key: "id", Path: "data.order.id"}}
		assert.Equal(t, MapPayload(raw, mapping), MapPayload(raw, mapping))
	})
}

func TestProviderError(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]any
		expected string
		ok       bool
	}{
		{"none", map[string]any{"event": "x"}, "", false},
		{"null error", map[string]any{"error": nil}, "", false},
		{"error string", map[string]any{"error": "rate limited"}, "rate limited", true},
		{"code and message", map[string]any{"errorCode": "E42", "error": "boom"}, "E42: boom", true},
		{"numeric code", map[string]any{"errorCode": json.Number("500")}, "500", true},
		{"error flag", map[string]any{"error": true}, "error", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := providerError(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, msg)
		})
	}
}
