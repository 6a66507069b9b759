package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIntegration(t *testing.T) {
	integration, err := NewIntegration("acme", "", IntegrationTypeMarketplace, "s3cret", []FieldMapping{
		{Key: "event", Path: "type"},
		{Key: "productId", Path: "data.id"},
	})
	require.NoError(t, err)

	assert.Contains(t, integration.IntegrationID, "INT-")
	assert.Equal(t, "acme", integration.Name)
	assert.True(t, integration.Active)
	assert.True(t, integration.HasSecret())

	tests := []struct {
		name     string
		provider string
		typ      IntegrationType
		mapping  []FieldMapping
		err      error
	}{
		{"missing provider", " ", IntegrationTypeOther, nil, ErrProviderRequired},
		{"bad type", "acme", IntegrationType("fax"), nil, ErrInvalidIntegrationType},
		{"empty path", "acme", IntegrationTypeOther, []FieldMapping{{Key: "a"}}, ErrInvalidMapping},
		{"duplicate key", "acme", IntegrationTypeOther, []FieldMapping{{Key: "a", Path: "x"}, {Key: "a", Path: "y"}}, ErrInvalidMapping},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIntegration(tt.provider, "n", tt.typ, "", tt.mapping)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestIntegration_Mutations(t *testing.T) {
	integration, err := NewIntegration("acme", "Acme", IntegrationTypePayment, "", nil)
	require.NoError(t, err)
	assert.False(t, integration.HasSecret())

	integration.RotateSecret("k")
	assert.True(t, integration.HasSecret())

	require.NoError(t, integration.ReplaceMapping([]FieldMapping{{Key: "event", Path: "kind"}}))
	assert.Len(t, integration.ResponseMapping, 1)
	assert.Error(t, integration.ReplaceMapping([]FieldMapping{{Path: "kind"}}))
	assert.Len(t, integration.ResponseMapping, 1)

	integration.Deactivate()
	assert.False(t, integration.Active)
}

func TestSellerIntegration_Disconnect(t *testing.T) {
	si, err := NewSellerIntegration("seller-1", "INT-1", true)
	require.NoError(t, err)
	assert.True(t, si.Active)
	assert.True(t, si.Sandbox)

	si.Disconnect()
	assert.False(t, si.Active)
	require.NotNil(t, si.DisconnectedAt)

	_, err = NewSellerIntegration("", "INT-1", false)
	assert.ErrorIs(t, err, ErrSellerRequired)
}
