package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct_DerivesInventoryStatus(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		expected InventoryStatus
	}{
		{"in stock", 3, InventoryStatusInStock},
		{"zero quantity", 0, InventoryStatusOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProduct("seller-1", "p1", "acme", "Widget", 9.99, tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.InventoryStatus)
			assert.Equal(t, ProductStatusActive, p.Status)
			assert.Contains(t, p.ProductID, "PRD-")
		})
	}

	_, err := NewProduct("seller-1", "p1", "acme", "Widget", 9.99, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestProduct_Apply(t *testing.T) {
	p, err := NewProduct("seller-1", "p1", "acme", "Widget", 9.99, 3)
	require.NoError(t, err)

	zero := 0
	name := "Gadget"
	require.NoError(t, p.Apply(ProductChanges{Name: &name, Quantity: &zero}))

	assert.Equal(t, "Gadget", p.Name)
	assert.Equal(t, 9.99, p.Price, "nil fields keep existing values")
	assert.Equal(t, InventoryStatusOutOfStock, p.InventoryStatus)
	assert.True(t, p.IsOutOfStock())

	negative := -5
	assert.ErrorIs(t, p.Apply(ProductChanges{Quantity: &negative}), ErrInvalidQuantity)
	assert.Equal(t, 0, p.Quantity)
}

func TestProduct_SetWarehouseStock(t *testing.T) {
	p, err := NewProduct("seller-1", "p1", "acme", "Widget", 9.99, 0)
	require.NoError(t, err)

	require.NoError(t, p.SetWarehouseStock("wh-1", 4))
	require.NoError(t, p.SetWarehouseStock("wh-2", 6))
	assert.Equal(t, 10, p.Quantity)
	assert.Equal(t, InventoryStatusInStock, p.InventoryStatus)

	require.NoError(t, p.SetWarehouseStock("wh-1", 0))
	require.NoError(t, p.SetWarehouseStock("wh-2", 0))
	assert.Len(t, p.Warehouses, 2)
	assert.Equal(t, 0, p.Quantity)
	assert.Equal(t, InventoryStatusOutOfStock, p.InventoryStatus)
}

func TestProduct_ApplyTotalOverWarehouseBreakdown(t *testing.T) {
	p, err := NewProduct("seller-1", "p1", "acme", "Widget", 9.99, 0)
	require.NoError(t, err)
	require.NoError(t, p.SetWarehouseStock("wh-1", 4))
	require.NoError(t, p.SetWarehouseStock("wh-2", 6))

	matching := 10
	require.NoError(t, p.Apply(ProductChanges{Quantity: &matching}))
	assert.Len(t, p.Warehouses, 2)

	total := 3
	require.NoError(t, p.Apply(ProductChanges{Quantity: &total}))
	assert.Empty(t, p.Warehouses)
	assert.Equal(t, 3, p.Quantity)

	// later warehouse updates rebuild the total from the breakdown alone
	require.NoError(t, p.SetWarehouseStock("wh-1", 2))
	assert.Equal(t, 2, p.Quantity)
}

func TestProduct_Archive(t *testing.T) {
	p, err := NewProduct("seller-1", "p1", "acme", "Widget", 9.99, 2)
	require.NoError(t, err)

	p.Archive()
	assert.Equal(t, ProductStatusArchived, p.Status)
	assert.Equal(t, 2, p.Quantity)
	assert.Equal(t, InventoryStatusInStock, p.InventoryStatus)
}
