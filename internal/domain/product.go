package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InventoryStatus is derived from quantity and never set directly
type InventoryStatus string

const (
	InventoryStatusInStock    InventoryStatus = "IN_STOCK"
	InventoryStatusOutOfStock InventoryStatus = "OUT_OF_STOCK"
)

// ProductStatus is the listing status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusArchived ProductStatus = "archived"
)

// WarehouseStock is the stock held in one warehouse
type WarehouseStock struct {
	WarehouseID string    `bson:"warehouseId" json:"warehouseId"`
	Quantity    int       `bson:"quantity" json:"quantity"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ProductWebhookEvent records one webhook that touched a product
type ProductWebhookEvent struct {
	Event      string         `bson:"event" json:"event"`
	Provider   string         `bson:"provider" json:"provider"`
	Metadata   map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	ReceivedAt time.Time      `bson:"receivedAt" json:"receivedAt"`
}

// Product is the catalog aggregate
type Product struct {
	ID                primitive.ObjectID    `bson:"_id,omitempty" json:"-"`
	ProductID         string                `bson:"productId" json:"productId"`
	SellerID          string                `bson:"sellerId" json:"sellerId"`
	ExternalProductID string                `bson:"externalProductId" json:"externalProductId"`
	Provider          string                `bson:"provider,omitempty" json:"provider,omitempty"`
	Name              string                `bson:"name" json:"name"`
	Description       string                `bson:"description,omitempty" json:"description,omitempty"`
	SKU               string                `bson:"sku,omitempty" json:"sku,omitempty"`
	Price             float64               `bson:"price" json:"price"`
	Currency          string                `bson:"currency,omitempty" json:"currency,omitempty"`
	Quantity          int                   `bson:"quantity" json:"quantity"`
	Status            ProductStatus         `bson:"status" json:"status"`
	InventoryStatus   InventoryStatus       `bson:"inventoryStatus" json:"inventoryStatus"`
	Warehouses        []WarehouseStock      `bson:"warehouses,omitempty" json:"warehouses,omitempty"`
	WebhookEvents     []ProductWebhookEvent `bson:"webhookEvents,omitempty" json:"webhookEvents,omitempty"`
	LastSyncedAt      *time.Time            `bson:"lastSyncedAt,omitempty" json:"lastSyncedAt,omitempty"`
	CreatedAt         time.Time             `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time             `bson:"updatedAt" json:"updatedAt"`
}

// NewProduct creates an active product from a provider listing
func NewProduct(sellerID, externalProductID, provider, name string, price float64, quantity int) (*Product, error) {
	if sellerID == "" {
		return nil, ErrSellerRequired
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	now := time.Now().UTC()
	p := &Product{
		ID:                primitive.NewObjectID(),
		ProductID:         fmt.Sprintf("PRD-%s", uuid.New().String()[:8]),
		SellerID:          sellerID,
		ExternalProductID: externalProductID,
		Provider:          provider,
		Name:              name,
		Price:             price,
		Quantity:          quantity,
		Status:            ProductStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	p.deriveInventoryStatus()
	return p, nil
}

func (p *Product) deriveInventoryStatus() {
	if p.Quantity > 0 {
		p.InventoryStatus = InventoryStatusInStock
	} else {
		p.InventoryStatus = InventoryStatusOutOfStock
	}
}

// ProductChanges carries optional overrides; nil fields keep existing values.
type ProductChanges struct {
	Name        *string
	Description *string
	SKU         *string
	Price       *float64
	Currency    *string
	Quantity    *int
	Status      *ProductStatus
}

// Apply merges the changes into the product
func (p *Product) Apply(c ProductChanges) error {
	if c.Quantity != nil && *c.Quantity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, *c.Quantity)
	}
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.SKU != nil {
		p.SKU = *c.SKU
	}
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.Currency != nil {
		p.Currency = *c.Currency
	}
	if c.Quantity != nil {
		// A total that disagrees with the breakdown replaces it.
		if len(p.Warehouses) > 0 && *c.Quantity != p.warehouseTotal() {
			p.Warehouses = nil
		}
		p.Quantity = *c.Quantity
	}
	if c.Status != nil {
		p.Status = *c.Status
	}
	p.deriveInventoryStatus()
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// SetWarehouseStock upserts the stock for a warehouse and recomputes the total.
func (p *Product) SetWarehouseStock(warehouseID string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	now := time.Now().UTC()
	found := false
	for i := range p.Warehouses {
		if p.Warehouses[i].WarehouseID == warehouseID {
			p.Warehouses[i].Quantity = quantity
			p.Warehouses[i].UpdatedAt = now
			found = true
			break
		}
	}
	if !found {
		p.Warehouses = append(p.Warehouses, WarehouseStock{WarehouseID: warehouseID, Quantity: quantity, UpdatedAt: now})
	}

	p.Quantity = p.warehouseTotal()
	p.deriveInventoryStatus()
	p.UpdatedAt = now
	return nil
}

func (p *Product) warehouseTotal() int {
	total := 0
	for _, w := range p.Warehouses {
		total += w.Quantity
	}
	return total
}

// Archive hides the product; stock is retained
func (p *Product) Archive() {
	p.Status = ProductStatusArchived
	p.UpdatedAt = time.Now().UTC()
}

// MarkSynced stamps the last provider sync
func (p *Product) MarkSynced() {
	now := time.Now().UTC()
	p.LastSyncedAt = &now
	p.UpdatedAt = now
}

// RecordWebhookEvent appends to the product's webhook history
func (p *Product) RecordWebhookEvent(e ProductWebhookEvent) {
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}
	p.WebhookEvents = append(p.WebhookEvents, e)
	p.UpdatedAt = time.Now().UTC()
}

// IsOutOfStock reports the derived inventory status
func (p *Product) IsOutOfStock() bool {
	return p.InventoryStatus == InventoryStatusOutOfStock
}
