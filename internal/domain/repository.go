package domain

import (
	"context"
)

// Lookups return (nil, nil) when the document does not exist.

// IntegrationRepository defines the interface for integration persistence
type IntegrationRepository interface {
	// Save persists an integration (upsert by integrationId)
	Save(ctx context.Context, integration *Integration) error

	// FindByID retrieves an integration by its IntegrationID
	FindByID(ctx context.Context, integrationID string) (*Integration, error)

	// FindByProvider retrieves the integration registered for a provider slug
	FindByProvider(ctx context.Context, provider string) (*Integration, error)
}

// SellerIntegrationRepository defines the interface for seller-integration bindings
type SellerIntegrationRepository interface {
	Save(ctx context.Context, si *SellerIntegration) error

	FindByID(ctx context.Context, sellerIntegrationID string) (*SellerIntegration, error)

	// FindActiveByIntegration returns active bindings for an integration in the given mode,
	// ordered by connection time.
	FindActiveByIntegration(ctx context.Context, integrationID string, sandbox bool) ([]*SellerIntegration, error)

	// FindBySellerAndIntegration returns the binding for a seller, active or not
	FindBySellerAndIntegration(ctx context.Context, sellerID, integrationID string, sandbox bool) (*SellerIntegration, error)
}

// SellerRepository defines the interface for the seller fields owned by this service
type SellerRepository interface {
	FindByID(ctx context.Context, sellerID string) (*Seller, error)

	// Save writes metrics, tax settings, connections and ledger. The integration
	// error log is written only through AppendIntegrationError.
	Save(ctx context.Context, seller *Seller) error

	// AppendIntegrationError atomically appends to the error log, keeping the newest limit entries.
	AppendIntegrationError(ctx context.Context, sellerID string, entry IntegrationError, limit int) error
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error

	// FindBySellerAndReference matches either the internal orderId or the provider's externalOrderId.
	FindBySellerAndReference(ctx context.Context, sellerID, reference string) (*Order, error)
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	Save(ctx context.Context, product *Product) error

	// FindBySellerAndReference matches either the internal productId or the provider's externalProductId.
	FindBySellerAndReference(ctx context.Context, sellerID, reference string) (*Product, error)

	// CountOutOfStock counts a seller's non-archived products whose derived status is OUT_OF_STOCK.
	CountOutOfStock(ctx context.Context, sellerID string) (int64, error)
}
