package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// Repositories bundles every MongoDB repository of the service.
type Repositories struct {
	Integrations       *IntegrationRepository
	SellerIntegrations *SellerIntegrationRepository
	Sellers            *SellerRepository
	Orders             *OrderRepository
	Products           *ProductRepository
	Outbox             *OutboxRepository
}

// NewRepositories creates all repositories on db
func NewRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Integrations:       NewIntegrationRepository(db),
		SellerIntegrations: NewSellerIntegrationRepository(db),
		Sellers:            NewSellerRepository(db),
		Orders:             NewOrderRepository(db),
		Products:           NewProductRepository(db),
		Outbox:             NewOutboxRepository(db),
	}
}

// EnsureIndexes creates the indexes of every collection, stopping at the first failure.
func (r *Repositories) EnsureIndexes(ctx context.Context) error {
	for _, ensure := range []func(context.Context) error{
		r.Integrations.EnsureIndexes,
		r.SellerIntegrations.EnsureIndexes,
		r.Sellers.EnsureIndexes,
		r.Orders.EnsureIndexes,
		r.Products.EnsureIndexes,
		r.Outbox.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}
