// Package cache provides read-through caches in front of repositories.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

const providerKeyPrefix = "provider:"

// IntegrationRepository caches provider lookups in front of another
// domain.IntegrationRepository. Every webhook resolves its integration by
// provider, so hits avoid a database round trip per delivery.
type IntegrationRepository struct {
	next  domain.IntegrationRepository
	cache *gocache.Cache
}

// NewIntegrationRepository wraps next with a cache whose entries expire after ttl.
func NewIntegrationRepository(next domain.IntegrationRepository, ttl time.Duration) *IntegrationRepository {
	return &IntegrationRepository{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Save writes through and evicts the provider entry
func (r *IntegrationRepository) Save(ctx context.Context, integration *domain.Integration) error {
	if err := r.next.Save(ctx, integration); err != nil {
		return err
	}
	r.cache.Delete(providerKeyPrefix + integration.Provider)
	return nil
}

// FindByID is not cached; it backs the admin API only.
func (r *IntegrationRepository) FindByID(ctx context.Context, integrationID string) (*domain.Integration, error) {
	return r.next.FindByID(ctx, integrationID)
}

// FindByProvider serves from cache when possible. Misses are not cached.
func (r *IntegrationRepository) FindByProvider(ctx context.Context, provider string) (*domain.Integration, error) {
	key := providerKeyPrefix + provider
	if cached, ok := r.cache.Get(key); ok {
		c := *cached.(*domain.Integration)
		return &c, nil
	}

	integration, err := r.next.FindByProvider(ctx, provider)
	if err != nil || integration == nil {
		return integration, err
	}
	c := *integration
	r.cache.SetDefault(key, &c)
	return integration, nil
}

// Flush drops every cached entry
func (r *IntegrationRepository) Flush() {
	r.cache.Flush()
}
