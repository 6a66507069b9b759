package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

const (
	integrationsCollection       = "integrations"
	sellerIntegrationsCollection = "seller_integrations"
)

// IntegrationRepository implements domain.IntegrationRepository using MongoDB
type IntegrationRepository struct {
	collection *mongo.Collection
}

// NewIntegrationRepository creates a new IntegrationRepository
func NewIntegrationRepository(db *mongo.Database) *IntegrationRepository {
	return &IntegrationRepository{collection: db.Collection(integrationsCollection)}
}

// EnsureIndexes creates the integration indexes
func (r *IntegrationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "integrationId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_integrationId"),
		},
		{
			Keys:    bson.D{{Key: "provider", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_provider"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create integration indexes: %w", err)
	}
	return nil
}

// Save upserts an integration by integrationId
func (r *IntegrationRepository) Save(ctx context.Context, integration *domain.Integration) error {
	integration.UpdatedAt = time.Now().UTC()

	filter := bson.M{"integrationId": integration.IntegrationID}
	update := bson.M{"$set": integration}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save integration: %w", err)
	}
	return nil
}

// FindByID retrieves an integration by its IntegrationID
func (r *IntegrationRepository) FindByID(ctx context.Context, integrationID string) (*domain.Integration, error) {
	return r.findOne(ctx, bson.M{"integrationId": integrationID})
}

// FindByProvider retrieves the integration registered for a provider slug
func (r *IntegrationRepository) FindByProvider(ctx context.Context, provider string) (*domain.Integration, error) {
	return r.findOne(ctx, bson.M{"provider": provider})
}

func (r *IntegrationRepository) findOne(ctx context.Context, filter bson.M) (*domain.Integration, error) {
	var integration domain.Integration
	if err := r.collection.FindOne(ctx, filter).Decode(&integration); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find integration: %w", err)
	}
	return &integration, nil
}

// SellerIntegrationRepository implements domain.SellerIntegrationRepository using MongoDB
type SellerIntegrationRepository struct {
	collection *mongo.Collection
}

// NewSellerIntegrationRepository creates a new SellerIntegrationRepository
func NewSellerIntegrationRepository(db *mongo.Database) *SellerIntegrationRepository {
	return &SellerIntegrationRepository{collection: db.Collection(sellerIntegrationsCollection)}
}

// EnsureIndexes creates the binding indexes
func (r *SellerIntegrationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sellerIntegrationId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_sellerIntegrationId"),
		},
		{
			Keys: bson.D{
				{Key: "integrationId", Value: 1},
				{Key: "sandbox", Value: 1},
				{Key: "active", Value: 1},
				{Key: "connectedAt", Value: 1},
			},
			Options: options.Index().SetName("idx_fanout"),
		},
		{
			Keys: bson.D{
				{Key: "sellerId", Value: 1},
				{Key: "integrationId", Value: 1},
				{Key: "sandbox", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_seller_integration"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create seller integration indexes: %w", err)
	}
	return nil
}

// Save upserts a binding by sellerIntegrationId
func (r *SellerIntegrationRepository) Save(ctx context.Context, si *domain.SellerIntegration) error {
	filter := bson.M{"sellerIntegrationId": si.SellerIntegrationID}
	update := bson.M{"$set": si}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save seller integration: %w", err)
	}
	return nil
}

// FindByID retrieves a binding by its SellerIntegrationID
func (r *SellerIntegrationRepository) FindByID(ctx context.Context, sellerIntegrationID string) (*domain.SellerIntegration, error) {
	return r.findOne(ctx, bson.M{"sellerIntegrationId": sellerIntegrationID})
}

// FindActiveByIntegration returns active bindings in connection order
func (r *SellerIntegrationRepository) FindActiveByIntegration(ctx context.Context, integrationID string, sandbox bool) ([]*domain.SellerIntegration, error) {
	filter := bson.M{
		"integrationId": integrationID,
		"sandbox":       sandbox,
		"active":        true,
	}
	opts := options.Find().SetSort(bson.D{{Key: "connectedAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find seller integrations: %w", err)
	}
	defer cursor.Close(ctx)

	var bindings []*domain.SellerIntegration
	if err := cursor.All(ctx, &bindings); err != nil {
		return nil, fmt.Errorf("failed to decode seller integrations: %w", err)
	}
	return bindings, nil
}

// FindBySellerAndIntegration returns the binding for a seller, active or not
func (r *SellerIntegrationRepository) FindBySellerAndIntegration(ctx context.Context, sellerID, integrationID string, sandbox bool) (*domain.SellerIntegration, error) {
	return r.findOne(ctx, bson.M{
		"sellerId":      sellerID,
		"integrationId": integrationID,
		"sandbox":       sandbox,
	})
}

func (r *SellerIntegrationRepository) findOne(ctx context.Context, filter bson.M) (*domain.SellerIntegration, error) {
	var si domain.SellerIntegration
	if err := r.collection.FindOne(ctx, filter).Decode(&si); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find seller integration: %w", err)
	}
	return &si, nil
}
