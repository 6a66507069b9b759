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

const sellersCollection = "sellers"

// SellerRepository implements domain.SellerRepository using MongoDB.
//
// Seller documents are shared with other services; this repository only
// writes the fields the webhook pipeline owns.
type SellerRepository struct {
	collection *mongo.Collection
}

// NewSellerRepository creates a new SellerRepository
func NewSellerRepository(db *mongo.Database) *SellerRepository {
	return &SellerRepository{collection: db.Collection(sellersCollection)}
}

// EnsureIndexes creates the seller indexes
func (r *SellerRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sellerId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("idx_sellerId"),
	})
	if err != nil {
		return fmt.Errorf("failed to create seller indexes: %w", err)
	}
	return nil
}

// FindByID retrieves a seller by its SellerID
func (r *SellerRepository) FindByID(ctx context.Context, sellerID string) (*domain.Seller, error) {
	var seller domain.Seller
	if err := r.collection.FindOne(ctx, bson.M{"sellerId": sellerID}).Decode(&seller); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find seller: %w", err)
	}
	return &seller, nil
}

// Save writes the pipeline-owned fields. integrationErrors is left alone so a
// concurrent AppendIntegrationError is never overwritten.
func (r *SellerRepository) Save(ctx context.Context, seller *domain.Seller) error {
	seller.UpdatedAt = time.Now().UTC()

	filter := bson.M{"sellerId": seller.SellerID}
	update := bson.M{
		"$set": bson.M{
			"metrics":     seller.Metrics,
			"taxSettings": seller.TaxSettings,
			"connections": seller.Connections,
			"ledger":      seller.Ledger,
			"updatedAt":   seller.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"name":      seller.Name,
			"createdAt": seller.CreatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save seller: %w", err)
	}
	return nil
}

// AppendIntegrationError pushes entry and trims the log to the newest limit entries.
func (r *SellerRepository) AppendIntegrationError(ctx context.Context, sellerID string, entry domain.IntegrationError, limit int) error {
	push := bson.M{"$each": []domain.IntegrationError{entry}}
	if limit > 0 {
		push["$slice"] = -limit
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"sellerId": sellerID},
		bson.M{"$push": bson.M{"integrationErrors": push}},
	)
	if err != nil {
		return fmt.Errorf("failed to append integration error: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrSellerNotFound
	}
	return nil
}
