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

const productsCollection = "products"

// ProductRepository implements domain.ProductRepository using MongoDB
type ProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection(productsCollection)}
}

// EnsureIndexes creates the product indexes
func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "productId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_productId"),
		},
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "externalProductId", Value: 1}},
			Options: options.Index().SetName("idx_seller_externalProductId"),
		},
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "inventoryStatus", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_seller_inventoryStatus"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

// Save upserts a product by productId
func (r *ProductRepository) Save(ctx context.Context, product *domain.Product) error {
	product.UpdatedAt = time.Now().UTC()

	filter := bson.M{"productId": product.ProductID}
	update := bson.M{"$set": product}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// FindBySellerAndReference matches the internal productId or the provider's externalProductId
func (r *ProductRepository) FindBySellerAndReference(ctx context.Context, sellerID, reference string) (*domain.Product, error) {
	filter := bson.M{
		"sellerId": sellerID,
		"$or": []bson.M{
			{"productId": reference},
			{"externalProductId": reference},
		},
	}

	var product domain.Product
	if err := r.collection.FindOne(ctx, filter).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

// CountOutOfStock counts the seller's non-archived products that are out of stock
func (r *ProductRepository) CountOutOfStock(ctx context.Context, sellerID string) (int64, error) {
	filter := bson.M{
		"sellerId":        sellerID,
		"inventoryStatus": domain.InventoryStatusOutOfStock,
		"status":          bson.M{"$ne": domain.ProductStatusArchived},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count out-of-stock products: %w", err)
	}
	return count, nil
}
