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

const ordersCollection = "orders"

// OrderRepository implements domain.OrderRepository using MongoDB
type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection(ordersCollection)}
}

// EnsureIndexes creates the order indexes
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_orderId"),
		},
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "externalOrderId", Value: 1}},
			Options: options.Index().SetName("idx_seller_externalOrderId"),
		},
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_seller_status"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

// Save upserts an order by orderId
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	order.UpdatedAt = time.Now().UTC()

	filter := bson.M{"orderId": order.OrderID}
	update := bson.M{"$set": order}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// FindBySellerAndReference matches the internal orderId or the provider's externalOrderId
func (r *OrderRepository) FindBySellerAndReference(ctx context.Context, sellerID, reference string) (*domain.Order, error) {
	filter := bson.M{
		"sellerId": sellerID,
		"$or": []bson.M{
			{"orderId": reference},
			{"externalOrderId": reference},
		},
	}

	var order domain.Order
	if err := r.collection.FindOne(ctx, filter).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}
