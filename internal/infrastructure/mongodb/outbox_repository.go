package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketplace-platform/webhook-service/pkg/outbox"
)

// OutboxCollection holds notifications waiting to be relayed to Kafka.
const OutboxCollection = "outbox"

// ErrOutboxEventNotFound is returned when an update targets a missing event.
var ErrOutboxEventNotFound = errors.New("outbox event not found")

// OutboxRepository implements outbox.Repository for MongoDB
type OutboxRepository struct {
	collection *mongo.Collection
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *mongo.Database) *OutboxRepository {
	return &OutboxRepository{collection: db.Collection(OutboxCollection)}
}

// Save inserts a new outbox event
func (r *OutboxRepository) Save(ctx context.Context, event *outbox.Event) error {
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}
	return nil
}

// FindPending returns unpublished events with retries left, oldest first
func (r *OutboxRepository) FindPending(ctx context.Context, limit int) ([]*outbox.Event, error) {
	// $expr compares two fields of the same document
	filter := bson.M{
		"publishedAt": bson.M{"$exists": false},
		"$expr":       bson.M{"$lt": bson.A{"$retryCount", "$maxRetries"}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending outbox events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*outbox.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode outbox events: %w", err)
	}
	return events, nil
}

// MarkPublished records successful delivery
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	return r.updateOne(ctx, eventID, bson.M{
		"$set": bson.M{"publishedAt": time.Now().UTC()},
	})
}

// IncrementRetry records a failed relay attempt
func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID, errorMsg string) error {
	return r.updateOne(ctx, eventID, bson.M{
		"$inc": bson.M{"retryCount": 1},
		"$set": bson.M{"lastError": errorMsg},
	})
}

func (r *OutboxRepository) updateOne(ctx context.Context, eventID string, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": eventID}, update)
	if err != nil {
		return fmt.Errorf("failed to update outbox event: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrOutboxEventNotFound, eventID)
	}
	return nil
}

// DeletePublishedBefore removes events published before cutoff
func (r *OutboxRepository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"publishedAt": bson.M{"$exists": true, "$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete published outbox events: %w", err)
	}
	return result.DeletedCount, nil
}

// EnsureIndexes creates the relay and aggregate lookup indexes
func (r *OutboxRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "publishedAt", Value: 1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetName("idx_publishedAt_createdAt"),
		},
		{
			Keys: bson.D{
				{Key: "aggregateId", Value: 1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetName("idx_aggregateId_createdAt"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create outbox indexes: %w", err)
	}
	return nil
}
