package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrAlreadyProcessed indicates that the provider event was already recorded.
var ErrAlreadyProcessed = errors.New("event has already been processed")

// DefaultCollectionName is the collection holding processed provider events.
const DefaultCollectionName = "processed_events"

// ProcessedEvent marks one provider delivery as applied for an integration.
type ProcessedEvent struct {
	IntegrationID   string    `bson:"integrationId"`
	ProviderEventID string    `bson:"providerEventId"`
	Event           string    `bson:"event,omitempty"`
	CorrelationID   string    `bson:"correlationId,omitempty"`
	ProcessedAt     time.Time `bson:"processedAt"`
	ExpiresAt       time.Time `bson:"expiresAt"`
}

// Ledger records processed provider events.
type Ledger interface {
	// MarkProcessed inserts the record, returning ErrAlreadyProcessed when
	// the (integrationId, providerEventId) pair already exists.
	MarkProcessed(ctx context.Context, evt *ProcessedEvent) error

	// Clean removes records that expired before the given time.
	Clean(ctx context.Context, before time.Time) (int64, error)
}

// MongoLedger implements Ledger on a unique-indexed collection.
type MongoLedger struct {
	collection *mongo.Collection
	retention  time.Duration
}

// NewMongoLedger creates a ledger whose records expire after retention.
func NewMongoLedger(db *mongo.Database, retention time.Duration) *MongoLedger {
	return &MongoLedger{
		collection: db.Collection(DefaultCollectionName),
		retention:  retention,
	}
}

// MarkProcessed stores evt, filling in timestamps when absent.
func (l *MongoLedger) MarkProcessed(ctx context.Context, evt *ProcessedEvent) error {
	if evt.ProcessedAt.IsZero() {
		evt.ProcessedAt = time.Now().UTC()
	}
	if evt.ExpiresAt.IsZero() {
		evt.ExpiresAt = evt.ProcessedAt.Add(l.retention)
	}

	if _, err := l.collection.InsertOne(ctx, evt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyProcessed
		}
		return fmt.Errorf("failed to record processed event: %w", err)
	}
	return nil
}

// Clean deletes expired records. The TTL index does the same lazily; Clean
// lets the housekeeping sweep report what it removed.
func (l *MongoLedger) Clean(ctx context.Context, before time.Time) (int64, error) {
	res, err := l.collection.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, fmt.Errorf("failed to clean processed events: %w", err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates the uniqueness and TTL indexes.
func (l *MongoLedger) EnsureIndexes(ctx context.Context) error {
	_, err := l.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "integrationId", Value: 1}, {Key: "providerEventId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_integration_event"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_ttl"),
		},
	})
	return err
}
