package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/marketplace-platform/webhook-service/pkg/cloudevents"
)

// DefaultMaxRetries bounds relay attempts per event.
const DefaultMaxRetries = 10

// Event is a CloudEvent stored for reliable relay to the broker.
type Event struct {
	ID            string          `bson:"_id" json:"id"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	MaxRetries    int             `bson:"maxRetries" json:"maxRetries"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
}

// NewEvent wraps a CloudEvent for the given aggregate and topic.
func NewEvent(aggregateID, aggregateType, topic string, ce *cloudevents.Event) (*Event, error) {
	payload, err := json.Marshal(ce)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     ce.Type,
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
		MaxRetries:    DefaultMaxRetries,
	}, nil
}

// IsPublished reports whether the relay has delivered the event.
func (e *Event) IsPublished() bool {
	return e.PublishedAt != nil
}

// ShouldRetry reports whether the relay should attempt the event again.
func (e *Event) ShouldRetry() bool {
	return !e.IsPublished() && e.RetryCount < e.MaxRetries
}

// CloudEvent decodes the stored envelope.
func (e *Event) CloudEvent() (*cloudevents.Event, error) {
	var ce cloudevents.Event
	if err := json.Unmarshal(e.Payload, &ce); err != nil {
		return nil, err
	}
	return &ce, nil
}

// Repository persists outbox events.
type Repository interface {
	// Save stores a new event.
	Save(ctx context.Context, event *Event) error

	// FindPending returns unpublished events that still have retries left, oldest first.
	FindPending(ctx context.Context, limit int) ([]*Event, error)

	// MarkPublished records successful delivery.
	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry records a failed attempt.
	IncrementRetry(ctx context.Context, eventID, errorMsg string) error

	// DeletePublishedBefore removes events published before cutoff and returns how many were removed.
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
