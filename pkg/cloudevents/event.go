package cloudevents

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marketplace-platform/webhook-service/pkg/logging"
)

// SpecVersion is the CloudEvents version emitted by this service.
const SpecVersion = "1.0"

// TypePrefix prefixes every seller notification event type.
const TypePrefix = "marketplace.seller."

// Event is a CloudEvents v1.0 envelope.
type Event struct {
	SpecVersion     string    `json:"specversion"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Subject         string    `json:"subject,omitempty"`
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	DataContentType string    `json:"datacontenttype,omitempty"`
	Data            any       `json:"data,omitempty"`

	// Extension attributes
	CorrelationID string `json:"correlationid,omitempty"`
	SellerID      string `json:"sellerid,omitempty"`
}

// TypeForEvent converts a seller-facing event name such as "order created"
// into a CloudEvents type such as "marketplace.seller.order-created".
func TypeForEvent(name string) string {
	return TypePrefix + strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// Factory creates CloudEvents for one source.
type Factory struct {
	source string
	now    func() time.Time
}

// NewFactory creates a new Factory for a specific source
func NewFactory(source string) *Factory {
	return &Factory{source: source, now: time.Now}
}

// NewEvent builds an event, copying the correlation ID from ctx.
func (f *Factory) NewEvent(ctx context.Context, eventType, subject string, data any) *Event {
	return &Event{
		SpecVersion:     SpecVersion,
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		CorrelationID:   logging.CorrelationIDFromContext(ctx),
	}
}

// NewSellerNotification builds the envelope for a notification addressed to a seller.
func (f *Factory) NewSellerNotification(ctx context.Context, sellerID, eventName string, data map[string]any) *Event {
	evt := f.NewEvent(ctx, TypeForEvent(eventName), "seller/"+sellerID, SellerNotification{
		SellerID: sellerID,
		Event:    eventName,
		Data:     data,
	})
	evt.SellerID = sellerID
	return evt
}

// SellerNotification is the data payload of a seller notification event.
type SellerNotification struct {
	SellerID string         `json:"sellerId"`
	Event    string         `json:"event"`
	Data     map[string]any `json:"data"`
}
