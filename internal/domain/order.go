package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EscrowHoldPeriod is how long funds stay held after a successful payment
const EscrowHoldPeriod = 604800000 * time.Millisecond

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusPendingSupply OrderStatus = "pending_supply"
	OrderStatusProcessing    OrderStatus = "processing"
	OrderStatusShipped       OrderStatus = "shipped"
	OrderStatusDelivered     OrderStatus = "delivered"
	OrderStatusCompleted     OrderStatus = "completed"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:       0,
	OrderStatusPendingSupply: 0,
	OrderStatusProcessing:    1,
	OrderStatusShipped:       2,
	OrderStatusDelivered:     3,
	OrderStatusCompleted:     4,
}

// IsValid checks if the status is known
func (s OrderStatus) IsValid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusRank[s]
	return ok
}

// IsTerminal reports whether no further status transitions are allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// PaymentStatus values
const (
	PaymentStatusPending    = "pending"
	PaymentStatusSuccessful = "successful"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// FulfillmentStatus values
const (
	FulfillmentStatusUnfulfilled = "unfulfilled"
	FulfillmentStatusFulfilled   = "fulfilled"
)

// EscrowStatus values
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
)

// Tracking holds shipment tracking details
type Tracking struct {
	Carrier        string     `bson:"carrier,omitempty" json:"carrier,omitempty"`
	TrackingNumber string     `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	TrackingURL    string     `bson:"trackingUrl,omitempty" json:"trackingUrl,omitempty"`
	Status         string     `bson:"status,omitempty" json:"status,omitempty"`
	EstimatedAt    *time.Time `bson:"estimatedAt,omitempty" json:"estimatedAt,omitempty"`
	UpdatedAt      time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// Escrow holds the payout hold details for a paid order
type Escrow struct {
	HeldAt      time.Time  `bson:"heldAt" json:"heldAt"`
	ReleaseDate time.Time  `bson:"releaseDate" json:"releaseDate"`
	ReleasedAt  *time.Time `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
}

// TaxDetails is the tax record attached to an order by tax providers
type TaxDetails struct {
	Provider      string    `bson:"provider" json:"provider"`
	TransactionID string    `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	Amount        float64   `bson:"amount" json:"amount"`
	Rate          float64   `bson:"rate,omitempty" json:"rate,omitempty"`
	Jurisdiction  string    `bson:"jurisdiction,omitempty" json:"jurisdiction,omitempty"`
	RecordedAt    time.Time `bson:"recordedAt" json:"recordedAt"`
}

// IntegrationLogEntry records one provider interaction on an order
type IntegrationLogEntry struct {
	Provider  string         `bson:"provider" json:"provider"`
	Type      string         `bson:"type" json:"type"`
	Event     string         `bson:"event" json:"event"`
	Status    string         `bson:"status" json:"status"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
}

// Log entry statuses
const (
	LogStatusApplied = "applied"
	LogStatusIgnored = "ignored"
)

// Order is the order aggregate
type Order struct {
	ID                primitive.ObjectID    `bson:"_id,omitempty" json:"-"`
	OrderID           string                `bson:"orderId" json:"orderId"`
	SellerID          string                `bson:"sellerId" json:"sellerId"`
	ExternalOrderID   string                `bson:"externalOrderId,omitempty" json:"externalOrderId,omitempty"`
	Provider          string                `bson:"provider,omitempty" json:"provider,omitempty"`
	Status            OrderStatus           `bson:"status" json:"status"`
	PaymentStatus     string                `bson:"paymentStatus" json:"paymentStatus"`
	FulfillmentStatus string                `bson:"fulfillmentStatus" json:"fulfillmentStatus"`
	TotalPrice        float64               `bson:"totalPrice" json:"totalPrice"`
	Currency          string                `bson:"currency,omitempty" json:"currency,omitempty"`
	CustomerEmail     string                `bson:"customerEmail,omitempty" json:"customerEmail,omitempty"`
	Tracking          *Tracking             `bson:"tracking,omitempty" json:"tracking,omitempty"`
	EscrowStatus      string                `bson:"escrowStatus,omitempty" json:"escrowStatus,omitempty"`
	Escrow            *Escrow               `bson:"escrowDetails,omitempty" json:"escrowDetails,omitempty"`
	Tax               *TaxDetails           `bson:"tax,omitempty" json:"tax,omitempty"`
	IntegrationLog    []IntegrationLogEntry `bson:"integrations,omitempty" json:"integrations,omitempty"`
	PaidAt            *time.Time            `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	CompletedAt       *time.Time            `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt       *time.Time            `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CreatedAt         time.Time             `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time             `bson:"updatedAt" json:"updatedAt"`
}

// NewOrder creates a pending order imported from a provider
func NewOrder(sellerID, externalOrderID, provider string, totalPrice float64, currency string) (*Order, error) {
	if sellerID == "" {
		return nil, ErrSellerRequired
	}
	now := time.Now().UTC()
	return &Order{
		ID:                primitive.NewObjectID(),
		OrderID:           fmt.Sprintf("ORD-%s", uuid.New().String()[:8]),
		SellerID:          sellerID,
		ExternalOrderID:   externalOrderID,
		Provider:          provider,
		Status:            OrderStatusPending,
		PaymentStatus:     PaymentStatusPending,
		FulfillmentStatus: FulfillmentStatusUnfulfilled,
		TotalPrice:        totalPrice,
		Currency:          currency,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// CanTransitionTo reports whether the order may move to the target status.
// Statuses only move forward; any non-terminal status may be cancelled.
func (o *Order) CanTransitionTo(target OrderStatus) bool {
	if o.Status.IsTerminal() || !target.IsValid() {
		return false
	}
	if target == OrderStatusCancelled {
		return true
	}
	return orderStatusRank[target] > orderStatusRank[o.Status]
}

// TransitionTo moves the order to target, or returns ErrOrderTerminal when not allowed.
func (o *Order) TransitionTo(target OrderStatus) error {
	if !o.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrOrderTerminal, o.Status, target)
	}
	now := time.Now().UTC()
	o.Status = target
	switch target {
	case OrderStatusCompleted:
		o.CompletedAt = &now
	case OrderStatusCancelled:
		o.CancelledAt = &now
	}
	o.UpdatedAt = now
	return nil
}

// MarkPaid records a successful payment. A pending order moves to processing
// and its funds are held in escrow for EscrowHoldPeriod.
func (o *Order) MarkPaid() error {
	if o.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrOrderTerminal, o.Status)
	}
	now := time.Now().UTC()
	o.PaymentStatus = PaymentStatusSuccessful
	o.PaidAt = &now
	o.EscrowStatus = EscrowStatusHeld
	o.Escrow = &Escrow{
		HeldAt:      now,
		ReleaseDate: now.Add(EscrowHoldPeriod),
	}
	if o.Status == OrderStatusPending || o.Status == OrderStatusPendingSupply {
		o.Status = OrderStatusProcessing
	}
	o.UpdatedAt = now
	return nil
}

// Fulfill completes the order
func (o *Order) Fulfill() error {
	if err := o.TransitionTo(OrderStatusCompleted); err != nil {
		return err
	}
	o.FulfillmentStatus = FulfillmentStatusFulfilled
	return nil
}

// Cancel cancels a non-terminal order
func (o *Order) Cancel() error {
	return o.TransitionTo(OrderStatusCancelled)
}

// UpdateTracking merges shipment details. Cancelled orders reject tracking updates.
func (o *Order) UpdateTracking(t Tracking) error {
	if o.Status == OrderStatusCancelled {
		return ErrOrderCancelled
	}
	current := Tracking{}
	if o.Tracking != nil {
		current = *o.Tracking
	}
	if t.Carrier != "" {
		current.Carrier = t.Carrier
	}
	if t.TrackingNumber != "" {
		current.TrackingNumber = t.TrackingNumber
	}
	if t.TrackingURL != "" {
		current.TrackingURL = t.TrackingURL
	}
	if t.Status != "" {
		current.Status = t.Status
	}
	if t.EstimatedAt != nil {
		current.EstimatedAt = t.EstimatedAt
	}
	now := time.Now().UTC()
	current.UpdatedAt = now
	o.Tracking = &current
	o.UpdatedAt = now
	return nil
}

// SetTaxDetails attaches tax information
func (o *Order) SetTaxDetails(t TaxDetails) {
	if t.RecordedAt.IsZero() {
		t.RecordedAt = time.Now().UTC()
	}
	o.Tax = &t
	o.UpdatedAt = time.Now().UTC()
}

// AppendIntegrationLog appends a provider interaction
func (o *Order) AppendIntegrationLog(entry IntegrationLogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	o.IntegrationLog = append(o.IntegrationLog, entry)
	o.UpdatedAt = time.Now().UTC()
}
