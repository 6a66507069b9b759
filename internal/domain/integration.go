package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IntegrationType categorizes a provider
type IntegrationType string

const (
	IntegrationTypeMarketplace   IntegrationType = "marketplace"
	IntegrationTypeWarehouse     IntegrationType = "warehouse"
	IntegrationTypeDropshipping  IntegrationType = "dropshipping"
	IntegrationTypePayment       IntegrationType = "payment"
	IntegrationTypeShipping      IntegrationType = "shipping"
	IntegrationTypeTax           IntegrationType = "tax"
	IntegrationTypeCRM           IntegrationType = "crm"
	IntegrationTypeMarketing     IntegrationType = "marketing"
	IntegrationTypeAdvertising   IntegrationType = "advertising"
	IntegrationTypeAccounting    IntegrationType = "accounting"
	IntegrationTypeAnalytics     IntegrationType = "analytics"
	IntegrationTypeAutomation    IntegrationType = "automation"
	IntegrationTypeCommunication IntegrationType = "communication"
	IntegrationTypeEducation     IntegrationType = "education"
	IntegrationTypeSecurity      IntegrationType = "security"
	IntegrationTypeOther         IntegrationType = "other"
)

// IsValid checks if the integration type is valid
func (t IntegrationType) IsValid() bool {
	switch t {
	case IntegrationTypeMarketplace, IntegrationTypeWarehouse, IntegrationTypeDropshipping,
		IntegrationTypePayment, IntegrationTypeShipping, IntegrationTypeTax, IntegrationTypeCRM,
		IntegrationTypeMarketing, IntegrationTypeAdvertising, IntegrationTypeAccounting,
		IntegrationTypeAnalytics, IntegrationTypeAutomation, IntegrationTypeCommunication,
		IntegrationTypeEducation, IntegrationTypeSecurity, IntegrationTypeOther:
		return true
	}
	return false
}

// FieldMapping maps one key of the normalized payload to a dotted path in
// the provider payload.
type FieldMapping struct {
	Key  string `bson:"key" json:"key"`
	Path string `bson:"path" json:"path"`
}

// Integration is the platform-level configuration of a third-party provider.
type Integration struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	IntegrationID   string             `bson:"integrationId" json:"integrationId"`
	Provider        string             `bson:"provider" json:"provider"`
	Name            string             `bson:"name" json:"name"`
	Type            IntegrationType    `bson:"type" json:"type"`
	Active          bool               `bson:"active" json:"active"`
	WebhookSecret   string             `bson:"webhookSecret,omitempty" json:"-"`
	ResponseMapping []FieldMapping     `bson:"responseMapping,omitempty" json:"responseMapping,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewIntegration creates an active Integration
func NewIntegration(provider, name string, integrationType IntegrationType, secret string, mapping []FieldMapping) (*Integration, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return nil, ErrProviderRequired
	}
	if !integrationType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIntegrationType, integrationType)
	}
	if err := validateMapping(mapping); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if name == "" {
		name = provider
	}
	return &Integration{
		ID:              primitive.NewObjectID(),
		IntegrationID:   fmt.Sprintf("INT-%s", uuid.New().String()[:8]),
		Provider:        provider,
		Name:            name,
		Type:            integrationType,
		Active:          true,
		WebhookSecret:   secret,
		ResponseMapping: mapping,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func validateMapping(mapping []FieldMapping) error {
	seen := make(map[string]bool, len(mapping))
	for _, m := range mapping {
		if m.Key == "" || m.Path == "" {
			return fmt.Errorf("%w: key and path are required", ErrInvalidMapping)
		}
		if seen[m.Key] {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidMapping, m.Key)
		}
		seen[m.Key] = true
	}
	return nil
}

// HasSecret reports whether deliveries for this integration can be verified.
func (i *Integration) HasSecret() bool {
	return i.WebhookSecret != ""
}

// ReplaceMapping swaps the response mapping table
func (i *Integration) ReplaceMapping(mapping []FieldMapping) error {
	if err := validateMapping(mapping); err != nil {
		return err
	}
	i.ResponseMapping = mapping
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// RotateSecret replaces the webhook secret. An empty secret disables verification.
func (i *Integration) RotateSecret(secret string) {
	i.WebhookSecret = secret
	i.UpdatedAt = time.Now().UTC()
}

// Deactivate stops the integration from accepting deliveries. Integrations are never deleted.
func (i *Integration) Deactivate() {
	i.Active = false
	i.UpdatedAt = time.Now().UTC()
}

// SellerIntegration binds one Seller to one Integration.
type SellerIntegration struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SellerIntegrationID string             `bson:"sellerIntegrationId" json:"sellerIntegrationId"`
	SellerID            string             `bson:"sellerId" json:"sellerId"`
	IntegrationID       string             `bson:"integrationId" json:"integrationId"`
	Active              bool               `bson:"active" json:"active"`
	Sandbox             bool               `bson:"sandbox" json:"sandbox"`
	ConnectedAt         time.Time          `bson:"connectedAt" json:"connectedAt"`
	DisconnectedAt      *time.Time         `bson:"disconnectedAt,omitempty" json:"disconnectedAt,omitempty"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewSellerIntegration connects a seller to an integration
func NewSellerIntegration(sellerID, integrationID string, sandbox bool) (*SellerIntegration, error) {
	if sellerID == "" {
		return nil, ErrSellerRequired
	}
	if integrationID == "" {
		return nil, ErrIntegrationRequired
	}
	now := time.Now().UTC()
	return &SellerIntegration{
		ID:                  primitive.NewObjectID(),
		SellerIntegrationID: fmt.Sprintf("SI-%s", uuid.New().String()[:8]),
		SellerID:            sellerID,
		IntegrationID:       integrationID,
		Active:              true,
		Sandbox:             sandbox,
		ConnectedAt:         now,
		UpdatedAt:           now,
	}, nil
}

// Disconnect deactivates the binding
func (si *SellerIntegration) Disconnect() {
	if !si.Active {
		return
	}
	now := time.Now().UTC()
	si.Active = false
	si.DisconnectedAt = &now
	si.UpdatedAt = now
}

// Reconnect reactivates a disconnected binding
func (si *SellerIntegration) Reconnect() {
	now := time.Now().UTC()
	si.Active = true
	si.DisconnectedAt = nil
	si.ConnectedAt = now
	si.UpdatedAt = now
}
