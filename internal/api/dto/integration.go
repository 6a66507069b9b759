package dto

import (
	"time"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

// FieldMappingRequest is one response-mapping entry
type FieldMappingRequest struct {
	Key  string `json:"key" binding:"required,max=100" example:"orderId"`
	Path string `json:"path" binding:"required,max=500" example:"data.object.metadata.order_id"`
}

// CreateIntegrationRequest represents the request to register a provider
type CreateIntegrationRequest struct {
	Provider        string                `json:"provider" binding:"required,provider_slug" example:"stripe"`
	Name            string                `json:"name" binding:"omitempty,max=100,safe_string" example:"Stripe"`
	Type            string                `json:"type" binding:"required,integrationtype" example:"payment"`
	WebhookSecret   string                `json:"webhookSecret" binding:"omitempty,min=8,max=256"`
	ResponseMapping []FieldMappingRequest `json:"responseMapping" binding:"omitempty,dive"`
}

// UpdateMappingRequest replaces the response mapping. An empty list disables mapping.
type UpdateMappingRequest struct {
	ResponseMapping []FieldMappingRequest `json:"responseMapping" binding:"dive"`
}

// RotateSecretRequest replaces the webhook secret. An empty secret disables verification.
type RotateSecretRequest struct {
	WebhookSecret string `json:"webhookSecret" binding:"omitempty,min=8,max=256"`
}

// ConnectSellerRequest binds a seller to an integration
type ConnectSellerRequest struct {
	SellerID string `json:"sellerId" binding:"required,max=100" example:"SEL-1a2b3c4d"`
	Sandbox  bool   `json:"sandbox"`
}

// ConfigureTaxRequest sets a seller's tax configuration for one country
type ConfigureTaxRequest struct {
	Service string  `json:"service" binding:"required,taxservice" example:"TaxJar"`
	Rate    float64 `json:"rate" binding:"min=0,max=1" example:"0.0725"`
	Nexus   bool    `json:"nexus"`
}

// IntegrationResponse represents an integration in the response
type IntegrationResponse struct {
	IntegrationID   string                `json:"integrationId" example:"INT-1a2b3c4d"`
	Provider        string                `json:"provider" example:"stripe"`
	Name            string                `json:"name" example:"Stripe"`
	Type            string                `json:"type" example:"payment"`
	Active          bool                  `json:"active"`
	Signed          bool                  `json:"signed"`
	ResponseMapping []domain.FieldMapping `json:"responseMapping"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// SellerIntegrationResponse represents a seller binding in the response
type SellerIntegrationResponse struct {
	SellerIntegrationID string     `json:"sellerIntegrationId" example:"SI-1a2b3c4d"`
	SellerID            string     `json:"sellerId"`
	IntegrationID       string     `json:"integrationId"`
	Active              bool       `json:"active"`
	Sandbox             bool       `json:"sandbox"`
	ConnectedAt         time.Time  `json:"connectedAt"`
	DisconnectedAt      *time.Time `json:"disconnectedAt,omitempty"`
}

// IntegrationErrorsResponse wraps a seller's integration error log
type IntegrationErrorsResponse struct {
	SellerID string                    `json:"sellerId"`
	Errors   []domain.IntegrationError `json:"errors"`
}

// ToFieldMappings converts request entries to domain mappings
func ToFieldMappings(entries []FieldMappingRequest) []domain.FieldMapping {
	if len(entries) == 0 {
		return nil
	}
	out := make([]domain.FieldMapping, len(entries))
	for i, e := range entries {
		out[i] = domain.FieldMapping{Key: e.Key, Path: e.Path}
	}
	return out
}

// FromIntegration converts a domain integration to a response. The secret is never returned.
func FromIntegration(i *domain.Integration) IntegrationResponse {
	mapping := i.ResponseMapping
	if mapping == nil {
		mapping = []domain.FieldMapping{}
	}
	return IntegrationResponse{
		IntegrationID:   i.IntegrationID,
		Provider:        i.Provider,
		Name:            i.Name,
		Type:            string(i.Type),
		Active:          i.Active,
		Signed:          i.HasSecret(),
		ResponseMapping: mapping,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

// FromSellerIntegration converts a domain binding to a response
func FromSellerIntegration(si *domain.SellerIntegration) SellerIntegrationResponse {
	return SellerIntegrationResponse{
		SellerIntegrationID: si.SellerIntegrationID,
		SellerID:            si.SellerID,
		IntegrationID:       si.IntegrationID,
		Active:              si.Active,
		Sandbox:             si.Sandbox,
		ConnectedAt:         si.ConnectedAt,
		DisconnectedAt:      si.DisconnectedAt,
	}
}
