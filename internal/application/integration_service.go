package application

import (
	"context"

	"github.com/marketplace-platform/webhook-service/internal/domain"
	apperrors "github.com/marketplace-platform/webhook-service/pkg/errors"
	"github.com/marketplace-platform/webhook-service/pkg/logging"
)

// CreateIntegrationCommand registers a provider
type CreateIntegrationCommand struct {
	Provider        string
	Name            string
	Type            domain.IntegrationType
	WebhookSecret   string
	ResponseMapping []domain.FieldMapping
}

// ConnectSellerCommand binds a seller to an integration
type ConnectSellerCommand struct {
	IntegrationID string
	SellerID      string
	Sandbox       bool
}

// IntegrationService handles integration administration
type IntegrationService struct {
	repos  Repositories
	logger *logging.Logger
}

// NewIntegrationService creates a new IntegrationService
func NewIntegrationService(repos Repositories, logger *logging.Logger) *IntegrationService {
	return &IntegrationService{
		repos:  repos,
		logger: logger.WithComponent("integration-service"),
	}
}

// CreateIntegration registers a new provider. Provider slugs are unique.
func (s *IntegrationService) CreateIntegration(ctx context.Context, cmd CreateIntegrationCommand) (*domain.Integration, error) {
	existing, err := s.repos.Integrations.FindByProvider(ctx, cmd.Provider)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to load integration").Wrap(err)
	}
	if existing != nil {
		return nil, apperrors.ErrConflict(domain.ErrProviderAlreadyExists.Error()).WithDetail("provider", cmd.Provider)
	}

	integration, err := domain.NewIntegration(cmd.Provider, cmd.Name, cmd.Type, cmd.WebhookSecret, cmd.ResponseMapping)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}
	if err := s.repos.Integrations.Save(ctx, integration); err != nil {
		return nil, apperrors.ErrInternal("failed to save integration").Wrap(err)
	}

	s.logger.WithContext(ctx).Info("Integration created",
		"integrationId", integration.IntegrationID,
		"provider", integration.Provider,
		"type", integration.Type,
		"signed", integration.HasSecret(),
	)
	return integration, nil
}

// GetIntegration retrieves an integration by ID
func (s *IntegrationService) GetIntegration(ctx context.Context, integrationID string) (*domain.Integration, error) {
	integration, err := s.repos.Integrations.FindByID(ctx, integrationID)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to load integration").Wrap(err)
	}
	if integration == nil {
		return nil, apperrors.ErrNotFoundWithID("Integration", integrationID)
	}
	return integration, nil
}

// UpdateMapping replaces the response mapping
func (s *IntegrationService) UpdateMapping(ctx context.Context, integrationID string, mapping []domain.FieldMapping) (*domain.Integration, error) {
	return s.mutate(ctx, integrationID, func(i *domain.Integration) error {
		return i.ReplaceMapping(mapping)
	})
}

// RotateSecret replaces the webhook secret. An empty secret disables verification.
func (s *IntegrationService) RotateSecret(ctx context.Context, integrationID, secret string) (*domain.Integration, error) {
	integration, err := s.mutate(ctx, integrationID, func(i *domain.Integration) error {
		i.RotateSecret(secret)
		return nil
	})
	if err == nil && secret == "" {
		s.logger.WithContext(ctx).Warn("Webhook signature verification disabled", "integrationId", integrationID)
	}
	return integration, err
}

// Deactivate stops accepting deliveries for the integration
func (s *IntegrationService) Deactivate(ctx context.Context, integrationID string) (*domain.Integration, error) {
	return s.mutate(ctx, integrationID, func(i *domain.Integration) error {
		i.Deactivate()
		return nil
	})
}

func (s *IntegrationService) mutate(ctx context.Context, integrationID string, fn func(*domain.Integration) error) (*domain.Integration, error) {
	integration, err := s.GetIntegration(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if err := fn(integration); err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}
	if err := s.repos.Integrations.Save(ctx, integration); err != nil {
		return nil, apperrors.ErrInternal("failed to save integration").Wrap(err)
	}
	return integration, nil
}

// ConnectSeller binds a seller to an integration, reactivating an earlier binding if present.
func (s *IntegrationService) ConnectSeller(ctx context.Context, cmd ConnectSellerCommand) (*domain.SellerIntegration, error) {
	integration, err := s.GetIntegration(ctx, cmd.IntegrationID)
	if err != nil {
		return nil, err
	}
	if !integration.Active {
		return nil, apperrors.ErrConflict("integration is inactive")
	}

	seller, err := s.repos.Sellers.FindByID(ctx, cmd.SellerID)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to load seller").Wrap(err)
	}
	if seller == nil {
		return nil, apperrors.ErrNotFoundWithID("Seller", cmd.SellerID)
	}

	binding, err := s.repos.SellerIntegrations.FindBySellerAndIntegration(ctx, cmd.SellerID, cmd.IntegrationID, cmd.Sandbox)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to load seller integration").Wrap(err)
	}
	if binding == nil {
		binding, err = domain.NewSellerIntegration(cmd.SellerID, cmd.IntegrationID, cmd.Sandbox)
		if err != nil {
			return nil, apperrors.ErrValidation(err.Error())
		}
	} else if !binding.Active {
		binding.Reconnect()
	}

	if err := s.repos.SellerIntegrations.Save(ctx, binding); err != nil {
		return nil, apperrors.ErrInternal("failed to save seller integration").Wrap(err)
	}
	s.logger.WithContext(ctx).Info("Seller connected",
		"sellerId", cmd.SellerID,
		"integrationId", cmd.IntegrationID,
		"sandbox", cmd.Sandbox,
	)
	return binding, nil
}

// DisconnectSeller deactivates a binding
func (s *IntegrationService) DisconnectSeller(ctx context.Context, sellerIntegrationID string) (*domain.SellerIntegration, error) {
	binding, err := s.repos.SellerIntegrations.FindByID(ctx, sellerIntegrationID)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to load seller integration").Wrap(err)
	}
	if binding == nil {
		return nil, apperrors.ErrNotFoundWithID("SellerIntegration", sellerIntegrationID)
	}

	binding.Disconnect()
	if err := s.repos.SellerIntegrations.Save(ctx, binding); err != nil {
		return nil, apperrors.ErrInternal("failed to save seller integration").Wrap(err)
	}
	return binding, nil
}

// GetIntegrationErrors returns the seller's error log, newest last
func (s *IntegrationService) GetIntegrationErrors(ctx context.Context, sellerID string) ([]domain.IntegrationError, error) {
	seller, err := s.repos.Sellers.FindByID(ctx, sellerID)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to load seller").Wrap(err)
	}
	if seller == nil {
		return nil, apperrors.ErrNotFoundWithID("Seller", sellerID)
	}
	if seller.IntegrationErrors == nil {
		return []domain.IntegrationError{}, nil
	}
	return seller.IntegrationErrors, nil
}

// ConfigureTaxCommand sets a seller's tax configuration for one country
type ConfigureTaxCommand struct {
	SellerID string
	Country  string
	Service  string
	Rate     float64
	Nexus    bool
}

// ConfigureTax stores the tax setting that tax-provider webhooks later update
func (s *IntegrationService) ConfigureTax(ctx context.Context, cmd ConfigureTaxCommand) (domain.TaxSetting, error) {
	seller, err := s.repos.Sellers.FindByID(ctx, cmd.SellerID)
	if err != nil {
		return domain.TaxSetting{}, apperrors.ErrInternal("failed to load seller").Wrap(err)
	}
	if seller == nil {
		return domain.TaxSetting{}, apperrors.ErrNotFoundWithID("Seller", cmd.SellerID)
	}

	setting := seller.SetTaxSetting(cmd.Country, cmd.Service, cmd.Rate, cmd.Nexus)
	if err := s.repos.Sellers.Save(ctx, seller); err != nil {
		return domain.TaxSetting{}, apperrors.ErrInternal("failed to save seller").Wrap(err)
	}
	return setting, nil
}
