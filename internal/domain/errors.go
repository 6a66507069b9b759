package domain

import "errors"

// Domain errors
var (
	ErrIntegrationNotFound       = errors.New("integration not found")
	ErrSellerIntegrationNotFound = errors.New("seller integration not found")
	ErrSellerNotFound            = errors.New("seller not found")
	ErrOrderNotFound             = errors.New("order not found")
	ErrProductNotFound           = errors.New("product not found")

	ErrProviderRequired       = errors.New("provider is required")
	ErrSellerRequired         = errors.New("seller id is required")
	ErrIntegrationRequired    = errors.New("integration id is required")
	ErrProviderAlreadyExists  = errors.New("integration for provider already exists")
	ErrInvalidIntegrationType = errors.New("invalid integration type")
	ErrInvalidMapping         = errors.New("invalid response mapping")

	ErrOrderTerminal   = errors.New("order is in a terminal state")
	ErrOrderCancelled  = errors.New("order is cancelled")
	ErrLedgerNotFound  = errors.New("ledger entry not found")
	ErrInvalidQuantity = errors.New("invalid quantity")
)
