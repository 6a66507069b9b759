// Package handlers exposes the webhook endpoint and the integration admin API over gin.
package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marketplace-platform/webhook-service/internal/domain"
	"github.com/marketplace-platform/webhook-service/pkg/middleware"
)

// RegisterValidators adds the service's binding tags to gin's validator.
func RegisterValidators() error {
	if err := middleware.RegisterValidation("integrationtype", "must be a supported integration type",
		func(fl validator.FieldLevel) bool {
			return domain.IntegrationType(fl.Field().String()).IsValid()
		}); err != nil {
		return err
	}

	return middleware.RegisterValidation("taxservice", "must be one of: TaxJar Avalara Quaderno none",
		func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			return strings.EqualFold(value, string(domain.TaxServiceNone)) ||
				domain.ParseTaxService(value) != domain.TaxServiceNone
		})
}
