package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketplace-platform/webhook-service/internal/api/dto"
	"github.com/marketplace-platform/webhook-service/internal/application"
	"github.com/marketplace-platform/webhook-service/internal/domain"
	"github.com/marketplace-platform/webhook-service/pkg/middleware"
)

// IntegrationHandler serves the integration administration API
type IntegrationHandler struct {
	service *application.IntegrationService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(service *application.IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{service: service}
}

// RegisterRoutes mounts the admin routes on rg
func (h *IntegrationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	integrations := rg.Group("/integrations")
	{
		integrations.POST("", h.Create)
		integrations.GET("/:id", h.Get)
		integrations.PUT("/:id/mapping", h.UpdateMapping)
		integrations.PUT("/:id/secret", h.RotateSecret)
		integrations.POST("/:id/deactivate", h.Deactivate)
		integrations.POST("/:id/sellers", h.ConnectSeller)
	}

	rg.DELETE("/seller-integrations/:id", h.DisconnectSeller)

	sellers := rg.Group("/sellers/:sellerId")
	{
		sellers.GET("/integration-errors", h.GetIntegrationErrors)
		sellers.PUT("/tax-settings/:country", h.ConfigureTax)
	}
}

// Create handles POST /integrations
func (h *IntegrationHandler) Create(c *gin.Context) {
	var req dto.CreateIntegrationRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	integration, err := h.service.CreateIntegration(c.Request.Context(), application.CreateIntegrationCommand{
		Provider:        req.Provider,
		Name:            req.Name,
		Type:            domain.IntegrationType(req.Type),
		WebhookSecret:   req.WebhookSecret,
		ResponseMapping: dto.ToFieldMappings(req.ResponseMapping),
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromIntegration(integration))
}

// Get handles GET /integrations/:id
func (h *IntegrationHandler) Get(c *gin.Context) {
	integration, err := h.service.GetIntegration(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromIntegration(integration))
}

// UpdateMapping handles PUT /integrations/:id/mapping
func (h *IntegrationHandler) UpdateMapping(c *gin.Context) {
	var req dto.UpdateMappingRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	integration, err := h.service.UpdateMapping(c.Request.Context(), c.Param("id"), dto.ToFieldMappings(req.ResponseMapping))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromIntegration(integration))
}

// RotateSecret handles PUT /integrations/:id/secret
func (h *IntegrationHandler) RotateSecret(c *gin.Context) {
	var req dto.RotateSecretRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	integration, err := h.service.RotateSecret(c.Request.Context(), c.Param("id"), req.WebhookSecret)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromIntegration(integration))
}

// Deactivate handles POST /integrations/:id/deactivate
func (h *IntegrationHandler) Deactivate(c *gin.Context) {
	integration, err := h.service.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromIntegration(integration))
}

// ConnectSeller handles POST /integrations/:id/sellers
func (h *IntegrationHandler) ConnectSeller(c *gin.Context) {
	var req dto.ConnectSellerRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	binding, err := h.service.ConnectSeller(c.Request.Context(), application.ConnectSellerCommand{
		IntegrationID: c.Param("id"),
		SellerID:      req.SellerID,
		Sandbox:       req.Sandbox,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSellerIntegration(binding))
}

// DisconnectSeller handles DELETE /seller-integrations/:id
func (h *IntegrationHandler) DisconnectSeller(c *gin.Context) {
	binding, err := h.service.DisconnectSeller(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSellerIntegration(binding))
}

// GetIntegrationErrors handles GET /sellers/:sellerId/integration-errors
func (h *IntegrationHandler) GetIntegrationErrors(c *gin.Context) {
	sellerID := c.Param("sellerId")
	entries, err := h.service.GetIntegrationErrors(c.Request.Context(), sellerID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.IntegrationErrorsResponse{SellerID: sellerID, Errors: entries})
}

// ConfigureTax handles PUT /sellers/:sellerId/tax-settings/:country
func (h *IntegrationHandler) ConfigureTax(c *gin.Context) {
	var req dto.ConfigureTaxRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	setting, err := h.service.ConfigureTax(c.Request.Context(), application.ConfigureTaxCommand{
		SellerID: c.Param("sellerId"),
		Country:  c.Param("country"),
		Service:  req.Service,
		Rate:     req.Rate,
		Nexus:    req.Nexus,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}
