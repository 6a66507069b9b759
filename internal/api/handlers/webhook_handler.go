package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketplace-platform/webhook-service/internal/application"
	apperrors "github.com/marketplace-platform/webhook-service/pkg/errors"
	"github.com/marketplace-platform/webhook-service/pkg/logging"
	"github.com/marketplace-platform/webhook-service/pkg/middleware"
)

// DefaultMaxBodyBytes bounds inbound webhook payloads.
const DefaultMaxBodyBytes int64 = 1 << 20

// WebhookProcessor processes inbound deliveries
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, req application.WebhookRequest) (*application.WebhookResult, error)
}

// WebhookHandler serves the inbound provider endpoint
type WebhookHandler struct {
	processor    WebhookProcessor
	logger       *logging.Logger
	maxBodyBytes int64
}

// NewWebhookHandler creates a new WebhookHandler. maxBodyBytes <= 0 uses DefaultMaxBodyBytes.
func NewWebhookHandler(processor WebhookProcessor, logger *logging.Logger, maxBodyBytes int64) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &WebhookHandler{
		processor:    processor,
		logger:       logger.WithComponent("webhook-handler"),
		maxBodyBytes: maxBodyBytes,
	}
}

// RegisterRoutes mounts the webhook endpoint on rg
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks", h.Receive)
}

// Receive handles POST /webhooks?provider=<slug>&sandbox=<bool>.
//
// Providers get {"success": true} once every subscription has been processed,
// even when individual sellers failed. Request-level failures render {"error": reason}.
func (h *WebhookHandler) Receive(c *gin.Context) {
	provider := c.Query("provider")
	sandbox := c.Query("sandbox") == "true"

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"webhook.provider": provider,
		"webhook.sandbox":  sandbox,
	})

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		h.respondError(c, apperrors.ErrBadRequest("failed to read request body").Wrap(err))
		return
	}

	result, err := h.processor.HandleWebhook(c.Request.Context(), application.WebhookRequest{
		Provider:  provider,
		Sandbox:   sandbox,
		Signature: c.GetHeader(application.SignatureHeader),
		Body:      body,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"webhook.event":         string(result.Event),
		"webhook.subscriptions": len(result.Outcomes),
		"webhook.duplicate":     result.Duplicate,
	})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *WebhookHandler) respondError(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)
	logger := h.logger.WithContext(c.Request.Context()).WithFields(map[string]any{
		"provider": c.Query("provider"),
		"status":   appErr.HTTPStatus,
		"code":     appErr.Code,
	})
	if appErr.Err != nil {
		logger = logger.WithError(appErr.Err)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("Webhook request failed", "reason", appErr.Message)
	} else {
		logger.Warn("Webhook request rejected", "reason", appErr.Message)
	}
	c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
}
