package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketplace-platform/webhook-service/internal/application"
	"github.com/marketplace-platform/webhook-service/internal/domain"
	"github.com/marketplace-platform/webhook-service/internal/testutil"
	"github.com/marketplace-platform/webhook-service/pkg/logging"
	"github.com/marketplace-platform/webhook-service/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const secret = "whsec_handler"

type fixture struct {
	router      *gin.Engine
	integration *domain.Integration
	sellers     *testutil.SellerRepo
	products    *testutil.ProductRepo
	dispatcher  *testutil.DispatcherSpy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, RegisterValidators())

	integration, err := domain.NewIntegration("acme", "Acme", domain.IntegrationTypeMarketplace, secret, nil)
	require.NoError(t, err)

	f := &fixture{
		integration: integration,
		sellers:     testutil.NewSellerRepo(testutil.NewSeller("seller-1")),
		products:    testutil.NewProductRepo(),
		dispatcher:  &testutil.DispatcherSpy{},
	}
	bindings := testutil.NewSellerIntegrationRepo()
	binding, err := domain.NewSellerIntegration("seller-1", integration.IntegrationID, false)
	require.NoError(t, err)
	require.NoError(t, bindings.Save(context.Background(), binding))

	repos := application.Repositories{
		Integrations:       testutil.NewIntegrationRepo(integration),
		SellerIntegrations: bindings,
		Sellers:            f.sellers,
		Orders:             testutil.NewOrderRepo(),
		Products:           f.products,
	}
	schemas, err := application.LoadPayloadSchemas()
	require.NoError(t, err)

	logger := logging.Nop()
	processor := application.NewEventProcessor(repos, f.dispatcher, schemas, nil, logger, 100)
	webhooks := application.NewWebhookService(repos, processor, application.WebhookServiceConfig{}, nil, logger)
	admin := application.NewIntegrationService(repos, logger)

	f.router = gin.New()
	middleware.Setup(f.router, middleware.DefaultConfig("webhook-service", logger.Logger))
	v1 := f.router.Group("/api/v1")
	NewWebhookHandler(webhooks, logger, 0).RegisterRoutes(v1)
	NewIntegrationHandler(admin).RegisterRoutes(v1)
	return f
}

func (f *fixture) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func sign(t *testing.T, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestWebhook_SignedProductCreated(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"product created","productId":"p1","name":"Widget","price":9.99,"quantity":3}`)

	rec := f.do(http.MethodPost, "/api/v1/webhooks?provider=acme", body, map[string]string{
		application.SignatureHeader: sign(t, body),
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	products := f.products.All()
	require.Len(t, products, 1)
	assert.Equal(t, domain.InventoryStatusInStock, products[0].InventoryStatus)

	calls := f.dispatcher.Recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"productId": products[0].ProductID, "externalProductId": "p1"}, calls[0].Data)
}

func TestWebhook_RequestErrors(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"product created","productId":"p1","quantity":1}`)

	tests := []struct {
		name    string
		path    string
		body    []byte
		headers map[string]string
		status  int
		message string
	}{
		{
			name:    "missing provider",
			path:    "/api/v1/webhooks",
			body:    body,
			status:  http.StatusBadRequest,
			message: "provider is required",
		},
		{
			name:    "unknown provider",
			path:    "/api/v1/webhooks?provider=globex",
			body:    body,
			status:  http.StatusNotFound,
			message: "Integration not found",
		},
		{
			name:    "signature mismatch",
			path:    "/api/v1/webhooks?provider=acme",
			body:    body,
			headers: map[string]string{application.SignatureHeader: "deadbeef"},
			status:  http.StatusBadRequest,
			message: "Invalid signature",
		},
		{
			name:   "malformed json",
			path:   "/api/v1/webhooks?provider=acme",
			body:   []byte(`{"event":`),
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, tt.path, tt.body, tt.headers)
			require.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.NotEmpty(t, resp["error"])
			if tt.message != "" {
				assert.Equal(t, tt.message, resp["error"])
			}
		})
	}
	assert.Empty(t, f.products.All())
	assert.Empty(t, f.dispatcher.Recorded())
}

func TestWebhook_HandlerFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.products.SaveErr = testutil.ErrInjected
	body := []byte(`{"event":"product created","productId":"p1","quantity":1}`)

	rec := f.do(http.MethodPost, "/api/v1/webhooks?provider=acme", body, map[string]string{
		application.SignatureHeader: sign(t, body),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	errs := f.sellers.Get("seller-1").IntegrationErrors
	require.Len(t, errs, 1)
	assert.Equal(t, domain.ErrorCodeWebhookProcessingError, errs[0].Code)
}

func TestWebhook_SandboxHasNoSubscribers(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"product created","productId":"p1","quantity":1}`)

	rec := f.do(http.MethodPost, "/api/v1/webhooks?provider=acme&sandbox=true", body, map[string]string{
		application.SignatureHeader: sign(t, body),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.products.All())
}

func TestWebhook_BodyTooLarge(t *testing.T) {
	f := newFixture(t)
	f.router = gin.New()
	NewWebhookHandler(webhookStub{}, logging.Nop(), 16).RegisterRoutes(f.router.Group("/api/v1"))

	rec := f.do(http.MethodPost, "/api/v1/webhooks?provider=acme", []byte(`{"event":"product created","padding":"xxxxxxxx"}`), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "failed to read request body", decode(t, rec)["error"])
}

type webhookStub struct{}

func (webhookStub) HandleWebhook(context.Context, application.WebhookRequest) (*application.WebhookResult, error) {
	return &application.WebhookResult{}, nil
}

func TestAdmin_IntegrationLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/integrations", []byte(`{
		"provider": "stripe",
		"type": "payment",
		"webhookSecret": "whsec_12345678",
		"responseMapping": [{"key": "orderId", "path": "data.object.order"}]
	}`), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	id, _ := created["integrationId"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, true, created["signed"])
	assert.NotContains(t, rec.Body.String(), "whsec_12345678")

	rec = f.do(http.MethodGet, "/api/v1/integrations/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stripe", decode(t, rec)["provider"])

	rec = f.do(http.MethodPut, "/api/v1/integrations/"+id+"/mapping", []byte(`{"responseMapping":[{"key":"event","path":"type"}]}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mapping, _ := decode(t, rec)["responseMapping"].([]any)
	assert.Len(t, mapping, 1)

	rec = f.do(http.MethodPut, "/api/v1/integrations/"+id+"/secret", []byte(`{}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["signed"])

	rec = f.do(http.MethodPost, "/api/v1/integrations/"+id+"/sellers", []byte(`{"sellerId":"seller-1","sandbox":true}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	binding := decode(t, rec)
	assert.Equal(t, true, binding["sandbox"])
	bindingID, _ := binding["sellerIntegrationId"].(string)

	rec = f.do(http.MethodDelete, "/api/v1/seller-integrations/"+bindingID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["active"])

	rec = f.do(http.MethodPost, "/api/v1/integrations/"+id+"/deactivate", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["active"])
}

func TestAdmin_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		body   string
		field  string
		status int
	}{
		{name: "unknown type", body: `{"provider":"stripe","type":"fax"}`, field: "type", status: http.StatusBadRequest},
		{name: "bad slug", body: `{"provider":"Not A Slug","type":"payment"}`, field: "provider", status: http.StatusBadRequest},
		{name: "short secret", body: `{"provider":"stripe","type":"payment","webhookSecret":"x"}`, field: "webhookSecret", status: http.StatusBadRequest},
		{name: "mapping without path", body: `{"provider":"stripe","type":"payment","responseMapping":[{"key":"a"}]}`, status: http.StatusBadRequest},
		{name: "duplicate provider", body: `{"provider":"acme","type":"marketplace"}`, status: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/v1/integrations", []byte(tt.body), nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var resp middleware.APIErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Code)
			if tt.field != "" {
				assert.Contains(t, resp.Details, tt.field)
			}
		})
	}
}

func TestAdmin_SellerEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/sellers/seller-1/integration-errors", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sellerId":"seller-1","errors":[]}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/v1/sellers/nobody/integration-errors", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPut, "/api/v1/sellers/seller-1/tax-settings/de", []byte(`{"service":"avalara","rate":0.19,"nexus":true}`), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	setting := decode(t, rec)
	assert.Equal(t, "DE", setting["country"])
	assert.Equal(t, "Avalara", setting["service"])

	rec = f.do(http.MethodPut, "/api/v1/sellers/seller-1/tax-settings/de", []byte(`{"service":"vertex"}`), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "TaxJar"))
}
