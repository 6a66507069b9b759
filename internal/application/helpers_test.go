package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marketplace-platform/webhook-service/internal/domain"
	"github.com/marketplace-platform/webhook-service/internal/testutil"
	"github.com/marketplace-platform/webhook-service/pkg/logging"
)

const testSecret = "whsec_test"

type testEnv struct {
	integration        *domain.Integration
	integrations       *testutil.IntegrationRepo
	sellerIntegrations *testutil.SellerIntegrationRepo
	sellers            *testutil.SellerRepo
	orders             *testutil.OrderRepo
	products           *testutil.ProductRepo
	dispatcher         *testutil.DispatcherSpy
	repos              Repositories
	processor          *EventProcessor
}

func newTestEnv(t *testing.T, integrationType domain.IntegrationType, sellerIDs ...string) *testEnv {
	t.Helper()

	integration, err := domain.NewIntegration("acme", "Acme", integrationType, testSecret, nil)
	require.NoError(t, err)

	env := &testEnv{
		integration:        integration,
		integrations:       testutil.NewIntegrationRepo(integration),
		sellerIntegrations: testutil.NewSellerIntegrationRepo(),
		sellers:            testutil.NewSellerRepo(),
		orders:             testutil.NewOrderRepo(),
		products:           testutil.NewProductRepo(),
		dispatcher:         &testutil.DispatcherSpy{},
	}
	for i, id := range sellerIDs {
		require.NoError(t, env.sellers.Save(context.Background(), testutil.NewSeller(id)))
		env.connect(t, id, false, time.Duration(i)*time.Millisecond)
	}
	env.repos = Repositories{
		Integrations:       env.integrations,
		SellerIntegrations: env.sellerIntegrations,
		Sellers:            env.sellers,
		Orders:             env.orders,
		Products:           env.products,
	}
	env.processor = env.newProcessor(t)
	return env
}

func (e *testEnv) newProcessor(t *testing.T) *EventProcessor {
	t.Helper()
	schemas, err := LoadPayloadSchemas()
	require.NoError(t, err)
	return NewEventProcessor(e.repos, e.dispatcher, schemas, nil, logging.Nop(), 10)
}

func (e *testEnv) connect(t *testing.T, sellerID string, sandbox bool, offset time.Duration) {
	t.Helper()
	si, err := domain.NewSellerIntegration(sellerID, e.integration.IntegrationID, sandbox)
	require.NoError(t, err)
	si.ConnectedAt = si.ConnectedAt.Add(offset)
	require.NoError(t, e.sellerIntegrations.Save(context.Background(), si))
}

func (e *testEnv) service(config WebhookServiceConfig) *WebhookService {
	return NewWebhookService(e.repos, e.processor, config, nil, logging.Nop())
}

// process runs one payload for one seller through the registry.
func (e *testEnv) process(t *testing.T, sellerID string, payload map[string]any) Outcome {
	t.Helper()
	seller, err := e.sellers.FindByID(context.Background(), sellerID)
	require.NoError(t, err)
	require.NotNil(t, seller)
	return e.processor.Process(context.Background(), seller, e.integration, payload)
}

func (e *testEnv) seedOrder(t *testing.T, sellerID, externalID string) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(sellerID, externalID, "acme", 100, "USD")
	require.NoError(t, err)
	require.NoError(t, e.orders.Save(context.Background(), order))
	return order
}

func (e *testEnv) seedProduct(t *testing.T, sellerID, externalID string, quantity int) *domain.Product {
	t.Helper()
	product, err := domain.NewProduct(sellerID, externalID, "acme", "Widget", 9.99, quantity)
	require.NoError(t, err)
	require.NoError(t, e.products.Save(context.Background(), product))
	return product
}

func (e *testEnv) errorCodes(sellerID string) []domain.ErrorCode {
	var codes []domain.ErrorCode
	for _, entry := range e.sellers.Get(sellerID).IntegrationErrors {
		codes = append(codes, entry.Code)
	}
	return codes
}

// signBody returns the hex HMAC-SHA256 a provider computes over the body it sends.
func signBody(t *testing.T, secret string, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
