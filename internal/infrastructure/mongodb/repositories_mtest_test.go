package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/marketplace-platform/webhook-service/internal/domain"
	"github.com/marketplace-platform/webhook-service/pkg/cloudevents"
	"github.com/marketplace-platform/webhook-service/pkg/outbox"
)

func updated(n int32) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func namespace(mt *mtest.T, collection string) string {
	return mt.DB.Name() + "." + collection
}

func TestIntegrationRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("save and find", func(mt *mtest.T) {
		repo := NewIntegrationRepository(mt.DB)
		ctx := context.Background()
		ns := namespace(mt, integrationsCollection)

		integration, err := domain.NewIntegration("acme", "Acme", domain.IntegrationTypeMarketplace, "s3cret",
			[]domain.FieldMapping{{Key: "event", Path: "type"}})
		require.NoError(mt, err)

		mt.AddMockResponses(updated(1))
		require.NoError(mt, repo.Save(ctx, integration))

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "integrationId", Value: integration.IntegrationID},
			{Key: "provider", Value: "acme"},
			{Key: "type", Value: "marketplace"},
			{Key: "active", Value: true},
			{Key: "webhookSecret", Value: "s3cret"},
			{Key: "responseMapping", Value: bson.A{bson.D{{Key: "key", Value: "event"}, {Key: "path", Value: "type"}}}},
		}))
		found, err := repo.FindByProvider(ctx, "acme")
		require.NoError(mt, err)
		require.NotNil(mt, found)
		assert.Equal(mt, integration.IntegrationID, found.IntegrationID)
		assert.Equal(mt, "s3cret", found.WebhookSecret)
		assert.Equal(mt, []domain.FieldMapping{{Key: "event", Path: "type"}}, found.ResponseMapping)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		missing, err := repo.FindByID(ctx, "INT-missing")
		require.NoError(mt, err)
		assert.Nil(mt, missing)
	})

	mt.Run("driver errors are wrapped", func(mt *mtest.T) {
		repo := NewIntegrationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "boom"}))

		_, err := repo.FindByProvider(context.Background(), "acme")
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to find integration")
	})
}

func TestSellerIntegrationRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("fan-out query", func(mt *mtest.T) {
		repo := NewSellerIntegrationRepository(mt.DB)
		ctx := context.Background()
		ns := namespace(mt, sellerIntegrationsCollection)
		connected := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "sellerIntegrationId", Value: "SI-1"},
				{Key: "sellerId", Value: "seller-1"},
				{Key: "integrationId", Value: "INT-1"},
				{Key: "active", Value: true},
				{Key: "connectedAt", Value: connected},
			},
			bson.D{
				{Key: "sellerIntegrationId", Value: "SI-2"},
				{Key: "sellerId", Value: "seller-2"},
				{Key: "integrationId", Value: "INT-1"},
				{Key: "active", Value: true},
				{Key: "connectedAt", Value: connected.Add(time.Minute)},
			},
		))
		bindings, err := repo.FindActiveByIntegration(ctx, "INT-1", false)
		require.NoError(mt, err)
		require.Len(mt, bindings, 2)
		assert.Equal(mt, "seller-1", bindings[0].SellerID)
		assert.Equal(mt, connected, bindings[0].ConnectedAt)

		binding, err := domain.NewSellerIntegration("seller-3", "INT-1", true)
		require.NoError(mt, err)
		mt.AddMockResponses(updated(1))
		require.NoError(mt, repo.Save(ctx, binding))

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		found, err := repo.FindBySellerAndIntegration(ctx, "seller-9", "INT-1", false)
		require.NoError(mt, err)
		assert.Nil(mt, found)
	})
}

func TestSellerRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("save leaves the error log alone", func(mt *mtest.T) {
		repo := NewSellerRepository(mt.DB)
		seller := &domain.Seller{
			SellerID:          "seller-1",
			IntegrationErrors: []domain.IntegrationError{{Code: domain.ErrorCodeProviderError}},
		}
		seller.ApplyMetricsDelta(domain.MetricsDelta{Orders: 1})

		mt.AddMockResponses(updated(1))
		require.NoError(mt, repo.Save(context.Background(), seller))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		update := started.Command.Lookup("updates", "0", "u").Document()
		_, err := update.LookupErr("$set", "integrationErrors")
		assert.Error(mt, err)
		orders, err := update.LookupErr("$set", "metrics", "orders")
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), orders.AsInt64())
	})

	mt.Run("append trims to limit", func(mt *mtest.T) {
		repo := NewSellerRepository(mt.DB)
		entry := domain.IntegrationError{
			Provider:  "acme",
			Code:      domain.ErrorCodeUnsupportedEvent,
			Message:   "Unsupported event: x",
			Timestamp: time.Now().UTC(),
		}

		mt.AddMockResponses(updated(1))
		require.NoError(mt, repo.AppendIntegrationError(context.Background(), "seller-1", entry, 100))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		slice, err := started.Command.LookupErr("updates", "0", "u", "$push", "integrationErrors", "$slice")
		require.NoError(mt, err)
		assert.Equal(mt, int64(-100), slice.AsInt64())
	})

	mt.Run("append to missing seller", func(mt *mtest.T) {
		repo := NewSellerRepository(mt.DB)
		mt.AddMockResponses(updated(0))

		err := repo.AppendIntegrationError(context.Background(), "nobody", domain.IntegrationError{}, 100)
		assert.ErrorIs(mt, err, domain.ErrSellerNotFound)
	})

	mt.Run("find", func(mt *mtest.T) {
		repo := NewSellerRepository(mt.DB)
		ns := namespace(mt, sellersCollection)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "sellerId", Value: "seller-1"},
			{Key: "metrics", Value: bson.D{{Key: "revenue", Value: 12.5}, {Key: "orders", Value: int64(3)}}},
		}))
		seller, err := repo.FindByID(context.Background(), "seller-1")
		require.NoError(mt, err)
		require.NotNil(mt, seller)
		assert.Equal(mt, 12.5, seller.Metrics.Revenue)
		assert.Equal(mt, int64(3), seller.Metrics.Orders)
	})
}

func TestOrderRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("operations", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		ctx := context.Background()
		ns := namespace(mt, ordersCollection)

		order, err := domain.NewOrder("seller-1", "ext-1", "acme", 40, "USD")
		require.NoError(mt, err)
		mt.AddMockResponses(updated(1))
		require.NoError(mt, repo.Save(ctx, order))
		assert.False(mt, order.UpdatedAt.IsZero())

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "orderId", Value: order.OrderID},
			{Key: "sellerId", Value: "seller-1"},
			{Key: "externalOrderId", Value: "ext-1"},
			{Key: "status", Value: "pending"},
		}))
		found, err := repo.FindBySellerAndReference(ctx, "seller-1", "ext-1")
		require.NoError(mt, err)
		require.NotNil(mt, found)
		assert.Equal(mt, order.OrderID, found.OrderID)
		assert.Equal(mt, domain.OrderStatusPending, found.Status)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		found, err = repo.FindBySellerAndReference(ctx, "seller-1", "ext-2")
		require.NoError(mt, err)
		assert.Nil(mt, found)
	})
}

func TestProductRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("operations", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		ctx := context.Background()
		ns := namespace(mt, productsCollection)

		product, err := domain.NewProduct("seller-1", "p1", "acme", "Widget", 9.99, 0)
		require.NoError(mt, err)
		mt.AddMockResponses(updated(1))
		require.NoError(mt, repo.Save(ctx, product))

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "productId", Value: product.ProductID},
			{Key: "sellerId", Value: "seller-1"},
			{Key: "externalProductId", Value: "p1"},
			{Key: "quantity", Value: int32(0)},
			{Key: "inventoryStatus", Value: "OUT_OF_STOCK"},
		}))
		found, err := repo.FindBySellerAndReference(ctx, "seller-1", product.ProductID)
		require.NoError(mt, err)
		require.NotNil(mt, found)
		assert.True(mt, found.IsOutOfStock())

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(4)}}))
		count, err := repo.CountOutOfStock(ctx, "seller-1")
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), count)
	})
}

func TestOutboxRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("relay lifecycle", func(mt *mtest.T) {
		repo := NewOutboxRepository(mt.DB)
		ctx := context.Background()
		ns := namespace(mt, OutboxCollection)

		ce := cloudevents.NewFactory("webhook-service").NewSellerNotification(ctx, "seller-1", "order created", map[string]any{"orderId": "ORD-1"})
		event, err := outbox.NewEvent("seller-1", "Seller", "marketplace.seller.notifications", ce)
		require.NoError(mt, err)

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, repo.Save(ctx, event))

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: event.ID},
			{Key: "aggregateId", Value: "seller-1"},
			{Key: "eventType", Value: event.EventType},
			{Key: "topic", Value: event.Topic},
			{Key: "retryCount", Value: int32(0)},
			{Key: "maxRetries", Value: int32(10)},
		}))
		pending, err := repo.FindPending(ctx, 50)
		require.NoError(mt, err)
		require.Len(mt, pending, 1)
		assert.Equal(mt, event.ID, pending[0].ID)
		assert.True(mt, pending[0].ShouldRetry())

		mt.AddMockResponses(updated(1))
		require.NoError(mt, repo.IncrementRetry(ctx, event.ID, "broker down"))

		mt.AddMockResponses(updated(1))
		require.NoError(mt, repo.MarkPublished(ctx, event.ID))

		mt.AddMockResponses(updated(0))
		err = repo.MarkPublished(ctx, "missing")
		assert.ErrorIs(mt, err, ErrOutboxEventNotFound)

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(2)}))
		deleted, err := repo.DeletePublishedBefore(ctx, time.Now())
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), deleted)
	})
}

func TestRepositories_EnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates every index set", func(mt *mtest.T) {
		repos := NewRepositories(mt.DB)
		for i := 0; i < 6; i++ {
			mt.AddMockResponses(mtest.CreateSuccessResponse())
		}
		require.NoError(mt, repos.EnsureIndexes(context.Background()))
	})

	mt.Run("stops at first failure", func(mt *mtest.T) {
		repos := NewRepositories(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 85, Message: "index options conflict"}))
		err := repos.EnsureIndexes(context.Background())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "integration indexes")
	})
}
