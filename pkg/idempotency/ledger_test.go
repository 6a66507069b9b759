package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoLedger_MarkProcessed(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("first delivery is recorded", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		ledger := NewMongoLedger(mt.DB, time.Hour)

		evt := &ProcessedEvent{IntegrationID: "int-1", ProviderEventID: "evt-1"}
		require.NoError(mt, ledger.MarkProcessed(context.Background(), evt))
		assert.False(mt, evt.ProcessedAt.IsZero())
		assert.Equal(mt, time.Hour, evt.ExpiresAt.Sub(evt.ProcessedAt))
	})

	mt.Run("duplicate delivery is rejected", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))
		ledger := NewMongoLedger(mt.DB, time.Hour)

		err := ledger.MarkProcessed(context.Background(), &ProcessedEvent{IntegrationID: "int-1", ProviderEventID: "evt-1"})
		assert.ErrorIs(mt, err, ErrAlreadyProcessed)
	})

	mt.Run("other errors are wrapped", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}))
		ledger := NewMongoLedger(mt.DB, time.Hour)

		err := ledger.MarkProcessed(context.Background(), &ProcessedEvent{IntegrationID: "int-1", ProviderEventID: "evt-2"})
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrAlreadyProcessed)
		var cmdErr mongo.CommandError
		assert.ErrorAs(mt, err, &cmdErr)
	})
}

func TestMongoLedger_Clean(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns deleted count", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 4}})
		ledger := NewMongoLedger(mt.DB, time.Hour)

		n, err := ledger.Clean(context.Background(), time.Now())
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), n)
	})
}
