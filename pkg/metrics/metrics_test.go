package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordWebhookPipeline(t *testing.T) {
	m := New(DefaultConfig("webhook-service"))

	m.RecordWebhookReceived("acme", "accepted", 10*time.Millisecond)
	m.RecordWebhookReceived("acme", "accepted", 5*time.Millisecond)
	m.RecordHandlerOutcome("product created", "marketplace", "success", time.Millisecond)
	m.RecordSellerError("UNSUPPORTED_EVENT")
	m.RecordDispatch("product created", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.WebhooksReceived.WithLabelValues("webhook-service", "acme", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerInvocations.WithLabelValues("webhook-service", "product created", "marketplace", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SellerErrorsRecorded.WithLabelValues("webhook-service", "UNSUPPORTED_EVENT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsDispatch.WithLabelValues("webhook-service", "product created", "success")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(DefaultConfig("webhook-service"))
	m.SetOutboxPending(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "marketplace_outbox_pending_events"))
}
