package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaxService(t *testing.T) {
	assert.Equal(t, TaxServiceTaxJar, ParseTaxService("TaxJar"))
	assert.Equal(t, TaxServiceAvalara, ParseTaxService("avalara"))
	assert.Equal(t, TaxServiceQuaderno, ParseTaxService("QUADERNO"))
	assert.Equal(t, TaxServiceNone, ParseTaxService("Stripe Tax"))
	assert.Equal(t, TaxServiceNone, ParseTaxService(""))
}

func TestSeller_ApplyMetricsDelta(t *testing.T) {
	s := &Seller{SellerID: "seller-1"}

	s.ApplyMetricsDelta(MetricsDelta{Revenue: 0.1, Views: 10})
	s.ApplyMetricsDelta(MetricsDelta{Revenue: 0.2, Customers: 1, Orders: 1})

	assert.Equal(t, 0.3, s.Metrics.Revenue)
	assert.Equal(t, int64(10), s.Metrics.Views)
	assert.Equal(t, int64(1), s.Metrics.Customers)
	assert.Equal(t, int64(1), s.Metrics.Orders)
	assert.False(t, s.Metrics.LastUpdatedAt.IsZero())
}

func TestSeller_ReplaceMetricsAndOutOfStock(t *testing.T) {
	s := &Seller{SellerID: "seller-1"}
	s.ApplyMetricsDelta(MetricsDelta{Views: 50})

	s.ReplaceMetrics(SellerMetrics{Revenue: 100, Views: 5})
	assert.Equal(t, int64(5), s.Metrics.Views)

	s.SetOutOfStockCount(7)
	s.SetOutOfStockCount(2)
	assert.Equal(t, int64(2), s.Metrics.OutOfStock)

	s.SetOutOfStockCount(-1)
	assert.Equal(t, int64(0), s.Metrics.OutOfStock)
}

func TestSeller_SetTaxSetting(t *testing.T) {
	s := &Seller{SellerID: "seller-1"}

	setting := s.SetTaxSetting(" us ", "Unknown", 0.07, true)
	assert.Equal(t, "US", setting.Country)
	assert.Equal(t, TaxServiceNone, setting.Service)

	s.SetTaxSetting("US", "Avalara", 0.08, true)
	require.Len(t, s.TaxSettings, 1)
	assert.Equal(t, TaxServiceAvalara, s.TaxSettings["US"].Service)
	assert.Equal(t, 0.08, s.TaxSettings["US"].Rate)
}

func TestSeller_RecordIntegrationError_Bounded(t *testing.T) {
	s := &Seller{SellerID: "seller-1"}

	evicted := 0
	for i := 0; i < 5; i++ {
		evicted += s.RecordIntegrationError(IntegrationError{
			Provider: "acme",
			Code:     ErrorCodeProviderError,
			Message:  string(rune('a' + i)),
		}, 3)
	}

	require.Len(t, s.IntegrationErrors, 3)
	assert.Equal(t, 2, evicted)
	assert.Equal(t, "c", s.IntegrationErrors[0].Message)
	assert.Equal(t, "e", s.IntegrationErrors[2].Message)
	assert.False(t, s.IntegrationErrors[2].Timestamp.IsZero())
}

func TestSeller_Connections(t *testing.T) {
	s := &Seller{SellerID: "seller-1"}

	s.SetConnection(ProviderConnection{Provider: "acme", ExternalID: "x-1", Status: "connected"})
	s.RecordConnectionEvent("acme", EventAutomationTriggered)
	s.RecordConnectionEvent("zapier", EventAutomationTriggered)

	assert.Equal(t, "x-1", s.Connections["acme"].ExternalID)
	assert.Equal(t, string(EventAutomationTriggered), s.Connections["acme"].LastEvent)
	assert.Equal(t, "zapier", s.Connections["zapier"].Provider)
}

func TestSeller_Ledger(t *testing.T) {
	s := &Seller{SellerID: "seller-1"}
	s.AppendLedgerEntry(LedgerEntry{Kind: LedgerEntryWithdrawal, Reference: "w-1", Amount: 10, Status: "pending"})

	require.NoError(t, s.UpdateLedgerStatus(LedgerEntryWithdrawal, "w-1", "paid"))
	assert.Equal(t, "paid", s.Ledger[0].Status)
	assert.ErrorIs(t, s.UpdateLedgerStatus(LedgerEntryTransaction, "w-1", "paid"), ErrLedgerNotFound)
}
