package application

import (
	"context"
	"errors"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

// customerCreated increments the customer counter by count, defaulting to one.
func (h *eventHandlers) customerCreated(ctx context.Context, ec *eventContext) error {
	var p customerPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	count := int64(1)
	if p.Count != nil {
		count = *p.Count
	}
	ec.seller.ApplyMetricsDelta(domain.MetricsDelta{Customers: count})
	if err := h.saveSeller(ctx, ec.seller); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, compact(map[string]any{
		"customerId": p.CustomerID,
		"customers":  ec.seller.Metrics.Customers,
	}))
}

func (h *eventHandlers) customerUpdated(ctx context.Context, ec *eventContext) error {
	var p customerPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	ec.seller.RecordConnectionEvent(ec.integration.Provider, ec.event)
	if err := h.saveSeller(ctx, ec.seller); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, compact(map[string]any{"customerId": p.CustomerID}))
}

func (h *eventHandlers) withdrawalCreated(ctx context.Context, ec *eventContext) error {
	var p ledgerPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	status := deref(p.Status)
	if status == "" {
		status = "pending"
	}
	ec.seller.AppendLedgerEntry(domain.LedgerEntry{
		Kind:      domain.LedgerEntryWithdrawal,
		Reference: p.WithdrawalID,
		Provider:  ec.integration.Provider,
		Amount:    deref(p.Amount),
		Currency:  deref(p.Currency),
		Status:    status,
	})
	if err := h.saveSeller(ctx, ec.seller); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, map[string]any{
		"withdrawalId": p.WithdrawalID,
		"status":       status,
	})
}

// withdrawalUpdated changes the status of a recorded withdrawal; unknown
// withdrawals are skipped like any other update miss.
func (h *eventHandlers) withdrawalUpdated(ctx context.Context, ec *eventContext) error {
	var p ledgerPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}
	if p.Status == nil {
		return h.notify(ctx, ec, ec.event, map[string]any{"withdrawalId": p.WithdrawalID})
	}

	if err := ec.seller.UpdateLedgerStatus(domain.LedgerEntryWithdrawal, p.WithdrawalID, *p.Status); err != nil {
		if errors.Is(err, domain.ErrLedgerNotFound) {
			ec.logger.Debug("Withdrawal not found, skipping", "withdrawalId", p.WithdrawalID)
			return errEntityNotFound
		}
		return err
	}
	if err := h.saveSeller(ctx, ec.seller); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, map[string]any{
		"withdrawalId": p.WithdrawalID,
		"status":       *p.Status,
	})
}

func (h *eventHandlers) transactionRecorded(ctx context.Context, ec *eventContext) error {
	var p ledgerPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	ec.seller.AppendLedgerEntry(domain.LedgerEntry{
		Kind:      domain.LedgerEntryTransaction,
		Reference: p.TransactionID,
		Provider:  ec.integration.Provider,
		Amount:    deref(p.Amount),
		Currency:  deref(p.Currency),
		Status:    deref(p.Status),
	})
	if err := h.saveSeller(ctx, ec.seller); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, compact(map[string]any{
		"transactionId": p.TransactionID,
		"amount":        p.Amount,
	}))
}

// sellerConnection replaces the provider connection metadata.
func (h *eventHandlers) sellerConnection(ctx context.Context, ec *eventContext) error {
	var p connectionPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	ec.seller.SetConnection(domain.ProviderConnection{
		Provider:   ec.integration.Provider,
		ExternalID: deref(p.ExternalID),
		Status:     deref(p.Status),
		LastEvent:  string(ec.event),
		Metadata:   p.Metadata,
	})
	if err := h.saveSeller(ctx, ec.seller); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, compact(map[string]any{
		"provider":   ec.integration.Provider,
		"externalId": p.ExternalID,
		"status":     p.Status,
	}))
}

func (h *eventHandlers) campaignUpdated(ctx context.Context, ec *eventContext) error {
	var p connectionPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	ec.seller.RecordConnectionEvent(ec.integration.Provider, ec.event)
	if err := h.saveSeller(ctx, ec.seller); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, compact(map[string]any{
		"campaignId": p.CampaignID,
		"status":     p.Status,
		"metadata":   p.Metadata,
	}))
}

// adPerformanceUpdated adds impressions to views and attributed revenue to revenue.
func (h *eventHandlers) adPerformanceUpdated(ctx context.Context, ec *eventContext) error {
	var p adPerformancePayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	ec.seller.ApplyMetricsDelta(domain.MetricsDelta{
		Views:   deref(p.Impressions),
		Revenue: deref(p.Revenue),
	})
	if err := h.saveSeller(ctx, ec.seller); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, compact(map[string]any{
		"campaignId":  p.CampaignID,
		"impressions": p.Impressions,
		"clicks":      p.Clicks,
		"revenue":     p.Revenue,
	}))
}

// analyticsUpdated applies deltas, or overwrites the metrics on a full resync.
func (h *eventHandlers) analyticsUpdated(ctx context.Context, ec *eventContext) error {
	var p analyticsPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	if deref(p.FullResync) {
		ec.seller.ReplaceMetrics(domain.SellerMetrics{
			Revenue:    deref(p.Revenue),
			Views:      deref(p.Views),
			Customers:  deref(p.Customers),
			Orders:     deref(p.Orders),
			OutOfStock: deref(p.OutOfStock),
		})
	} else {
		ec.seller.ApplyMetricsDelta(domain.MetricsDelta{
			Revenue:   deref(p.Revenue),
			Views:     deref(p.Views),
			Customers: deref(p.Customers),
			Orders:    deref(p.Orders),
		})
		if p.OutOfStock != nil {
			ec.seller.SetOutOfStockCount(*p.OutOfStock)
		}
	}
	if err := h.saveSeller(ctx, ec.seller); err != nil {
		return err
	}

	m := ec.seller.Metrics
	return h.notify(ctx, ec, ec.event, map[string]any{
		"fullResync": deref(p.FullResync),
		"revenue":    m.Revenue,
		"views":      m.Views,
		"customers":  m.Customers,
		"orders":     m.Orders,
		"outOfStock": m.OutOfStock,
	})
}

// providerActivity handles automation, messaging and course events, which only
// stamp the provider connection before notifying the seller.
func (h *eventHandlers) providerActivity(ctx context.Context, ec *eventContext) error {
	ec.seller.RecordConnectionEvent(ec.integration.Provider, ec.event)
	if err := h.saveSeller(ctx, ec.seller); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, compact(map[string]any{
		"provider": ec.integration.Provider,
		"id":       stringField(ec.payload, "id"),
		"status":   stringField(ec.payload, "status"),
	}))
}

// securityAlert records the alert in the seller's error log and notifies the seller.
func (h *eventHandlers) securityAlert(ctx context.Context, ec *eventContext) error {
	var p securityAlertPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	message := deref(p.Message)
	if message == "" {
		message = "Security alert reported by " + ec.integration.Provider
	}
	h.errorLog.record(ctx, ec, domain.ErrorCodeSecurityAlert, message)

	return h.notify(ctx, ec, ec.event, compact(map[string]any{
		"severity":  p.Severity,
		"alertType": p.AlertType,
		"message":   message,
	}))
}
