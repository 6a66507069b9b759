package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

func orderData(o *domain.Order) map[string]any {
	return map[string]any{
		"orderId":         o.OrderID,
		"externalOrderId": o.ExternalOrderID,
		"status":          string(o.Status),
	}
}

func (h *eventHandlers) findOrder(ctx context.Context, ec *eventContext, reference string) (*domain.Order, error) {
	order, err := h.orders.FindBySellerAndReference(ctx, ec.seller.SellerID, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", reference, err)
	}
	if order == nil {
		ec.logger.Debug("Order not found, skipping", "event", ec.event, "reference", reference)
		return nil, errEntityNotFound
	}
	return order, nil
}

func (h *eventHandlers) saveOrder(ctx context.Context, order *domain.Order) error {
	if err := h.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("failed to save order %s: %w", order.OrderID, err)
	}
	return nil
}

// orderCreated imports an order, reusing an existing one with the same reference.
func (h *eventHandlers) orderCreated(ctx context.Context, ec *eventContext) error {
	var p orderPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	order, err := h.orders.FindBySellerAndReference(ctx, ec.seller.SellerID, p.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", p.OrderID, err)
	}

	created := order == nil
	if created {
		order, err = domain.NewOrder(ec.seller.SellerID, p.OrderID, ec.integration.Provider, deref(p.TotalPrice), deref(p.Currency))
		if err != nil {
			return err
		}
		if deref(p.Status) == string(domain.OrderStatusPendingSupply) {
			order.Status = domain.OrderStatusPendingSupply
		}
		order.CustomerEmail = deref(p.CustomerEmail)
	}

	order.AppendIntegrationLog(ec.logEntry(domain.LogStatusApplied, map[string]any{"created": created}))
	if err := h.saveOrder(ctx, order); err != nil {
		return err
	}

	if created {
		ec.seller.ApplyMetricsDelta(domain.MetricsDelta{Orders: 1})
		if err := h.saveSeller(ctx, ec.seller); err != nil {
			return err
		}
	}
	return h.notify(ctx, ec, ec.event, orderData(order))
}

// orderUpdated applies field overrides. Status changes that would regress or
// leave a terminal state are ignored and noted in the integration log.
func (h *eventHandlers) orderUpdated(ctx context.Context, ec *eventContext) error {
	var p orderPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}
	order, err := h.findOrder(ctx, ec, p.OrderID)
	if err != nil {
		return err
	}

	status := domain.LogStatusApplied
	if p.PaymentStatus != nil {
		order.PaymentStatus = *p.PaymentStatus
	}
	if p.TotalPrice != nil {
		order.TotalPrice = *p.TotalPrice
	}
	if p.Currency != nil {
		order.Currency = *p.Currency
	}
	if p.CustomerEmail != nil {
		order.CustomerEmail = *p.CustomerEmail
	}
	if order.Status != domain.OrderStatusCancelled {
		if p.FulfillmentStatus != nil {
			order.FulfillmentStatus = *p.FulfillmentStatus
		}
		if err := applyTracking(order, p); err != nil {
			return err
		}
	}
	if p.Status != nil && domain.OrderStatus(*p.Status) != order.Status {
		if err := order.TransitionTo(domain.OrderStatus(*p.Status)); err != nil {
			ec.logger.Info("Ignoring order status change", "orderId", order.OrderID, "from", order.Status, "to", *p.Status)
			status = domain.LogStatusIgnored
		}
	}

	order.AppendIntegrationLog(ec.logEntry(status, compact(map[string]any{"status": p.Status})))
	if err := h.saveOrder(ctx, order); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, orderData(order))
}

func (h *eventHandlers) orderFulfilled(ctx context.Context, ec *eventContext) error {
	var p orderPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}
	order, err := h.findOrder(ctx, ec, p.OrderID)
	if err != nil {
		return err
	}

	status := domain.LogStatusApplied
	if err := order.Fulfill(); err != nil {
		if !errors.Is(err, domain.ErrOrderTerminal) {
			return err
		}
		status = domain.LogStatusIgnored
	}
	if order.Status != domain.OrderStatusCancelled {
		if err := applyTracking(order, p); err != nil {
			return err
		}
	}

	order.AppendIntegrationLog(ec.logEntry(status, nil))
	if err := h.saveOrder(ctx, order); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, orderData(order))
}

func (h *eventHandlers) orderCancelled(ctx context.Context, ec *eventContext) error {
	var p orderPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}
	order, err := h.findOrder(ctx, ec, p.OrderID)
	if err != nil {
		return err
	}

	status := domain.LogStatusApplied
	if err := order.Cancel(); err != nil {
		if !errors.Is(err, domain.ErrOrderTerminal) {
			return err
		}
		status = domain.LogStatusIgnored
	}

	order.AppendIntegrationLog(ec.logEntry(status, nil))
	if err := h.saveOrder(ctx, order); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, orderData(order))
}

// paymentSucceeded marks the order paid and holds funds in escrow. Revenue is
// credited only on the first successful payment for the order.
func (h *eventHandlers) paymentSucceeded(ctx context.Context, ec *eventContext) error {
	var p paymentPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}
	order, err := h.findOrder(ctx, ec, p.OrderID)
	if err != nil {
		return err
	}

	alreadyPaid := order.PaymentStatus == domain.PaymentStatusSuccessful
	status := domain.LogStatusApplied
	if err := order.MarkPaid(); err != nil {
		if !errors.Is(err, domain.ErrOrderTerminal) {
			return err
		}
		status = domain.LogStatusIgnored
	}

	order.AppendIntegrationLog(ec.logEntry(status, compact(map[string]any{
		"amount":        p.Amount,
		"transactionId": p.TransactionID,
	})))
	if err := h.saveOrder(ctx, order); err != nil {
		return err
	}

	if status == domain.LogStatusApplied && !alreadyPaid {
		amount := order.TotalPrice
		if p.Amount != nil {
			amount = *p.Amount
		}
		ec.seller.ApplyMetricsDelta(domain.MetricsDelta{Revenue: amount})
		if err := h.saveSeller(ctx, ec.seller); err != nil {
			return err
		}
	}

	data := orderData(order)
	data["paymentStatus"] = order.PaymentStatus
	if order.Escrow != nil {
		data["escrowStatus"] = order.EscrowStatus
		data["escrowReleaseDate"] = order.Escrow.ReleaseDate
	}
	return h.notify(ctx, ec, ec.event, data)
}

// shipmentUpdated updates tracking and fulfillment, moving the order forward
// when the carrier reports it shipped or delivered.
func (h *eventHandlers) shipmentUpdated(ctx context.Context, ec *eventContext) error {
	var p orderPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}
	order, err := h.findOrder(ctx, ec, p.OrderID)
	if err != nil {
		return err
	}

	status := domain.LogStatusApplied
	if order.Status == domain.OrderStatusCancelled {
		status = domain.LogStatusIgnored
	} else {
		if err := applyTracking(order, p); err != nil {
			return err
		}
		if p.FulfillmentStatus != nil {
			order.FulfillmentStatus = *p.FulfillmentStatus
		}
		switch target := domain.OrderStatus(deref(p.ShipmentStatus)); target {
		case domain.OrderStatusShipped, domain.OrderStatusDelivered:
			if order.CanTransitionTo(target) {
				_ = order.TransitionTo(target)
			}
		}
	}

	order.AppendIntegrationLog(ec.logEntry(status, compact(map[string]any{
		"trackingNumber": p.TrackingNumber,
		"shipmentStatus": p.ShipmentStatus,
	})))
	if err := h.saveOrder(ctx, order); err != nil {
		return err
	}

	data := orderData(order)
	if order.Tracking != nil {
		data["trackingNumber"] = order.Tracking.TrackingNumber
		data["carrier"] = order.Tracking.Carrier
	}
	return h.notify(ctx, ec, ec.event, data)
}

func applyTracking(order *domain.Order, p orderPayload) error {
	if p.Carrier == nil && p.TrackingNumber == nil && p.TrackingURL == nil && p.ShipmentStatus == nil {
		return nil
	}
	return order.UpdateTracking(domain.Tracking{
		Carrier:        deref(p.Carrier),
		TrackingNumber: deref(p.TrackingNumber),
		TrackingURL:    deref(p.TrackingURL),
		Status:         deref(p.ShipmentStatus),
	})
}

// taxTransactionCreated attaches tax details to the referenced order, if any,
// and records the seller's tax configuration for the country.
func (h *eventHandlers) taxTransactionCreated(ctx context.Context, ec *eventContext) error {
	var p taxPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	data := compact(map[string]any{
		"transactionId": p.TransactionID,
		"amount":        p.Amount,
	})

	if ref := deref(p.OrderID); ref != "" {
		order, err := h.orders.FindBySellerAndReference(ctx, ec.seller.SellerID, ref)
		if err != nil {
			return fmt.Errorf("failed to load order %s: %w", ref, err)
		}
		if order != nil {
			order.SetTaxDetails(domain.TaxDetails{
				Provider:      ec.integration.Provider,
				TransactionID: deref(p.TransactionID),
				Amount:        deref(p.Amount),
				Rate:          deref(p.Rate),
				Jurisdiction:  deref(p.Jurisdiction),
			})
			order.AppendIntegrationLog(ec.logEntry(domain.LogStatusApplied, nil))
			if err := h.saveOrder(ctx, order); err != nil {
				return err
			}
			data["orderId"] = order.OrderID
		}
	}

	if country := deref(p.Country); country != "" {
		ec.seller.SetTaxSetting(country, deref(p.Service), deref(p.Rate), deref(p.Nexus))
		if err := h.saveSeller(ctx, ec.seller); err != nil {
			return err
		}
	}
	return h.notify(ctx, ec, ec.event, data)
}

// taxReportCreated replaces the tax setting for the reported country.
func (h *eventHandlers) taxReportCreated(ctx context.Context, ec *eventContext) error {
	var p taxPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	setting := ec.seller.SetTaxSetting(deref(p.Country), deref(p.Service), deref(p.Rate), deref(p.Nexus))
	if err := h.saveSeller(ctx, ec.seller); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, map[string]any{
		"country": setting.Country,
		"service": string(setting.Service),
	})
}
