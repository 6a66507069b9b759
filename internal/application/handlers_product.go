package application

import (
	"context"
	"fmt"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

func productData(p *domain.Product) map[string]any {
	return map[string]any{
		"productId":         p.ProductID,
		"externalProductId": p.ExternalProductID,
	}
}

func (ec *eventContext) productEvent() domain.ProductWebhookEvent {
	return domain.ProductWebhookEvent{
		Event:    string(ec.event),
		Provider: ec.integration.Provider,
		Metadata: map[string]any{"integrationId": ec.integration.IntegrationID},
	}
}

func (p productPayload) changes() domain.ProductChanges {
	c := domain.ProductChanges{
		Name:        p.Name,
		Description: p.Description,
		SKU:         p.SKU,
		Price:       p.Price,
		Currency:    p.Currency,
		Quantity:    p.Quantity,
	}
	if p.Status != nil {
		s := domain.ProductStatus(*p.Status)
		c.Status = &s
	}
	return c
}

func (h *eventHandlers) findProduct(ctx context.Context, ec *eventContext, reference string) (*domain.Product, error) {
	product, err := h.products.FindBySellerAndReference(ctx, ec.seller.SellerID, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", reference, err)
	}
	if product == nil {
		ec.logger.Debug("Product not found, skipping", "event", ec.event, "reference", reference)
		return nil, errEntityNotFound
	}
	return product, nil
}

// saveProduct persists the product and refreshes the seller's out-of-stock count.
func (h *eventHandlers) saveProduct(ctx context.Context, ec *eventContext, product *domain.Product) error {
	if err := h.products.Save(ctx, product); err != nil {
		return fmt.Errorf("failed to save product %s: %w", product.ProductID, err)
	}

	count, err := h.products.CountOutOfStock(ctx, ec.seller.SellerID)
	if err != nil {
		return fmt.Errorf("failed to count out-of-stock products: %w", err)
	}
	if count == ec.seller.Metrics.OutOfStock {
		return nil
	}
	ec.seller.SetOutOfStockCount(count)
	return h.saveSeller(ctx, ec.seller)
}

// productCreated handles product created and product imported. A repeated
// delivery updates the product already imported under the same reference.
func (h *eventHandlers) productCreated(ctx context.Context, ec *eventContext) error {
	var p productPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}

	product, err := h.products.FindBySellerAndReference(ctx, ec.seller.SellerID, p.ProductID)
	if err != nil {
		return fmt.Errorf("failed to load product %s: %w", p.ProductID, err)
	}
	if product == nil {
		product, err = domain.NewProduct(ec.seller.SellerID, p.ProductID, ec.integration.Provider,
			deref(p.Name), deref(p.Price), deref(p.Quantity))
		if err != nil {
			return err
		}
	}
	if err := product.Apply(p.changes()); err != nil {
		return err
	}
	if ec.event == domain.EventProductImported {
		product.MarkSynced()
	}
	product.RecordWebhookEvent(ec.productEvent())

	if err := h.saveProduct(ctx, ec, product); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, productData(product))
}

// productUpdated handles product updated and product synced.
func (h *eventHandlers) productUpdated(ctx context.Context, ec *eventContext) error {
	var p productPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}
	product, err := h.findProduct(ctx, ec, p.ProductID)
	if err != nil {
		return err
	}

	if err := product.Apply(p.changes()); err != nil {
		return err
	}
	if ec.event == domain.EventProductSynced {
		product.MarkSynced()
	}
	product.RecordWebhookEvent(ec.productEvent())

	if err := h.saveProduct(ctx, ec, product); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, productData(product))
}

// productDeleted archives the product; products are never removed.
func (h *eventHandlers) productDeleted(ctx context.Context, ec *eventContext) error {
	var p productPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}
	product, err := h.findProduct(ctx, ec, p.ProductID)
	if err != nil {
		return err
	}

	product.Archive()
	product.RecordWebhookEvent(ec.productEvent())

	if err := h.saveProduct(ctx, ec, product); err != nil {
		return err
	}
	return h.notify(ctx, ec, ec.event, productData(product))
}

// inventoryUpdated sets stock for one warehouse, or the total when no warehouse is given.
func (h *eventHandlers) inventoryUpdated(ctx context.Context, ec *eventContext) error {
	var p inventoryPayload
	if err := decodePayload(ec.payload, &p); err != nil {
		return err
	}
	product, err := h.findProduct(ctx, ec, p.ProductID)
	if err != nil {
		return err
	}

	if warehouseID := deref(p.WarehouseID); warehouseID != "" {
		err = product.SetWarehouseStock(warehouseID, p.Quantity)
	} else {
		err = product.Apply(domain.ProductChanges{Quantity: &p.Quantity})
	}
	if err != nil {
		return err
	}
	product.RecordWebhookEvent(ec.productEvent())

	if err := h.saveProduct(ctx, ec, product); err != nil {
		return err
	}

	data := productData(product)
	data["quantity"] = product.Quantity
	data["inventoryStatus"] = string(product.InventoryStatus)
	return h.notify(ctx, ec, ec.event, data)
}
