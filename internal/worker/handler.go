package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/freshmart/grocery-service/internal/domain"
)

type OrderStore interface {
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

type StockReader interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// FulfillmentHandler reacts to order.placed events: it sends the purchaser
// a confirmation, flags products the order has run low, and marks the
// order delivered. It runs outside the commit path, so none of this can
// hold up or roll back an order.
type FulfillmentHandler struct {
	orders            OrderStore
	stock             StockReader
	notifier          Notifier
	opsAddress        string
	lowStockThreshold int
	logger            *slog.Logger
}

func NewFulfillmentHandler(orders OrderStore, stock StockReader, notifier Notifier, opsAddress string, lowStockThreshold int, logger *slog.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		orders:            orders,
		stock:             stock,
		notifier:          notifier,
		opsAddress:        opsAddress,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

func (h *FulfillmentHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		// Poison message: log and drop rather than block the partition.
		h.logger.Error("discarding malformed order placed event", "error", err)
		return nil
	}

	h.logger.Info("processing order placed event", "order_id", event.OrderID, "purchaser_id", event.PurchaserID)

	if err := h.sendConfirmation(ctx, event); err != nil {
		h.logger.Error("failed to send order confirmation", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send order confirmation: %w", err)
	}

	h.flagLowStock(ctx, event)

	if _, err := h.orders.UpdateStatus(ctx, event.OrderID, domain.OrderStatusDelivered); err != nil {
		h.logger.Error("failed to mark order delivered", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("mark order delivered: %w", err)
	}

	h.logger.Info("order fulfilled", "order_id", event.OrderID)
	return nil
}

func (h *FulfillmentHandler) sendConfirmation(ctx context.Context, event domain.OrderPlacedEvent) error {
	subject := "Order Confirmation: " + event.OrderID
	body := fmt.Sprintf("Your order %s with %d items has been placed. Total: %d.%02d.",
		event.OrderID, len(event.Lines), event.TotalCents/100, event.TotalCents%100)

	return h.notifier.Send(ctx, event.PurchaserID+"@example.com", subject, body)
}

// flagLowStock alerts ops when a product the order touched has dropped
// below the restock threshold. Alerts are best-effort.
func (h *FulfillmentHandler) flagLowStock(ctx context.Context, event domain.OrderPlacedEvent) {
	for _, line := range event.Lines {
		product, err := h.stock.GetProduct(ctx, line.ProductID)
		if err != nil {
			h.logger.Error("failed to read stock level", "error", err, "product_id", line.ProductID)
			continue
		}
		if product == nil || product.QuantityOnHand >= h.lowStockThreshold {
			continue
		}

		subject := "Low stock: " + product.Name
		body := fmt.Sprintf("%s is down to %d units after order %s.", product.Name, product.QuantityOnHand, event.OrderID)
		if err := h.notifier.Send(ctx, h.opsAddress, subject, body); err != nil {
			h.logger.Error("failed to send low stock alert", "error", err, "product_id", product.ID)
		}
	}
}
