package domain

import "time"

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusDelivered OrderStatus = "delivered"
)

// BasketLine is one requested (product, quantity) pair of an incoming order.
type BasketLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderLine records what was actually charged: UnitPriceCents is the
// product's price at the instant the stock was decremented, and is never
// recomputed afterwards.
type OrderLine struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Order struct {
	ID          string      `json:"id"`
	Status      OrderStatus `json:"status"`
	TotalCents  int64       `json:"total_cents"`
	PurchaserID string      `json:"purchaser_id"`
	Address     string      `json:"address"`
	Lines       []OrderLine `json:"lines"`
	CreatedAt   time.Time   `json:"created_at"`
}
