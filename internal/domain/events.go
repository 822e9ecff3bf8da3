package domain

import "time"

type OrderPlacedEvent struct {
	OrderID     string      `json:"order_id"`
	PurchaserID string      `json:"purchaser_id"`
	Lines       []OrderLine `json:"lines"`
	TotalCents  int64       `json:"total_cents"`
	Timestamp   time.Time   `json:"timestamp"`
}
