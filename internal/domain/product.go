package domain

import "time"

type Category string

const (
	CategoryFrozen    Category = "frozen"
	CategoryBakery    Category = "bakery"
	CategoryBeverages Category = "beverages"
	CategoryDairy     Category = "dairy"
	CategorySnacks    Category = "snacks"
)

var Categories = []Category{
	CategoryFrozen,
	CategoryBakery,
	CategoryBeverages,
	CategoryDairy,
	CategorySnacks,
}

func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	PriceCents     int64     `json:"price_cents"`
	QuantityOnHand int       `json:"quantity_on_hand"`
	Category       Category  `json:"category"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}
