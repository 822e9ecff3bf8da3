package checkout

import (
	"context"
	"fmt"

	"github.com/freshmart/grocery-service/internal/domain"
)

// ProductReader reads the current inventory record for a product.
// Implementations return (nil, nil) when no such product exists.
type ProductReader interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// Verifier performs the advisory stock check for a basket. It never writes:
// admission here only means the order is likely to commit, the
// authoritative check happens again atomically inside the Committer.
type Verifier struct {
	products ProductReader
}

func NewVerifier(products ProductReader) *Verifier {
	return &Verifier{products: products}
}

// Verify checks every basket line against current stock, in basket order,
// and returns a *RejectError for the first line that fails. A nil return
// means every line independently had enough stock at read time.
func (v *Verifier) Verify(ctx context.Context, basket []domain.BasketLine) error {
	if len(basket) == 0 {
		return reject(KindInvalidQuantity, -1, "", "order must contain at least one item")
	}

	for i, line := range basket {
		product, err := v.products.GetProduct(ctx, line.ProductID)
		if err != nil {
			return fmt.Errorf("read product %s: %w", line.ProductID, err)
		}
		if product == nil {
			return reject(KindNotFound, i, line.ProductID, "product %s not found", line.ProductID)
		}

		switch {
		case line.Quantity <= 0:
			return reject(KindInvalidQuantity, i, line.ProductID, "%s quantity should be greater than 0", product.Name)
		case product.QuantityOnHand == 0:
			return reject(KindOutOfStock, i, line.ProductID, "%s is out of stock", product.Name)
		case product.QuantityOnHand < line.Quantity:
			return reject(KindInsufficientStock, i, line.ProductID, "%s does not have enough stock", product.Name)
		}
	}

	return nil
}
