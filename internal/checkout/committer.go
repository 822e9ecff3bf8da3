package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshmart/grocery-service/internal/domain"
)

// Tx is the set of storage steps a single order commit performs. All
// methods run inside one transaction: if the function passed to
// Store.InTx returns an error, none of their effects become visible.
type Tx interface {
	// CreateOrder persists the order header and assigns order.ID.
	CreateOrder(ctx context.Context, order *domain.Order) error
	// DecrementStock atomically decrements quantity_on_hand by quantity if
	// at least that much is on hand, returning the unit price read in the
	// same step. ok is false when the precondition does not hold or the
	// product does not exist.
	DecrementStock(ctx context.Context, productID string, quantity int) (unitPriceCents int64, ok bool, err error)
	// FindProduct reads the current product row, nil when absent.
	FindProduct(ctx context.Context, productID string) (*domain.Product, error)
	// AddLine persists an order line and returns it with its assigned id.
	AddLine(ctx context.Context, orderID, productID string, quantity int, unitPriceCents int64) (domain.OrderLine, error)
	// SetOrderTotal finalizes the header's total.
	SetOrderTotal(ctx context.Context, orderID string, totalCents int64) error
}

// Store provides the transactional scope an order commit runs in.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Committer turns an admitted basket into a priced order. The whole basket
// commits or none of it does: header, lines, and stock decrements are
// applied in a single transaction, so a mid-basket failure is invisible to
// other readers.
type Committer struct {
	store Store
}

func NewCommitter(store Store) *Committer {
	return &Committer{store: store}
}

// Commit places an order for the given basket. Each line's stock is
// decremented through the conditional-decrement primitive, and the line is
// priced with the unit price read in that same atomic step. It is not
// idempotent: calling it twice places two orders.
func (c *Committer) Commit(ctx context.Context, purchaserID, address string, basket []domain.BasketLine) (*domain.Order, error) {
	if len(basket) == 0 {
		return nil, reject(KindInvalidQuantity, -1, "", "order must contain at least one item")
	}
	for i, line := range basket {
		if line.Quantity <= 0 {
			return nil, reject(KindInvalidQuantity, i, line.ProductID, "quantity for product %s should be greater than 0", line.ProductID)
		}
	}

	order := &domain.Order{
		Status:      domain.OrderStatusCreated,
		PurchaserID: purchaserID,
		Address:     address,
		CreatedAt:   time.Now().UTC(),
	}

	err := c.store.InTx(ctx, func(tx Tx) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order header: %w", err)
		}

		var total int64
		for i, line := range basket {
			unitPrice, ok, err := tx.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock for product %s: %w", line.ProductID, err)
			}
			if !ok {
				product, err := tx.FindProduct(ctx, line.ProductID)
				if err != nil {
					return fmt.Errorf("read product %s: %w", line.ProductID, err)
				}
				if product == nil {
					return reject(KindNotFound, i, line.ProductID, "product %s not found", line.ProductID)
				}
				return reject(KindInsufficientStock, i, line.ProductID, "%s does not have enough stock", product.Name)
			}

			stored, err := tx.AddLine(ctx, order.ID, line.ProductID, line.Quantity, unitPrice)
			if err != nil {
				return fmt.Errorf("add line for product %s: %w", line.ProductID, err)
			}
			order.Lines = append(order.Lines, stored)
			total += unitPrice * int64(line.Quantity)
		}

		if err := tx.SetOrderTotal(ctx, order.ID, total); err != nil {
			return fmt.Errorf("finalize order total: %w", err)
		}
		order.TotalCents = total
		return nil
	})
	if err != nil {
		var rej *RejectError
		if errors.As(err, &rej) {
			return nil, rej
		}
		return nil, fmt.Errorf("commit order: %w", err)
	}

	return order, nil
}
