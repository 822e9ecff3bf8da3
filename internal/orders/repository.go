package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/freshmart/grocery-service/internal/checkout"
	"github.com/freshmart/grocery-service/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// InTx runs fn inside a single database transaction and implements
// checkout.Store: the committer's header insert, stock decrements, line
// inserts, and total update all land or none do.
func (r *OrderRepository) InTx(ctx context.Context, fn func(tx checkout.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&orderTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

// orderTx implements checkout.Tx over a live *sql.Tx.
type orderTx struct {
	tx *sql.Tx
}

func (t *orderTx) CreateOrder(ctx context.Context, order *domain.Order) error {
	order.ID = uuid.New().String()

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (id, status, total_cents, purchaser_id, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, order.ID, order.Status, order.TotalCents, order.PurchaserID, order.Address, order.CreatedAt)
	return err
}

func (t *orderTx) DecrementStock(ctx context.Context, productID string, quantity int) (int64, bool, error) {
	var unitPriceCents int64
	err := t.tx.QueryRowContext(ctx, `
		UPDATE products
		SET quantity_on_hand = quantity_on_hand - $2, updated_at = NOW()
		WHERE id = $1 AND quantity_on_hand >= $2
		RETURNING price_cents
	`, productID, quantity).Scan(&unitPriceCents)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}

	return unitPriceCents, true, nil
}

func (t *orderTx) FindProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product := &domain.Product{}

	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, price_cents, quantity_on_hand, category, created_by, created_at
		FROM products
		WHERE id = $1
	`, productID).Scan(&product.ID, &product.Name, &product.PriceCents, &product.QuantityOnHand,
		&product.Category, &product.CreatedBy, &product.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return product, nil
}

func (t *orderTx) AddLine(ctx context.Context, orderID, productID string, quantity int, unitPriceCents int64) (domain.OrderLine, error) {
	line := domain.OrderLine{
		ID:             uuid.New().String(),
		OrderID:        orderID,
		ProductID:      productID,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price_cents)
		VALUES ($1, $2, $3, $4, $5)
	`, line.ID, line.OrderID, line.ProductID, line.Quantity, line.UnitPriceCents)
	if err != nil {
		return domain.OrderLine{}, err
	}

	return line, nil
}

func (t *orderTx) SetOrderTotal(ctx context.Context, orderID string, totalCents int64) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE orders SET total_cents = $2, updated_at = NOW()
		WHERE id = $1
	`, orderID, totalCents)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, status, total_cents, purchaser_id, address, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.Status, &order.TotalCents, &order.PurchaserID, &order.Address, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price_cents
		FROM order_lines
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPriceCents); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// List fetches all orders with their lines, batching the line fetch to
// avoid an N+1 query per order.
func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, total_cents, purchaser_id, address, created_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.Status, &order.TotalCents, &order.PurchaserID, &order.Address, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Lines = []domain.OrderLine{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	lineRows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price_cents
		FROM order_lines
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = lineRows.Close() }()

	for lineRows.Next() {
		var line domain.OrderLine
		if err := lineRows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPriceCents); err != nil {
			return nil, err
		}
		order := orderMap[line.OrderID]
		order.Lines = append(order.Lines, line)
	}

	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}
