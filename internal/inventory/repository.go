package inventory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/freshmart/grocery-service/internal/domain"
)

// AdjustmentPolicy decides what happens when an adjustment would drive
// quantity_on_hand below zero.
type AdjustmentPolicy string

const (
	// PolicyClamp floors the result at zero (the historical behavior).
	PolicyClamp AdjustmentPolicy = "clamp"
	// PolicyReject refuses the adjustment outright.
	PolicyReject AdjustmentPolicy = "reject"
)

var (
	// ErrAdjustmentBelowZero is returned under PolicyReject when applying
	// the delta would leave negative stock.
	ErrAdjustmentBelowZero = errors.New("adjustment would drive stock below zero")
	// ErrProductReferenced is returned when deleting a product that
	// historical order lines still reference.
	ErrProductReferenced = errors.New("product is referenced by existing order lines")
)

const pqForeignKeyViolation = "23503"

type ProductRepository struct {
	db     *sql.DB
	policy AdjustmentPolicy
}

func NewProductRepository(db *sql.DB, policy AdjustmentPolicy) *ProductRepository {
	if policy == "" {
		policy = PolicyClamp
	}
	return &ProductRepository{db: db, policy: policy}
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = uuid.New().String()
	product.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price_cents, quantity_on_hand, category, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, product.ID, product.Name, product.PriceCents, product.QuantityOnHand, product.Category, product.CreatedBy, product.CreatedAt)
	return err
}

func (r *ProductRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product := &domain.Product{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price_cents, quantity_on_hand, category, created_by, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.Name, &product.PriceCents, &product.QuantityOnHand,
		&product.Category, &product.CreatedBy, &product.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return product, nil
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price_cents, quantity_on_hand, category, created_by, created_at
		FROM products
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.PriceCents, &product.QuantityOnHand,
			&product.Category, &product.CreatedBy, &product.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

// Update rewrites the catalog fields of a product. It returns the updated
// row, or nil when no such product exists. Quantity is not touched here:
// stock moves only through DecrementIfAvailable and Adjust.
func (r *ProductRepository) Update(ctx context.Context, id, name string, priceCents int64, category domain.Category) (*domain.Product, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products SET name = $2, price_cents = $3, category = $4, updated_at = NOW()
		WHERE id = $1
	`, id, name, priceCents, category)
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

	return r.GetProduct(ctx, id)
}

// Delete removes a product from the catalog. found reports whether the row
// existed; ErrProductReferenced is returned when order lines still point
// at it, so historical orders are never orphaned.
func (r *ProductRepository) Delete(ctx context.Context, id string) (found bool, err error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqForeignKeyViolation {
			return true, ErrProductReferenced
		}
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// DecrementIfAvailable decrements quantity_on_hand by amount only if at
// least that much is on hand, and reads the unit price in the same
// statement. Postgres row locking serializes concurrent callers on the
// same product, so two callers can never both decrement past zero.
func (r *ProductRepository) DecrementIfAvailable(ctx context.Context, id string, amount int) (unitPriceCents int64, ok bool, err error) {
	return decrementIfAvailable(ctx, r.db, id, amount)
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// decrementIfAvailable is shared with the order commit transaction, which
// must run the same statement against its *sql.Tx.
func decrementIfAvailable(ctx context.Context, q execQuerier, id string, amount int) (int64, bool, error) {
	var unitPriceCents int64
	err := q.QueryRowContext(ctx, `
		UPDATE products
		SET quantity_on_hand = quantity_on_hand - $2, updated_at = NOW()
		WHERE id = $1 AND quantity_on_hand >= $2
		RETURNING price_cents
	`, id, amount).Scan(&unitPriceCents)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}

	return unitPriceCents, true, nil
}

// Adjust applies a restock or manual correction to quantity_on_hand as a
// single atomic update, following the configured below-zero policy. found
// reports whether the product exists.
func (r *ProductRepository) Adjust(ctx context.Context, id string, delta int) (newQuantity int, found bool, err error) {
	if r.policy == PolicyReject {
		err = r.db.QueryRowContext(ctx, `
			UPDATE products
			SET quantity_on_hand = quantity_on_hand + $2, updated_at = NOW()
			WHERE id = $1 AND quantity_on_hand + $2 >= 0
			RETURNING quantity_on_hand
		`, id, delta).Scan(&newQuantity)
		if err == sql.ErrNoRows {
			product, getErr := r.GetProduct(ctx, id)
			if getErr != nil {
				return 0, false, getErr
			}
			if product == nil {
				return 0, false, nil
			}
			return product.QuantityOnHand, true, ErrAdjustmentBelowZero
		}
		if err != nil {
			return 0, false, err
		}
		return newQuantity, true, nil
	}

	err = r.db.QueryRowContext(ctx, `
		UPDATE products
		SET quantity_on_hand = GREATEST(0, quantity_on_hand + $2), updated_at = NOW()
		WHERE id = $1
		RETURNING quantity_on_hand
	`, id, delta).Scan(&newQuantity)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}

	return newQuantity, true, nil
}
