// Package stock owns per-product available quantity. The only write path is
// TryDecrement, a conditional update that makes "check remaining stock" and
// "spend it" a single atomic statement.
package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapoint/storefront/internal/fault"
	"github.com/dukapoint/storefront/internal/postgres"
)

// ProductStock is the live view of a product's availability.
type ProductStock struct {
	ID       int64
	Name     string
	Quantity int
}

// Ledger reads and decrements product quantities. Reads always hit the
// database directly; cached listings must never feed a decrement decision.
type Ledger struct {
	db *pgxpool.Pool
}

// NewLedger creates a Ledger over the shared pool.
func NewLedger(db *pgxpool.Pool) *Ledger {
	return &Ledger{db: db}
}

// Available returns the current quantity and name for a product.
func (l *Ledger) Available(ctx context.Context, productID int64) (*ProductStock, error) {
	var ps ProductStock
	err := l.db.QueryRow(ctx, `
		SELECT id, name, quantity
		FROM products
		WHERE id = $1
	`, productID).Scan(&ps.ID, &ps.Name, &ps.Quantity)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &fault.NotFoundError{Entity: "product", ID: fmt.Sprint(productID)}
		}
		return nil, fmt.Errorf("failed to read product stock: %w", err)
	}
	return &ps, nil
}

// TryDecrement subtracts amount from the product's quantity only if enough
// stock remains, and reports the number of rows affected. Zero rows means a
// concurrent order consumed the stock first; the caller must abort its
// transaction. The guard and the subtraction are one statement, so no
// read-then-write race is possible regardless of how many writers race.
func (l *Ledger) TryDecrement(ctx context.Context, tx postgres.Tx, productID int64, amount int) (int64, error) {
	tag, err := postgres.Unwrap(tx).Exec(ctx, `
		UPDATE products
		SET quantity = quantity - $1
		WHERE id = $2 AND quantity >= $1
	`, amount, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return tag.RowsAffected(), nil
}
