package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapoint/storefront/internal/fault"
	"github.com/dukapoint/storefront/internal/postgres"
)

// OrderRepository persists orders and their lines. The writes issued through
// a Tx commit or roll back together with the stock decrements.
type OrderRepository interface {
	BeginTx(ctx context.Context) (postgres.Tx, error)
	CreateOrder(ctx context.Context, tx postgres.Tx, order *Order) error
	CreateOrderLine(ctx context.Context, tx postgres.Tx, line *OrderLine) error

	ListOrders(ctx context.Context) ([]OrderSummary, error)
	UpdateOrder(ctx context.Context, orderID string, totalAmount int64, userID *int64) error
	DeleteOrder(ctx context.Context, orderID string) error
}

// OrderSummary is the admin view of an order: the row plus its lines and the
// customer's name.
type OrderSummary struct {
	ID          string             `json:"id"`
	UserID      *int64             `json:"user_id"`
	UserName    *string            `json:"user_name"`
	TotalAmount int64              `json:"total_amount"`
	CreatedAt   time.Time          `json:"created_at"`
	Items       []OrderItemSummary `json:"items"`
}

// OrderItemSummary is one line in the admin view.
type OrderItemSummary struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"price"`
}

// PostgresOrderRepository implements OrderRepository over PostgreSQL.
type PostgresOrderRepository struct {
	db *pgxpool.Pool
}

// NewOrderRepository creates a PostgresOrderRepository.
func NewOrderRepository(db *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) BeginTx(ctx context.Context) (postgres.Tx, error) {
	return postgres.Begin(ctx, r.db)
}

func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, tx postgres.Tx, order *Order) error {
	_, err := postgres.Unwrap(tx).Exec(ctx, `
		INSERT INTO orders (id, user_id, total_amount, created_at)
		VALUES ($1, $2, $3, $4)
	`, order.ID, order.UserID, order.TotalAmount, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepository) CreateOrderLine(ctx context.Context, tx postgres.Tx, line *OrderLine) error {
	_, err := postgres.Unwrap(tx).Exec(ctx, `
		INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
	`, line.OrderID, line.ProductID, line.Quantity, line.UnitPrice)
	if err != nil {
		return fmt.Errorf("failed to create order line: %w", err)
	}
	return nil
}

// ListOrders returns all orders, newest first, with their lines attached.
func (r *PostgresOrderRepository) ListOrders(ctx context.Context) ([]OrderSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, o.user_id, o.total_amount, o.created_at, u.name
		FROM orders o
		LEFT JOIN users u ON o.user_id = u.id
		ORDER BY o.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]OrderSummary, 0)
	index := make(map[string]int)
	for rows.Next() {
		var o OrderSummary
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.CreatedAt, &o.UserName); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Items = []OrderItemSummary{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	itemRows, err := r.db.Query(ctx, `
		SELECT ol.order_id, ol.product_id, ol.quantity, ol.unit_price, p.name
		FROM order_lines ol
		JOIN products p ON ol.product_id = p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list order lines: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID string
			item    OrderItemSummary
		)
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.ProductName); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order lines: %w", err)
	}

	return orders, nil
}

// UpdateOrder is the explicit admin override for a committed order.
func (r *PostgresOrderRepository) UpdateOrder(ctx context.Context, orderID string, totalAmount int64, userID *int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET total_amount = $1, user_id = $2
		WHERE id = $3
	`, totalAmount, userID, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &fault.NotFoundError{Entity: "order", ID: orderID}
	}
	return nil
}

// DeleteOrder removes an order and its lines in one transaction.
func (r *PostgresOrderRepository) DeleteOrder(ctx context.Context, orderID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to delete order lines: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &fault.NotFoundError{Entity: "order", ID: orderID}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}
