package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dukapoint/storefront/internal/cache"
	"github.com/dukapoint/storefront/internal/fault"
	"github.com/dukapoint/storefront/internal/notify"
	"github.com/dukapoint/storefront/internal/postgres"
	"github.com/dukapoint/storefront/internal/stock"
)

// StockLedger is the slice of the stock package the coordinator depends on.
type StockLedger interface {
	Available(ctx context.Context, productID int64) (*stock.ProductStock, error)
	TryDecrement(ctx context.Context, tx postgres.Tx, productID int64, amount int) (int64, error)
}

// Coordinator turns a validated cart into a persisted order. It is the only
// component that sees the whole failure surface: validation errors return
// before any write, persistence errors roll back the commit-phase
// transaction, and cache/notification errors after commit are logged only.
type Coordinator struct {
	orders   OrderRepository
	ledger   StockLedger
	cache    cache.Cache
	notifier notify.Dispatcher
	tracer   trace.Tracer
	log      *zap.SugaredLogger

	ordersPlaced   metric.Int64Counter
	ordersRejected metric.Int64Counter
	orderValue     metric.Int64Histogram
}

// NewCoordinator wires the coordinator and registers its instruments.
func NewCoordinator(
	orders OrderRepository,
	ledger StockLedger,
	c cache.Cache,
	notifier notify.Dispatcher,
	tracer trace.Tracer,
	log *zap.SugaredLogger,
) *Coordinator {
	meter := otel.Meter("checkout")
	ordersPlaced, _ := meter.Int64Counter("checkout.orders_placed")
	ordersRejected, _ := meter.Int64Counter("checkout.orders_rejected")
	orderValue, _ := meter.Int64Histogram("checkout.order_value")

	return &Coordinator{
		orders:         orders,
		ledger:         ledger,
		cache:          c,
		notifier:       notifier,
		tracer:         tracer,
		log:            log,
		ordersPlaced:   ordersPlaced,
		ordersRejected: ordersRejected,
		orderValue:     orderValue,
	}
}

// SubmitOrder runs the two-phase checkout.
//
// Validation phase: cart shape, phone format and per-line stock reads, with
// no persisted side effects on any failure.
//
// Commit phase: one transaction inserting the order, its lines, and a
// conditional decrement per line. A decrement that affects zero rows means a
// concurrent submission consumed the stock after validation; the whole
// transaction is aborted. The guard inside the UPDATE, not the earlier read,
// is what makes oversell impossible.
//
// Commit is the point of no return: cache invalidation and the operator
// notification run after it and their failures never unwind the order.
func (c *Coordinator) SubmitOrder(ctx context.Context, customer Customer, phone string, lines []CartLine) (*Receipt, error) {
	ctx, span := c.tracer.Start(ctx, "submit_order")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user_id", customer.ID),
		attribute.Int("cart_lines", len(lines)),
	)

	if err := ValidateLines(lines); err != nil {
		return nil, c.reject(ctx, span, "invalid_cart", err)
	}
	if err := ValidatePhone(phone); err != nil {
		return nil, c.reject(ctx, span, "invalid_phone", err)
	}

	for _, line := range lines {
		available, err := c.ledger.Available(ctx, line.ProductID)
		if err != nil {
			var notFound *fault.NotFoundError
			if errors.As(err, &notFound) {
				// An unknown product in the cart is a bad request, not a
				// missing resource.
				return nil, c.reject(ctx, span, "unknown_product", &fault.ValidationError{
					Reason: fmt.Sprintf("Product %d not found", line.ProductID),
				})
			}
			return nil, c.fail(ctx, span, err)
		}
		if available.Quantity < line.Quantity {
			return nil, c.reject(ctx, span, "insufficient_stock", &fault.InsufficientStockError{
				Product:   available.Name,
				Available: available.Quantity,
			})
		}
	}

	order, orderLines := NewOrder(customer.ID, lines)
	span.SetAttributes(attribute.String("order_id", order.ID))

	tx, err := c.orders.BeginTx(ctx)
	if err != nil {
		return nil, c.fail(ctx, span, err)
	}
	defer tx.Rollback()

	if err := c.orders.CreateOrder(ctx, tx, order); err != nil {
		return nil, c.fail(ctx, span, err)
	}
	for i, line := range lines {
		if err := c.orders.CreateOrderLine(ctx, tx, &orderLines[i]); err != nil {
			return nil, c.fail(ctx, span, err)
		}

		affected, err := c.ledger.TryDecrement(ctx, tx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, c.fail(ctx, span, err)
		}
		if affected == 0 {
			// A concurrent order consumed the stock between validation and
			// the guarded update. Abort and report what is left now.
			_ = tx.Rollback()

			name, remaining := line.Name, 0
			if available, aerr := c.ledger.Available(ctx, line.ProductID); aerr == nil {
				name, remaining = available.Name, available.Quantity
			}
			return nil, c.reject(ctx, span, "insufficient_stock", &fault.InsufficientStockError{
				Product:   name,
				Available: remaining,
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, c.fail(ctx, span, err)
	}

	if err := c.cache.Invalidate(ctx, cache.KeyPublicProducts); err != nil {
		c.log.Warnw("⚠️ Failed to invalidate product cache after checkout",
			"order_id", order.ID, "error", err)
	}

	c.notifier.Dispatch(orderPlacedEvent(order, lines, customer, phone))

	c.ordersPlaced.Add(ctx, 1)
	c.orderValue.Record(ctx, order.TotalAmount)
	c.log.Infow("✅ Checkout successful",
		"order_id", order.ID, "user_id", customer.ID, "total_amount", order.TotalAmount)

	return &Receipt{OrderID: order.ID, TotalAmount: order.TotalAmount}, nil
}

// reject records a business-rule failure and returns it verbatim.
func (c *Coordinator) reject(ctx context.Context, span trace.Span, reason string, err error) error {
	span.RecordError(err)
	c.ordersRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	c.log.Infow("Checkout rejected", "reason", reason, "error", err)
	return err
}

// fail wraps a storage failure; the generic message is what callers see.
func (c *Coordinator) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	c.ordersRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "persistence")))
	c.log.Errorw("❌ Checkout failed", "error", err)
	return &fault.PersistenceError{Err: err}
}

func orderPlacedEvent(order *Order, lines []CartLine, customer Customer, phone string) notify.OrderPlaced {
	summaries := make([]notify.OrderLineSummary, 0, len(lines))
	for _, line := range lines {
		summaries = append(summaries, notify.OrderLineSummary{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return notify.OrderPlaced{
		OrderID:       order.ID,
		CustomerEmail: customer.Email,
		PhoneNumber:   phone,
		TotalAmount:   order.TotalAmount,
		Lines:         summaries,
		PlacedAt:      time.Now(),
	}
}
