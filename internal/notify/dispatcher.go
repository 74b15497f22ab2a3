// Package notify delivers the best-effort operator notification for a
// completed order. Dispatch never blocks the checkout response and its
// failure never affects the committed order.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderLineSummary is one purchased line as shown to the operator.
type OrderLineSummary struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderPlaced is the event emitted after a checkout commits.
type OrderPlaced struct {
	EventID       string             `json:"event_id"`
	OrderID       string             `json:"order_id"`
	CustomerEmail string             `json:"customer_email"`
	PhoneNumber   string             `json:"phone_number"`
	TotalAmount   int64              `json:"total_amount"`
	Lines         []OrderLineSummary `json:"lines"`
	PlacedAt      time.Time          `json:"placed_at"`
}

// Dispatcher is the side channel the coordinator fires after commit.
type Dispatcher interface {
	Dispatch(event OrderPlaced)
}

// WebhookDispatcher POSTs the event to the operator webhook in a background
// goroutine with its own timeout, detached from the request context so a
// client disconnect cannot cancel it.
type WebhookDispatcher struct {
	client  *resty.Client
	url     string
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewWebhookDispatcher builds a dispatcher for the given webhook URL. An
// empty URL disables delivery; events are logged and dropped.
func NewWebhookDispatcher(url string, timeout time.Duration, log *zap.SugaredLogger) *WebhookDispatcher {
	return &WebhookDispatcher{
		client:  resty.New().SetTimeout(timeout),
		url:     url,
		timeout: timeout,
		log:     log,
	}
}

func (d *WebhookDispatcher) Dispatch(event OrderPlaced) {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}

	if d.url == "" {
		d.log.Infow("📣 Order placed (no operator webhook configured)",
			"order_id", event.OrderID, "total_amount", event.TotalAmount)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		resp, err := d.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(event).
			Post(d.url)
		if err != nil {
			d.log.Warnw("⚠️ Failed to deliver order notification",
				"order_id", event.OrderID, "error", err)
			return
		}
		if resp.IsError() {
			d.log.Warnw("⚠️ Operator webhook rejected order notification",
				"order_id", event.OrderID, "status", resp.StatusCode())
			return
		}
		d.log.Infow("📣 Order notification delivered",
			"order_id", event.OrderID, "event_id", event.EventID)
	}()
}

// Summary renders the event the way the operator email used to read.
func (e OrderPlaced) Summary() string {
	return fmt.Sprintf("order %s from %s (%s): %d line(s), total %d",
		e.OrderID, e.CustomerEmail, e.PhoneNumber, len(e.Lines), e.TotalAmount)
}
