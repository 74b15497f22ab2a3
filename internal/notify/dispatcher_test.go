package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEvent() OrderPlaced {
	return OrderPlaced{
		OrderID:       "order-123",
		CustomerEmail: "buyer@example.com",
		PhoneNumber:   "+254712345678",
		TotalAmount:   10000,
		Lines: []OrderLineSummary{
			{ProductID: 1, Name: "Widget", Quantity: 2, UnitPrice: 5000},
		},
		PlacedAt: time.Now(),
	}
}

func TestWebhookDispatcherDelivers(t *testing.T) {
	received := make(chan OrderPlaced, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event OrderPlaced
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		received <- event
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewWebhookDispatcher(srv.URL, time.Second, zap.NewNop().Sugar())
	d.Dispatch(testEvent())

	select {
	case event := <-received:
		assert.Equal(t, "order-123", event.OrderID)
		assert.Equal(t, int64(10000), event.TotalAmount)
		assert.NotEmpty(t, event.EventID)
		assert.Len(t, event.Lines, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never delivered")
	}
}

func TestWebhookDispatcherDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	d := NewWebhookDispatcher(srv.URL, 5*time.Second, zap.NewNop().Sugar())

	done := make(chan struct{})
	go func() {
		d.Dispatch(testEvent())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on the webhook round trip")
	}
}

func TestWebhookDispatcherNoURL(t *testing.T) {
	d := NewWebhookDispatcher("", time.Second, zap.NewNop().Sugar())
	// Must be a silent no-op, not a panic or a hang.
	d.Dispatch(testEvent())
}

func TestOrderPlacedSummary(t *testing.T) {
	s := testEvent().Summary()
	assert.Contains(t, s, "order-123")
	assert.Contains(t, s, "buyer@example.com")
	assert.Contains(t, s, "1 line(s)")
}
