package checkout

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/dukapoint/storefront/internal/cache"
	"github.com/dukapoint/storefront/internal/fault"
	"github.com/dukapoint/storefront/internal/notify"
	"github.com/dukapoint/storefront/internal/postgres"
	"github.com/dukapoint/storefront/internal/stock"
)

// mockTx records commit/rollback ordering without a database.
type mockTx struct {
	mu         sync.Mutex
	committed  bool
	rolledBack bool
}

func (t *mockTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	return nil
}

func (t *mockTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (postgres.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(postgres.Tx), args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx postgres.Tx, order *Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateOrderLine(ctx context.Context, tx postgres.Tx, line *OrderLine) error {
	args := m.Called(ctx, tx, line)
	return args.Error(0)
}

func (m *MockOrderRepository) ListOrders(ctx context.Context) ([]OrderSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).([]OrderSummary), args.Error(1)
}

func (m *MockOrderRepository) UpdateOrder(ctx context.Context, orderID string, totalAmount int64, userID *int64) error {
	args := m.Called(ctx, orderID, totalAmount, userID)
	return args.Error(0)
}

func (m *MockOrderRepository) DeleteOrder(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type MockStockLedger struct {
	mock.Mock
}

func (m *MockStockLedger) Available(ctx context.Context, productID int64) (*stock.ProductStock, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stock.ProductStock), args.Error(1)
}

func (m *MockStockLedger) TryDecrement(ctx context.Context, tx postgres.Tx, productID int64, amount int) (int64, error) {
	args := m.Called(ctx, tx, productID, amount)
	return args.Get(0).(int64), args.Error(1)
}

// recordingNotifier captures events and whether the transaction had already
// committed when each one was dispatched.
type recordingNotifier struct {
	mu              sync.Mutex
	events          []notify.OrderPlaced
	committedAtSend []bool
	tx              *mockTx
}

func (n *recordingNotifier) Dispatch(event notify.OrderPlaced) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	if n.tx != nil {
		n.tx.mu.Lock()
		n.committedAtSend = append(n.committedAtSend, n.tx.committed)
		n.tx.mu.Unlock()
	}
}

// recordingCache wraps the in-process cache and records invalidations.
type recordingCache struct {
	*cache.MemoryCache
	mu          sync.Mutex
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{MemoryCache: cache.NewMemoryCache()}
}

func (c *recordingCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	c.invalidated = append(c.invalidated, key)
	c.mu.Unlock()
	return c.MemoryCache.Invalidate(ctx, key)
}

func newTestCoordinator(orders OrderRepository, ledger StockLedger, c cache.Cache, notifier notify.Dispatcher) *Coordinator {
	return NewCoordinator(orders, ledger, c, notifier, otel.Tracer("test"), zap.NewNop().Sugar())
}

var testCustomer = Customer{ID: 42, Email: "buyer@example.com"}

const testPhone = "+254712345678"

func TestSubmitOrderSuccess(t *testing.T) {
	orders := new(MockOrderRepository)
	ledger := new(MockStockLedger)
	snapshots := newRecordingCache()
	tx := &mockTx{}
	notifier := &recordingNotifier{tx: tx}
	ctx := context.Background()

	ledger.On("Available", mock.Anything, int64(1)).
		Return(&stock.ProductStock{ID: 1, Name: "Widget", Quantity: 5}, nil)
	orders.On("BeginTx", mock.Anything).Return(tx, nil)
	orders.On("CreateOrder", mock.Anything, tx, mock.AnythingOfType("*checkout.Order")).Return(nil)
	orders.On("CreateOrderLine", mock.Anything, tx, mock.AnythingOfType("*checkout.OrderLine")).Return(nil)
	ledger.On("TryDecrement", mock.Anything, tx, int64(1), 2).Return(int64(1), nil)

	coordinator := newTestCoordinator(orders, ledger, snapshots, notifier)
	receipt, err := coordinator.SubmitOrder(ctx, testCustomer, testPhone,
		[]CartLine{{ProductID: 1, Name: "Widget", Quantity: 2, UnitPrice: 50}})

	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, int64(100), receipt.TotalAmount)
	assert.NotEmpty(t, receipt.OrderID)
	assert.True(t, tx.committed)
	assert.Contains(t, snapshots.invalidated, cache.KeyPublicProducts)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, receipt.OrderID, notifier.events[0].OrderID)
	assert.Equal(t, int64(100), notifier.events[0].TotalAmount)

	orders.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestSubmitOrderNotifiesOnlyAfterCommit(t *testing.T) {
	orders := new(MockOrderRepository)
	ledger := new(MockStockLedger)
	tx := &mockTx{}
	notifier := &recordingNotifier{tx: tx}

	ledger.On("Available", mock.Anything, int64(1)).
		Return(&stock.ProductStock{ID: 1, Name: "Widget", Quantity: 5}, nil)
	orders.On("BeginTx", mock.Anything).Return(tx, nil)
	orders.On("CreateOrder", mock.Anything, tx, mock.Anything).Return(nil)
	orders.On("CreateOrderLine", mock.Anything, tx, mock.Anything).Return(nil)
	ledger.On("TryDecrement", mock.Anything, tx, int64(1), 1).Return(int64(1), nil)

	coordinator := newTestCoordinator(orders, ledger, newRecordingCache(), notifier)
	_, err := coordinator.SubmitOrder(context.Background(), testCustomer, testPhone,
		[]CartLine{{ProductID: 1, Name: "Widget", Quantity: 1, UnitPrice: 50}})

	require.NoError(t, err)
	require.Len(t, notifier.committedAtSend, 1)
	assert.True(t, notifier.committedAtSend[0], "notification fired before the transaction committed")
}

func TestSubmitOrderEmptyCart(t *testing.T) {
	orders := new(MockOrderRepository)
	ledger := new(MockStockLedger)
	notifier := &recordingNotifier{}

	coordinator := newTestCoordinator(orders, ledger, newRecordingCache(), notifier)
	_, err := coordinator.SubmitOrder(context.Background(), testCustomer, testPhone, nil)

	var validation *fault.ValidationError
	require.ErrorAs(t, err, &validation)
	orders.AssertNotCalled(t, "BeginTx", mock.Anything)
	assert.Empty(t, notifier.events)
}

func TestSubmitOrderInvalidPhone(t *testing.T) {
	orders := new(MockOrderRepository)
	ledger := new(MockStockLedger)

	coordinator := newTestCoordinator(orders, ledger, newRecordingCache(), &recordingNotifier{})
	_, err := coordinator.SubmitOrder(context.Background(), testCustomer, "12345",
		[]CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 100}})

	var validation *fault.ValidationError
	require.ErrorAs(t, err, &validation)
	orders.AssertNotCalled(t, "BeginTx", mock.Anything)
	ledger.AssertNotCalled(t, "Available", mock.Anything, mock.Anything)
}

func TestSubmitOrderInsufficientStockAtValidation(t *testing.T) {
	orders := new(MockOrderRepository)
	ledger := new(MockStockLedger)
	snapshots := newRecordingCache()
	notifier := &recordingNotifier{}

	ledger.On("Available", mock.Anything, int64(1)).
		Return(&stock.ProductStock{ID: 1, Name: "Widget", Quantity: 3}, nil)

	coordinator := newTestCoordinator(orders, ledger, snapshots, notifier)
	_, err := coordinator.SubmitOrder(context.Background(), testCustomer, testPhone,
		[]CartLine{{ProductID: 1, Name: "Widget", Quantity: 10, UnitPrice: 100}})

	var insufficient *fault.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Widget", insufficient.Product)
	assert.Equal(t, 3, insufficient.Available)
	assert.Equal(t, "Insufficient stock for Widget: 3 available", err.Error())

	// No persisted side effects on a validation failure.
	orders.AssertNotCalled(t, "BeginTx", mock.Anything)
	assert.Empty(t, snapshots.invalidated)
	assert.Empty(t, notifier.events)
}

func TestSubmitOrderUnknownProduct(t *testing.T) {
	orders := new(MockOrderRepository)
	ledger := new(MockStockLedger)

	ledger.On("Available", mock.Anything, int64(99)).
		Return(nil, &fault.NotFoundError{Entity: "product", ID: "99"})

	coordinator := newTestCoordinator(orders, ledger, newRecordingCache(), &recordingNotifier{})
	_, err := coordinator.SubmitOrder(context.Background(), testCustomer, testPhone,
		[]CartLine{{ProductID: 99, Quantity: 1, UnitPrice: 100}})

	// A cart naming a nonexistent product is a bad request, not a 404.
	var validation *fault.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "Product 99 not found", err.Error())
	assert.Equal(t, http.StatusBadRequest, fault.HTTPStatus(err))
	orders.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestSubmitOrderConcurrentDecrementLoses(t *testing.T) {
	orders := new(MockOrderRepository)
	ledger := new(MockStockLedger)
	snapshots := newRecordingCache()
	tx := &mockTx{}
	notifier := &recordingNotifier{tx: tx}

	// Validation sees enough stock, but by commit time a concurrent order
	// has taken it: the guarded update affects zero rows.
	ledger.On("Available", mock.Anything, int64(1)).
		Return(&stock.ProductStock{ID: 1, Name: "Widget", Quantity: 3}, nil).Once()
	orders.On("BeginTx", mock.Anything).Return(tx, nil)
	orders.On("CreateOrder", mock.Anything, tx, mock.Anything).Return(nil)
	orders.On("CreateOrderLine", mock.Anything, tx, mock.Anything).Return(nil)
	ledger.On("TryDecrement", mock.Anything, tx, int64(1), 3).Return(int64(0), nil)
	ledger.On("Available", mock.Anything, int64(1)).
		Return(&stock.ProductStock{ID: 1, Name: "Widget", Quantity: 2}, nil).Once()

	coordinator := newTestCoordinator(orders, ledger, snapshots, notifier)
	_, err := coordinator.SubmitOrder(context.Background(), testCustomer, testPhone,
		[]CartLine{{ProductID: 1, Name: "Widget", Quantity: 3, UnitPrice: 100}})

	var insufficient *fault.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Available)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	assert.Empty(t, snapshots.invalidated)
	assert.Empty(t, notifier.events)
}

func TestSubmitOrderPersistenceFailureRollsBack(t *testing.T) {
	orders := new(MockOrderRepository)
	ledger := new(MockStockLedger)
	tx := &mockTx{}
	notifier := &recordingNotifier{tx: tx}

	ledger.On("Available", mock.Anything, int64(1)).
		Return(&stock.ProductStock{ID: 1, Name: "Widget", Quantity: 5}, nil)
	orders.On("BeginTx", mock.Anything).Return(tx, nil)
	orders.On("CreateOrder", mock.Anything, tx, mock.Anything).
		Return(assert.AnError)

	coordinator := newTestCoordinator(orders, ledger, newRecordingCache(), notifier)
	_, err := coordinator.SubmitOrder(context.Background(), testCustomer, testPhone,
		[]CartLine{{ProductID: 1, Name: "Widget", Quantity: 1, UnitPrice: 50}})

	var persistence *fault.PersistenceError
	require.ErrorAs(t, err, &persistence)
	// Internal detail stays out of the user-visible message.
	assert.Equal(t, "database error", err.Error())
	assert.True(t, tx.rolledBack)
	assert.Empty(t, notifier.events)
}

// memStore is an in-memory OrderRepository + StockLedger whose transactions
// apply conditional decrements under a store-wide lock, mirroring the
// database's row-locking behavior closely enough to race real goroutines.
type memStore struct {
	mu     sync.Mutex
	stock  map[int64]*stock.ProductStock
	orders map[string]*Order
	lines  []OrderLine
}

func newMemStore() *memStore {
	return &memStore{
		stock:  make(map[int64]*stock.ProductStock),
		orders: make(map[string]*Order),
	}
}

type memTx struct {
	store *memStore
	undo  []func()
	done  bool
}

func (t *memTx) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.undo = nil
	return nil
}

func (t *memTx) Rollback() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}

func (s *memStore) BeginTx(ctx context.Context) (postgres.Tx, error) {
	return &memTx{store: s}, nil
}

func (s *memStore) CreateOrder(ctx context.Context, tx postgres.Tx, order *Order) error {
	t := tx.(*memTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
	t.undo = append(t.undo, func() { delete(s.orders, order.ID) })
	return nil
}

func (s *memStore) CreateOrderLine(ctx context.Context, tx postgres.Tx, line *OrderLine) error {
	t := tx.(*memTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, *line)
	t.undo = append(t.undo, func() { s.lines = s.lines[:len(s.lines)-1] })
	return nil
}

func (s *memStore) ListOrders(ctx context.Context) ([]OrderSummary, error) { return nil, nil }
func (s *memStore) UpdateOrder(ctx context.Context, orderID string, totalAmount int64, userID *int64) error {
	return nil
}
func (s *memStore) DeleteOrder(ctx context.Context, orderID string) error { return nil }

func (s *memStore) Available(ctx context.Context, productID int64) (*stock.ProductStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.stock[productID]
	if !ok {
		return nil, &fault.NotFoundError{Entity: "product", ID: strconv.FormatInt(productID, 10)}
	}
	snapshot := *ps
	return &snapshot, nil
}

func (s *memStore) TryDecrement(ctx context.Context, tx postgres.Tx, productID int64, amount int) (int64, error) {
	t := tx.(*memTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := s.stock[productID]
	if ps == nil || ps.Quantity < amount {
		return 0, nil
	}
	ps.Quantity -= amount
	t.undo = append(t.undo, func() { ps.Quantity += amount })
	return 1, nil
}

func TestSubmitOrderConcurrentNoOversell(t *testing.T) {
	store := newMemStore()
	store.stock[1] = &stock.ProductStock{ID: 1, Name: "Widget", Quantity: 5}

	notifier := &recordingNotifier{}
	coordinator := newTestCoordinator(store, store, newRecordingCache(), notifier)

	// Two concurrent carts each want 3 of the 5 units. Exactly one may win.
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coordinator.SubmitOrder(context.Background(), testCustomer, testPhone,
				[]CartLine{{ProductID: 1, Name: "Widget", Quantity: 3, UnitPrice: 100}})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		failures++
		var insufficient *fault.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)
	assert.Equal(t, 2, store.stock[1].Quantity)
	assert.Len(t, store.orders, 1)
	assert.Len(t, store.lines, 1)
	assert.Len(t, notifier.events, 1)

	// Atomicity: nothing from the failed call persisted, and the winning
	// order's lines sum to exactly what was decremented.
	var decremented int
	for _, line := range store.lines {
		decremented += line.Quantity
	}
	assert.Equal(t, 5-store.stock[1].Quantity, decremented)
}

func TestSubmitOrderManyConcurrentNoOversell(t *testing.T) {
	store := newMemStore()
	store.stock[1] = &stock.ProductStock{ID: 1, Name: "Widget", Quantity: 10}

	coordinator := newTestCoordinator(store, store, newRecordingCache(), &recordingNotifier{})

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coordinator.SubmitOrder(context.Background(), testCustomer, testPhone,
				[]CartLine{{ProductID: 1, Name: "Widget", Quantity: 1, UnitPrice: 100}})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		}
	}

	// Never more successes than stock permits, and no stock stranded by
	// partially rolled-back attempts.
	assert.Equal(t, 10, successes)
	assert.Equal(t, 0, store.stock[1].Quantity)
	assert.Len(t, store.orders, 10)
}
