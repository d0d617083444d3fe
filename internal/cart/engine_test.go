package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
)

// MockCartStorer is a mock implementation of store.CartStorer
type MockCartStorer struct {
	mock.Mock
}

func (m *MockCartStorer) SaveCart(ctx context.Context, sessionID string, cart domain.Cart) error {
	args := m.Called(ctx, sessionID, cart)
	return args.Error(0)
}

func (m *MockCartStorer) LoadCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	args := m.Called(ctx, sessionID)
	var cart domain.Cart
	if arg0 := args.Get(0); arg0 != nil {
		cart = arg0.(domain.Cart)
	}
	return cart, args.Error(1)
}

func (m *MockCartStorer) DeleteStaleCarts(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

var (
	redShirt = domain.Product{ID: 1, Title: "Red Shirt", Category: "clothing", Price: 19.99}
	blueHat  = domain.Product{ID: 2, Title: "Blue Hat", Category: "clothing", Price: 9.5}
)

// newTestEngine builds an engine over a permissive mock storer starting from
// an empty persisted cart.
func newTestEngine(t *testing.T) (*Engine, *MockCartStorer) {
	t.Helper()
	storer := new(MockCartStorer)
	storer.On("LoadCart", mock.Anything, "session-1").Return(domain.Cart{}, nil).Once()
	storer.On("SaveCart", mock.Anything, "session-1", mock.Anything).Return(nil)
	return NewEngine(context.Background(), storer, "session-1", nil), storer
}

func TestEngine_AddSameProductIncrementsSingleLine(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		engine.Add(ctx, redShirt)
	}

	lines, _ := engine.Snapshot()
	require.Len(t, lines, 1, "repeated adds must collapse into one line")
	assert.Equal(t, int64(1), lines[0].ID)
	assert.Equal(t, 5, lines[0].Qty)
}

func TestEngine_AddPreservesInsertionOrder(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.Add(ctx, redShirt)
	engine.Add(ctx, blueHat)
	engine.Add(ctx, redShirt)

	lines, _ := engine.Snapshot()
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].ID, "first-added product stays first")
	assert.Equal(t, int64(2), lines[1].ID)
}

func TestEngine_ChangeQtyDecrementClampsAtOne(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.Add(ctx, redShirt)
	for i := 0; i < 4; i++ {
		engine.ChangeQty(ctx, redShirt.ID, -1)
	}

	lines, _ := engine.Snapshot()
	require.Len(t, lines, 1, "decrementing never removes the line")
	assert.Equal(t, 1, lines[0].Qty, "quantity never drops below 1")
}

func TestEngine_ChangeQtyIncrementAndDecrement(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.Add(ctx, redShirt)
	engine.ChangeQty(ctx, redShirt.ID, 1)
	engine.ChangeQty(ctx, redShirt.ID, 1)
	lines, _ := engine.ChangeQty(ctx, redShirt.ID, -1)

	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Qty)
}

func TestEngine_ChangeQtyUnknownIDIsNoop(t *testing.T) {
	engine, storer := newTestEngine(t)
	ctx := context.Background()

	engine.Add(ctx, redShirt)
	before, _ := engine.Snapshot()
	after, _ := engine.ChangeQty(ctx, 99, 1)

	assert.Equal(t, before, after)
	// One save from the add; the no-op must not persist.
	storer.AssertNumberOfCalls(t, "SaveCart", 1)
}

func TestEngine_RemoveThenAddStartsFresh(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.Add(ctx, redShirt)
	engine.Add(ctx, redShirt)
	engine.Add(ctx, redShirt)
	engine.Remove(ctx, redShirt.ID)
	lines, _ := engine.Add(ctx, redShirt)

	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Qty, "re-adding must not resurrect the old quantity")
}

func TestEngine_RemoveUnknownIDIsNoop(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.Add(ctx, redShirt)
	lines, _ := engine.Remove(ctx, 99)
	require.Len(t, lines, 1)
}

func TestEngine_TotalsMatchFixtureScenario(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.Add(ctx, redShirt)
	engine.Add(ctx, redShirt)
	engine.Add(ctx, blueHat)

	lines, totals := engine.Snapshot()
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Qty)
	assert.Equal(t, 1, lines[1].Qty)
	assert.Equal(t, 3, totals.ItemCount)
	assert.InDelta(t, 49.48, totals.GrandTotal, 0.001) // 19.99*2 + 9.5
}

func TestEngine_TotalsAlwaysDerivedFromLines(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.Add(ctx, redShirt)
	engine.ChangeQty(ctx, redShirt.ID, 1)
	engine.Add(ctx, blueHat)
	engine.Remove(ctx, blueHat.ID)

	lines, totals := engine.Snapshot()
	wantCount := 0
	wantTotal := 0.0
	for _, line := range lines {
		wantCount += line.Qty
		wantTotal += line.Price * float64(line.Qty)
	}
	assert.Equal(t, wantCount, totals.ItemCount)
	assert.InDelta(t, wantTotal, totals.GrandTotal, 0.005)
}

func TestEngine_ClearOnEmptyCartIsNoop(t *testing.T) {
	engine, storer := newTestEngine(t)

	cleared, lines, totals := engine.Clear(context.Background())

	assert.False(t, cleared)
	assert.Empty(t, lines)
	assert.Equal(t, 0, totals.ItemCount)
	storer.AssertNumberOfCalls(t, "SaveCart", 0)
}

func TestEngine_ClearEmptiesCart(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.Add(ctx, redShirt)
	cleared, lines, totals := engine.Clear(ctx)

	assert.True(t, cleared)
	assert.Empty(t, lines)
	assert.Equal(t, 0, totals.ItemCount)
	assert.Equal(t, 0.0, totals.GrandTotal)
}

func TestEngine_CheckoutEmptiesNonEmptyCart(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.Add(ctx, redShirt)
	engine.Add(ctx, blueHat)

	err := engine.Checkout(ctx)
	require.NoError(t, err)

	lines, totals := engine.Snapshot()
	assert.Empty(t, lines)
	assert.Equal(t, 0, totals.ItemCount)
}

func TestEngine_CheckoutOnEmptyCartFailsWithoutStateChange(t *testing.T) {
	engine, storer := newTestEngine(t)

	err := engine.Checkout(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCartEmpty)
	storer.AssertNumberOfCalls(t, "SaveCart", 0)
}

func TestEngine_WriteThroughPersistsEveryMutation(t *testing.T) {
	engine, storer := newTestEngine(t)
	ctx := context.Background()

	engine.Add(ctx, redShirt)              // save 1
	engine.ChangeQty(ctx, redShirt.ID, 1)  // save 2
	engine.Remove(ctx, redShirt.ID)        // save 3
	engine.Add(ctx, blueHat)               // save 4
	require.NoError(t, engine.Checkout(ctx)) // save 5

	storer.AssertNumberOfCalls(t, "SaveCart", 5)
}

func TestEngine_PersistsFullCartSnapshot(t *testing.T) {
	storer := new(MockCartStorer)
	storer.On("LoadCart", mock.Anything, "session-1").Return(domain.Cart{}, nil).Once()
	storer.On("SaveCart", mock.Anything, "session-1", mock.MatchedBy(func(c domain.Cart) bool {
		return len(c) == 1 && c[0].ID == redShirt.ID && c[0].Qty == 1
	})).Return(nil).Once()

	engine := NewEngine(context.Background(), storer, "session-1", nil)
	engine.Add(context.Background(), redShirt)

	storer.AssertExpectations(t)
}

func TestEngine_InitializesFromPersistedCart(t *testing.T) {
	persisted := domain.Cart{{Product: redShirt, Qty: 3}}
	storer := new(MockCartStorer)
	storer.On("LoadCart", mock.Anything, "session-1").Return(persisted, nil).Once()
	storer.On("SaveCart", mock.Anything, "session-1", mock.Anything).Return(nil)

	engine := NewEngine(context.Background(), storer, "session-1", nil)

	lines, totals := engine.Snapshot()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Qty)
	assert.Equal(t, 3, totals.ItemCount)
}

func TestEngine_ChangeSignalFiresAfterEveryMutation(t *testing.T) {
	storer := new(MockCartStorer)
	storer.On("LoadCart", mock.Anything, "session-1").Return(domain.Cart{}, nil).Once()
	storer.On("SaveCart", mock.Anything, "session-1", mock.Anything).Return(nil)

	var signals []domain.CartTotals
	engine := NewEngine(context.Background(), storer, "session-1", func(_ domain.Cart, totals domain.CartTotals) {
		signals = append(signals, totals)
	})

	ctx := context.Background()
	engine.Add(ctx, redShirt)
	engine.Add(ctx, redShirt)
	engine.Remove(ctx, redShirt.ID)

	require.Len(t, signals, 3)
	assert.Equal(t, 1, signals[0].ItemCount)
	assert.Equal(t, 2, signals[1].ItemCount)
	assert.Equal(t, 0, signals[2].ItemCount)
}

func TestEngine_SaveFailureIsNotSurfaced(t *testing.T) {
	storer := new(MockCartStorer)
	storer.On("LoadCart", mock.Anything, "session-1").Return(domain.Cart{}, nil).Once()
	storer.On("SaveCart", mock.Anything, "session-1", mock.Anything).Return(assert.AnError)

	engine := NewEngine(context.Background(), storer, "session-1", nil)
	lines, totals := engine.Add(context.Background(), redShirt)

	// The mutation still takes effect in memory.
	require.Len(t, lines, 1)
	assert.Equal(t, 1, totals.ItemCount)
}
