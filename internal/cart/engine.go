package cart

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// ErrCartEmpty is returned by Checkout when there is nothing to check out.
var ErrCartEmpty = errors.New("cart: cart is empty")

// ChangeFunc receives the cart snapshot and recomputed totals after every
// mutation. The view layer and metrics subscribe through it.
type ChangeFunc func(cart domain.Cart, totals domain.CartTotals)

// Engine owns the cart state for one session and exposes the cart mutation
// operations. Every mutation is synchronous and is followed by a write-through
// persist, a totals recomputation, and the change signal.
//
// Persistence is best-effort: save failures are logged, never surfaced.
type Engine struct {
	mu        sync.Mutex
	sessionID string
	lines     domain.Cart
	storer    store.CartStorer
	onChange  ChangeFunc
}

// NewEngine constructs the engine for a session, initializing the cart from
// persisted storage. CartStorer implementations fail soft, so the engine
// always starts with a usable (possibly empty) cart.
func NewEngine(ctx context.Context, storer store.CartStorer, sessionID string, onChange ChangeFunc) *Engine {
	lines, err := storer.LoadCart(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warnf("cart: load failed for session %s, starting empty", sessionID)
		lines = domain.Cart{}
	}
	if lines == nil {
		lines = domain.Cart{}
	}
	return &Engine{
		sessionID: sessionID,
		lines:     lines,
		storer:    storer,
		onChange:  onChange,
	}
}

// Add puts the product in the cart: an existing line for the product ID gets
// its quantity incremented by one, otherwise a new line with quantity one is
// appended.
func (e *Engine) Add(ctx context.Context, p domain.Product) (domain.Cart, domain.CartTotals) {
	e.mu.Lock()
	defer e.mu.Unlock()

	found := false
	for i := range e.lines {
		if e.lines[i].ID == p.ID {
			e.lines[i].Qty++
			found = true
			break
		}
	}
	if !found {
		e.lines = append(e.lines, domain.CartLine{Product: p, Qty: 1})
	}
	return e.committedLocked(ctx)
}

// ChangeQty adjusts the quantity of the line matching id by delta (+1 or -1).
// The quantity is clamped at one: decrementing a line at quantity one is a
// no-op in effect, and removal stays explicit. An unknown id is a no-op.
func (e *Engine) ChangeQty(ctx context.Context, id int64, delta int) (domain.Cart, domain.CartTotals) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.lines {
		if e.lines[i].ID == id {
			qty := e.lines[i].Qty + delta
			if qty < 1 {
				qty = 1
			}
			e.lines[i].Qty = qty
			return e.committedLocked(ctx)
		}
	}
	return e.snapshotLocked()
}

// Remove deletes the line matching id regardless of its quantity. An unknown
// id is a no-op.
func (e *Engine) Remove(ctx context.Context, id int64) (domain.Cart, domain.CartTotals) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.lines {
		if e.lines[i].ID == id {
			e.lines = append(e.lines[:i], e.lines[i+1:]...)
			return e.committedLocked(ctx)
		}
	}
	return e.snapshotLocked()
}

// Clear empties the cart and reports whether anything was cleared. An already
// empty cart is a no-op: nothing is persisted and no change is signaled. The
// caller is responsible for the explicit user confirmation step.
func (e *Engine) Clear(ctx context.Context) (bool, domain.Cart, domain.CartTotals) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.lines) == 0 {
		cart, totals := e.snapshotLocked()
		return false, cart, totals
	}
	e.lines = domain.Cart{}
	cart, totals := e.committedLocked(ctx)
	return true, cart, totals
}

// Checkout empties the cart unconditionally, without a confirmation step. It
// fails with ErrCartEmpty, leaving the state unchanged, when the cart is
// empty. This is a demo terminal action: no external payment system is
// contacted.
func (e *Engine) Checkout(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.lines) == 0 {
		return ErrCartEmpty
	}
	e.lines = domain.Cart{}
	e.committedLocked(ctx)
	return nil
}

// Snapshot returns a copy of the current cart and its totals.
func (e *Engine) Snapshot() (domain.Cart, domain.CartTotals) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Totals derives the current aggregates.
func (e *Engine) Totals() domain.CartTotals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lines.Totals()
}

// committedLocked runs the post-mutation contract: persist, recompute totals,
// signal the change. Callers must hold the mutex.
func (e *Engine) committedLocked(ctx context.Context) (domain.Cart, domain.CartTotals) {
	if err := e.storer.SaveCart(ctx, e.sessionID, e.lines); err != nil {
		log.WithError(err).Warnf("cart: write-through save failed for session %s", e.sessionID)
	}
	cart, totals := e.snapshotLocked()
	if e.onChange != nil {
		e.onChange(cart, totals)
	}
	return cart, totals
}

func (e *Engine) snapshotLocked() (domain.Cart, domain.CartTotals) {
	cart := append(domain.Cart{}, e.lines...)
	return cart, cart.Totals()
}
