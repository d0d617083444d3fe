package catalog

import (
	"sync"
	"time"

	"storefront-service/internal/domain"
)

// SearchPipeline owns the current filter criteria and the derived filtered
// view. Setting new criteria schedules a debounced recomputation; readers
// always get the last computed view. The view has no identity beyond "current
// visible list" and is never persisted.
type SearchPipeline struct {
	store    *Store
	debounce *Debouncer

	mu       sync.RWMutex
	criteria domain.FilterCriteria
	view     []domain.Product
}

// NewSearchPipeline creates a pipeline over the catalog store with the given
// debounce delay. The initial criteria select the full catalog.
func NewSearchPipeline(store *Store, delay time.Duration) *SearchPipeline {
	return &SearchPipeline{
		store:    store,
		debounce: NewDebouncer(delay),
		criteria: domain.FilterCriteria{Category: domain.CategoryAll},
	}
}

// SetCriteria records the latest criteria and schedules a debounced
// recomputation of the view. Rapid successive calls supersede each other; only
// the criteria current after the quiescence window are applied.
func (p *SearchPipeline) SetCriteria(criteria domain.FilterCriteria) {
	if criteria.Category == "" {
		criteria.Category = domain.CategoryAll
	}
	p.mu.Lock()
	p.criteria = criteria
	p.mu.Unlock()

	p.debounce.Schedule(p.recompute)
}

// Refresh recomputes the view immediately with the current criteria. Called
// after a catalog load so the view reflects the new full set without waiting
// for user input.
func (p *SearchPipeline) Refresh() {
	p.recompute()
}

// View returns the last computed filtered view and the criteria it was
// derived from.
func (p *SearchPipeline) View() ([]domain.Product, domain.FilterCriteria) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.view == nil {
		return []domain.Product{}, p.criteria
	}
	return append([]domain.Product(nil), p.view...), p.criteria
}

// Stop cancels any pending recomputation.
func (p *SearchPipeline) Stop() {
	p.debounce.Stop()
}

func (p *SearchPipeline) recompute() {
	p.mu.RLock()
	criteria := p.criteria
	p.mu.RUnlock()

	view := p.store.ApplyFilter(criteria)

	p.mu.Lock()
	// Discard the result if newer criteria arrived while filtering.
	if p.criteria == criteria {
		p.view = view
	}
	p.mu.Unlock()
}
