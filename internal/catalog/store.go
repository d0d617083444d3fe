package catalog

import (
	"strings"
	"sync"

	"storefront-service/internal/domain"
)

// Store holds the full product catalog and category list fetched from the
// upstream API. It owns this state explicitly (no ambient globals) so the
// filter logic can be unit tested without a rendering environment.
//
// The loaded flag lets callers distinguish "no results" from "not yet loaded":
// the view layer shows a "no results" message only after at least one load.
type Store struct {
	mu         sync.RWMutex
	products   []domain.Product
	categories []string
	loaded     bool
}

// NewStore creates an empty, not-yet-loaded catalog store.
func NewStore() *Store {
	return &Store{}
}

// Load replaces the full catalog and category list and marks the store loaded.
// Any previously derived view is implicitly reset to the full set.
func (s *Store) Load(products []domain.Product, categories []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append([]domain.Product(nil), products...)
	s.categories = append([]string(nil), categories...)
	s.loaded = true
}

// Loaded reports whether at least one catalog load has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Products returns a copy of the full catalog in its original order.
func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.products...)
}

// Categories returns a copy of the category list.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.categories...)
}

// ProductByID looks up a catalog product by its ID.
func (s *Store) ProductByID(id int64) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// ApplyFilter returns every product satisfying the criteria, preserving
// catalog order. A product matches when its category equals the criteria
// category (or the criteria category is the "all" sentinel) AND the query is a
// case-insensitive substring of its title or description. An empty query
// matches everything. An empty result is valid.
func (s *Store) ApplyFilter(criteria domain.FilterCriteria) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(criteria.Query))
	matched := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if criteria.Category != "" && criteria.Category != domain.CategoryAll && p.Category != criteria.Category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Title), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}
