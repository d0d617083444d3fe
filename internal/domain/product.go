package domain

// Product represents a read-only catalog record sourced from the upstream API.
// The json tags match the upstream payload and our own API responses.
type Product struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"` // For currency, consider a dedicated decimal type in production for precision
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
}

// CategoryAll is the sentinel category meaning "no category filter".
const CategoryAll = "all"

// FilterCriteria is the user-selected category plus free-text query used to
// derive the visible product subset. It is derived state: recomputed from UI
// input on every change, never persisted.
type FilterCriteria struct {
	Category string `json:"category"`
	Query    string `json:"query"`
}
