package domain

import "math"

// CartLine pairs a product with the quantity the user intends to purchase.
// The Product fields are inlined in JSON so the persisted payload is the flat
// record the renderer consumes directly.
// Invariants: Qty >= 1 always, and at most one CartLine per product ID in a cart.
type CartLine struct {
	Product
	Qty int `json:"qty"`
}

// Cart is the ordered sequence of cart lines. Insertion order equals the order
// in which products were first added.
type Cart []CartLine

// CartTotals are the aggregates derived from a cart. They are recomputed on
// demand and never stored.
type CartTotals struct {
	ItemCount  int     `json:"item_count"`
	GrandTotal float64 `json:"grand_total"`
}

// Totals derives the aggregate totals for the cart. GrandTotal is rounded to
// two decimal places for display.
func (c Cart) Totals() CartTotals {
	var t CartTotals
	for _, line := range c {
		t.ItemCount += line.Qty
		t.GrandTotal += line.Price * float64(line.Qty)
	}
	t.GrandTotal = math.Round(t.GrandTotal*100) / 100
	return t
}
