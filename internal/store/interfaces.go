package store

import (
	"context"
	"time"

	"storefront-service/internal/domain"
)

// CartStorer defines the persistence operations for session carts. The cart
// for a session lives in a single named slot that is fully overwritten on
// every save (last write wins).
type CartStorer interface {
	// SaveCart serializes the cart and overwrites the session's slot.
	SaveCart(ctx context.Context, sessionID string, cart domain.Cart) error
	// LoadCart reads the session's slot. It fails soft: a missing slot,
	// malformed content, or any deserialization failure yields an empty cart
	// and a nil error. It must never raise to the caller.
	LoadCart(ctx context.Context, sessionID string) (domain.Cart, error)
	// DeleteStaleCarts removes slots not written within the retention window
	// and reports how many were deleted.
	DeleteStaleCarts(ctx context.Context, olderThan time.Duration) (int64, error)
}
