package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"storefront-service/internal/domain"
)

// PostgresStore implements the CartStorer interface using PostgreSQL. Each
// session cart occupies one row in storefront.carts, the payload being the
// JSON-serialized CartLine array with no version tag: any future format change
// must tolerate or discard old data via the fail-soft load path.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the cart slot table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS storefront;`,
		`CREATE TABLE IF NOT EXISTS storefront.carts (
			session_id TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: EnsureSchema failed: %w", err)
		}
	}
	return nil
}

// SaveCart overwrites the session's slot with the serialized cart.
func (s *PostgresStore) SaveCart(ctx context.Context, sessionID string, cart domain.Cart) error {
	if cart == nil {
		cart = domain.Cart{}
	}
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("store: SaveCart failed to marshal cart: %w", err)
	}

	query := `
		INSERT INTO storefront.carts (session_id, payload, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (session_id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = CURRENT_TIMESTAMP;
	`
	if _, err := s.db.ExecContext(ctx, query, sessionID, string(payload)); err != nil {
		return fmt.Errorf("store: SaveCart failed to execute upsert: %w", err)
	}
	return nil
}

// LoadCart reads the session's slot and deserializes it. Missing slot,
// unreadable row, or malformed payload all recover silently to an empty cart;
// the error return exists only to satisfy CartStorer and is always nil.
func (s *PostgresStore) LoadCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	query := `SELECT payload FROM storefront.carts WHERE session_id = $1;`

	var payload string
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&payload)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.WithError(err).Warnf("store: LoadCart read failed for session %s, substituting empty cart", sessionID)
		}
		return domain.Cart{}, nil
	}

	var cart domain.Cart
	if err := json.Unmarshal([]byte(payload), &cart); err != nil {
		log.WithError(err).Warnf("store: LoadCart discarding malformed cart payload for session %s", sessionID)
		return domain.Cart{}, nil
	}
	// A payload violating the cart invariants counts as corrupt.
	for _, line := range cart {
		if line.Qty < 1 {
			log.Warnf("store: LoadCart discarding cart with invalid quantity for session %s", sessionID)
			return domain.Cart{}, nil
		}
	}
	if cart == nil {
		cart = domain.Cart{}
	}
	return cart, nil
}

// DeleteStaleCarts removes slots not written within the retention window.
func (s *PostgresStore) DeleteStaleCarts(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM storefront.carts WHERE updated_at < $1;`

	result, err := s.db.ExecContext(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("store: DeleteStaleCarts failed to execute delete: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: DeleteStaleCarts failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	log.Info("store: closing database connection pool")
	if err := s.db.Close(); err != nil {
		log.WithError(err).Error("store: failed to close database connection pool")
		return err
	}
	return nil
}
