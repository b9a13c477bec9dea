package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Registers the postgres driver.
	_ "github.com/lib/pq"
)

// PostgresStore keeps each slot as one row in a key/value table. Writes are
// upserts, so a slot is always replaced as a whole.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore connects and ensures the slot table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db, table: "bos_slots"}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS bos_slots (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create slot table: %w", err)
	}

	return store, nil
}

func (ps *PostgresStore) ReadItem(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := ps.db.QueryRowContext(ctx, "SELECT value FROM bos_slots WHERE key = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", key, err)
	}

	return value, nil
}

func (ps *PostgresStore) WriteItem(ctx context.Context, key string, value []byte) error {
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO bos_slots (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}

	return nil
}

func (ps *PostgresStore) RemoveItem(ctx context.Context, key string) error {
	result, err := ps.db.ExecContext(ctx, "DELETE FROM bos_slots WHERE key = $1", key)
	if err != nil {
		return fmt.Errorf("failed to remove slot %s: %w", key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove slot %s: %w", key, err)
	}

	if affected == 0 {
		return ErrKeyNotFound
	}

	return nil
}

func (ps *PostgresStore) HealthCheck(ctx context.Context) error {
	if err := ps.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (ps *PostgresStore) Close(_ context.Context) error {
	if ps.db == nil {
		return nil
	}

	if err := ps.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}
