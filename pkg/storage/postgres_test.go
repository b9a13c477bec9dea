package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropSlots(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS bos_slots CASCADE")
	require.NoError(t, err)

	err = db.Close()
	require.NoError(t, err)
}

func setupPostgresStore(t *testing.T) (*PostgresStore, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("bos_test"),
			postgres.WithUsername("bos"),
			postgres.WithPassword("bos"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropSlots(ctx, t, databaseURL)

	store, err := NewPostgresStore(ctx, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropSlots(ctx, t, databaseURL)

		err = store.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return store, ctx
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store, ctx := setupPostgresStore(t)

	err := store.WriteItem(ctx, "bos_data", []byte(`{"flows":[]}`))
	require.NoError(t, err)

	value, err := store.ReadItem(ctx, "bos_data")
	require.NoError(t, err)
	assert.JSONEq(t, `{"flows":[]}`, string(value))
}

func TestPostgresStoreOverwrite(t *testing.T) {
	store, ctx := setupPostgresStore(t)

	require.NoError(t, store.WriteItem(ctx, "bos_data", []byte(`{"version":1}`)))
	require.NoError(t, store.WriteItem(ctx, "bos_data", []byte(`{"version":2}`)))

	value, err := store.ReadItem(ctx, "bos_data")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2}`, string(value))
}

func TestPostgresStoreMissingKey(t *testing.T) {
	store, ctx := setupPostgresStore(t)

	_, err := store.ReadItem(ctx, "never_written")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	err = store.RemoveItem(ctx, "never_written")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestPostgresStoreRemove(t *testing.T) {
	store, ctx := setupPostgresStore(t)

	require.NoError(t, store.WriteItem(ctx, "bos_backups", []byte(`[]`)))
	require.NoError(t, store.RemoveItem(ctx, "bos_backups"))

	_, err := store.ReadItem(ctx, "bos_backups")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestPostgresStoreHealthCheck(t *testing.T) {
	store, ctx := setupPostgresStore(t)

	assert.NoError(t, store.HealthCheck(ctx))
}
