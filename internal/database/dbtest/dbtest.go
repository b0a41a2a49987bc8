// Package dbtest starts a throwaway PostgreSQL for repository integration tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/georgemunganga/printa-pos/internal/database"
)

// Start runs a migrated postgres:16-alpine container and returns a connection to it.
// The test is skipped under -short. Everything is torn down with t.Cleanup.
func Start(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("printa_test"),
		postgres.WithUsername("printa"),
		postgres.WithPassword("printa"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// SeedStore inserts an owner and a store and returns the store id.
func SeedStore(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	ownerID, storeID := uuid.New(), uuid.New()
	_, err := db.Exec(`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, 'x')`,
		ownerID, ownerID.String()+"@example.com")
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO stores (id, owner_id, name) VALUES ($1, $2, 'Test Store')`, storeID, ownerID)
	require.NoError(t, err)
	return storeID
}

// SeedProduct inserts an active product and returns its id.
func SeedProduct(t *testing.T, db *sql.DB, storeID uuid.UUID, name, price string, stock, minStock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`
		INSERT INTO products (id, store_id, name, selling_price, stock_quantity, min_stock_level)
		VALUES ($1, $2, $3, $4, $5, $6)`, id, storeID, name, price, stock, minStock)
	require.NoError(t, err)
	return id
}
