// Package pgtest connects integration tests to a real Postgres.
package pgtest

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/go-smartorder/internal/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect returns a migrated pool, or skips unless INTEGRATION_TESTS=1
// and POSTGRES_DSN are set. The named tables are truncated before returning.
func Connect(t testing.TB, tables ...string) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if os.Getenv("INTEGRATION_TESTS") != "1" || dsn == "" {
		t.Skip("set INTEGRATION_TESTS=1 and POSTGRES_DSN to run")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := postgres.Migrate(ctx, pool, postgres.SchemaInventory, postgres.SchemaOrders, postgres.SchemaOrderItems); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(tables) > 0 {
		if _, err := pool.Exec(ctx, "TRUNCATE "+strings.Join(tables, ", ")); err != nil {
			t.Fatalf("truncate: %v", err)
		}
	}
	return pool
}
