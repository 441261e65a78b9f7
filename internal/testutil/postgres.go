package testutil

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/nkiryanov/videoroom/internal/db"
)

type PG struct {
	DSN  string
	Pool *pgxpool.Pool

	container *postgres.PostgresContainer
	t         *testing.T
}

// Stop pool and container. Intended to be used with t.Cleanup
func (pg *PG) Terminate() {
	pg.Pool.Close()
	if err := testcontainers.TerminateContainer(pg.container); err != nil {
		pg.t.Logf("failed to terminate pg container: %v", err)
	}
}

// Start postgres container, apply migrations and open connection pool
func StartPostgresContainer(t *testing.T) *PG {
	t.Helper()

	container, err := postgres.Run(context.Background(),
		"postgres:17-alpine",
		postgres.WithDatabase("videoroom-test"),
		postgres.WithUsername("videoroom"),
		postgres.WithPassword("pwd"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "container with pg start failed")

	dsn, err := container.ConnectionString(context.Background(), "sslmode=disable")
	require.NoError(t, err)
	t.Logf("Container with pg started, DSN=%v", dsn)

	pool, err := db.ConnectAndMigrate(context.Background(), dsn)
	require.NoError(t, err, "migrate and connect to test pg failed")

	return &PG{
		DSN:       dsn,
		Pool:      pool,
		container: container,
		t:         t,
	}
}

// Pool or transaction: both can start (nested) transaction
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Run fn in transaction that is always rolled back
// Pass pgx.Tx as db to get savepoint instead of new transaction
func InTx(db beginner, t *testing.T, fn func(tx pgx.Tx)) {
	t.Helper()

	tx, err := db.Begin(context.Background())
	require.NoError(t, err, "begin test transaction failed")

	defer func() {
		err := tx.Rollback(context.Background())
		require.NoError(t, err, "rollback test transaction failed")
	}()

	fn(tx)
}

// Alias for InTx with pool; reads better in top level tests
func WithTx(pool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx)) {
	t.Helper()
	InTx(pool, t, fn)
}
