package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newPostgresTestStore(t *testing.T) *SQLStore {
	t.Helper()
	if testing.Short() || os.Getenv("CHATRELAY_PG_TESTS") == "" {
		t.Skip("set CHATRELAY_PG_TESTS=1 to run PostgreSQL tests (requires Docker)")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("chatrelay"),
		postgres.WithUsername("chatrelay"),
		postgres.WithPassword("chatrelay"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := NewPostgresStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStore(t *testing.T) {
	store := newPostgresTestStore(t)

	t.Run("users", func(t *testing.T) { testUsers(t, store) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, store) })
	t.Run("messages", func(t *testing.T) { testMessages(t, store) })
}
