// Package dbtest provisions a migrated Postgres database for integration
// tests. TEST_DATABASE_URL points at an existing server; otherwise a
// container is started once per test binary.
package dbtest

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/prepwise/prepwise-api/internal/config"
	"github.com/prepwise/prepwise-api/internal/db"
)

var (
	setupOnce sync.Once
	setupURL  string
	setupErr  error
)

// New returns a pool on a migrated database. Integration tests are skipped
// under -short and when no container provider is available.
func New(t *testing.T) *db.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
	}

	setupOnce.Do(func() {
		setupURL, setupErr = prepare(url)
	})
	require.NoError(t, setupErr)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := db.New(ctx, &config.Config{DatabaseURL: setupURL, DBPoolMaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func prepare(url string) (string, error) {
	if url == "" {
		var err error
		if url, err = startContainer(); err != nil {
			return "", err
		}
	}

	m, err := db.NewMigrator(url)
	if err != nil {
		return "", err
	}
	defer m.Close()
	if err := m.Up(0); err != nil {
		return "", err
	}
	return url, nil
}

func startContainer() (string, error) {
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("prepwise_test"),
		postgres.WithUsername("prepwise"),
		postgres.WithPassword("prepwise"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", err
	}
	return container.ConnectionString(ctx, "sslmode=disable")
}
