//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/qapabilities/students-api/internal/config"
	"github.com/qapabilities/students-api/internal/storage"
	"github.com/qapabilities/students-api/internal/storage/storagetest"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("students"),
		tcpostgres.WithUsername("students"),
		tcpostgres.WithPassword("students"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresStorage(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	suite.Run(t, storagetest.New(func(t *testing.T) storage.Storage {
		p, err := New(ctx, config.Postgres{DSN: dsn, MaxConns: 4})
		require.NoError(t, err)
		_, err = p.pool.Exec(ctx, "TRUNCATE students")
		require.NoError(t, err)
		return p
	}))
}
