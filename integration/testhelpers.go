//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/FaveroFerreira/pg-migrator/database"
)

const (
	postgresImage = "postgres:16-alpine"
	testDB        = "migrate_test"
	testUser      = "migrate"
	testPassword  = "migrate"
	migrationsDir = "/migrations"
)

// SetupPostgresDSN starts a PostgreSQL 16 container and returns its connection
// string. The container is terminated when the test completes.
func SetupPostgresDSN(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDB,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return "postgres://" + testUser + ":" + testPassword + "@" + host + ":" + port.Port() + "/" + testDB + "?sslmode=disable"
}

// SetupPostgres starts a container and returns a pgx pool connected to it.
func SetupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := database.NewPool(context.Background(), SetupPostgresDSN(t))
	require.NoError(t, err)

	t.Cleanup(pool.Close)

	return pool
}

// binding is a way of handing a fresh database to the migrator.
type binding struct {
	name string
	open func(t *testing.T) (database.DB, *pgxpool.Pool)
}

// bindings returns one entry per supported driver. Each also returns a pgx
// pool on the same database for assertions.
func bindings() []binding {
	return []binding{
		{
			name: "pgx",
			open: func(t *testing.T) (database.DB, *pgxpool.Pool) {
				t.Helper()

				pool := SetupPostgres(t)

				return database.FromPgx(pool), pool
			},
		},
		{
			name: "database/sql",
			open: func(t *testing.T) (database.DB, *pgxpool.Pool) {
				t.Helper()

				ctx := context.Background()
				dsn := SetupPostgresDSN(t)

				db, err := database.OpenSQL(ctx, dsn)
				require.NoError(t, err)

				t.Cleanup(func() { _ = db.Close() })

				pool, err := database.NewPool(ctx, dsn)
				require.NoError(t, err)

				t.Cleanup(pool.Close)

				return database.FromSQL(db), pool
			},
		},
	}
}

// writeScripts creates an in-memory migrations directory holding files.
func writeScripts(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(migrationsDir, 0o755))

	for name, sql := range files {
		require.NoError(t, afero.WriteFile(fs, migrationsDir+"/"+name, []byte(sql), 0o644))
	}

	return fs
}

// tableExists reports whether the named relation is visible.
func tableExists(t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()

	var exists bool

	err := pool.QueryRow(context.Background(), "SELECT to_regclass($1) IS NOT NULL", name).Scan(&exists)
	require.NoError(t, err)

	return exists
}

// countRows returns the number of rows in table.
func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()

	var n int

	require.NoError(t, pool.QueryRow(context.Background(), "SELECT count(*) FROM "+table).Scan(&n))

	return n
}
