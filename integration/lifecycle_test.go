//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migrator "github.com/FaveroFerreira/pg-migrator"
	"github.com/FaveroFerreira/pg-migrator/internal/migration"
)

const (
	createUsers = "CREATE TABLE users (id SERIAL PRIMARY KEY, name TEXT NOT NULL);"
	createPosts = `CREATE TABLE posts (id SERIAL PRIMARY KEY, user_id INTEGER REFERENCES users(id), title TEXT);
CREATE INDEX posts_user_id_idx ON posts (user_id);`
	addEmail = "ALTER TABLE users ADD COLUMN email TEXT;"
)

func baseScripts() map[string]string {
	return map[string]string{
		"V001__create_users.sql": createUsers,
		"V002__create_posts.sql": createPosts,
	}
}

func TestMigrate_appliesInOrderAndRecordsHistory(t *testing.T) {
	t.Parallel()

	for _, b := range bindings() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			db, pool := b.open(t)
			ctx := context.Background()

			var events []migrator.ProgressEvent

			m := migrator.New(migrationsDir,
				migrator.WithFS(writeScripts(t, baseScripts())),
				migrator.WithProgressCallback(func(e migrator.ProgressEvent) { events = append(events, e) }),
			)

			require.NoError(t, m.Migrate(ctx, db))

			assert.True(t, tableExists(t, pool, "users"))
			assert.True(t, tableExists(t, pool, "posts"))
			assert.True(t, tableExists(t, pool, "posts_user_id_idx"))
			assert.Equal(t, 2, countRows(t, pool, `"__migrations"`))

			var (
				version  string
				sql      string
				checksum string
			)

			err := pool.QueryRow(ctx,
				`SELECT version, sql, checksum FROM "__migrations" ORDER BY applied_at, version LIMIT 1`,
			).Scan(&version, &sql, &checksum)
			require.NoError(t, err)
			assert.Equal(t, "001", version)
			assert.Equal(t, createUsers, sql)
			assert.Equal(t, migration.ComputeChecksum(createUsers), checksum)

			var completed []string

			for _, e := range events {
				if e.Status == migrator.StatusCompleted {
					completed = append(completed, e.Script.Version)
				}
			}

			assert.Equal(t, []string{"001", "002"}, completed)
		})
	}
}

func TestMigrate_secondRunIsNoOp(t *testing.T) {
	t.Parallel()

	for _, b := range bindings() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			db, pool := b.open(t)
			ctx := context.Background()
			m := migrator.New(migrationsDir, migrator.WithFS(writeScripts(t, baseScripts())))

			require.NoError(t, m.Migrate(ctx, db))
			require.NoError(t, m.Migrate(ctx, db))

			assert.Equal(t, 2, countRows(t, pool, `"__migrations"`))

			p, err := m.Plan(ctx, db)
			require.NoError(t, err)
			assert.Len(t, p.Applied, 2)
			assert.Empty(t, p.Pending)
			assert.False(t, p.HasDrift())
		})
	}
}

func TestMigrate_appliesOnlyNewScripts(t *testing.T) {
	t.Parallel()

	for _, b := range bindings() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			db, pool := b.open(t)
			ctx := context.Background()
			files := baseScripts()

			require.NoError(t, migrator.New(migrationsDir, migrator.WithFS(writeScripts(t, files))).Migrate(ctx, db))

			files["V003__add_email.sql"] = addEmail
			require.NoError(t, migrator.New(migrationsDir, migrator.WithFS(writeScripts(t, files))).Migrate(ctx, db))

			assert.Equal(t, 3, countRows(t, pool, `"__migrations"`))

			_, err := pool.Exec(ctx, "INSERT INTO users (name, email) VALUES ('a', 'a@example.com')")
			require.NoError(t, err)
		})
	}
}

func TestMigrate_editedScriptIsRefused(t *testing.T) {
	t.Parallel()

	for _, b := range bindings() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			db, pool := b.open(t)
			ctx := context.Background()

			files := map[string]string{"V001__create_users.sql": createUsers}
			require.NoError(t, migrator.New(migrationsDir, migrator.WithFS(writeScripts(t, files))).Migrate(ctx, db))

			files["V001__create_users.sql"] = createUsers + "\n-- edited"
			files["V002__create_posts.sql"] = createPosts

			err := migrator.New(migrationsDir, migrator.WithFS(writeScripts(t, files))).Migrate(ctx, db)

			require.ErrorIs(t, err, migrator.ErrChecksumMismatch)

			var mismatch *migrator.ChecksumMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, "001", mismatch.Version)

			assert.False(t, tableExists(t, pool, "posts"), "nothing is applied after drift")
			assert.Equal(t, 1, countRows(t, pool, `"__migrations"`))
		})
	}
}

func TestMigrate_removedScript(t *testing.T) {
	t.Parallel()

	for _, b := range bindings() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			db, pool := b.open(t)
			ctx := context.Background()

			require.NoError(t, migrator.New(migrationsDir, migrator.WithFS(writeScripts(t, baseScripts()))).Migrate(ctx, db))

			files := map[string]string{
				"V002__create_posts.sql": createPosts,
				"V003__add_email.sql":    addEmail,
			}

			err := migrator.New(migrationsDir, migrator.WithFS(writeScripts(t, files))).Migrate(ctx, db)
			require.ErrorIs(t, err, migrator.ErrMissingMigration)
			assert.Equal(t, 2, countRows(t, pool, `"__migrations"`))

			err = migrator.New(migrationsDir,
				migrator.WithFS(writeScripts(t, files)),
				migrator.WithIgnoreMissingMigrations(true),
			).Migrate(ctx, db)
			require.NoError(t, err)
			assert.Equal(t, 3, countRows(t, pool, `"__migrations"`))
		})
	}
}

func TestMigrate_failedScriptLeavesNoTrace(t *testing.T) {
	t.Parallel()

	for _, b := range bindings() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			db, pool := b.open(t)
			ctx := context.Background()

			files := map[string]string{
				"V001__create_users.sql": createUsers,
				"V002__half_done.sql":    "CREATE TABLE half (id INT);\nSELECT * FROM does_not_exist;",
				"V003__add_email.sql":    addEmail,
			}

			err := migrator.New(migrationsDir, migrator.WithFS(writeScripts(t, files))).Migrate(ctx, db)

			require.ErrorIs(t, err, migrator.ErrApply)

			var applyErr *migrator.ApplyError
			require.ErrorAs(t, err, &applyErr)
			assert.Equal(t, "002", applyErr.Version)

			assert.True(t, tableExists(t, pool, "users"))
			assert.False(t, tableExists(t, pool, "half"), "failed script is rolled back")
			assert.Equal(t, 1, countRows(t, pool, `"__migrations"`))

			var hasEmail bool

			err = pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'users' AND column_name = 'email')`,
			).Scan(&hasEmail)
			require.NoError(t, err)
			assert.False(t, hasEmail, "scripts after the failure are not applied")
		})
	}
}

func TestMigrate_statementTimeoutAbortsScript(t *testing.T) {
	t.Parallel()

	for _, b := range bindings() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			db, pool := b.open(t)
			ctx := context.Background()

			files := map[string]string{"V001__slow.sql": "SELECT pg_sleep(5);"}

			err := migrator.New(migrationsDir,
				migrator.WithFS(writeScripts(t, files)),
				migrator.WithStatementTimeout(200*time.Millisecond),
			).Migrate(ctx, db)

			require.ErrorIs(t, err, migrator.ErrApply)
			assert.Equal(t, 0, countRows(t, pool, `"__migrations"`))
		})
	}
}

func TestMigrate_schemaQualifiedTable(t *testing.T) {
	t.Parallel()

	for _, b := range bindings() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			db, pool := b.open(t)
			ctx := context.Background()

			_, err := pool.Exec(ctx, "CREATE SCHEMA ops")
			require.NoError(t, err)

			m := migrator.New(migrationsDir,
				migrator.WithFS(writeScripts(t, baseScripts())),
				migrator.WithTable("ops.schema_history"),
			)

			require.NoError(t, m.Migrate(ctx, db))

			assert.True(t, tableExists(t, pool, "ops.schema_history"))
			assert.False(t, tableExists(t, pool, "__migrations"))
			assert.Equal(t, 2, countRows(t, pool, "ops.schema_history"))
		})
	}
}

func TestMigrate_tableNameKeepsCase(t *testing.T) {
	t.Parallel()

	db, pool := bindings()[0].open(t)
	ctx := context.Background()

	m := migrator.New(migrationsDir,
		migrator.WithFS(writeScripts(t, baseScripts())),
		migrator.WithTable("MyHistory"),
	)

	require.NoError(t, m.Migrate(ctx, db))

	assert.True(t, tableExists(t, pool, `"MyHistory"`))
	assert.False(t, tableExists(t, pool, "myhistory"))
}
