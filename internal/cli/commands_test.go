package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migrator "github.com/FaveroFerreira/pg-migrator"
	"github.com/FaveroFerreira/pg-migrator/database"
	"github.com/FaveroFerreira/pg-migrator/internal/config"
	"github.com/FaveroFerreira/pg-migrator/internal/dbtest"
	"github.com/FaveroFerreira/pg-migrator/internal/history"
	"github.com/FaveroFerreira/pg-migrator/internal/parser"
)

const memDir = "/migrations"

// withFakes points the commands at an in-memory filesystem and database.
// Tests using it must not run in parallel.
func withFakes(t *testing.T, files map[string]string) (*dbtest.DB, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(memDir, 0o755))

	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(memDir, name), []byte(content), 0o644))
	}

	db := dbtest.New(history.DefaultTable)

	oldFS, oldOpen, oldCfg := migrationsFS, openSession, AppConfig
	t.Cleanup(func() { migrationsFS, openSession, AppConfig = oldFS, oldOpen, oldCfg })

	migrationsFS = fs
	openSession = func(_ context.Context, _ *config.Config) (*session, error) {
		return &session{
			db: db,
			lock: func(context.Context) (*database.LockHandle, error) {
				return &database.LockHandle{}, nil
			},
			close: func() {},
		}, nil
	}

	cfg := config.New()
	cfg.MigrationsDir = memDir
	cfg.DatabaseURL = "postgres://fake"
	AppConfig = cfg

	return db, fs
}

func newTestCmd(t *testing.T, addFlags func(*cobra.Command)) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}

	if addFlags != nil {
		addFlags(cmd)
	}

	cmd.SetOut(buf)
	cmd.SetContext(context.Background())

	return cmd, buf
}

func scripts() map[string]string {
	return map[string]string{
		"V001__create_users.sql": "CREATE TABLE users (id INT);",
		"V002__add_email.sql":    "ALTER TABLE users ADD COLUMN email TEXT;",
	}
}

func TestRunMigrate_appliesAndReports(t *testing.T) { //nolint:paralleltest // writes package globals
	db, _ := withFakes(t, scripts())
	cmd, buf := newTestCmd(t, addMigrateFlags)

	require.NoError(t, runMigrate(cmd, nil))

	assert.Len(t, db.Records(), 2)
	assert.Contains(t, buf.String(), "Applying 001__create_users ... done")
	assert.Contains(t, buf.String(), "Migrate complete: 2 applied, 0 already applied.")
	assert.Empty(t, db.Settings(), "no timeouts unless configured")

	cmd, buf = newTestCmd(t, addMigrateFlags)
	require.NoError(t, runMigrate(cmd, nil))
	assert.Contains(t, buf.String(), "0 applied, 2 already applied")
}

func TestRunMigrate_timeoutFlagsOverrideConfig(t *testing.T) { //nolint:paralleltest // writes package globals
	db, _ := withFakes(t, map[string]string{"V001__one.sql": "SELECT 1;"})
	cmd, _ := newTestCmd(t, addMigrateFlags)

	require.NoError(t, cmd.Flags().Set("lock-timeout", "3s"))
	require.NoError(t, cmd.Flags().Set("statement-timeout", "1m"))

	require.NoError(t, runMigrate(cmd, nil))
	assert.Equal(t, []string{
		"SET LOCAL lock_timeout = '3000ms'",
		"SET LOCAL statement_timeout = '60000ms'",
	}, db.Settings())
	assert.Zero(t, AppConfig.LockTimeout, "flags do not mutate the shared config")
	assert.Zero(t, AppConfig.StatementTimeout)
}

func TestRunMigrate_ignoreMissingFlag(t *testing.T) { //nolint:paralleltest // writes package globals
	db, _ := withFakes(t, scripts())
	db.Seed(history.Record{Version: "000", Description: "legacy", Checksum: "x", AppliedAt: time.Now()})

	cmd, _ := newTestCmd(t, addMigrateFlags)
	err := runMigrate(cmd, nil)
	require.ErrorIs(t, err, migrator.ErrMissingMigration)
	assert.Len(t, db.Records(), 1)

	cmd, _ = newTestCmd(t, addMigrateFlags)
	require.NoError(t, cmd.Flags().Set("ignore-missing", "true"))
	require.NoError(t, runMigrate(cmd, nil))
	assert.Len(t, db.Records(), 3)
}

func TestRunMigrate_failedScriptIsReported(t *testing.T) { //nolint:paralleltest // writes package globals
	db, _ := withFakes(t, scripts())
	db.FailOn("ADD COLUMN", errors.New(`column "email" already exists`))

	cmd, buf := newTestCmd(t, addMigrateFlags)
	err := runMigrate(cmd, nil)

	var applyErr *migrator.ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, "002", applyErr.Version)
	assert.Contains(t, buf.String(), "FAILED")
	assert.Contains(t, buf.String(), `column "email" already exists`)
	assert.Len(t, db.Records(), 1)
}

func TestRunMigrate_preflightBlocksBadScript(t *testing.T) { //nolint:paralleltest // writes package globals
	files := scripts()
	files["V003__typo.sql"] = "CRATE TABLE nope (id INT);"
	db, _ := withFakes(t, files)

	cmd, _ := newTestCmd(t, addMigrateFlags)
	require.NoError(t, cmd.Flags().Set("preflight", "true"))

	err := runMigrate(cmd, nil)
	require.ErrorIs(t, err, parser.ErrInvalidSQL)
	assert.Contains(t, err.Error(), "V003__typo.sql")
	assert.False(t, db.TableCreated(), "preflight runs before connecting")
}

func TestRunMigrate_advisoryLock(t *testing.T) { //nolint:paralleltest // writes package globals
	db, _ := withFakes(t, scripts())

	var locked bool

	open := openSession
	openSession = func(ctx context.Context, cfg *config.Config) (*session, error) {
		s, err := open(ctx, cfg)
		if err != nil {
			return nil, err
		}

		s.lock = func(context.Context) (*database.LockHandle, error) {
			locked = true

			return &database.LockHandle{}, nil
		}

		return s, nil
	}

	cmd, _ := newTestCmd(t, addMigrateFlags)
	require.NoError(t, cmd.Flags().Set("advisory-lock", "true"))

	require.NoError(t, runMigrate(cmd, nil))
	assert.True(t, locked)
	assert.Len(t, db.Records(), 2)
}

func TestRunMigrate_lockNotAcquired(t *testing.T) { //nolint:paralleltest // writes package globals
	db, _ := withFakes(t, scripts())
	AppConfig.AdvisoryLock = true

	open := openSession
	openSession = func(ctx context.Context, cfg *config.Config) (*session, error) {
		s, err := open(ctx, cfg)
		if err != nil {
			return nil, err
		}

		s.lock = func(context.Context) (*database.LockHandle, error) {
			return nil, database.ErrLockNotAcquired
		}

		return s, nil
	}

	cmd, _ := newTestCmd(t, addMigrateFlags)
	err := runMigrate(cmd, nil)
	require.ErrorIs(t, err, database.ErrLockNotAcquired)
	assert.Empty(t, db.Records())
}

func TestRunMigrate_noDatabaseURL_returnsError(t *testing.T) { //nolint:paralleltest // writes package globals
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	AppConfig = config.New()
	cmd, _ := newTestCmd(t, addMigrateFlags)

	err := runMigrate(cmd, nil)
	require.ErrorIs(t, err, errDatabaseURLRequired)
}
