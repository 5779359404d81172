package cli

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	migrator "github.com/FaveroFerreira/pg-migrator"
	"github.com/FaveroFerreira/pg-migrator/internal/config"
)

// migrationsFS is the filesystem migration scripts are read from.
var migrationsFS afero.Fs = afero.NewOsFs() //nolint:gochecknoglobals // injectable for tests

// newMigrator builds a Migrator from cfg. Options in extra are applied last.
func newMigrator(cfg *config.Config, extra ...migrator.Option) *migrator.Migrator {
	opts := []migrator.Option{
		migrator.WithFS(migrationsFS),
		migrator.WithTable(cfg.MigrationsTable),
		migrator.WithIgnoreMissingMigrations(cfg.IgnoreMissingMigrations),
		migrator.WithLockTimeout(cfg.LockTimeout),
		migrator.WithStatementTimeout(cfg.StatementTimeout),
		migrator.WithVersionOrder(cfg.Order()),
		migrator.WithLogger(logger),
	}

	return migrator.New(cfg.MigrationsDir, append(opts, extra...)...)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
