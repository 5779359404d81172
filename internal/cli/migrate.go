package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	migrator "github.com/FaveroFerreira/pg-migrator"
	"github.com/FaveroFerreira/pg-migrator/internal/parser"
)

var migrateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "migrate",
	Aliases: []string{"apply"},
	Short:   "Apply pending migrations",
	Long: `Validate the history table against the migration scripts on disk and
apply every pending script in version order. Each script runs in its own
transaction with configurable lock and statement timeouts.`,
	RunE: runMigrate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	addMigrateFlags(migrateCmd)
	rootCmd.AddCommand(migrateCmd)
}

func addMigrateFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("ignore-missing", false, "accept applied migrations whose script was removed")
	cmd.Flags().Duration("lock-timeout", 0, "lock_timeout per script (e.g., 10s, 1m; default unbounded)")
	cmd.Flags().Duration("statement-timeout", 0, "statement_timeout per script (e.g., 30s, 5m; default unbounded)")
	cmd.Flags().Bool("preflight", false, "parse every script with the PostgreSQL parser before connecting")
	cmd.Flags().Bool("advisory-lock", false, "hold a session advisory lock for the duration of the run")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := *AppConfig

	if cmd.Flags().Changed("ignore-missing") {
		cfg.IgnoreMissingMigrations, _ = cmd.Flags().GetBool("ignore-missing")
	}

	if cmd.Flags().Changed("lock-timeout") {
		cfg.LockTimeout, _ = cmd.Flags().GetDuration("lock-timeout")
	}

	if cmd.Flags().Changed("statement-timeout") {
		cfg.StatementTimeout, _ = cmd.Flags().GetDuration("statement-timeout")
	}

	if cmd.Flags().Changed("advisory-lock") {
		cfg.AdvisoryLock, _ = cmd.Flags().GetBool("advisory-lock")
	}

	out := cmd.OutOrStdout()
	progress := &progressPrinter{out: out}
	m := newMigrator(&cfg, migrator.WithProgressCallback(progress.handle))

	if preflight, _ := cmd.Flags().GetBool("preflight"); preflight {
		catalog, err := m.Catalog()
		if err != nil {
			return err
		}

		if err := parser.FirstError(parser.Check(catalog)); err != nil {
			return fmt.Errorf("preflight: %w", err)
		}

		logger.Info("preflight passed", "scripts", len(catalog))
	}

	ctx := commandContext(cmd)

	sess, err := openSession(ctx, &cfg)
	if err != nil {
		return err
	}
	defer sess.close()

	if cfg.AdvisoryLock {
		lock, err := sess.lock(ctx)
		if err != nil {
			return fmt.Errorf("acquiring migration lock: %w", err)
		}
		defer lock.Release(ctx) //nolint:errcheck // best-effort release on return

		logger.Debug("advisory lock acquired")
	}

	if err := m.Migrate(ctx, sess.db); err != nil {
		return err
	}

	successColor.Fprintf(out, "\nMigrate complete: %d applied, %d already applied.\n", //nolint:errcheck // terminal output
		progress.applied, progress.skipped)

	return nil
}

// progressPrinter writes one line per applied script.
type progressPrinter struct {
	out     io.Writer
	applied int
	skipped int
}

func (p *progressPrinter) handle(ev migrator.ProgressEvent) {
	switch ev.Status {
	case migrator.StatusStarting:
		fmt.Fprintf(p.out, "  Applying %s__%s ... ", ev.Script.Version, ev.Script.Description)
	case migrator.StatusCompleted:
		fmt.Fprintf(p.out, "done (%s)\n", ev.Duration.Truncate(time.Millisecond))
		p.applied++
	case migrator.StatusSkipped:
		p.skipped++
	case migrator.StatusFailed:
		errorColor.Fprintln(p.out, "FAILED") //nolint:errcheck // terminal output
		fmt.Fprintf(p.out, "    Error: %v\n", ev.Err)
	}
}
