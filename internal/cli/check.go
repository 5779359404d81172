package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/FaveroFerreira/pg-migrator/internal/parser"
)

// errCheckFailed is returned when at least one script fails the parser check.
var errCheckFailed = errors.New("one or more migrations failed the check") //nolint:gochecknoglobals // sentinel error

var checkCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "check [migration-dir]",
	Short: "Parse migrations without connecting to a database",
	Long: `Load the migration directory and parse every script with the real
PostgreSQL parser. Reports the statement count of each script, syntax errors,
and statements that cannot run inside the per-script transaction.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := *AppConfig
	if len(args) > 0 {
		cfg.MigrationsDir = args[0]
	}

	catalog, err := newMigrator(&cfg).Catalog()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	out := cmd.OutOrStdout()

	if len(catalog) == 0 {
		fmt.Fprintln(out, "No migration files found.")

		return nil
	}

	reports := parser.Check(catalog)
	data := make([][]string, len(reports))
	failed := 0

	for i, r := range reports {
		result := "ok"
		if r.Err != nil {
			result = r.Err.Error()
			failed++
		}

		data[i] = []string{r.Script.Version, r.Script.Filename, strconv.Itoa(r.Statements), result}
	}

	if err := renderTable([]string{"Version", "File", "Statements", "Result"}, data, out); err != nil {
		return fmt.Errorf("rendering check table: %w", err)
	}

	if failed > 0 {
		errorColor.Fprintf(out, "\n%d of %d migration(s) failed.\n", failed, len(reports)) //nolint:errcheck // terminal output

		return errCheckFailed
	}

	successColor.Fprintf(out, "\nAll %d migration(s) passed.\n", len(reports)) //nolint:errcheck // terminal output

	return nil
}
