package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	migrator "github.com/FaveroFerreira/pg-migrator"
)

// errDriftDetected is returned by status when history and scripts disagree.
var errDriftDetected = errors.New("migration drift detected") //nolint:gochecknoglobals // sentinel error

// Script states shown by status.
const (
	stateApplied  = "applied"
	statePending  = "pending"
	stateModified = "modified"
	stateMissing  = "missing"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show migration status",
	Long: `Display every known version with its state: applied, pending, modified
(the script changed after it was applied) or missing (applied but the script
is gone). Exits non-zero when modified or missing versions exist.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(statusCmd)
}

type statusRow struct {
	version     string
	description string
	state       string
	appliedAt   time.Time
	checksum    string
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	ctx := commandContext(cmd)

	sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.close()

	p, err := newMigrator(cfg).Plan(ctx, sess.db)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rows := statusRows(p)

	if len(rows) == 0 {
		fmt.Fprintln(out, "No migrations found.")

		return nil
	}

	data := make([][]string, len(rows))
	for i, r := range rows {
		at := ""
		if !r.appliedAt.IsZero() {
			at = r.appliedAt.Local().Format(time.DateTime)
		}

		data[i] = []string{r.version, r.description, r.state, at, shortChecksum(r.checksum)}
	}

	if err := renderTable([]string{"Version", "Description", "State", "Applied At", "Checksum"}, data, out); err != nil {
		return fmt.Errorf("rendering status table: %w", err)
	}

	fmt.Fprintf(out, "\n%d applied, %d pending, %d modified, %d missing\n",
		len(p.Applied), len(p.Pending), len(p.Mismatched), len(p.Missing))

	if err := p.Err(cfg.IgnoreMissingMigrations); err != nil {
		warnColor.Fprintln(out, "Drift detected: migrate will refuse to run.") //nolint:errcheck // terminal output

		return fmt.Errorf("%w: %w", errDriftDetected, err)
	}

	if len(p.Pending) == 0 {
		successColor.Fprintln(out, "Database is up to date.") //nolint:errcheck // terminal output
	}

	return nil
}

// statusRows merges every classification of p into one list ordered by version.
func statusRows(p *migrator.Plan) []statusRow {
	rows := make([]statusRow, 0, len(p.Applied)+len(p.Pending)+len(p.Mismatched)+len(p.Missing))

	for _, a := range p.Applied {
		rows = append(rows, statusRow{a.Script.Version, a.Script.Description, stateApplied, a.Record.AppliedAt, a.Record.Checksum})
	}

	for _, s := range p.Pending {
		rows = append(rows, statusRow{s.Version, s.Description, statePending, time.Time{}, s.Checksum})
	}

	for _, m := range p.Mismatched {
		rows = append(rows, statusRow{m.Script.Version, m.Script.Description, stateModified, m.Record.AppliedAt, m.Record.Checksum})
	}

	for _, r := range p.Missing {
		rows = append(rows, statusRow{r.Version, r.Description, stateMissing, r.AppliedAt, r.Checksum})
	}

	slices.SortStableFunc(rows, func(a, b statusRow) int {
		return strings.Compare(a.version, b.version)
	})

	return rows
}
