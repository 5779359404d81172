package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "plan",
	Short: "Show pending migrations in apply order",
	Long: `Display the scripts the next migrate would apply, in order, without
changing anything. Fails when migrate would refuse to run.`,
	RunE: runPlan,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
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

	if err := p.Err(cfg.IgnoreMissingMigrations); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if len(p.Pending) == 0 {
		successColor.Fprintln(out, "Nothing to apply.") //nolint:errcheck // terminal output

		return nil
	}

	data := make([][]string, len(p.Pending))
	for i, s := range p.Pending {
		data[i] = []string{strconv.Itoa(i + 1), s.Version, s.Description, s.Filename}
	}

	if err := renderTable([]string{"#", "Version", "Description", "File"}, data, out); err != nil {
		return fmt.Errorf("rendering plan table: %w", err)
	}

	infoColor.Fprintf(out, "\n%d migration(s) pending.\n", len(p.Pending)) //nolint:errcheck // terminal output

	return nil
}
