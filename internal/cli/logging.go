package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/FaveroFerreira/pg-migrator/internal/config"
)

// setupLogging installs a tint handler on w tagged with a fresh run_id.
// Colour is used only when w is a terminal and noColor is false.
func setupLogging(w io.Writer, level string, noColor bool) error {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return err
	}

	colored := !noColor && isTerminal(w)
	if noColor {
		color.NoColor = true
	}

	logger = newLogger(w, lvl, !colored).With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	return nil
}

func newLogger(w io.Writer, lvl slog.Level, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		NoColor:    noColor,
		TimeFormat: "2006-01-02 15:04:05.000",
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
