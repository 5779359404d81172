package migration

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"
)

// DefaultPattern matches V{version}__{description}.sql, e.g. V001__create_users.sql.
const DefaultPattern = `^V(\d+)__(.+)\.sql$`

type loadConfig struct {
	pattern string
	order   Order
	logger  *slog.Logger
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

// WithPattern overrides the filename pattern. The expression must have two
// capture groups: version, then description.
func WithPattern(expr string) LoadOption {
	return func(c *loadConfig) { c.pattern = expr }
}

// WithVersionOrder selects lexical (default) or numeric ordering.
func WithVersionOrder(o Order) LoadOption {
	return func(c *loadConfig) { c.order = o }
}

// WithLogger sets the logger used to report skipped files.
func WithLogger(l *slog.Logger) LoadOption {
	return func(c *loadConfig) { c.logger = l }
}

// Load scans dir (non-recursively) and returns the sorted catalog of
// migration scripts. Entries that do not match the filename pattern are
// skipped.
func Load(fsys afero.Fs, dir string, opts ...LoadOption) (Catalog, error) {
	cfg := loadConfig{
		pattern: DefaultPattern,
		order:   OrderLexical,
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	re, err := compilePattern(cfg.pattern)
	if err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, &IOError{Path: dir, Op: "reading migrations directory", Err: err}
	}

	scripts := make([]Script, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := re.FindStringSubmatch(entry.Name())
		if matches == nil {
			cfg.logger.Debug("skipping non-migration file", "file", entry.Name())
			continue
		}

		path := filepath.Join(dir, entry.Name())

		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, &IOError{Path: path, Op: "reading migration file", Err: err}
		}

		sql := string(data)

		scripts = append(scripts, Script{
			Version:     matches[1],
			Description: matches[2],
			SQL:         sql,
			Checksum:    ComputeChecksum(sql),
			Filename:    entry.Name(),
		})
	}

	sorted, err := Sort(scripts, cfg.order)
	if err != nil {
		return nil, err
	}

	if cfg.order == OrderLexical && mixedWidths(sorted) {
		cfg.logger.Warn("migration versions have different widths; string ordering may not match numeric order",
			"dir", dir)
	}

	cfg.logger.Debug("loaded migrations", "dir", dir, "count", len(sorted))

	return Catalog(sorted), nil
}

func compilePattern(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &ParseError{Input: expr, Err: err}
	}

	if re.NumSubexp() != 2 { //nolint:mnd // version + description
		return nil, &ParseError{
			Input: expr,
			Err:   fmt.Errorf("pattern must have 2 capture groups, has %d", re.NumSubexp()),
		}
	}

	return re, nil
}
