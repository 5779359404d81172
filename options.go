package migrator

import (
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/FaveroFerreira/pg-migrator/internal/engine"
	"github.com/FaveroFerreira/pg-migrator/internal/history"
	"github.com/FaveroFerreira/pg-migrator/internal/migration"
)

// DefaultTable is the history table name used unless WithTable is given.
const DefaultTable = history.DefaultTable

// Script is a migration loaded from disk.
type Script = migration.Script

// Catalog is the ordered list of scripts found in the migrations directory.
type Catalog = migration.Catalog

// Record is one row of the history table.
type Record = history.Record

// Plan classifies scripts and history records without applying anything.
type Plan = engine.Plan

// ProgressEvent is passed to the WithProgressCallback function.
type ProgressEvent = engine.ProgressEvent

// Progress statuses.
const (
	StatusStarting  = engine.StatusStarting
	StatusCompleted = engine.StatusCompleted
	StatusFailed    = engine.StatusFailed
	StatusSkipped   = engine.StatusSkipped
)

// VersionOrder selects how script versions are compared.
type VersionOrder = migration.Order

// Version orders.
const (
	OrderLexical = migration.OrderLexical
	OrderNumeric = migration.OrderNumeric
)

type config struct {
	table            string
	ignoreMissing    bool
	fs               afero.Fs
	logger           *slog.Logger
	lockTimeout      time.Duration
	statementTimeout time.Duration
	onProgress       func(ProgressEvent)
	pattern          string
	order            VersionOrder
	now              func() time.Time
}

// Option configures a Migrator.
type Option func(*config)

// WithTable sets the history table name. It may be schema-qualified.
// Each dot-separated part is quoted, so the name is case-sensitive:
// "MyHistory" creates "MyHistory", not myhistory. Tools that interpolate the
// name unquoted end up with the lower-cased form; pass "myhistory" to keep
// using a table they created.
func WithTable(name string) Option {
	return func(c *config) { c.table = name }
}

// WithIgnoreMissingMigrations accepts history records whose script has been
// removed from the migrations directory.
func WithIgnoreMissingMigrations(b bool) Option {
	return func(c *config) { c.ignoreMissing = b }
}

// WithFS sets the filesystem the migrations directory is read from.
func WithFS(fs afero.Fs) Option {
	return func(c *config) { c.fs = fs }
}

// WithLogger sets the logger. Nothing is logged by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithLockTimeout sets lock_timeout for every script transaction.
func WithLockTimeout(d time.Duration) Option {
	return func(c *config) { c.lockTimeout = d }
}

// WithStatementTimeout sets statement_timeout for every script transaction.
func WithStatementTimeout(d time.Duration) Option {
	return func(c *config) { c.statementTimeout = d }
}

// WithProgressCallback sets a function called for each script processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(c *config) { c.onProgress = fn }
}

// WithFilenamePattern overrides the script filename pattern. It must have two
// capture groups, version then description.
func WithFilenamePattern(expr string) Option {
	return func(c *config) { c.pattern = expr }
}

// WithVersionOrder selects lexical (default) or numeric version ordering.
func WithVersionOrder(o VersionOrder) Option {
	return func(c *config) { c.order = o }
}

// WithClock overrides the source of applied_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}
