// Package engine reconciles a migration catalog with the history table and
// applies pending scripts.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/FaveroFerreira/pg-migrator/internal/history"
	"github.com/FaveroFerreira/pg-migrator/internal/migration"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// ProgressEvent is emitted for each script processed by Run.
type ProgressEvent struct {
	Script   migration.Script
	Status   string
	Duration time.Duration
	Err      error
}

// Store abstracts the history table for testability. *history.Store
// implements it.
type Store interface {
	EnsureTable(ctx context.Context) error
	FetchAll(ctx context.Context) ([]history.Record, error)
	Begin(ctx context.Context) (history.Tx, error)
}

// Engine validates history against a catalog and applies pending scripts,
// one transaction per script.
type Engine struct {
	store            Store
	ignoreMissing    bool
	lockTimeout      time.Duration
	statementTimeout time.Duration
	onProgress       func(ProgressEvent)
	order            migration.Order
	logger           *slog.Logger
	now              func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithIgnoreMissing accepts history records that have no script.
func WithIgnoreMissing(b bool) Option {
	return func(e *Engine) { e.ignoreMissing = b }
}

// WithLockTimeout sets lock_timeout for each script transaction.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lockTimeout = d }
}

// WithStatementTimeout sets statement_timeout for each script transaction.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Engine) { e.statementTimeout = d }
}

// WithVersionOrder sets how history versions are ordered when reporting
// drift. It should match the order the catalog was loaded with.
func WithVersionOrder(o migration.Order) Option {
	return func(e *Engine) { e.order = o }
}

// WithProgressCallback sets a function called for each script processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Engine) { e.onProgress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the source of applied_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine backed by store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run ensures the history table exists, validates every record against
// catalog, then applies pending scripts in catalog order. It stops at the
// first error.
func (e *Engine) Run(ctx context.Context, catalog migration.Catalog) error {
	plan, err := e.Plan(ctx, catalog)
	if err != nil {
		return err
	}

	if err := plan.Err(e.ignoreMissing); err != nil {
		return err
	}

	for _, r := range plan.Missing {
		e.logger.Warn("ignoring applied migration with no script",
			"version", r.Version, "description", r.Description)
	}

	applied := make(map[string]struct{}, len(plan.Applied))
	for _, p := range plan.Applied {
		applied[p.Script.Version] = struct{}{}
	}

	var count int

	for _, s := range catalog {
		if _, ok := applied[s.Version]; ok {
			e.fireProgress(ProgressEvent{Script: s, Status: StatusSkipped})
			continue
		}

		if err := e.apply(ctx, s); err != nil {
			return err
		}

		count++
	}

	e.logger.Info("migration run complete", "applied", count, "total", len(catalog))

	return nil
}

// apply runs one script and records it in a single transaction.
func (e *Engine) apply(ctx context.Context, s migration.Script) error {
	if sum := migration.ComputeChecksum(s.SQL); sum != s.Checksum {
		return &ChecksumMismatchError{Version: s.Version, Recorded: s.Checksum, Computed: sum}
	}

	e.fireProgress(ProgressEvent{Script: s, Status: StatusStarting})
	e.logger.Debug("applying migration", "version", s.Version, "description", s.Description)

	start := time.Now()
	err := inTransaction(ctx, e.store, func(tx history.Tx) error {
		if err := e.applyTimeouts(ctx, tx); err != nil {
			return err
		}

		if err := tx.ExecuteScript(ctx, s.SQL); err != nil {
			return err
		}

		return tx.Insert(ctx, history.Record{
			Version:     s.Version,
			Description: s.Description,
			SQL:         s.SQL,
			AppliedAt:   e.now(),
			Checksum:    s.Checksum,
		})
	})
	duration := time.Since(start)

	if err != nil {
		e.fireProgress(ProgressEvent{Script: s, Status: StatusFailed, Duration: duration, Err: err})

		return &ApplyError{Version: s.Version, Description: s.Description, Err: err}
	}

	e.fireProgress(ProgressEvent{Script: s, Status: StatusCompleted, Duration: duration})
	e.logger.Info("applied migration", "version", s.Version, "description", s.Description,
		"duration", duration)

	return nil
}

func (e *Engine) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
