package migrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/FaveroFerreira/pg-migrator/database"
	"github.com/FaveroFerreira/pg-migrator/internal/engine"
	"github.com/FaveroFerreira/pg-migrator/internal/history"
	"github.com/FaveroFerreira/pg-migrator/internal/migration"
)

// Migrator applies the scripts of one directory to a database. Its
// configuration is fixed at construction.
type Migrator struct {
	path string
	cfg  config
}

// New creates a Migrator for the scripts in migrationsPath.
func New(migrationsPath string, opts ...Option) *Migrator {
	cfg := config{
		table:   DefaultTable,
		fs:      afero.NewOsFs(),
		logger:  slog.New(slog.DiscardHandler),
		pattern: migration.DefaultPattern,
		order:   OrderLexical,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &Migrator{path: migrationsPath, cfg: cfg}
}

// Catalog reads and parses the migrations directory.
func (m *Migrator) Catalog() (Catalog, error) {
	return migration.Load(m.cfg.fs, m.path,
		migration.WithPattern(m.cfg.pattern),
		migration.WithVersionOrder(m.cfg.order),
		migration.WithLogger(m.cfg.logger),
	)
}

// Migrate brings db up to date: it reads the migrations directory, validates
// the history table against it and applies every pending script in order.
// Running it again with unchanged scripts applies nothing.
func (m *Migrator) Migrate(ctx context.Context, db database.DB) error {
	catalog, err := m.Catalog()
	if err != nil {
		return err
	}

	e, err := m.engine(db)
	if err != nil {
		return err
	}

	m.cfg.logger.Debug("starting migration run", "dir", m.path, "scripts", len(catalog))

	return e.Run(ctx, catalog)
}

// Plan reports which scripts are applied, pending, missing or modified
// without applying anything. The history table is created if needed.
func (m *Migrator) Plan(ctx context.Context, db database.DB) (*Plan, error) {
	catalog, err := m.Catalog()
	if err != nil {
		return nil, err
	}

	e, err := m.engine(db)
	if err != nil {
		return nil, err
	}

	return e.Plan(ctx, catalog)
}

func (m *Migrator) engine(db database.DB) (*engine.Engine, error) {
	store, err := history.New(db, m.cfg.table)
	if err != nil {
		return nil, err
	}

	return engine.New(store,
		engine.WithIgnoreMissing(m.cfg.ignoreMissing),
		engine.WithVersionOrder(m.cfg.order),
		engine.WithLockTimeout(m.cfg.lockTimeout),
		engine.WithStatementTimeout(m.cfg.statementTimeout),
		engine.WithProgressCallback(m.cfg.onProgress),
		engine.WithLogger(m.cfg.logger),
		engine.WithClock(m.cfg.now),
	), nil
}
