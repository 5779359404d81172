package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/FaveroFerreira/pg-migrator/database"
	"github.com/FaveroFerreira/pg-migrator/internal/config"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New( //nolint:gochecknoglobals // sentinel error
	"database URL is required (set --database-url, MIGRATE_DATABASE_URL, or database_url in config)",
)

// session is an open database together with its advisory lock and cleanup.
type session struct {
	db    database.DB
	lock  func(ctx context.Context) (*database.LockHandle, error)
	close func()
}

// openSession connects according to cfg.Driver. Tests replace it.
var openSession = connect //nolint:gochecknoglobals // injectable for tests

func connect(ctx context.Context, cfg *config.Config) (*session, error) {
	if cfg.DatabaseURL == "" {
		return nil, errDatabaseURLRequired
	}

	logger.Info("connecting to database", "url", config.RedactURL(cfg.DatabaseURL), "driver", cfg.Driver)

	switch cfg.Driver {
	case config.DriverPQ:
		db, err := database.OpenSQL(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}

		return &session{
			db: database.FromSQL(db),
			lock: func(ctx context.Context) (*database.LockHandle, error) {
				return database.TryAcquireSQLLock(ctx, db)
			},
			close: func() { _ = db.Close() },
		}, nil
	default:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}

		return &session{
			db: database.FromPgx(pool),
			lock: func(ctx context.Context) (*database.LockHandle, error) {
				return database.TryAcquireLock(ctx, pool)
			},
			close: pool.Close,
		}, nil
	}
}
