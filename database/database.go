// Package database defines the small database capability the migrator runs
// against, together with bindings for pgx and database/sql.
//
// Both bindings behave identically: every call blocks until the database
// answers or ctx is done. Statements executed without arguments are sent
// through the simple query protocol, so multi-statement migration scripts run
// as a single batch.
package database

import "context"

// Executor runs statements and queries.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// DB is an Executor that can open transactions.
type DB interface {
	Executor
	Begin(ctx context.Context) (Tx, error)
}

// Tx is an open transaction. Rollback after a successful Commit is a no-op.
type Tx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Rows iterates over a query result. Close must be called when done.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}
