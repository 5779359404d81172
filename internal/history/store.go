// Package history reads and writes the table that records applied migrations.
package history

import (
	"context"
	"time"

	"github.com/FaveroFerreira/pg-migrator/database"
)

// Record is one row of the history table.
type Record struct {
	Version     string
	Description string
	SQL         string
	AppliedAt   time.Time
	Checksum    string
}

// Tx is a migration transaction. The script and its record are committed
// together or not at all.
type Tx interface {
	ExecuteScript(ctx context.Context, sql string) error
	Insert(ctx context.Context, r Record) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store manages the history table.
type Store struct {
	db    database.DB
	table string
}

// New creates a Store for the given table, which may be schema-qualified.
func New(db database.DB, table string) (*Store, error) {
	quoted, err := QuoteTable(table)
	if err != nil {
		return nil, err
	}

	return &Store{db: db, table: quoted}, nil
}

// EnsureTable creates the history table if it does not exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	return wrap("creating history table", s.db.Exec(ctx, CreateTableSQL(s.table)))
}

// FetchAll returns every history record in no particular order.
func (s *Store) FetchAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Query(ctx, SelectAllSQL(s.table))
	if err != nil {
		return nil, wrap("querying history", err)
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Version, &r.Description, &r.SQL, &r.AppliedAt, &r.Checksum); err != nil {
			return nil, wrap("scanning history row", err)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap("reading history rows", err)
	}

	return records, nil
}

// Begin opens a migration transaction.
func (s *Store) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, wrap("beginning transaction", err)
	}

	return &storeTx{tx: tx, table: s.table}, nil
}

type storeTx struct {
	tx    database.Tx
	table string
}

// ExecuteScript runs sql without bind arguments so it may hold several
// statements.
func (t *storeTx) ExecuteScript(ctx context.Context, sql string) error {
	return wrap("executing script", t.tx.Exec(ctx, sql))
}

func (t *storeTx) Insert(ctx context.Context, r Record) error {
	err := t.tx.Exec(ctx, InsertSQL(t.table),
		r.Version, r.Description, r.SQL, r.AppliedAt, r.Checksum)

	return wrap("inserting history record", err)
}

func (t *storeTx) Commit(ctx context.Context) error {
	return wrap("committing transaction", t.tx.Commit(ctx))
}

func (t *storeTx) Rollback(ctx context.Context) error {
	return wrap("rolling back transaction", t.tx.Rollback(ctx))
}
