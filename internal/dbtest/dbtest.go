// Package dbtest provides an in-memory database.DB that understands the
// history table statements and records everything else as executed scripts.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/FaveroFerreira/pg-migrator/database"
	"github.com/FaveroFerreira/pg-migrator/internal/history"
)

// ErrUndefinedTable mimics PostgreSQL querying a table that was never created.
var ErrUndefinedTable = errors.New("relation does not exist")

// ErrUniqueViolation mimics a primary-key conflict on the history table.
var ErrUniqueViolation = errors.New("duplicate key value violates unique constraint")

// DB is an in-memory database.DB. It is safe for concurrent use.
type DB struct {
	mu sync.Mutex

	create string
	query  string
	insert string

	created   bool
	records   []history.Record
	scripts   []string
	settings  []string
	begins    int
	commits   int
	rollbacks int

	failOn     map[string]error
	failBegin  error
	failCommit error
}

var _ database.DB = (*DB)(nil)

// New returns an empty DB that treats table as the history table.
func New(table string) *DB {
	quoted, err := history.QuoteTable(table)
	if err != nil {
		panic(err)
	}

	return &DB{
		create: history.CreateTableSQL(quoted),
		query:  history.SelectAllSQL(quoted),
		insert: history.InsertSQL(quoted),
		failOn: make(map[string]error),
	}
}

// Seed creates the history table and stores records as if they were applied.
func (d *DB) Seed(records ...history.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.created = true
	d.records = append(d.records, records...)
}

// FailOn makes any statement containing substr return err.
func (d *DB) FailOn(substr string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.failOn[substr] = err
}

// FailBegin makes Begin return err.
func (d *DB) FailBegin(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.failBegin = err
}

// FailCommit makes Commit return err.
func (d *DB) FailCommit(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.failCommit = err
}

// TableCreated reports whether the history table exists.
func (d *DB) TableCreated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.created
}

// Records returns the committed history records in insertion order.
func (d *DB) Records() []history.Record {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.records)
}

// Scripts returns the committed non-history statements in execution order.
func (d *DB) Scripts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.scripts)
}

// Settings returns the committed SET LOCAL statements.
func (d *DB) Settings() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.settings)
}

// Counts returns how many transactions were begun, committed and rolled back.
func (d *DB) Counts() (begins, commits, rollbacks int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.begins, d.commits, d.rollbacks
}

func (d *DB) injected(sql string) error {
	for substr, err := range d.failOn {
		if strings.Contains(sql, substr) {
			return err
		}
	}

	return nil
}

// Exec runs sql outside a transaction.
func (d *DB) Exec(ctx context.Context, sql string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.injected(sql); err != nil {
		return err
	}

	switch {
	case sql == d.create:
		d.created = true
	case sql == d.insert:
		r, err := recordFromArgs(args)
		if err != nil {
			return err
		}

		if err := d.checkInsertLocked(r, nil); err != nil {
			return err
		}

		d.records = append(d.records, r)
	case strings.HasPrefix(sql, "SET LOCAL"):
		// outside a transaction SET LOCAL only warns
	default:
		d.scripts = append(d.scripts, sql)
	}

	return nil
}

// Query answers the history select; any other query is rejected.
func (d *DB) Query(ctx context.Context, sql string, _ ...any) (database.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.injected(sql); err != nil {
		return nil, err
	}

	if sql != d.query {
		return nil, fmt.Errorf("dbtest: unsupported query %q", sql)
	}

	if !d.created {
		return nil, ErrUndefinedTable
	}

	return &rows{records: slices.Clone(d.records), pos: -1}, nil
}

// Begin opens a transaction that buffers its effects until Commit.
func (d *DB) Begin(ctx context.Context) (database.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failBegin != nil {
		return nil, d.failBegin
	}

	d.begins++

	return &tx{db: d}, nil
}

func (d *DB) checkInsertLocked(r history.Record, pending []history.Record) error {
	if !d.created {
		return ErrUndefinedTable
	}

	for _, existing := range slices.Concat(d.records, pending) {
		if existing.Version == r.Version {
			return fmt.Errorf("%w: version %s", ErrUniqueViolation, r.Version)
		}
	}

	return nil
}

type tx struct {
	db       *DB
	done     bool
	failed   error
	records  []history.Record
	scripts  []string
	settings []string
}

func (t *tx) Exec(ctx context.Context, sql string, args ...any) error {
	if err := t.usable(ctx); err != nil {
		return err
	}

	d := t.db

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.injected(sql); err != nil {
		t.failed = err

		return err
	}

	switch {
	case sql == d.insert:
		r, err := recordFromArgs(args)
		if err != nil {
			t.failed = err

			return err
		}

		if err := d.checkInsertLocked(r, t.records); err != nil {
			t.failed = err

			return err
		}

		t.records = append(t.records, r)
	case strings.HasPrefix(sql, "SET LOCAL"):
		t.settings = append(t.settings, sql)
	default:
		t.scripts = append(t.scripts, sql)
	}

	return nil
}

func (t *tx) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	if err := t.usable(ctx); err != nil {
		return nil, err
	}

	return t.db.Query(ctx, sql, args...)
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("dbtest: transaction already closed")
	}

	d := t.db

	d.mu.Lock()
	defer d.mu.Unlock()

	t.done = true

	if err := ctx.Err(); err != nil {
		d.rollbacks++

		return err
	}

	if t.failed != nil {
		d.rollbacks++

		return fmt.Errorf("dbtest: transaction is aborted: %w", t.failed)
	}

	if d.failCommit != nil {
		d.rollbacks++

		return d.failCommit
	}

	d.records = append(d.records, t.records...)
	d.scripts = append(d.scripts, t.scripts...)
	d.settings = append(d.settings, t.settings...)
	d.commits++

	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}

	t.done = true

	t.db.mu.Lock()
	t.db.rollbacks++
	t.db.mu.Unlock()

	return nil
}

func (t *tx) usable(ctx context.Context) error {
	if t.done {
		return errors.New("dbtest: transaction already closed")
	}

	if t.failed != nil {
		return fmt.Errorf("dbtest: transaction is aborted: %w", t.failed)
	}

	return ctx.Err()
}

func recordFromArgs(args []any) (history.Record, error) {
	if len(args) != 5 { //nolint:mnd // column count of the history table
		return history.Record{}, fmt.Errorf("dbtest: insert expects 5 arguments, got %d", len(args))
	}

	var (
		r  history.Record
		ok [5]bool
	)

	r.Version, ok[0] = args[0].(string)
	r.Description, ok[1] = args[1].(string)
	r.SQL, ok[2] = args[2].(string)
	r.AppliedAt, ok[3] = args[3].(time.Time)
	r.Checksum, ok[4] = args[4].(string)

	for i, good := range ok {
		if !good {
			return history.Record{}, fmt.Errorf("dbtest: insert argument %d has type %T", i+1, args[i])
		}
	}

	return r, nil
}

type rows struct {
	records []history.Record
	pos     int
}

func (r *rows) Next() bool {
	r.pos++

	return r.pos < len(r.records)
}

func (r *rows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.records) {
		return errors.New("dbtest: scan called without a current row")
	}

	if len(dest) != 5 { //nolint:mnd // column count of the history table
		return fmt.Errorf("dbtest: scan expects 5 destinations, got %d", len(dest))
	}

	rec := r.records[r.pos]
	strs := []struct {
		idx int
		val string
	}{{0, rec.Version}, {1, rec.Description}, {2, rec.SQL}, {4, rec.Checksum}}

	for _, s := range strs {
		p, ok := dest[s.idx].(*string)
		if !ok {
			return fmt.Errorf("dbtest: destination %d has type %T, want *string", s.idx+1, dest[s.idx])
		}

		*p = s.val
	}

	at, ok := dest[3].(*time.Time)
	if !ok {
		return fmt.Errorf("dbtest: destination 4 has type %T, want *time.Time", dest[3])
	}

	*at = rec.AppliedAt

	return nil
}

func (r *rows) Err() error { return nil }

func (r *rows) Close() {}
