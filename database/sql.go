package database

import (
	"context"
	"database/sql"
	"errors"
)

// SQLConn is implemented by *sql.DB and *sql.Conn.
type SQLConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// FromSQL adapts a database/sql handle to DB. The driver must accept
// PostgreSQL-style $n placeholders (lib/pq, pgx/stdlib).
func FromSQL(conn SQLConn) DB {
	return &sqlDB{conn: conn}
}

type sqlDB struct {
	conn SQLConn
}

func (d *sqlDB) Exec(ctx context.Context, query string, args ...any) error {
	_, err := d.conn.ExecContext(ctx, query, args...)

	return err
}

func (d *sqlDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &sqlRows{Rows: rows}, nil
}

func (d *sqlDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, query, args...)

	return err
}

func (t *sqlTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &sqlRows{Rows: rows}, nil
}

// Commit ignores ctx; database/sql binds the transaction to the context
// passed to BeginTx.
func (t *sqlTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback(_ context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

// sqlRows narrows Close to the Rows signature. Iteration errors are still
// reported by Err.
type sqlRows struct {
	*sql.Rows
}

func (r *sqlRows) Close() {
	_ = r.Rows.Close()
}
