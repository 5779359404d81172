package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationLockID is the advisory lock identifier used to prevent
// concurrent migration runs.
const MigrationLockID int64 = 123456789

const (
	tryLockSQL = "SELECT pg_try_advisory_lock($1)"
	unlockSQL  = "SELECT pg_advisory_unlock($1)"
)

// LockHandle holds a session-level advisory lock on a dedicated connection.
// Call Release to unlock and give the connection back.
type LockHandle struct {
	unlock func(ctx context.Context) error
}

// TryAcquireLock attempts to acquire the advisory lock on a connection taken
// from pool. Returns ErrLockNotAcquired if another session holds it.
func TryAcquireLock(ctx context.Context, pool *pgxpool.Pool) (*LockHandle, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}

	var acquired bool

	err = conn.QueryRow(ctx, tryLockSQL, MigrationLockID).Scan(&acquired)
	if err != nil {
		conn.Release()

		return nil, fmt.Errorf("executing pg_try_advisory_lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return nil, ErrLockNotAcquired
	}

	return &LockHandle{unlock: func(ctx context.Context) error {
		defer conn.Release()

		_, err := conn.Exec(ctx, unlockSQL, MigrationLockID)

		return err
	}}, nil
}

// TryAcquireSQLLock is TryAcquireLock for a database/sql handle.
func TryAcquireSQLLock(ctx context.Context, db *sql.DB) (*LockHandle, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}

	var acquired bool

	err = conn.QueryRowContext(ctx, tryLockSQL, MigrationLockID).Scan(&acquired)
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("executing pg_try_advisory_lock: %w", err)
	}

	if !acquired {
		_ = conn.Close()

		return nil, ErrLockNotAcquired
	}

	return &LockHandle{unlock: func(ctx context.Context) error {
		defer conn.Close()

		_, err := conn.ExecContext(ctx, unlockSQL, MigrationLockID)

		return err
	}}, nil
}

// Release unlocks the advisory lock and returns the connection.
// Safe to call multiple times; subsequent calls are no-ops.
func (h *LockHandle) Release(ctx context.Context) error {
	if h == nil || h.unlock == nil {
		return nil
	}

	unlock := h.unlock
	h.unlock = nil

	if err := unlock(ctx); err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}

	return nil
}
