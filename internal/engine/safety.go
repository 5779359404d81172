package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/FaveroFerreira/pg-migrator/internal/history"
)

// setLockTimeout limits how long statements in tx wait for locks.
func setLockTimeout(ctx context.Context, tx history.Tx, timeout time.Duration) error {
	sql := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())

	if err := tx.ExecuteScript(ctx, sql); err != nil {
		return fmt.Errorf("setting lock_timeout: %w", err)
	}

	return nil
}

// setStatementTimeout limits how long any single statement in tx may run.
func setStatementTimeout(ctx context.Context, tx history.Tx, timeout time.Duration) error {
	sql := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", timeout.Milliseconds())

	if err := tx.ExecuteScript(ctx, sql); err != nil {
		return fmt.Errorf("setting statement_timeout: %w", err)
	}

	return nil
}

func (e *Engine) applyTimeouts(ctx context.Context, tx history.Tx) error {
	if e.lockTimeout > 0 {
		if err := setLockTimeout(ctx, tx, e.lockTimeout); err != nil {
			return err
		}
	}

	if e.statementTimeout > 0 {
		if err := setStatementTimeout(ctx, tx, e.statementTimeout); err != nil {
			return err
		}
	}

	return nil
}
