package engine

import (
	"context"

	"github.com/FaveroFerreira/pg-migrator/internal/history"
)

// inTransaction runs fn inside a history transaction.
// On success the transaction is committed; on error it is rolled back.
func inTransaction(ctx context.Context, store Store, fn func(tx history.Tx) error) error {
	tx, err := store.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
