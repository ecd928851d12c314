package adapters

import (
	"context"
	"errors"
)

// WithinTx runs fn in a transaction, committing when fn returns nil and rolling back otherwise.
// The rollback ignores cancellation of ctx so a timed-out request still releases its locks.
func WithinTx(ctx context.Context, db DBAdapter, fn func(tx Queryer) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	if fnErr := fn(tx); fnErr != nil {
		if rollbackErr := tx.Rollback(context.WithoutCancel(ctx)); rollbackErr != nil {
			return errors.Join(fnErr, rollbackErr)
		}

		return fnErr
	}

	return tx.Commit(ctx)
}
