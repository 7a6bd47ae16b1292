package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rafaelleal24/inventory/internal/core/port"
)

type txKey struct{}

func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

type TransactionManager struct {
	db *DB
}

func NewTransactionManager(db *DB) port.TransactionManager {
	return &TransactionManager{db: db}
}

// WithTransaction runs fn once. Repositories called with the ctx passed to fn
// join the transaction; a nested call reuses the outer one.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := tm.db.db.BeginTx(ctx, nil)
	if err != nil {
		return parseError(err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return parseError(err)
	}

	return nil
}
