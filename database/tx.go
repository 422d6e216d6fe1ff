package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Transact runs fn inside a transaction. Any error or panic from fn rolls
// the transaction back before it propagates; otherwise the transaction is
// committed. A rolled back scope leaves no partial state behind.
func Transact(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
