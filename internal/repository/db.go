package repository

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
)

// TxRunner wraps a database handle and runs a function inside a single
// transaction, rolling back if the function returns an error. It exists so
// the engine can require atomicity without holding the *sql.DB itself.
type TxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
