package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const DBTxKey contextKey = "db_tx"

// TxFromContext retrieves the transaction started by Transactor.WithinTx.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// Transactor runs a unit of work inside a single PostgreSQL transaction.
// Repositories pick the transaction up from the context, so every statement
// issued by fn commits or rolls back together.
type Transactor struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

// WithinTx begins a transaction, runs fn and commits. A nested call joins the
// outer transaction.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := t.pool.BeginTx(ctx, t.opts)
	if err != nil {
		return Classify(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, DBTxKey, tx)); err != nil {
		return Classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
