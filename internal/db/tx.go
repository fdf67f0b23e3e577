package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printatelier/backend-devis/internal/quote"
)

// TxStore runs ledger mutations inside single database transactions. The
// transaction is acquired for the exclusive duration of one call and always
// released: committed when fn returns nil, rolled back otherwise.
type TxStore struct {
	pool  *pgxpool.Pool
	store *Store
}

// NewTxStore constructs a TxStore on the given pool.
func NewTxStore(pool *pgxpool.Pool) *TxStore {
	return &TxStore{pool: pool, store: New(pool)}
}

// InTx implements quote.TxRunner.
func (t *TxStore) InTx(ctx context.Context, fn func(quote.Querier) error) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(t.store.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
