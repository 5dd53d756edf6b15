package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// TxManager runs units of work in a single pgx transaction. Repositories
// pick the transaction up from the context through Conn.
type TxManager struct {
	pool Pool
}

func NewTxManager(pool Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTx commits when fn returns nil and rolls back on error or panic.
// Nested calls join the outer transaction.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

// Conn returns the transaction bound to ctx, or fallback outside of one.
func Conn(ctx context.Context, fallback DBTX) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return fallback
}
