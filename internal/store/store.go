// Package store holds the relational stores and the transactional boundary
// they share. Stores accept a context that may carry an open transaction;
// operations run on the transaction when present and directly on the pool
// otherwise, so the same store methods serve both transactional orchestration
// and standalone reads.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// defaultPageSize bounds keyset-paginated queries when the caller gives no limit.
const defaultPageSize = 20

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

func txFrom(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

func q(ctx context.Context, db *sql.DB) querier {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return db
}

// UnitOfWork wraps a sequence of store operations in one serializable
// transaction: everything inside fn commits or rolls back together.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork builds a unit of work over the shared pool.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// RunInTransaction executes fn inside a serializable transaction, carried to
// the stores through the context. Nested calls join the enclosing
// transaction instead of opening a second one.
func (u *UnitOfWork) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx, err := u.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
