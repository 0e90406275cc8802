package database

import (
	"context"
	"database/sql"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type txContextKey struct{}

// Tx is the transactional slice of sqlx.Tx. Commit and Rollback take the
// caller's context so a transaction opened higher up the call stack is not
// closed by a nested caller.
type Tx interface {
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type Transaction struct {
	*sqlx.Tx
	logger ectologger.Logger
	closed bool
}

func withTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

func txFromContext(ctx context.Context) (Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(Tx)
	if !ok || tx == nil || !tx.IsOpen() {
		return nil, false
	}
	return tx, true
}

func (t *Transaction) IsOpen() bool {
	return !t.closed
}

// Commit commits the transaction. Like Rollback it is a no-op when the given
// context still carries the transaction open: a nested caller that obtained
// it from GetTx must not commit the outer scope's work.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.closed {
		return nil
	}
	if _, nested := txFromContext(ctx); nested {
		return nil
	}
	if err := t.Tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Error("Failed to commit transaction")
		return errors.Wrap(err, "failed to commit transaction")
	}
	t.closed = true
	return nil
}

// Rollback closes the transaction unless the given context still carries it
// open, in which case the outermost caller owns the rollback. Safe to defer
// alongside a Commit; after a commit it is a no-op.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	if _, nested := txFromContext(ctx); nested {
		return nil
	}
	if err := t.Tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Error("Failed to roll back transaction")
		return errors.Wrap(err, "failed to roll back transaction")
	}
	t.closed = true
	return nil
}
