package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxFromContext(t *testing.T) {
	ctx := context.Background()

	_, ok := txFromContext(ctx)
	assert.False(t, ok)

	tx := &Transaction{}
	bound, ok := txFromContext(withTx(ctx, tx))
	require.True(t, ok)
	assert.Same(t, tx, bound.(*Transaction))

	// a closed transaction is never handed out
	tx.closed = true
	_, ok = txFromContext(withTx(ctx, tx))
	assert.False(t, ok)
}

func TestNestedCallerDoesNotCloseTransaction(t *testing.T) {
	tx := &Transaction{}
	nestedCtx := withTx(context.Background(), tx)

	// a caller that received the transaction through its context must not
	// commit or roll back the outer scope's work
	require.NoError(t, tx.Commit(nestedCtx))
	assert.True(t, tx.IsOpen())

	require.NoError(t, tx.Rollback(nestedCtx))
	assert.True(t, tx.IsOpen())
}

func TestClosedTransactionIsInert(t *testing.T) {
	tx := &Transaction{closed: true}
	ctx := context.Background()

	assert.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx))
}
