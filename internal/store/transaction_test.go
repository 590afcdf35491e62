package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforest/taskforest-api/internal/testdb"
)

func TestRunInTransaction_Commit(t *testing.T) {
	db, rec := testdb.New(t)

	called := false
	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		called = true
		require.NotNil(t, tx)
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 1, rec.Commits())
	assert.Equal(t, 0, rec.Rollbacks())
}

func TestRunInTransaction_RollbackOnError(t *testing.T) {
	db, rec := testdb.New(t)

	opErr := errors.New("insert failed")
	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return opErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, opErr)
	assert.Equal(t, 0, rec.Commits())
	assert.Equal(t, 1, rec.Rollbacks())
}

func TestRunInTransaction_RollbackOnPanic(t *testing.T) {
	db, rec := testdb.New(t)

	assert.PanicsWithValue(t, "boom", func() {
		_ = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			panic("boom")
		})
	})

	assert.Equal(t, 0, rec.Commits())
	assert.Equal(t, 1, rec.Rollbacks())
}

func TestRunInTransaction_BeginError(t *testing.T) {
	db, rec := testdb.New(t)
	rec.BeginErr = errors.New("too many connections")

	called := false
	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}

func TestRunInTransaction_CommitError(t *testing.T) {
	db, rec := testdb.New(t)
	rec.CommitErr = errors.New("disk full")

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
}
