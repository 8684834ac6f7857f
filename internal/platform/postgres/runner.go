package postgres

import (
	"context"
	"database/sql"
	"time"

	"givebridge/pkg/platform/sentinel"
	txcontext "givebridge/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// TxRunner executes a function inside one SQL transaction. The transaction is
// carried in the context so every store touched by fn joins it; the whole
// mutation commits or rolls back as a unit.
type TxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

// InTx runs fn with read-committed isolation. Sufficient for operations that
// key off a single row's current state.
func (r *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.run(ctx, sql.LevelDefault, fn)
}

// InSerializableTx runs fn under serializable isolation. The claim path uses
// this so its check-then-insert cannot interleave with a concurrent claim.
// Serialization aborts surface as sentinel.ErrSerialization for the caller's
// single retry.
func (r *TxRunner) InSerializableTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.run(ctx, sql.LevelSerializable, fn)
}

func (r *TxRunner) run(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if IsSerializationFailure(err) {
			return sentinel.ErrSerialization
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if IsSerializationFailure(err) {
			return sentinel.ErrSerialization
		}
		return err
	}
	return nil
}
