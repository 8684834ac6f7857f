package tx

import (
	"context"
	"sync"
)

// Runner is the transactional boundary core services run their mutations in.
// The postgres implementation wraps a real SQL transaction; MemoryRunner
// approximates one with a coarse lock for tests and storage-less dev runs.
type Runner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	InSerializableTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MemoryRunner serializes all mutations behind one mutex. Rollback of partial
// writes is not simulated; memory stores are only used where a failed step
// fails the whole test anyway.
type MemoryRunner struct {
	mu sync.Mutex
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

func (r *MemoryRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

func (r *MemoryRunner) InSerializableTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.InTx(ctx, fn)
}
