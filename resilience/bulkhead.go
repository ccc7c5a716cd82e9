package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent caps in-flight upstream requests when unset.
const DefaultMaxConcurrent = 16

// BulkheadConfig bounds how many upstream requests run at once.
type BulkheadConfig struct {
	MaxConcurrent int
	// MaxWait is how long a request may queue for a slot. Zero rejects
	// immediately when the bulkhead is full.
	MaxWait time.Duration
}

// Bulkhead keeps a slow OpenViking service from pinning every handler
// goroutine.
type Bulkhead struct {
	maxWait  time.Duration
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	n := cfg.MaxConcurrent
	if n <= 0 {
		n = DefaultMaxConcurrent
	}
	return &Bulkhead{maxWait: cfg.MaxWait, sem: semaphore.NewWeighted(int64(n))}
}

// Execute runs op in a slot. It returns ErrBulkheadFull when no slot frees
// up within MaxWait, or ctx's error if ctx ends first.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	b.inFlight.Add(1)
	defer func() {
		b.inFlight.Add(-1)
		b.sem.Release(1)
	}()
	return op(ctx)
}

// InFlight reports the number of occupied slots.
func (b *Bulkhead) InFlight() int {
	return int(b.inFlight.Load())
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		return nil
	}
	if b.maxWait <= 0 {
		return ErrBulkheadFull
	}
	waitCtx, cancel := context.WithTimeout(ctx, b.maxWait)
	defer cancel()
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrBulkheadFull
		}
		return err
	}
	return nil
}
