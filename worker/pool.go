// Package worker provides a bounded pool of execution slots shared by
// concurrent pipeline executions.
//
// A goroutine holding a slot is a worker. Workers must not block for long;
// when one has to (for example while calling into a foreign runtime), it
// wraps the call in BlockInPlace, which hands its slot to the next waiting
// task for the duration of the call and takes a slot back afterwards. The
// blocking call still runs on the calling goroutine.
package worker

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is the number of slots used when NewPool is given n <= 0.
const DefaultSize = 8

// Pool bounds the number of goroutines doing pipeline work at once.
// A nil *Pool is valid and imposes no bound.
type Pool struct {
	sem  *semaphore.Weighted
	size int64

	running  atomic.Int64
	blocking atomic.Int64
	peak     atomic.Int64
}

// Stats is a point-in-time view of pool usage.
type Stats struct {
	Size int

	// Running is the number of goroutines currently holding a slot.
	Running int

	// Blocking is the number of workers currently inside BlockInPlace.
	Blocking int

	// PeakBlocking is the highest Blocking value observed.
	PeakBlocking int
}

// NewPool creates a Pool with n slots.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = DefaultSize
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(n)),
		size: int64(n),
	}
}

type slotKey struct{}

// slot records a worker's membership in a pool. It is only touched by the
// goroutine that owns it.
type slot struct {
	pool *Pool
	held bool
}

func slotFrom(ctx context.Context) *slot {
	s, _ := ctx.Value(slotKey{}).(*slot)
	return s
}

// Run executes fn on the calling goroutine once a slot is available.
// If ctx already belongs to a worker of this pool, fn runs immediately
// without taking a second slot.
func (p *Pool) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if p == nil {
		return fn(ctx)
	}
	if s := slotFrom(ctx); s != nil && s.pool == p {
		return fn(ctx)
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	s := &slot{pool: p, held: true}
	p.running.Add(1)
	defer func() {
		if s.held {
			p.running.Add(-1)
			p.sem.Release(1)
		}
	}()

	return fn(context.WithValue(ctx, slotKey{}, s))
}

// BlockInPlace runs fn, which may block, on the calling goroutine.
// If the caller holds a slot of this pool, the slot is released while fn
// runs so that another task can be admitted, and reacquired before
// BlockInPlace returns. Nested calls release nothing further.
func (p *Pool) BlockInPlace(ctx context.Context, fn func(ctx context.Context) error) error {
	if p == nil {
		return fn(ctx)
	}
	s := slotFrom(ctx)
	if s == nil || s.pool != p || !s.held {
		return fn(ctx)
	}

	s.held = false
	p.running.Add(-1)
	p.sem.Release(1)
	n := p.blocking.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	defer func() {
		p.blocking.Add(-1)
		// Reacquire without the caller's context: the worker owns a slot
		// again when it resumes, even if ctx was canceled meanwhile.
		_ = p.sem.Acquire(context.Background(), 1)
		p.running.Add(1)
		s.held = true
	}()

	return fn(ctx)
}

// Stats returns current pool usage.
func (p *Pool) Stats() Stats {
	if p == nil {
		return Stats{}
	}
	return Stats{
		Size:         int(p.size),
		Running:      int(p.running.Load()),
		Blocking:     int(p.blocking.Load()),
		PeakBlocking: int(p.peak.Load()),
	}
}
