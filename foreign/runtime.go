// Package foreign makes plugins implemented in a foreign runtime invokable
// from the pipeline as ordinary plugins.
//
// A foreign runtime (an embedded interpreter reached across a language
// boundary) may only be entered while holding its exclusive execution lock.
// The lock is owned by one execution at a time and is reentrant only for
// that execution: the holder's context carries an ownership token, and any
// nested call made with that context passes straight through. A call made
// from a context without the token waits for the lock.
//
// Synchronous foreign calls therefore must run on the caller's goroutine
// with the caller's context. Handing the call to another goroutine with a
// fresh context deadlocks as soon as the caller already holds the lock,
// which happens whenever a foreign plugin calls back into the engine and
// the engine calls into the same runtime again. The Adapter keeps the call
// in place and uses worker.Pool.BlockInPlace so the blocked worker's slot
// goes to another task meanwhile.
package foreign

import (
	"context"
	"sync/atomic"
)

// Runtime models a foreign runtime's exclusive execution lock.
type Runtime struct {
	name string
	lock chan struct{}

	entries atomic.Int64
}

// NewRuntime creates a Runtime identified by name.
func NewRuntime(name string) *Runtime {
	return &Runtime{
		name: name,
		lock: make(chan struct{}, 1),
	}
}

// Name returns the runtime's name.
func (rt *Runtime) Name() string {
	return rt.name
}

type holdKey struct{ rt *Runtime }

// Holding reports whether ctx belongs to the execution holding the lock.
func (rt *Runtime) Holding(ctx context.Context) bool {
	held, _ := ctx.Value(holdKey{rt}).(bool)
	return held
}

// Enter runs fn while holding the runtime lock. If ctx already holds the
// lock, fn runs immediately. Otherwise Enter waits for the lock or for ctx
// to be done. The context passed to fn carries the ownership token and must
// be used for any nested call into the runtime.
func (rt *Runtime) Enter(ctx context.Context, fn func(ctx context.Context) error) error {
	if rt.Holding(ctx) {
		return fn(ctx)
	}

	select {
	case rt.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-rt.lock }()
	rt.entries.Add(1)

	return fn(context.WithValue(ctx, holdKey{rt}, true))
}

// Entries returns how many times the lock has been acquired.
// Reentrant passes are not counted.
func (rt *Runtime) Entries() int64 {
	return rt.entries.Load()
}
