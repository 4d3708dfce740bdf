package foreign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwojciec/docint"
	"github.com/fwojciec/docint/worker"
)

// Sentinel causes carried by InvocationError.
var (
	// ErrRaised indicates the foreign callable panicked or raised.
	ErrRaised = errors.New("foreign runtime raised")

	// ErrNoReply indicates an asynchronous callable finished without a reply.
	ErrNoReply = errors.New("foreign call finished without a reply")

	// ErrInvalidTarget indicates a handle whose target cannot be invoked.
	ErrInvalidTarget = errors.New("invalid foreign target")
)

// Mode is how a foreign callable is invoked.
type Mode int

const (
	// ModeSync callables block and require the runtime lock.
	ModeSync Mode = iota

	// ModeAsync callables are already non-blocking and return a reply channel.
	ModeAsync
)

func (m Mode) String() string {
	if m == ModeAsync {
		return "async"
	}
	return "sync"
}

// SyncFunc is a blocking foreign callable. Payloads are JSON documents.
type SyncFunc func(ctx context.Context, payload []byte) ([]byte, error)

// AsyncFunc is a non-blocking foreign callable. It must deliver exactly one
// Reply on the returned channel, or close it. It must not require the
// caller's runtime lock.
type AsyncFunc func(ctx context.Context, payload []byte) <-chan Reply

// Reply is the outcome of an asynchronous foreign call.
type Reply struct {
	Payload []byte
	Err     error
}

// Target is the foreign callable behind a handle.
type Target struct {
	Runtime *Runtime
	Mode    Mode
	Sync    SyncFunc
	Async   AsyncFunc
}

// SyncTarget returns a Target for a blocking callable living in rt.
func SyncTarget(rt *Runtime, fn SyncFunc) Target {
	return Target{Runtime: rt, Mode: ModeSync, Sync: fn}
}

// AsyncTarget returns a Target for a non-blocking callable.
func AsyncTarget(fn AsyncFunc) Target {
	return Target{Mode: ModeAsync, Async: fn}
}

// Handle wraps one foreign callable for a plugin family. Handles are
// read-only once created and may be shared by concurrent executions.
type Handle struct {
	Name   string
	Family docint.Family
	Target Target
}

// InvocationError reports a foreign invocation that failed to complete.
type InvocationError struct {
	Runtime string
	Plugin  string
	Family  docint.Family
	Err     error
}

func (e *InvocationError) Error() string {
	if e.Runtime == "" {
		return fmt.Sprintf("invoke %s %q: %v", e.Family, e.Plugin, e.Err)
	}
	return fmt.Sprintf("%s: invoke %s %q: %v", e.Runtime, e.Family, e.Plugin, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Adapter invokes foreign handles from pipeline workers.
type Adapter struct {
	Pool   *worker.Pool
	Logger *slog.Logger
}

// NewAdapter creates an Adapter. Pool may be nil.
func NewAdapter(pool *worker.Pool, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{Pool: pool, Logger: logger}
}

// Invoke calls h with payload and returns its reply.
//
// Synchronous targets run on the calling goroutine inside the runtime lock,
// wrapped in BlockInPlace. Asynchronous targets are awaited directly.
// Calls made one after another by the same execution complete in order;
// calls from different executions may interleave. Every failure, including
// a panic in the callable, is returned as an *InvocationError.
func (a *Adapter) Invoke(ctx context.Context, h *Handle, payload []byte) (out []byte, err error) {
	defer func(begin time.Time) {
		a.logger().Debug("foreign invoke",
			"plugin", h.Name,
			"family", h.Family,
			"mode", h.Target.Mode,
			"bytes", len(payload),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())

	switch h.Target.Mode {
	case ModeSync:
		out, err = a.invokeSync(ctx, h, payload)
	case ModeAsync:
		out, err = a.invokeAsync(ctx, h, payload)
	default:
		err = fmt.Errorf("%w: unknown mode %d", ErrInvalidTarget, h.Target.Mode)
	}
	if err != nil {
		return nil, &InvocationError{
			Runtime: runtimeName(h.Target.Runtime),
			Plugin:  h.Name,
			Family:  h.Family,
			Err:     err,
		}
	}
	return out, nil
}

func (a *Adapter) invokeSync(ctx context.Context, h *Handle, payload []byte) ([]byte, error) {
	rt, fn := h.Target.Runtime, h.Target.Sync
	if rt == nil || fn == nil {
		return nil, fmt.Errorf("%w: sync target needs a runtime and a function", ErrInvalidTarget)
	}

	var out []byte
	err := a.Pool.BlockInPlace(ctx, func(ctx context.Context) error {
		return rt.Enter(ctx, func(ctx context.Context) error {
			var callErr error
			out, callErr = callSync(ctx, fn, payload)
			return callErr
		})
	})
	return out, err
}

func (a *Adapter) invokeAsync(ctx context.Context, h *Handle, payload []byte) ([]byte, error) {
	fn := h.Target.Async
	if fn == nil {
		return nil, fmt.Errorf("%w: async target needs a function", ErrInvalidTarget)
	}

	replies, err := startAsync(ctx, fn, payload)
	if err != nil {
		return nil, err
	}
	if replies == nil {
		return nil, ErrNoReply
	}

	select {
	case r, ok := <-replies:
		if !ok {
			return nil, ErrNoReply
		}
		return r.Payload, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func callSync(ctx context.Context, fn SyncFunc, payload []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrRaised, r)
		}
	}()
	return fn(ctx, payload)
}

func startAsync(ctx context.Context, fn AsyncFunc, payload []byte) (ch <-chan Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			ch, err = nil, fmt.Errorf("%w: %v", ErrRaised, r)
		}
	}()
	return fn(ctx, payload), nil
}

func (a *Adapter) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func runtimeName(rt *Runtime) string {
	if rt == nil {
		return ""
	}
	return rt.Name()
}
