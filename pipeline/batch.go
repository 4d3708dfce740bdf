package pipeline

import (
	"context"

	"github.com/fwojciec/docint"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultMaxConcurrent is the batch concurrency used when none is given.
const DefaultMaxConcurrent = 4

// BatchCoordinator fans requests out to an ExtractionService.
type BatchCoordinator struct {
	Service docint.ExtractionService

	// Limiter, if set, paces how fast requests are admitted.
	Limiter *rate.Limiter

	// Progress, if set, receives events as requests finish.
	// It is called from a single goroutine.
	Progress ProgressFunc
}

// Outcome is the result of one batch request. Exactly one field is set.
type Outcome struct {
	Result *docint.ExtractionResult
	Err    error
}

// ProgressEvent reports batch progress.
type ProgressEvent struct {
	Type      ProgressType
	Index     int
	Completed int
	Total     int
	Err       error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting batch progress.
type ProgressFunc func(event ProgressEvent)

type batchResult struct {
	position int
	outcome  Outcome
}

// RunBatch runs every request and returns one outcome per request, in input
// order. At most maxConcurrent requests are in flight at once. A failed
// request does not affect the others.
func (b *BatchCoordinator) RunBatch(ctx context.Context, reqs []*docint.ExtractionRequest, maxConcurrent int) []Outcome {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	total := len(reqs)
	b.notify(ProgressEvent{Type: ProgressStarted, Total: total})

	resultCh := make(chan batchResult, total)

	// No WithContext: one request's failure must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(maxConcurrent)

	go func() {
		for i, req := range reqs {
			g.Go(func() error {
				resultCh <- batchResult{position: i, outcome: b.runOne(ctx, req)}
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	outcomes := make([]Outcome, total)
	completed := 0
	for r := range resultCh {
		outcomes[r.position] = r.outcome
		completed++
		if r.outcome.Err != nil {
			b.notify(ProgressEvent{Type: ProgressFailed, Index: r.position, Completed: completed, Total: total, Err: r.outcome.Err})
		} else {
			b.notify(ProgressEvent{Type: ProgressCompleted, Index: r.position, Completed: completed, Total: total})
		}
	}

	b.notify(ProgressEvent{Type: ProgressFinished, Completed: total, Total: total})
	return outcomes
}

func (b *BatchCoordinator) runOne(ctx context.Context, req *docint.ExtractionRequest) (out Outcome) {
	if b.Limiter != nil {
		if err := b.Limiter.Wait(ctx); err != nil {
			return Outcome{Err: err}
		}
	}

	err := protect(func() error {
		res, err := b.Service.Extract(ctx, req)
		out.Result = res
		return err
	})
	if err != nil {
		return Outcome{Err: err}
	}
	if out.Result == nil {
		return Outcome{Err: docint.Errorf(docint.EINTERNAL, "extraction returned no result")}
	}
	return out
}

func (b *BatchCoordinator) notify(e ProgressEvent) {
	if b.Progress != nil {
		b.Progress(e)
	}
}
