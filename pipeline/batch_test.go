package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/docint"
	"github.com/fwojciec/docint/mock"
	"github.com/fwojciec/docint/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestBatchCoordinator_RunBatch(t *testing.T) {
	t.Parallel()

	t.Run("isolates a failing request and keeps input order", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		_, _ = set.Extractors.Register("text", &mock.Extractor{
			NameFn:               func() string { return "text" },
			SupportedMimeTypesFn: func() []string { return []string{"text/plain"} },
			ExtractFn: func(_ context.Context, content []byte, _ string, _ *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
				if string(content) == "doc 4" {
					return nil, errors.New("unreadable")
				}
				return &docint.ExtractionResult{Content: string(content)}, nil
			},
		})

		reqs := make([]*docint.ExtractionRequest, 10)
		for i := range reqs {
			reqs[i] = textRequest(fmt.Sprintf("doc %d", i))
		}

		b := &pipeline.BatchCoordinator{Service: orch}
		outcomes := b.RunBatch(context.Background(), reqs, 3)

		require.Len(t, outcomes, 10)
		for i, o := range outcomes {
			if i == 4 {
				require.Error(t, o.Err)
				assert.Nil(t, o.Result)
				assert.Equal(t, docint.EEXTRACTION, docint.ErrorCode(o.Err))
				continue
			}
			require.NoError(t, o.Err, "request %d", i)
			assert.Equal(t, fmt.Sprintf("doc %d", i), o.Result.Content)
		}
	})

	t.Run("bounds in-flight requests", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		inFlight, peak := 0, 0
		svc := &mock.ExtractionService{
			ExtractFn: func(context.Context, *docint.ExtractionRequest) (*docint.ExtractionResult, error) {
				mu.Lock()
				inFlight++
				peak = max(peak, inFlight)
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				inFlight--
				mu.Unlock()
				return &docint.ExtractionResult{}, nil
			},
		}

		reqs := make([]*docint.ExtractionRequest, 12)
		for i := range reqs {
			reqs[i] = textRequest("x")
		}

		outcomes := (&pipeline.BatchCoordinator{Service: svc}).RunBatch(context.Background(), reqs, 3)

		require.Len(t, outcomes, 12)
		assert.LessOrEqual(t, peak, 3)
		assert.Positive(t, peak)
	})

	t.Run("panicking service fails only its request", func(t *testing.T) {
		t.Parallel()

		svc := &mock.ExtractionService{
			ExtractFn: func(_ context.Context, req *docint.ExtractionRequest) (*docint.ExtractionResult, error) {
				if string(req.Content) == "bad" {
					panic("index out of range")
				}
				return &docint.ExtractionResult{Content: string(req.Content)}, nil
			},
		}

		outcomes := (&pipeline.BatchCoordinator{Service: svc}).RunBatch(context.Background(),
			[]*docint.ExtractionRequest{textRequest("good"), textRequest("bad"), textRequest("fine")}, 0)

		require.NoError(t, outcomes[0].Err)
		require.Error(t, outcomes[1].Err)
		assert.Contains(t, outcomes[1].Err.Error(), "index out of range")
		require.NoError(t, outcomes[2].Err)
		assert.Equal(t, "fine", outcomes[2].Result.Content)
	})

	t.Run("reports progress", func(t *testing.T) {
		t.Parallel()

		svc := &mock.ExtractionService{
			ExtractFn: func(_ context.Context, req *docint.ExtractionRequest) (*docint.ExtractionResult, error) {
				if string(req.Content) == "bad" {
					return nil, errors.New("nope")
				}
				return &docint.ExtractionResult{}, nil
			},
		}
		var events []pipeline.ProgressEvent
		b := &pipeline.BatchCoordinator{
			Service:  svc,
			Progress: func(e pipeline.ProgressEvent) { events = append(events, e) },
		}

		b.RunBatch(context.Background(), []*docint.ExtractionRequest{textRequest("ok"), textRequest("bad")}, 1)

		require.Len(t, events, 4)
		assert.Equal(t, pipeline.ProgressStarted, events[0].Type)
		assert.Equal(t, 2, events[0].Total)
		assert.Equal(t, pipeline.ProgressFinished, events[3].Type)

		var failed []pipeline.ProgressEvent
		for _, e := range events[1:3] {
			if e.Type == pipeline.ProgressFailed {
				failed = append(failed, e)
			}
		}
		require.Len(t, failed, 1)
		assert.Equal(t, 1, failed[0].Index)
		assert.EqualError(t, failed[0].Err, "nope")
		assert.Equal(t, 2, events[2].Completed)
	})

	t.Run("rate limiter wait failure is the request's outcome", func(t *testing.T) {
		t.Parallel()

		svc := &mock.ExtractionService{
			ExtractFn: func(context.Context, *docint.ExtractionRequest) (*docint.ExtractionResult, error) {
				return &docint.ExtractionResult{}, nil
			},
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		b := &pipeline.BatchCoordinator{Service: svc, Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}
		outcomes := b.RunBatch(ctx, []*docint.ExtractionRequest{textRequest("a"), textRequest("b")}, 2)

		require.Len(t, outcomes, 2)
		for _, o := range outcomes {
			require.Error(t, o.Err)
			assert.Nil(t, o.Result)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()

		outcomes := (&pipeline.BatchCoordinator{Service: &mock.ExtractionService{}}).RunBatch(context.Background(), nil, 2)

		assert.Empty(t, outcomes)
	})
}
