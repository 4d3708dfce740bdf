package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/docint"
	"github.com/fwojciec/docint/foreign"
	"github.com/fwojciec/docint/mock"
	"github.com/fwojciec/docint/pipeline"
	"github.com/fwojciec/docint/registry"
	"github.com/fwojciec/docint/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// calls records plugin invocations across goroutines.
type calls struct {
	mu    sync.Mutex
	names []string
}

func (c *calls) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
}

func (c *calls) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

func textExtractor() *mock.Extractor {
	return &mock.Extractor{
		NameFn:               func() string { return "text" },
		SupportedMimeTypesFn: func() []string { return []string{"text/plain"} },
		ExtractFn: func(_ context.Context, content []byte, _ string, _ *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
			return &docint.ExtractionResult{Content: string(content)}, nil
		},
	}
}

func processor(name string, stage docint.ProcessingStage, fn func(*docint.ExtractionResult) error) *mock.PostProcessor {
	return &mock.PostProcessor{
		NameFn:  func() string { return name },
		StageFn: func() docint.ProcessingStage { return stage },
		ProcessFn: func(_ context.Context, res *docint.ExtractionResult, _ *docint.ExtractionConfig) error {
			return fn(res)
		},
	}
}

func validator(name string, fn func(*docint.ExtractionResult) error) *mock.Validator {
	return &mock.Validator{
		NameFn: func() string { return name },
		ValidateFn: func(_ context.Context, res *docint.ExtractionResult, _ *docint.ExtractionConfig) error {
			return fn(res)
		},
	}
}

func newOrchestrator(t *testing.T) (*pipeline.Orchestrator, *registry.Set) {
	t.Helper()

	set := registry.NewSet()
	_, err := set.Extractors.Register("text", textExtractor())
	require.NoError(t, err)

	return &pipeline.Orchestrator{Plugins: set, Logger: discard}, set
}

func textRequest(content string) *docint.ExtractionRequest {
	return &docint.ExtractionRequest{Content: []byte(content), MimeType: "text/plain"}
}

func TestOrchestrator_Run(t *testing.T) {
	t.Parallel()

	t.Run("runs processors by stage then validators", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		var c calls

		_, err := set.PostProcessors.Register("B", processor("B", docint.StageLate, func(res *docint.ExtractionResult) error {
			c.add("B")
			v, ok := res.Metadata.String("from_a")
			assert.True(t, ok)
			assert.Equal(t, "yes", v)
			return nil
		}))
		require.NoError(t, err)
		_, err = set.PostProcessors.Register("A", processor("A", docint.StageEarly, func(res *docint.ExtractionResult) error {
			c.add("A")
			res.SetMetadata("from_a", "yes")
			return nil
		}))
		require.NoError(t, err)
		_, err = set.Validators.Register("V", validator("V", func(res *docint.ExtractionResult) error {
			c.add("V")
			v, _ := res.Metadata.String("from_a")
			assert.Equal(t, "yes", v)
			return nil
		}))
		require.NoError(t, err)

		exec, err := orch.Run(context.Background(), textRequest("hello"))

		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "V"}, c.list())
		assert.Equal(t, pipeline.StateDone, exec.State)
		assert.Equal(t, "hello", exec.Result.Content)
		assert.Equal(t, "text/plain", exec.Result.MimeType)
		assert.Equal(t, "text", exec.Extractor)
	})

	t.Run("processors in a stage run in registration order", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		var c calls
		for _, name := range []string{"first", "second", "third"} {
			_, err := set.PostProcessors.Register(name, processor(name, docint.StageMiddle, func(res *docint.ExtractionResult) error {
				c.add(name)
				res.Content += "+" + name
				return nil
			}))
			require.NoError(t, err)
		}

		res, err := orch.Extract(context.Background(), textRequest("x"))

		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third"}, c.list())
		assert.Equal(t, "x+first+second+third", res.Content)
	})

	t.Run("unregistered processor no longer runs", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		var c calls
		_, _ = set.PostProcessors.Register("A", processor("A", docint.StageEarly, func(*docint.ExtractionResult) error { c.add("A"); return nil }))
		_, _ = set.PostProcessors.Register("B", processor("B", docint.StageLate, func(*docint.ExtractionResult) error { c.add("B"); return nil }))
		_, _ = set.Validators.Register("V", validator("V", func(*docint.ExtractionResult) error { c.add("V"); return nil }))

		set.PostProcessors.Unregister("A")
		_, err := orch.Run(context.Background(), textRequest("hello"))

		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, set.PostProcessors.List())
		assert.Equal(t, []string{"B", "V"}, c.list())
	})

	t.Run("validator failure returns no result", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		processed := false
		_, _ = set.PostProcessors.Register("P", processor("P", docint.StageMiddle, func(*docint.ExtractionResult) error { processed = true; return nil }))
		_, _ = set.Validators.Register("V", validator("V", func(*docint.ExtractionResult) error { return errors.New("too short") }))

		exec, err := orch.Run(context.Background(), textRequest("hi"))

		require.Error(t, err)
		assert.True(t, processed)
		assert.Equal(t, docint.EVALIDATION, docint.ErrorCode(err))
		assert.Equal(t, "V", docint.ErrorPlugin(err))
		assert.Contains(t, err.Error(), "too short")
		assert.Nil(t, exec.Result)
		assert.Equal(t, pipeline.StateFailed, exec.State)
		assert.Equal(t, pipeline.StateValidating, exec.History[len(exec.History)-2])

		res, err := orch.Extract(context.Background(), textRequest("hi"))
		require.Error(t, err)
		assert.Nil(t, res)
	})

	t.Run("fail fast stops at the first rejecting validator", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		var c calls
		_, _ = set.Validators.Register("V1", validator("V1", func(*docint.ExtractionResult) error { c.add("V1"); return errors.New("no") }))
		_, _ = set.Validators.Register("V2", validator("V2", func(*docint.ExtractionResult) error { c.add("V2"); return nil }))

		_, err := orch.Run(context.Background(), textRequest("hi"))

		require.Error(t, err)
		assert.Equal(t, []string{"V1"}, c.list())
	})

	t.Run("collect all runs every validator", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		var c calls
		_, _ = set.Validators.Register("V1", validator("V1", func(*docint.ExtractionResult) error { c.add("V1"); return errors.New("bad title") }))
		_, _ = set.Validators.Register("V2", validator("V2", func(*docint.ExtractionResult) error { c.add("V2"); return nil }))
		_, _ = set.Validators.Register("V3", validator("V3", func(*docint.ExtractionResult) error { c.add("V3"); return errors.New("bad body") }))

		req := textRequest("hi")
		req.Config = &docint.ExtractionConfig{Validation: docint.CollectAll}
		_, err := orch.Run(context.Background(), req)

		require.Error(t, err)
		assert.Equal(t, []string{"V1", "V2", "V3"}, c.list())
		assert.Equal(t, docint.EVALIDATION, docint.ErrorCode(err))
		assert.Contains(t, err.Error(), "bad title")
		assert.Contains(t, err.Error(), "bad body")
	})

	t.Run("processor failure carries the previous result forward", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		var c calls
		_, _ = set.PostProcessors.Register("one", processor("one", docint.StageEarly, func(res *docint.ExtractionResult) error {
			c.add("one")
			res.Content = "one"
			res.SetMetadata("one", true)
			return nil
		}))
		_, _ = set.PostProcessors.Register("broken", processor("broken", docint.StageMiddle, func(res *docint.ExtractionResult) error {
			c.add("broken")
			res.Content = "garbage"
			res.SetMetadata("broken", true)
			res.Tables = append(res.Tables, docint.Table{Markdown: "|x|"})
			return errors.New("boom")
		}))
		_, _ = set.PostProcessors.Register("late", processor("late", docint.StageLate, func(res *docint.ExtractionResult) error {
			c.add("late")
			assert.Equal(t, "one", res.Content)
			return nil
		}))
		_, _ = set.Validators.Register("V", validator("V", func(*docint.ExtractionResult) error { c.add("V"); return nil }))

		exec, err := orch.Run(context.Background(), textRequest("raw"))

		require.NoError(t, err)
		assert.Equal(t, []string{"one", "broken", "late", "V"}, c.list())
		assert.Equal(t, "one", exec.Result.Content)
		assert.Equal(t, docint.Metadata{"one": true}, exec.Result.Metadata)
		assert.Empty(t, exec.Result.Tables)
		require.Len(t, exec.ProcessorErrors, 1)
		assert.Equal(t, docint.EPROCESSOR, docint.ErrorCode(exec.ProcessorErrors[0]))
		assert.Equal(t, "broken", docint.ErrorPlugin(exec.ProcessorErrors[0]))
	})

	t.Run("processor failure discards in-place edits to nested metadata", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		_, _ = set.PostProcessors.Register("tags", processor("tags", docint.StageEarly, func(res *docint.ExtractionResult) error {
			res.SetMetadata("tags", []string{"draft"})
			res.SetMetadata("info", map[string]any{"pages": 1})
			return nil
		}))
		_, _ = set.PostProcessors.Register("broken", processor("broken", docint.StageMiddle, func(res *docint.ExtractionResult) error {
			res.Metadata["tags"].([]string)[0] = "garbage"
			res.Metadata["info"].(map[string]any)["pages"] = 99
			return errors.New("boom")
		}))

		exec, err := orch.Run(context.Background(), textRequest("raw"))

		require.NoError(t, err)
		assert.Equal(t, []string{"draft"}, exec.Result.Metadata["tags"])
		assert.Equal(t, map[string]any{"pages": 1}, exec.Result.Metadata["info"])
		require.Len(t, exec.ProcessorErrors, 1)
	})

	t.Run("processor panic is recovered", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		_, _ = set.PostProcessors.Register("panics", processor("panics", docint.StageMiddle, func(res *docint.ExtractionResult) error {
			res.Content = "half written"
			panic("nil map")
		}))

		exec, err := orch.Run(context.Background(), textRequest("intact"))

		require.NoError(t, err)
		assert.Equal(t, "intact", exec.Result.Content)
		require.Len(t, exec.ProcessorErrors, 1)
		assert.Contains(t, exec.ProcessorErrors[0].Error(), "panic: nil map")
	})

	t.Run("extraction failure is fatal", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		_, _ = set.Extractors.Register("text", &mock.Extractor{
			NameFn:               func() string { return "text" },
			SupportedMimeTypesFn: func() []string { return []string{"text/plain"} },
			ExtractFn: func(context.Context, []byte, string, *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
				return nil, errors.New("corrupt input")
			},
		})
		called := false
		_, _ = set.PostProcessors.Register("P", processor("P", docint.StageEarly, func(*docint.ExtractionResult) error { called = true; return nil }))

		exec, err := orch.Run(context.Background(), textRequest("x"))

		require.Error(t, err)
		assert.Equal(t, docint.EEXTRACTION, docint.ErrorCode(err))
		assert.Equal(t, "text", docint.ErrorPlugin(err))
		assert.Contains(t, err.Error(), "corrupt input")
		assert.False(t, called)
		assert.Nil(t, exec.Result)
		assert.Equal(t, []pipeline.State{pipeline.StateAccepted, pipeline.StateExtracting, pipeline.StateFailed}, exec.History)
	})

	t.Run("no extractor for mime type", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)

		_, err := orch.Run(context.Background(), &docint.ExtractionRequest{Content: []byte("%PDF"), MimeType: "application/pdf"})

		require.Error(t, err)
		assert.Equal(t, docint.ENOEXTRACTOR, docint.ErrorCode(err))
	})

	t.Run("detects mime type when missing", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)
		orch.Detector = &mock.MimeDetector{
			DetectFn: func(content []byte, path string) (string, error) {
				assert.Equal(t, "notes.txt", path)
				return "text/plain; charset=utf-8", nil
			},
		}

		exec, err := orch.Run(context.Background(), &docint.ExtractionRequest{Content: []byte("hi"), Path: "notes.txt"})

		require.NoError(t, err)
		assert.Equal(t, "text/plain", exec.MimeType)
	})

	t.Run("missing mime type without detector is invalid", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)

		_, err := orch.Run(context.Background(), &docint.ExtractionRequest{Content: []byte("hi")})

		assert.Equal(t, docint.EINVALID, docint.ErrorCode(err))
	})

	t.Run("invalid request is rejected", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)

		exec, err := orch.Run(context.Background(), &docint.ExtractionRequest{MimeType: "text/plain"})

		assert.Equal(t, docint.EINVALID, docint.ErrorCode(err))
		assert.Equal(t, pipeline.StateFailed, exec.State)
	})

	t.Run("reads content from path", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)
		orch.ReadFile = func(name string) ([]byte, error) {
			if name == "doc.txt" {
				return []byte("from disk"), nil
			}
			return nil, fs.ErrNotExist
		}

		res, err := orch.Extract(context.Background(), &docint.ExtractionRequest{Path: "doc.txt", MimeType: "text/plain"})
		require.NoError(t, err)
		assert.Equal(t, "from disk", res.Content)

		_, err = orch.Extract(context.Background(), &docint.ExtractionRequest{Path: "missing.txt", MimeType: "text/plain"})
		assert.Equal(t, docint.ENOTFOUND, docint.ErrorCode(err))
	})

	t.Run("visits every state in order", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)
		orch.Scorer = &mock.QualityScorer{ScoreFn: func(context.Context, *docint.ExtractionResult) (float64, error) { return 0.5, nil }}
		orch.Chunker = &mock.Chunker{ChunkFn: func(context.Context, string, *docint.ChunkingConfig) ([]docint.Chunk, error) { return nil, nil }}

		req := textRequest("hi")
		req.Config = &docint.ExtractionConfig{EnableQualityProcessing: true, Chunking: &docint.ChunkingConfig{Enabled: true}}
		exec, err := orch.Run(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, []pipeline.State{
			pipeline.StateAccepted,
			pipeline.StateExtracting,
			pipeline.StatePostProcessingEarly,
			pipeline.StatePostProcessingMiddle,
			pipeline.StatePostProcessingLate,
			pipeline.StateScoring,
			pipeline.StateChunking,
			pipeline.StateValidating,
			pipeline.StateDone,
		}, exec.History)
	})

	t.Run("stage lists are taken when each stage begins", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		var c calls
		_, _ = set.PostProcessors.Register("m1", processor("m1", docint.StageMiddle, func(*docint.ExtractionResult) error {
			c.add("m1")
			if _, ok := set.PostProcessors.Get("m2"); !ok {
				_, _ = set.PostProcessors.Register("m2", processor("m2", docint.StageMiddle, func(*docint.ExtractionResult) error { c.add("m2"); return nil }))
				_, _ = set.PostProcessors.Register("l1", processor("l1", docint.StageLate, func(*docint.ExtractionResult) error { c.add("l1"); return nil }))
			}
			return nil
		}))

		_, err := orch.Run(context.Background(), textRequest("x"))
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "l1"}, c.list())

		_, err = orch.Run(context.Background(), textRequest("x"))
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "l1", "m1", "m2", "l1"}, c.list())
	})

	t.Run("stops at the next stage boundary when canceled", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var c calls
		_, _ = set.PostProcessors.Register("early", processor("early", docint.StageEarly, func(*docint.ExtractionResult) error { c.add("early"); cancel(); return nil }))
		_, _ = set.PostProcessors.Register("middle", processor("middle", docint.StageMiddle, func(*docint.ExtractionResult) error { c.add("middle"); return nil }))

		exec, err := orch.Run(ctx, textRequest("x"))

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"early"}, c.list())
		assert.Equal(t, pipeline.StateFailed, exec.State)
		assert.Nil(t, exec.Result)
	})
}

func TestOrchestrator_Scoring(t *testing.T) {
	t.Parallel()

	t.Run("attaches score when quality processing is enabled", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		orch.Scorer = &mock.QualityScorer{ScoreFn: func(_ context.Context, res *docint.ExtractionResult) (float64, error) {
			assert.Equal(t, "processed", res.Content)
			return 0.75, nil
		}}
		_, _ = set.PostProcessors.Register("P", processor("P", docint.StageLate, func(res *docint.ExtractionResult) error { res.Content = "processed"; return nil }))
		_, _ = set.Validators.Register("V", validator("V", func(res *docint.ExtractionResult) error {
			require.NotNil(t, res.QualityScore)
			return nil
		}))

		res, err := orch.Extract(context.Background(), textRequest("raw"))

		require.NoError(t, err)
		require.NotNil(t, res.QualityScore)
		assert.InDelta(t, 0.75, *res.QualityScore, 1e-9)
	})

	t.Run("skipped when disabled", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)
		orch.Scorer = &mock.QualityScorer{ScoreFn: func(context.Context, *docint.ExtractionResult) (float64, error) {
			t.Fatal("scorer must not run")
			return 0, nil
		}}

		req := textRequest("raw")
		req.Config = &docint.ExtractionConfig{}
		res, err := orch.Extract(context.Background(), req)

		require.NoError(t, err)
		assert.Nil(t, res.QualityScore)
	})

	t.Run("scorer failure is recorded and not fatal", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)
		orch.Scorer = &mock.QualityScorer{ScoreFn: func(context.Context, *docint.ExtractionResult) (float64, error) {
			return 0, errors.New("model unavailable")
		}}

		exec, err := orch.Run(context.Background(), textRequest("raw"))

		require.NoError(t, err)
		assert.Nil(t, exec.Result.QualityScore)
		require.Len(t, exec.ProcessorErrors, 1)
		assert.Equal(t, docint.EPROCESSOR, docint.ErrorCode(exec.ProcessorErrors[0]))
	})
}

func TestOrchestrator_Chunking(t *testing.T) {
	t.Parallel()

	chunkingRequest := func(content string) *docint.ExtractionRequest {
		req := textRequest(content)
		req.Config = &docint.ExtractionConfig{Chunking: &docint.ChunkingConfig{Enabled: true, MaxChars: 4}}
		return req
	}

	t.Run("chunks before validation", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		orch.Chunker = &mock.Chunker{ChunkFn: func(_ context.Context, content string, cfg *docint.ChunkingConfig) ([]docint.Chunk, error) {
			assert.Equal(t, 4, cfg.MaxChars)
			return []docint.Chunk{{Content: content[:4]}, {Content: content[4:]}}, nil
		}}
		var seen int
		_, _ = set.Validators.Register("V", validator("V", func(res *docint.ExtractionResult) error { seen = len(res.Chunks); return nil }))

		res, err := orch.Extract(context.Background(), chunkingRequest("abcdefgh"))

		require.NoError(t, err)
		assert.Equal(t, 2, seen)
		assert.Equal(t, "efgh", res.Chunks[1].Content)
	})

	t.Run("skipped when disabled", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)
		orch.Chunker = &mock.Chunker{ChunkFn: func(context.Context, string, *docint.ChunkingConfig) ([]docint.Chunk, error) {
			t.Fatal("chunker must not run")
			return nil, nil
		}}

		res, err := orch.Extract(context.Background(), textRequest("abcdefgh"))

		require.NoError(t, err)
		assert.Empty(t, res.Chunks)
	})

	t.Run("chunker failure is fatal", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)
		orch.Chunker = &mock.Chunker{ChunkFn: func(context.Context, string, *docint.ChunkingConfig) ([]docint.Chunk, error) {
			return nil, errors.New("tokenizer crashed")
		}}

		_, err := orch.Extract(context.Background(), chunkingRequest("abcdefgh"))

		assert.Equal(t, docint.ECHUNKING, docint.ErrorCode(err))
	})

	t.Run("enabled without a chunker is an error", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)

		_, err := orch.Extract(context.Background(), chunkingRequest("abcdefgh"))

		assert.Equal(t, docint.ECHUNKING, docint.ErrorCode(err))
	})
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]*docint.ExtractionResult
	puts int
}

func newMemoryCache() (*memoryCache, *mock.Cache) {
	m := &memoryCache{data: make(map[string]*docint.ExtractionResult)}
	return m, &mock.Cache{
		GetFn: func(_ context.Context, key string) (*docint.ExtractionResult, bool, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			res, ok := m.data[key]
			return res, ok, nil
		},
		PutFn: func(_ context.Context, key string, res *docint.ExtractionResult) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.data[key] = res
			m.puts++
			return nil
		},
	}
}

func TestOrchestrator_Cache(t *testing.T) {
	t.Parallel()

	t.Run("reuses raw extractor output and reruns processors", func(t *testing.T) {
		t.Parallel()

		orch, set := newOrchestrator(t)
		mem, cache := newMemoryCache()
		orch.Cache = cache
		var extracts calls
		_, _ = set.Extractors.Register("text", &mock.Extractor{
			NameFn:               func() string { return "text" },
			SupportedMimeTypesFn: func() []string { return []string{"text/plain"} },
			ExtractFn: func(_ context.Context, content []byte, _ string, _ *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
				extracts.add("text")
				return &docint.ExtractionResult{Content: string(content)}, nil
			},
		})
		_, _ = set.PostProcessors.Register("bang", processor("bang", docint.StageMiddle, func(res *docint.ExtractionResult) error { res.Content += "!"; return nil }))

		first, err := orch.Run(context.Background(), textRequest("hello"))
		require.NoError(t, err)
		second, err := orch.Run(context.Background(), textRequest("hello"))
		require.NoError(t, err)

		assert.Len(t, extracts.list(), 1)
		assert.Equal(t, 1, mem.puts)
		assert.False(t, first.CacheHit)
		assert.True(t, second.CacheHit)
		assert.Equal(t, "hello!", first.Result.Content)
		assert.Equal(t, "hello!", second.Result.Content)
	})

	t.Run("bypassed when disabled in config", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)
		mem, cache := newMemoryCache()
		orch.Cache = cache

		req := textRequest("hello")
		req.Config = &docint.ExtractionConfig{UseCache: false}
		exec, err := orch.Run(context.Background(), req)

		require.NoError(t, err)
		assert.False(t, exec.CacheHit)
		assert.Equal(t, 0, mem.puts)
	})

	t.Run("cache errors are not fatal", func(t *testing.T) {
		t.Parallel()

		orch, _ := newOrchestrator(t)
		orch.Cache = &mock.Cache{
			GetFn: func(context.Context, string) (*docint.ExtractionResult, bool, error) { return nil, false, errors.New("disk full") },
			PutFn: func(context.Context, string, *docint.ExtractionResult) error { return errors.New("disk full") },
		}

		res, err := orch.Extract(context.Background(), textRequest("hello"))

		require.NoError(t, err)
		assert.Equal(t, "hello", res.Content)
	})
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	a := pipeline.CacheKey([]byte("hello"), "text/plain", "text")
	assert.Equal(t, a, pipeline.CacheKey([]byte("hello"), "text/plain", "text"))
	assert.NotEqual(t, a, pipeline.CacheKey([]byte("hello!"), "text/plain", "text"))
	assert.NotEqual(t, a, pipeline.CacheKey([]byte("hello"), "text/markdown", "text"))
	assert.NotEqual(t, a, pipeline.CacheKey([]byte("hello"), "text/plain", "other"))
}

func TestOrchestrator_ConcurrentRegistryMutation(t *testing.T) {
	t.Parallel()

	orch, set := newOrchestrator(t)
	orch.Pool = worker.NewPool(8)
	_, _ = set.PostProcessors.Register("stable", processor("stable", docint.StageEarly, func(res *docint.ExtractionResult) error {
		res.SetMetadata("stable", true)
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stop := make(chan struct{})
	mutated := make(chan struct{})
	go func() {
		defer close(mutated)
		for i := 0; ; i++ {
			select {
			case <-stop:
				set.PostProcessors.Unregister("flaky")
				_, _ = set.Validators.Register("final", validator("final", func(*docint.ExtractionResult) error { return nil }))
				return
			default:
			}
			name := fmt.Sprintf("flaky-%d", i%3)
			_, _ = set.PostProcessors.Register("flaky", processor(name, docint.Stages[i%3], func(res *docint.ExtractionResult) error {
				res.SetMetadata(name, true)
				return nil
			}))
			_, _ = set.Validators.Register("accepting", validator("accepting", func(*docint.ExtractionResult) error { return nil }))
			set.Validators.Unregister("accepting")
			if i%5 == 0 {
				set.PostProcessors.Unregister("flaky")
			}
		}
	}()

	const runs = 100
	errs := make([]error, runs)
	results := make([]*docint.ExtractionResult, runs)
	var wg sync.WaitGroup
	for i := range runs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = orch.Extract(ctx, textRequest(fmt.Sprintf("doc %d", i)))
		}()
	}
	wg.Wait()
	close(stop)
	<-mutated

	for i := range runs {
		require.NoError(t, errs[i], "run %d", i)
		assert.Equal(t, fmt.Sprintf("doc %d", i), results[i].Content)
		assert.Equal(t, true, results[i].Metadata["stable"])
	}
	assert.Equal(t, []string{"stable"}, set.PostProcessors.List())
	assert.Equal(t, []string{"final"}, set.Validators.List())
	assert.Equal(t, 0, orch.Pool.Stats().Running)
}

// A foreign post-processor re-enters its own runtime through a foreign
// validator while other executions compete for the same runtime and a pool
// smaller than the number of executions.
func TestOrchestrator_ForeignReentrance(t *testing.T) {
	t.Parallel()

	orch, set := newOrchestrator(t)
	pool := worker.NewPool(2)
	orch.Pool = pool
	rt := foreign.NewRuntime("py")
	adapter := foreign.NewAdapter(pool, discard)

	check := foreign.NewValidator(adapter, "check", foreign.SyncTarget(rt,
		func(_ context.Context, payload []byte) ([]byte, error) {
			var req foreign.ProcessRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, err
			}
			if req.Result.Metadata["tagged"] != true {
				return nil, errors.New("not tagged")
			}
			return nil, nil
		}))
	tagger := foreign.NewPostProcessor(adapter, "tagger", docint.StageEarly, foreign.SyncTarget(rt,
		func(ctx context.Context, payload []byte) ([]byte, error) {
			var req foreign.ProcessRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, err
			}
			req.Result.SetMetadata("tagged", true)
			if err := check.Validate(ctx, req.Result, req.Config); err != nil {
				return nil, err
			}
			return json.Marshal(req.Result)
		}))
	_, err := set.PostProcessors.Register("tagger", tagger)
	require.NoError(t, err)
	_, err = set.Validators.Register("check", check)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const runs = 20
	execs := make([]*pipeline.Execution, runs)
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := range runs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			execs[i], errs[i] = orch.Run(ctx, textRequest("payload"))
		}()
	}
	wg.Wait()

	for i := range runs {
		require.NoError(t, errs[i])
		assert.Empty(t, execs[i].ProcessorErrors)
		assert.Equal(t, true, execs[i].Result.Metadata["tagged"])
	}
	// One acquisition per tagger call and one per validating stage; the
	// nested validator call reenters.
	assert.Equal(t, int64(2*runs), rt.Entries())
}
