// Package pipeline runs extraction requests through the fixed-stage
// extraction pipeline and fans batches of requests out under a bound.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docint"
	"github.com/fwojciec/docint/registry"
	"github.com/fwojciec/docint/worker"
	"github.com/google/uuid"
)

var _ docint.ExtractionService = (*Orchestrator)(nil)

// Orchestrator drives pipeline executions. Plugins is required; every
// other collaborator is optional and its stage is skipped when nil.
type Orchestrator struct {
	Plugins  *registry.Set
	Detector docint.MimeDetector
	Cache    docint.Cache
	Scorer   docint.QualityScorer
	Chunker  docint.Chunker
	Pool     *worker.Pool
	Logger   *slog.Logger

	// ReadFile loads requests that carry a path. Defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)
}

// Execution is the trace of one request's run through the pipeline.
type Execution struct {
	ID        uuid.UUID
	MimeType  string
	Extractor string
	CacheHit  bool

	// State is the current state; History lists every state entered, in order.
	State   State
	History []State

	// ProcessorErrors holds the recoverable failures recorded along the way.
	ProcessorErrors []error

	// Result is set once the execution is Done.
	Result *docint.ExtractionResult

	// Err is set once the execution has Failed.
	Err error

	// current is the value threaded through the stages.
	current *docint.ExtractionResult
}

func newExecution() *Execution {
	return &Execution{
		ID:      uuid.New(),
		State:   StateAccepted,
		History: []State{StateAccepted},
	}
}

// enter moves the execution to state. It fails if ctx is done, which makes
// every stage boundary a cancellation point.
func (e *Execution) enter(ctx context.Context, to State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !canTransition(e.State, to) {
		return docint.Errorf(docint.EINTERNAL, "invalid transition %s -> %s", e.State, to)
	}
	e.State = to
	e.History = append(e.History, to)
	return nil
}

func (e *Execution) fail(err error) {
	if !e.State.Terminal() {
		e.State = StateFailed
		e.History = append(e.History, StateFailed)
	}
	e.Err = err
	e.Result = nil
	e.current = nil
}

// Extract runs req through the pipeline and returns its result.
func (o *Orchestrator) Extract(ctx context.Context, req *docint.ExtractionRequest) (*docint.ExtractionResult, error) {
	exec, err := o.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return exec.Result, nil
}

// Run runs req through the pipeline and returns the execution trace.
// The trace is returned on failure too; its Result is then nil.
//
// Each stage takes its list of plugins from the registry when it begins, so
// registrations made mid-flight only affect stages that have not started.
func (o *Orchestrator) Run(ctx context.Context, req *docint.ExtractionRequest) (*Execution, error) {
	exec := newExecution()
	if err := req.Validate(); err != nil {
		exec.fail(err)
		return exec, err
	}

	defer func(begin time.Time) {
		if exec.Err != nil {
			o.logger().Info("extraction failed",
				"execution", exec.ID,
				"mime", exec.MimeType,
				"extractor", exec.Extractor,
				"at", exec.History[len(exec.History)-2],
				"duration", time.Since(begin),
				"err", exec.Err,
			)
		}
	}(time.Now())

	err := o.Pool.Run(ctx, func(ctx context.Context) error {
		return o.execute(ctx, exec, req)
	})
	if err != nil {
		exec.fail(err)
		return exec, err
	}
	return exec, nil
}

func (o *Orchestrator) execute(ctx context.Context, exec *Execution, req *docint.ExtractionRequest) error {
	cfg := req.EffectiveConfig()

	content, err := o.content(req)
	if err != nil {
		return err
	}
	mimeType, err := o.mimeType(content, req)
	if err != nil {
		return err
	}
	exec.MimeType = mimeType

	if err := o.extractStage(ctx, exec, content, cfg); err != nil {
		return err
	}
	for _, stage := range docint.Stages {
		if err := o.postProcessStage(ctx, exec, stage, cfg); err != nil {
			return err
		}
	}
	if err := o.scoreStage(ctx, exec, cfg); err != nil {
		return err
	}
	if err := o.chunkStage(ctx, exec, cfg); err != nil {
		return err
	}
	if err := o.validateStage(ctx, exec, cfg); err != nil {
		return err
	}

	if err := exec.enter(ctx, StateDone); err != nil {
		return err
	}
	exec.Result, exec.current = exec.current, nil
	return nil
}

func (o *Orchestrator) content(req *docint.ExtractionRequest) ([]byte, error) {
	if req.Content != nil {
		return req.Content, nil
	}
	read := o.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	b, err := read(req.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, docint.Errorf(docint.ENOTFOUND, "document %q not found", req.Path)
	} else if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.Path, err)
	}
	return b, nil
}

func (o *Orchestrator) mimeType(content []byte, req *docint.ExtractionRequest) (string, error) {
	if req.MimeType != "" {
		return registry.NormalizeMimeType(req.MimeType), nil
	}
	if o.Detector == nil {
		return "", docint.Errorf(docint.EINVALID, "mime type required")
	}
	mt, err := o.Detector.Detect(content, req.Path)
	if err != nil {
		return "", fmt.Errorf("detect mime type: %w", err)
	}
	return registry.NormalizeMimeType(mt), nil
}

func (o *Orchestrator) extractStage(ctx context.Context, exec *Execution, content []byte, cfg *docint.ExtractionConfig) error {
	if err := exec.enter(ctx, StateExtracting); err != nil {
		return err
	}

	h, err := registry.NewSelector(o.Plugins.Extractors).Select(exec.MimeType)
	if err != nil {
		return err
	}
	exec.Extractor = h.Name

	useCache := cfg.UseCache && o.Cache != nil
	key := CacheKey(content, exec.MimeType, h.Name)
	if useCache {
		cached, ok, err := o.Cache.Get(ctx, key)
		if err != nil {
			o.logger().Warn("cache lookup failed", "execution", exec.ID, "err", err)
		} else if ok && cached != nil {
			exec.CacheHit = true
			exec.current = cached.Clone()
			return nil
		}
	}

	var res *docint.ExtractionResult
	err = protect(func() error {
		var err error
		res, err = h.Plugin.Extract(ctx, content, exec.MimeType, cfg)
		return err
	})
	if err != nil {
		return docint.PluginError(docint.EEXTRACTION, h.Name, err)
	}
	if res == nil {
		return &docint.Error{Code: docint.EEXTRACTION, Plugin: h.Name, Message: "extractor returned no result"}
	}
	if res.MimeType == "" {
		res.MimeType = exec.MimeType
	}

	if useCache {
		if err := o.Cache.Put(ctx, key, res.Clone()); err != nil {
			o.logger().Warn("cache store failed", "execution", exec.ID, "err", err)
		}
	}
	exec.current = res
	return nil
}

// postProcessStage runs the processors registered for stage in registration
// order. A failing processor's changes are discarded and the result from
// before it is carried forward.
func (o *Orchestrator) postProcessStage(ctx context.Context, exec *Execution, stage docint.ProcessingStage, cfg *docint.ExtractionConfig) error {
	if err := exec.enter(ctx, stageState(stage)); err != nil {
		return err
	}

	for _, h := range o.Plugins.PostProcessorsForStage(stage) {
		if err := ctx.Err(); err != nil {
			return err
		}

		before := exec.current.Clone()
		err := protect(func() error {
			return h.Plugin.Process(ctx, exec.current, cfg)
		})
		if err != nil {
			exec.current = before
			perr := docint.PluginError(docint.EPROCESSOR, h.Name, err)
			exec.ProcessorErrors = append(exec.ProcessorErrors, perr)
			o.logger().Warn("post-processor failed",
				"execution", exec.ID,
				"processor", h.Name,
				"stage", stage,
				"err", err,
			)
		}
	}
	return nil
}

func (o *Orchestrator) scoreStage(ctx context.Context, exec *Execution, cfg *docint.ExtractionConfig) error {
	if !cfg.EnableQualityProcessing || o.Scorer == nil {
		return nil
	}
	if err := exec.enter(ctx, StateScoring); err != nil {
		return err
	}

	var score float64
	err := protect(func() error {
		var err error
		score, err = o.Scorer.Score(ctx, exec.current)
		return err
	})
	if err != nil {
		exec.ProcessorErrors = append(exec.ProcessorErrors, docint.PluginError(docint.EPROCESSOR, "quality_scorer", err))
		o.logger().Warn("quality scoring failed", "execution", exec.ID, "err", err)
		return nil
	}
	exec.current.QualityScore = &score
	return nil
}

func (o *Orchestrator) chunkStage(ctx context.Context, exec *Execution, cfg *docint.ExtractionConfig) error {
	if !cfg.ChunkingEnabled() {
		return nil
	}
	if err := exec.enter(ctx, StateChunking); err != nil {
		return err
	}
	if o.Chunker == nil {
		return docint.Errorf(docint.ECHUNKING, "chunking enabled but no chunker configured")
	}

	var chunks []docint.Chunk
	err := protect(func() error {
		var err error
		chunks, err = o.Chunker.Chunk(ctx, exec.current.Content, cfg.Chunking)
		return err
	})
	if err != nil {
		return &docint.Error{Code: docint.ECHUNKING, Message: "chunk content", Err: err}
	}
	exec.current.Chunks = chunks
	return nil
}

// validateStage runs every registered validator in registration order.
// Under FailFast the first rejection ends the execution; under CollectAll
// every validator runs and all rejections are reported together.
func (o *Orchestrator) validateStage(ctx context.Context, exec *Execution, cfg *docint.ExtractionConfig) error {
	if err := exec.enter(ctx, StateValidating); err != nil {
		return err
	}

	var errs []error
	for _, h := range o.Plugins.Validators.Snapshot() {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := protect(func() error {
			return h.Plugin.Validate(ctx, exec.current, cfg)
		})
		if err == nil {
			continue
		}
		verr := docint.PluginError(docint.EVALIDATION, h.Name, err)
		if cfg.Validation != docint.CollectAll {
			return verr
		}
		errs = append(errs, verr)
	}

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &docint.Error{
			Code:    docint.EVALIDATION,
			Message: fmt.Sprintf("%d validators rejected the result", len(errs)),
			Err:     errors.Join(errs...),
		}
	}
}

// CacheKey identifies raw extractor output for content of mimeType
// produced by the named extractor.
func CacheKey(content []byte, mimeType, extractor string) string {
	return fmt.Sprintf("%016x:%s:%s", xxhash.Sum64(content), mimeType, extractor)
}

// protect calls fn and turns a panic into an error.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
