package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/fwojciec/docint"
	"github.com/fwojciec/docint/bloom"
	"github.com/fwojciec/docint/dateparse"
	"github.com/fwojciec/docint/detect"
	"github.com/fwojciec/docint/docconv"
	"github.com/fwojciec/docint/enmime"
	"github.com/fwojciec/docint/etree"
	"github.com/fwojciec/docint/excelize"
	"github.com/fwojciec/docint/foreign"
	"github.com/fwojciec/docint/gemini"
	"github.com/fwojciec/docint/goquery"
	"github.com/fwojciec/docint/jsonschema"
	"github.com/fwojciec/docint/ocr"
	"github.com/fwojciec/docint/pdf"
	"github.com/fwojciec/docint/pipeline"
	"github.com/fwojciec/docint/readability"
	"github.com/fwojciec/docint/registry"
	docslog "github.com/fwojciec/docint/slog"
	"github.com/fwojciec/docint/tesseract"
	"github.com/fwojciec/docint/text"
	"github.com/fwojciec/docint/trafilatura"
	"github.com/fwojciec/docint/whatlang"
	"github.com/fwojciec/docint/worker"
	"google.golang.org/genai"
)

// EngineOptions selects the optional parts of an Engine.
type EngineOptions struct {
	// Workers bounds concurrent pipeline executions.
	Workers int

	// Hooks are shell commands run out of process as Middle-stage
	// post-processors, registered and run in slice order.
	Hooks []Hook

	// Schemas lists JSON Schema files; each becomes a validator.
	Schemas []string

	// Summarize registers the Gemini summarizer when an API key is available.
	Summarize bool

	// CountTokens makes chunks carry Gemini token counts.
	CountTokens bool
}

// Engine is a fully wired extraction engine.
type Engine struct {
	Plugins      *registry.Set
	Pool         *worker.Pool
	Adapter      *foreign.Adapter
	Orchestrator *pipeline.Orchestrator
}

// NewEngine builds a registry set holding every built-in plugin and an
// orchestrator over it.
func NewEngine(ctx context.Context, opts EngineOptions, logger *slog.Logger) (*Engine, error) {
	pool := worker.NewPool(opts.Workers)
	e := &Engine{
		Plugins: registry.NewSet(),
		Pool:    pool,
		Adapter: foreign.NewAdapter(pool, logger),
	}

	var counter docint.TokenCounter
	if opts.CountTokens {
		tc, err := gemini.NewTokenCounter(gemini.DefaultTokenizerModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create token counter: %w", err)
		}
		counter = tc
	}

	e.Orchestrator = &pipeline.Orchestrator{
		Plugins:  e.Plugins,
		Detector: detect.NewDetector(),
		Scorer:   text.NewScorer(),
		Chunker:  text.NewChunker(counter),
		Pool:     pool,
		Logger:   logger,
	}

	if err := e.registerExtractors(logger); err != nil {
		return nil, err
	}
	if err := e.registerProcessors(ctx, opts, logger); err != nil {
		return nil, err
	}
	if err := e.registerValidators(opts, logger); err != nil {
		return nil, err
	}
	return e, nil
}

// Close shuts down every registered plugin.
func (e *Engine) Close() error {
	return e.Plugins.Close()
}

func (e *Engine) registerExtractors(logger *slog.Logger) error {
	extractors := []docint.DocumentExtractor{
		text.NewExtractor(),
		trafilatura.NewExtractor(),
		readability.NewExtractor(),
		goquery.NewExtractor(),
		etree.NewExtractor(),
		pdf.NewExtractor(),
		excelize.NewExtractor(),
		docconv.NewExtractor(),
		enmime.NewExtractor(),
		enmime.NewMboxExtractor(),
		ocr.NewExtractor(e.Plugins),
	}
	for _, x := range extractors {
		if _, err := e.Plugins.Extractors.Register(x.Name(), docslog.NewLoggingExtractor(x, logger)); err != nil {
			return err
		}
	}

	// The decorator forwards Initialize, so a missing tesseract binary
	// rejects the registration and extraction continues without OCR.
	tess := tesseract.NewBackend(logger)
	if _, err := e.Plugins.OcrBackends.Register(tess.Name(), docslog.NewLoggingOcrBackend(tess, logger)); err != nil {
		logger.Warn("OCR backend unavailable", "backend", tess.Name(), "err", err)
	}
	return nil
}

func (e *Engine) registerProcessors(ctx context.Context, opts EngineOptions, logger *slog.Logger) error {
	processors := []docint.PostProcessor{
		text.NewNormalizer(),
		bloom.NewDeduplicator(),
		whatlang.NewDetector(),
		dateparse.NewNormalizer(),
	}

	for _, h := range opts.Hooks {
		processors = append(processors, foreign.NewPostProcessor(e.Adapter, h.Name, docint.StageMiddle, HookTarget(h.Command, logger)))
	}

	if opts.Summarize {
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY not set. Get a key at https://aistudio.google.com/apikey")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
		processors = append(processors, gemini.NewSummarizer(client, gemini.DefaultModel))
	}

	for _, p := range processors {
		if _, err := e.Plugins.PostProcessors.Register(p.Name(), docslog.NewLoggingPostProcessor(p, logger)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) registerValidators(opts EngineOptions, logger *slog.Logger) error {
	validators := []docint.Validator{jsonschema.NewNonEmptyValidator()}
	for _, path := range opts.Schemas {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read schema: %w", err)
		}
		v, err := jsonschema.NewValidator(schemaName(path), b)
		if err != nil {
			return err
		}
		validators = append(validators, v)
	}
	for _, v := range validators {
		if _, err := e.Plugins.Validators.Register(v.Name(), docslog.NewLoggingValidator(v, logger)); err != nil {
			return err
		}
	}
	return nil
}

// schemaName derives a validator name from a schema file name.
// Example: schemas/invoice.schema.json → invoice
func schemaName(path string) string {
	base := path[strings.LastIndexAny(path, `/\`)+1:]
	name, _, _ := strings.Cut(base, ".")
	if name == "" {
		return "schema"
	}
	return strings.Join(strings.Fields(name), "_")
}

// Hook is a named shell command registered as a post-processor.
type Hook struct {
	Name    string
	Command string
}

// ParseHooks parses NAME=COMMAND values, keeping their order.
// A name given twice is rejected since the second would replace the first.
func ParseHooks(values []string) ([]Hook, error) {
	hooks := make([]Hook, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		name, command, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(command) == "" {
			return nil, docint.Errorf(docint.EINVALID, "hook %q must have the form NAME=COMMAND", v)
		}
		if seen[name] {
			return nil, docint.Errorf(docint.EINVALID, "hook %q given more than once", name)
		}
		seen[name] = true
		hooks = append(hooks, Hook{Name: name, Command: command})
	}
	return hooks, nil
}

// HookTarget runs command through the shell for every call. The request
// payload is written to its standard input and its standard output is the
// reply. The command runs in its own process, so it is an async target that
// never holds a runtime lock.
func HookTarget(command string, logger *slog.Logger) foreign.Target {
	runner := tesseract.ExecRunner{Logger: logger}
	return foreign.AsyncTarget(func(ctx context.Context, payload []byte) <-chan foreign.Reply {
		ch := make(chan foreign.Reply, 1)
		go func() {
			defer close(ch)
			out, stderr, err := runner.Run(ctx, payload, shell(), "-c", command)
			if err != nil {
				if msg := strings.TrimSpace(string(stderr)); msg != "" {
					err = fmt.Errorf("%w: %s", err, msg)
				}
				ch <- foreign.Reply{Err: err}
				return
			}
			ch <- foreign.Reply{Payload: out}
		}()
		return ch
	})
}

func shell() string {
	if sh, err := exec.LookPath("sh"); err == nil {
		return sh
	}
	return "/bin/sh"
}
