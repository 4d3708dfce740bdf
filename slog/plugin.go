package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docint"
)

// Ensure decorators implement their plugin interfaces.
var (
	_ docint.PostProcessor = (*LoggingPostProcessor)(nil)
	_ docint.Validator     = (*LoggingValidator)(nil)
	_ docint.OcrBackend    = (*LoggingOcrBackend)(nil)

	_ docint.Initializer = (*LoggingPostProcessor)(nil)
	_ docint.Shutdowner  = (*LoggingPostProcessor)(nil)
	_ docint.Initializer = (*LoggingValidator)(nil)
	_ docint.Shutdowner  = (*LoggingValidator)(nil)
	_ docint.Initializer = (*LoggingOcrBackend)(nil)
	_ docint.Shutdowner  = (*LoggingOcrBackend)(nil)
)

// LoggingPostProcessor wraps a PostProcessor with logging.
type LoggingPostProcessor struct {
	next   docint.PostProcessor
	logger *slog.Logger
}

// NewLoggingPostProcessor creates a new LoggingPostProcessor.
func NewLoggingPostProcessor(next docint.PostProcessor, logger *slog.Logger) *LoggingPostProcessor {
	return &LoggingPostProcessor{next: next, logger: logger}
}

func (p *LoggingPostProcessor) Name() string                  { return p.next.Name() }
func (p *LoggingPostProcessor) Stage() docint.ProcessingStage { return p.next.Stage() }
func (p *LoggingPostProcessor) Initialize() error             { return initialize(p.next) }
func (p *LoggingPostProcessor) Shutdown() error               { return shutdown(p.next) }

// Process delegates to the wrapped processor and logs the operation.
func (p *LoggingPostProcessor) Process(ctx context.Context, result *docint.ExtractionResult, cfg *docint.ExtractionConfig) (err error) {
	defer func(begin time.Time) {
		p.logger.Debug("post-process",
			"processor", p.next.Name(),
			"stage", p.next.Stage(),
			"chars", len(result.Content),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.Process(ctx, result, cfg)
}

// LoggingValidator wraps a Validator with logging.
type LoggingValidator struct {
	next   docint.Validator
	logger *slog.Logger
}

// NewLoggingValidator creates a new LoggingValidator.
func NewLoggingValidator(next docint.Validator, logger *slog.Logger) *LoggingValidator {
	return &LoggingValidator{next: next, logger: logger}
}

func (v *LoggingValidator) Name() string      { return v.next.Name() }
func (v *LoggingValidator) Initialize() error { return initialize(v.next) }
func (v *LoggingValidator) Shutdown() error   { return shutdown(v.next) }

// Validate delegates to the wrapped validator and logs the operation.
func (v *LoggingValidator) Validate(ctx context.Context, result *docint.ExtractionResult, cfg *docint.ExtractionConfig) (err error) {
	defer func(begin time.Time) {
		v.logger.Debug("validate",
			"validator", v.next.Name(),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return v.next.Validate(ctx, result, cfg)
}

// LoggingOcrBackend wraps an OcrBackend with logging.
type LoggingOcrBackend struct {
	next   docint.OcrBackend
	logger *slog.Logger
}

// NewLoggingOcrBackend creates a new LoggingOcrBackend.
func NewLoggingOcrBackend(next docint.OcrBackend, logger *slog.Logger) *LoggingOcrBackend {
	return &LoggingOcrBackend{next: next, logger: logger}
}

func (b *LoggingOcrBackend) Name() string                 { return b.next.Name() }
func (b *LoggingOcrBackend) SupportedLanguages() []string { return b.next.SupportedLanguages() }
func (b *LoggingOcrBackend) Initialize() error             { return initialize(b.next) }
func (b *LoggingOcrBackend) Shutdown() error               { return shutdown(b.next) }

// ProcessImage delegates to the wrapped backend and logs the operation.
func (b *LoggingOcrBackend) ProcessImage(ctx context.Context, image []byte, cfg *docint.OcrConfig) (result *docint.OcrResult, err error) {
	defer func(begin time.Time) {
		var chars int
		var confidence float64
		if result != nil {
			chars, confidence = len(result.Content), result.Confidence
		}
		b.logger.Info("ocr",
			"backend", b.next.Name(),
			"bytes", len(image),
			"chars", chars,
			"confidence", confidence,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.next.ProcessImage(ctx, image, cfg)
}

// initialize forwards to plugin's Initialize, if it has one.
func initialize(plugin docint.Plugin) error {
	if init, ok := plugin.(docint.Initializer); ok {
		return init.Initialize()
	}
	return nil
}

// shutdown forwards to plugin's Shutdown, if it has one.
func shutdown(plugin docint.Plugin) error {
	if sd, ok := plugin.(docint.Shutdowner); ok {
		return sd.Shutdown()
	}
	return nil
}
