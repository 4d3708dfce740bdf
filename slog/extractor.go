// Package slog provides logging decorators for docint services and plugins.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docint"
)

// Ensure LoggingExtractor implements docint.DocumentExtractor and forwards
// the plugin lifecycle.
var (
	_ docint.DocumentExtractor = (*LoggingExtractor)(nil)
	_ docint.Initializer       = (*LoggingExtractor)(nil)
	_ docint.Shutdowner        = (*LoggingExtractor)(nil)
)

// LoggingExtractor wraps a DocumentExtractor with logging.
type LoggingExtractor struct {
	next   docint.DocumentExtractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next docint.DocumentExtractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

func (e *LoggingExtractor) Name() string                 { return e.next.Name() }
func (e *LoggingExtractor) SupportedMimeTypes() []string { return e.next.SupportedMimeTypes() }
func (e *LoggingExtractor) Priority() int                { return e.next.Priority() }
func (e *LoggingExtractor) Initialize() error            { return initialize(e.next) }
func (e *LoggingExtractor) Shutdown() error              { return shutdown(e.next) }

// Extract delegates to the wrapped extractor and logs the operation.
func (e *LoggingExtractor) Extract(ctx context.Context, content []byte, mimeType string, cfg *docint.ExtractionConfig) (result *docint.ExtractionResult, err error) {
	defer func(begin time.Time) {
		chars := 0
		if result != nil {
			chars = len(result.Content)
		}
		e.logger.Info("extract",
			"extractor", e.next.Name(),
			"mime", mimeType,
			"bytes", len(content),
			"chars", chars,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Extract(ctx, content, mimeType, cfg)
}
