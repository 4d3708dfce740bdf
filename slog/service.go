package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docint"
)

// Ensure decorators implement their service interfaces.
var (
	_ docint.ExtractionService = (*LoggingService)(nil)
	_ docint.Cache             = (*LoggingCache)(nil)
)

// LoggingService wraps an ExtractionService with logging.
type LoggingService struct {
	next   docint.ExtractionService
	logger *slog.Logger
}

// NewLoggingService creates a new LoggingService.
func NewLoggingService(next docint.ExtractionService, logger *slog.Logger) *LoggingService {
	return &LoggingService{next: next, logger: logger}
}

// Extract delegates to the wrapped service and logs the operation.
func (s *LoggingService) Extract(ctx context.Context, req *docint.ExtractionRequest) (result *docint.ExtractionResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"path", req.Path,
			"bytes", len(req.Content),
		}
		if result != nil {
			attrs = append(attrs,
				"mime", result.MimeType,
				"chars", len(result.Content),
				"chunks", len(result.Chunks),
			)
		}
		attrs = append(attrs, "duration", time.Since(begin), "err", err)
		s.logger.Info("extraction", attrs...)
	}(time.Now())
	return s.next.Extract(ctx, req)
}

// LoggingCache wraps a Cache with debug logging.
type LoggingCache struct {
	next   docint.Cache
	logger *slog.Logger
}

// NewLoggingCache creates a new LoggingCache.
func NewLoggingCache(next docint.Cache, logger *slog.Logger) *LoggingCache {
	return &LoggingCache{next: next, logger: logger}
}

func (c *LoggingCache) Get(ctx context.Context, key string) (result *docint.ExtractionResult, ok bool, err error) {
	defer func(begin time.Time) {
		c.logger.Debug("cache get",
			"key", key,
			"hit", ok,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Get(ctx, key)
}

func (c *LoggingCache) Put(ctx context.Context, key string, result *docint.ExtractionResult) (err error) {
	defer func(begin time.Time) {
		c.logger.Debug("cache put",
			"key", key,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Put(ctx, key, result)
}
