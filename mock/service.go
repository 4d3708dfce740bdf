package mock

import (
	"context"

	"github.com/fwojciec/docint"
)

var _ docint.ExtractionService = (*ExtractionService)(nil)

// ExtractionService is a mock implementation of docint.ExtractionService.
type ExtractionService struct {
	ExtractFn func(ctx context.Context, req *docint.ExtractionRequest) (*docint.ExtractionResult, error)
}

func (s *ExtractionService) Extract(ctx context.Context, req *docint.ExtractionRequest) (*docint.ExtractionResult, error) {
	return s.ExtractFn(ctx, req)
}

var _ docint.Cache = (*Cache)(nil)

// Cache is a mock implementation of docint.Cache.
type Cache struct {
	GetFn func(ctx context.Context, key string) (*docint.ExtractionResult, bool, error)
	PutFn func(ctx context.Context, key string, result *docint.ExtractionResult) error
}

func (c *Cache) Get(ctx context.Context, key string) (*docint.ExtractionResult, bool, error) {
	return c.GetFn(ctx, key)
}

func (c *Cache) Put(ctx context.Context, key string, result *docint.ExtractionResult) error {
	return c.PutFn(ctx, key, result)
}

var _ docint.MimeDetector = (*MimeDetector)(nil)

// MimeDetector is a mock implementation of docint.MimeDetector.
type MimeDetector struct {
	DetectFn func(content []byte, path string) (string, error)
}

func (d *MimeDetector) Detect(content []byte, path string) (string, error) {
	return d.DetectFn(content, path)
}

var _ docint.QualityScorer = (*QualityScorer)(nil)

// QualityScorer is a mock implementation of docint.QualityScorer.
type QualityScorer struct {
	ScoreFn func(ctx context.Context, result *docint.ExtractionResult) (float64, error)
}

func (s *QualityScorer) Score(ctx context.Context, result *docint.ExtractionResult) (float64, error) {
	return s.ScoreFn(ctx, result)
}

var _ docint.Chunker = (*Chunker)(nil)

// Chunker is a mock implementation of docint.Chunker.
type Chunker struct {
	ChunkFn func(ctx context.Context, content string, cfg *docint.ChunkingConfig) ([]docint.Chunk, error)
}

func (c *Chunker) Chunk(ctx context.Context, content string, cfg *docint.ChunkingConfig) ([]docint.Chunk, error) {
	return c.ChunkFn(ctx, content, cfg)
}
