package mock

import (
	"context"

	"github.com/fwojciec/docint"
)

var _ docint.DocumentExtractor = (*Extractor)(nil)

// Extractor is a mock implementation of docint.DocumentExtractor.
type Extractor struct {
	NameFn               func() string
	ExtractFn            func(ctx context.Context, content []byte, mimeType string, cfg *docint.ExtractionConfig) (*docint.ExtractionResult, error)
	SupportedMimeTypesFn func() []string
	PriorityFn           func() int
}

func (e *Extractor) Name() string {
	return e.NameFn()
}

func (e *Extractor) Extract(ctx context.Context, content []byte, mimeType string, cfg *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
	return e.ExtractFn(ctx, content, mimeType, cfg)
}

func (e *Extractor) SupportedMimeTypes() []string {
	return e.SupportedMimeTypesFn()
}

func (e *Extractor) Priority() int {
	if e.PriorityFn != nil {
		return e.PriorityFn()
	}
	return 0
}
