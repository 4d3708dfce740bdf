package mock

import (
	"context"

	"github.com/fwojciec/docint"
)

var _ docint.PostProcessor = (*PostProcessor)(nil)

// PostProcessor is a mock implementation of docint.PostProcessor.
type PostProcessor struct {
	NameFn    func() string
	ProcessFn func(ctx context.Context, result *docint.ExtractionResult, cfg *docint.ExtractionConfig) error
	StageFn   func() docint.ProcessingStage
}

func (p *PostProcessor) Name() string {
	return p.NameFn()
}

func (p *PostProcessor) Process(ctx context.Context, result *docint.ExtractionResult, cfg *docint.ExtractionConfig) error {
	return p.ProcessFn(ctx, result, cfg)
}

func (p *PostProcessor) Stage() docint.ProcessingStage {
	if p.StageFn != nil {
		return p.StageFn()
	}
	return docint.StageMiddle
}

var _ docint.Validator = (*Validator)(nil)

// Validator is a mock implementation of docint.Validator.
type Validator struct {
	NameFn     func() string
	ValidateFn func(ctx context.Context, result *docint.ExtractionResult, cfg *docint.ExtractionConfig) error
}

func (v *Validator) Name() string {
	return v.NameFn()
}

func (v *Validator) Validate(ctx context.Context, result *docint.ExtractionResult, cfg *docint.ExtractionConfig) error {
	return v.ValidateFn(ctx, result, cfg)
}

var _ docint.OcrBackend = (*OcrBackend)(nil)

// OcrBackend is a mock implementation of docint.OcrBackend.
type OcrBackend struct {
	NameFn               func() string
	ProcessImageFn       func(ctx context.Context, image []byte, cfg *docint.OcrConfig) (*docint.OcrResult, error)
	SupportedLanguagesFn func() []string
}

func (b *OcrBackend) Name() string {
	return b.NameFn()
}

func (b *OcrBackend) ProcessImage(ctx context.Context, image []byte, cfg *docint.OcrConfig) (*docint.OcrResult, error) {
	return b.ProcessImageFn(ctx, image, cfg)
}

func (b *OcrBackend) SupportedLanguages() []string {
	if b.SupportedLanguagesFn != nil {
		return b.SupportedLanguagesFn()
	}
	return nil
}

var _ docint.OcrBackendLookup = (*OcrBackendLookup)(nil)

// OcrBackendLookup is a mock implementation of docint.OcrBackendLookup.
type OcrBackendLookup struct {
	OcrBackendFn func(name string) (docint.OcrBackend, bool)
}

func (l *OcrBackendLookup) OcrBackend(name string) (docint.OcrBackend, bool) {
	return l.OcrBackendFn(name)
}
