package foreign

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/docint"
)

// ProcessRequest is the payload sent to foreign post-processors and
// validators.
type ProcessRequest struct {
	Result *docint.ExtractionResult `json:"result"`
	Config *docint.ExtractionConfig `json:"config,omitempty"`
}

// OcrRequest is the payload sent to foreign OCR backends.
type OcrRequest struct {
	Image  []byte            `json:"image"`
	Config *docint.OcrConfig `json:"config,omitempty"`
}

// Ensure wrappers implement the plugin interfaces.
var (
	_ docint.PostProcessor = (*PostProcessor)(nil)
	_ docint.Validator     = (*Validator)(nil)
	_ docint.OcrBackend    = (*OcrBackend)(nil)
)

// PostProcessor is a post-processor implemented in a foreign runtime.
// The callable receives a ProcessRequest and replies with the updated
// ExtractionResult.
type PostProcessor struct {
	adapter *Adapter
	handle  *Handle
	stage   docint.ProcessingStage
}

// NewPostProcessor wraps target as a post-processor named name.
func NewPostProcessor(adapter *Adapter, name string, stage docint.ProcessingStage, target Target) *PostProcessor {
	return &PostProcessor{
		adapter: adapter,
		handle:  &Handle{Name: name, Family: docint.FamilyPostProcessor, Target: target},
		stage:   stage,
	}
}

func (p *PostProcessor) Name() string                  { return p.handle.Name }
func (p *PostProcessor) Stage() docint.ProcessingStage { return p.stage }

// Process sends result to the foreign callable and replaces it with the
// reply. On error result is left unchanged.
func (p *PostProcessor) Process(ctx context.Context, result *docint.ExtractionResult, cfg *docint.ExtractionConfig) error {
	payload, err := json.Marshal(ProcessRequest{Result: result, Config: cfg})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	out, err := p.adapter.Invoke(ctx, p.handle, payload)
	if err != nil {
		return err
	}

	var updated docint.ExtractionResult
	if err := json.Unmarshal(out, &updated); err != nil {
		return &InvocationError{
			Runtime: runtimeName(p.handle.Target.Runtime),
			Plugin:  p.handle.Name,
			Family:  p.handle.Family,
			Err:     fmt.Errorf("decode reply: %w", err),
		}
	}
	*result = updated
	return nil
}

// Validator is a validator implemented in a foreign runtime.
// The callable receives a ProcessRequest; an error rejects the result.
type Validator struct {
	adapter *Adapter
	handle  *Handle
}

// NewValidator wraps target as a validator named name.
func NewValidator(adapter *Adapter, name string, target Target) *Validator {
	return &Validator{
		adapter: adapter,
		handle:  &Handle{Name: name, Family: docint.FamilyValidator, Target: target},
	}
}

func (v *Validator) Name() string { return v.handle.Name }

func (v *Validator) Validate(ctx context.Context, result *docint.ExtractionResult, cfg *docint.ExtractionConfig) error {
	payload, err := json.Marshal(ProcessRequest{Result: result, Config: cfg})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	_, err = v.adapter.Invoke(ctx, v.handle, payload)
	return err
}

// OcrBackend is an OCR backend implemented in a foreign runtime.
// The callable receives an OcrRequest and replies with an OcrResult.
type OcrBackend struct {
	adapter   *Adapter
	handle    *Handle
	languages []string
}

// NewOcrBackend wraps target as an OCR backend named name.
func NewOcrBackend(adapter *Adapter, name string, languages []string, target Target) *OcrBackend {
	return &OcrBackend{
		adapter:   adapter,
		handle:    &Handle{Name: name, Family: docint.FamilyOcrBackend, Target: target},
		languages: languages,
	}
}

func (b *OcrBackend) Name() string                 { return b.handle.Name }
func (b *OcrBackend) SupportedLanguages() []string { return b.languages }

func (b *OcrBackend) ProcessImage(ctx context.Context, image []byte, cfg *docint.OcrConfig) (*docint.OcrResult, error) {
	payload, err := json.Marshal(OcrRequest{Image: image, Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out, err := b.adapter.Invoke(ctx, b.handle, payload)
	if err != nil {
		return nil, err
	}

	var res docint.OcrResult
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, &InvocationError{
			Runtime: runtimeName(b.handle.Target.Runtime),
			Plugin:  b.handle.Name,
			Family:  b.handle.Family,
			Err:     fmt.Errorf("decode reply: %w", err),
		}
	}
	return &res, nil
}
