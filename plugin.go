package docint

import "context"

// Family identifies a plugin family.
type Family string

// Plugin families.
const (
	FamilyExtractor     Family = "extractor"
	FamilyOcrBackend    Family = "ocr_backend"
	FamilyPostProcessor Family = "post_processor"
	FamilyValidator     Family = "validator"
)

// ProcessingStage orders post-processors. Stages run Early, Middle, Late.
type ProcessingStage int

// Post-processing stages, in execution order.
const (
	StageEarly ProcessingStage = iota
	StageMiddle
	StageLate
)

// Stages lists the post-processing stages in execution order.
var Stages = []ProcessingStage{StageEarly, StageMiddle, StageLate}

func (s ProcessingStage) String() string {
	switch s {
	case StageEarly:
		return "early"
	case StageMiddle:
		return "middle"
	case StageLate:
		return "late"
	default:
		return "unknown"
	}
}

// ParseStage converts a stage name into a ProcessingStage.
func ParseStage(s string) (ProcessingStage, error) {
	switch s {
	case "early":
		return StageEarly, nil
	case "middle":
		return StageMiddle, nil
	case "late":
		return StageLate, nil
	}
	return 0, Errorf(EINVALID, "unknown processing stage %q", s)
}

// Plugin is implemented by every plugin family.
type Plugin interface {
	// Name returns the plugin's identifier.
	Name() string
}

// Initializer is implemented by plugins that need setup before use.
// Initialize is called once, before the plugin becomes visible in a registry.
type Initializer interface {
	Initialize() error
}

// Shutdowner is implemented by plugins that hold resources.
// Shutdown is called when the registry set owning the plugin is closed.
type Shutdowner interface {
	Shutdown() error
}

// DocumentExtractor turns raw document bytes into an ExtractionResult.
type DocumentExtractor interface {
	Plugin

	// Extract decodes content of the given MIME type.
	// Timeouts and cancellation are the extractor's own responsibility.
	Extract(ctx context.Context, content []byte, mimeType string, cfg *ExtractionConfig) (*ExtractionResult, error)

	// SupportedMimeTypes returns the MIME types or patterns (e.g., "text/*",
	// "application/*+xml") this extractor handles.
	SupportedMimeTypes() []string

	// Priority returns the default selection priority (higher = preferred).
	Priority() int
}

// OcrBackend recovers text from images.
type OcrBackend interface {
	Plugin

	// ProcessImage runs OCR over an encoded image.
	ProcessImage(ctx context.Context, image []byte, cfg *OcrConfig) (*OcrResult, error)

	// SupportedLanguages returns the language codes the backend accepts.
	SupportedLanguages() []string
}

// PostProcessor transforms a result in place.
type PostProcessor interface {
	Plugin

	// Process mutates result. On error the pipeline discards any partial
	// change and carries the previous result forward.
	Process(ctx context.Context, result *ExtractionResult, cfg *ExtractionConfig) error

	// Stage returns the stage the processor runs in.
	Stage() ProcessingStage
}

// Validator accepts or rejects a final result.
type Validator interface {
	Plugin

	// Validate returns an error if the result must be rejected.
	Validate(ctx context.Context, result *ExtractionResult, cfg *ExtractionConfig) error
}

// OcrBackendLookup resolves a registered OcrBackend by name.
type OcrBackendLookup interface {
	OcrBackend(name string) (OcrBackend, bool)
}
