package docint

// Default chunking limits.
const (
	DefaultChunkMaxChars   = 1000
	DefaultChunkMaxOverlap = 200
)

// DefaultOcrBackend is the OcrBackend used when OcrConfig.Backend is empty.
const DefaultOcrBackend = "tesseract"

// ValidationPolicy controls how the pipeline reacts to validator failures.
type ValidationPolicy int

const (
	// FailFast stops at the first failing validator.
	FailFast ValidationPolicy = iota

	// CollectAll runs every validator and reports all failures together.
	// The pipeline still fails if any validator failed.
	CollectAll
)

// ExtractionConfig configures one extraction request.
// The pipeline only reads it.
type ExtractionConfig struct {
	// UseCache enables the extraction cache, if one is configured.
	UseCache bool `json:"useCache"`

	// EnableQualityProcessing enables the scoring stage.
	EnableQualityProcessing bool `json:"enableQualityProcessing"`

	// Chunking configures the chunking stage. Nil disables chunking.
	Chunking *ChunkingConfig `json:"chunking,omitempty"`

	// OCR configures OCR for image inputs.
	OCR *OcrConfig `json:"ocr,omitempty"`

	// Validation selects the validator failure policy.
	Validation ValidationPolicy `json:"validation"`
}

// ChunkingConfig configures content chunking.
type ChunkingConfig struct {
	Enabled    bool `json:"enabled"`
	MaxChars   int  `json:"maxChars"`
	MaxOverlap int  `json:"maxOverlap"`
}

// OcrConfig selects an OcrBackend and its language.
type OcrConfig struct {
	Backend  string `json:"backend"`
	Language string `json:"language"`
}

// DefaultConfig returns the configuration used when a request has none.
func DefaultConfig() *ExtractionConfig {
	return &ExtractionConfig{
		UseCache:                true,
		EnableQualityProcessing: true,
	}
}

// ChunkingEnabled reports whether the chunking stage should run.
func (c *ExtractionConfig) ChunkingEnabled() bool {
	return c != nil && c.Chunking != nil && c.Chunking.Enabled
}

// OcrBackendName returns the configured OCR backend, or DefaultOcrBackend.
func (c *ExtractionConfig) OcrBackendName() string {
	if c == nil || c.OCR == nil || c.OCR.Backend == "" {
		return DefaultOcrBackend
	}
	return c.OCR.Backend
}

// OcrLanguage returns the configured OCR language, or "eng".
func (c *ExtractionConfig) OcrLanguage() string {
	if c == nil || c.OCR == nil || c.OCR.Language == "" {
		return "eng"
	}
	return c.OCR.Language
}

// Validate returns an error if the configuration contains invalid fields.
func (c *ExtractionConfig) Validate() error {
	if c == nil {
		return nil
	}
	if ch := c.Chunking; ch != nil {
		if ch.MaxChars < 0 {
			return Errorf(EINVALID, "chunk max chars must not be negative")
		}
		if ch.MaxOverlap < 0 {
			return Errorf(EINVALID, "chunk overlap must not be negative")
		}
		if ch.MaxChars > 0 && ch.MaxOverlap >= ch.MaxChars {
			return Errorf(EINVALID, "chunk overlap (%d) must be smaller than max chars (%d)", ch.MaxOverlap, ch.MaxChars)
		}
	}
	switch c.Validation {
	case FailFast, CollectAll:
	default:
		return Errorf(EINVALID, "unknown validation policy %d", c.Validation)
	}
	return nil
}
