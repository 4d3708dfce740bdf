package docint

// ExtractionRequest is one document submitted for extraction.
type ExtractionRequest struct {
	// Content holds the document bytes. If nil, Path is read instead.
	Content []byte

	// Path is the document location on disk.
	Path string

	// MimeType is the declared content type. If empty, it is detected.
	MimeType string

	// Config is read-only for the pipeline. Nil means DefaultConfig().
	Config *ExtractionConfig
}

// Validate returns an error if the request contains invalid fields.
func (r *ExtractionRequest) Validate() error {
	if r == nil {
		return Errorf(EINVALID, "extraction request required")
	}
	if r.Content == nil && r.Path == "" {
		return Errorf(EINVALID, "request content or path required")
	}
	return r.Config.Validate()
}

// EffectiveConfig returns the request's configuration, or DefaultConfig().
func (r *ExtractionRequest) EffectiveConfig() *ExtractionConfig {
	if r.Config == nil {
		return DefaultConfig()
	}
	return r.Config
}
