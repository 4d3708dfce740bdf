// Package ocr extracts text from images by delegating to a registered
// docint.OcrBackend.
package ocr

import (
	"context"
	"slices"
	"strings"

	"github.com/fwojciec/docint"
)

var _ docint.DocumentExtractor = (*Extractor)(nil)

// Extractor handles image MIME types. The backend is resolved by name on
// every call, so backends registered or replaced after the extractor was
// created are picked up.
type Extractor struct {
	Backends docint.OcrBackendLookup
}

// NewExtractor creates an Extractor that resolves backends through lookup.
func NewExtractor(lookup docint.OcrBackendLookup) *Extractor {
	return &Extractor{Backends: lookup}
}

func (e *Extractor) Name() string                 { return "ocr" }
func (e *Extractor) SupportedMimeTypes() []string { return []string{"image/*"} }
func (e *Extractor) Priority() int                { return 10 }

func (e *Extractor) Extract(ctx context.Context, content []byte, mimeType string, cfg *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
	if len(content) == 0 {
		return nil, docint.Errorf(docint.EINVALID, "empty image")
	}

	name := cfg.OcrBackendName()
	backend, ok := e.Backends.OcrBackend(name)
	if !ok {
		return nil, docint.Errorf(docint.ENOTFOUND, "OCR backend %q is not registered", name)
	}

	lang := cfg.OcrLanguage()
	if langs := backend.SupportedLanguages(); len(langs) > 0 && !supports(langs, lang) {
		return nil, docint.Errorf(docint.EINVALID, "OCR backend %q does not support language %q", name, lang)
	}

	out, err := backend.ProcessImage(ctx, content, &docint.OcrConfig{Backend: name, Language: lang})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, docint.Errorf(docint.EINTERNAL, "OCR backend %q returned no result", name)
	}

	res := &docint.ExtractionResult{
		Content:  strings.TrimSpace(out.Content),
		MimeType: mimeType,
		Tables:   out.Tables,
	}
	for key, value := range out.Metadata {
		res.SetMetadata(key, value)
	}
	res.SetMetadata("ocr_backend", name)
	if out.Confidence > 0 {
		res.SetMetadata("ocr_confidence", out.Confidence)
	}
	if out.Language != "" {
		res.DetectedLanguages = []string{out.Language}
	}
	return res, nil
}

// supports reports whether lang is accepted. A "+"-joined list such as
// "eng+deu" requires every member to be supported.
func supports(langs []string, lang string) bool {
	for l := range strings.SplitSeq(lang, "+") {
		if !slices.Contains(langs, l) {
			return false
		}
	}
	return true
}
