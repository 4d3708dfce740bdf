// Package docconv extracts text from word-processing documents (DOCX and
// ODT) using sajari/docconv.
package docconv

import (
	"bytes"
	"context"
	"io"
	"strings"

	"code.sajari.com/docconv"
	"github.com/fwojciec/docint"
)

var _ docint.DocumentExtractor = (*Extractor)(nil)

// Supported MIME types.
const (
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeOdt  = "application/vnd.oasis.opendocument.text"
)

// Extractor converts DOCX and ODT documents to plain text.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string                 { return "docconv" }
func (e *Extractor) SupportedMimeTypes() []string { return []string{MimeDocx, MimeOdt} }
func (e *Extractor) Priority() int                { return 10 }

func (e *Extractor) Extract(_ context.Context, content []byte, mimeType string, _ *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
	var convert func(io.Reader) (string, map[string]string, error)
	switch mimeType {
	case MimeDocx:
		convert = docconv.ConvertDocx
	case MimeOdt:
		convert = docconv.ConvertODT
	default:
		return nil, docint.Errorf(docint.EINVALID, "unsupported MIME type %q", mimeType)
	}

	body, meta, err := convert(bytes.NewReader(content))
	if err != nil {
		return nil, docint.Errorf(docint.EINVALID, "convert document: %v", err)
	}

	res := &docint.ExtractionResult{
		Content:  cleanText(body),
		MimeType: mimeType,
	}
	for key, value := range meta {
		if value = strings.TrimSpace(value); value != "" {
			res.SetMetadata(key, value)
		}
	}
	return res, nil
}

// cleanText trims each line and collapses runs of blank lines into one.
func cleanText(s string) string {
	var (
		out   []string
		blank bool
	)
	for line := range strings.Lines(s) {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
