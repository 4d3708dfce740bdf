// Package text provides the plain-text extractor, the content chunker, the
// heuristic quality scorer and whitespace normalization.
package text

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/docint"
	"github.com/gogs/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

var _ docint.DocumentExtractor = (*Extractor)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor decodes any text/* document as UTF-8. More specific extractors
// registered for a text subtype take precedence.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string                 { return "text" }
func (e *Extractor) SupportedMimeTypes() []string { return []string{"text/*"} }
func (e *Extractor) Priority() int                { return 10 }

// Extract returns content as text. Content that is not UTF-8 is decoded
// from its detected charset; sequences that still cannot be decoded are
// replaced with U+FFFD. Markdown documents get their first top-level
// heading as the "title" metadata.
func (e *Extractor) Extract(_ context.Context, content []byte, mimeType string, _ *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
	s, charset := Decode(content)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	res := &docint.ExtractionResult{
		Content:  s,
		MimeType: mimeType,
	}
	res.SetMetadata("encoding", charset)
	res.SetMetadata("line_count", strings.Count(s, "\n")+1)
	if mimeType == "text/markdown" {
		if title := markdownTitle(s); title != "" {
			res.SetMetadata("title", title)
		}
	}
	return res, nil
}

func markdownTitle(s string) string {
	for line := range strings.Lines(s) {
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}

// Decode converts content to a UTF-8 string and reports the charset it was
// decoded from.
func Decode(content []byte) (string, string) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if utf8.Valid(content) {
		return string(content), "utf-8"
	}

	if best, err := chardet.NewTextDetector().DetectBest(content); err == nil {
		if enc, err := htmlindex.Get(best.Charset); err == nil {
			if decoded, err := enc.NewDecoder().Bytes(content); err == nil && utf8.Valid(decoded) {
				name, _ := htmlindex.Name(enc)
				return string(decoded), name
			}
		}
	}
	return strings.ToValidUTF8(string(content), "\uFFFD"), "utf-8"
}
