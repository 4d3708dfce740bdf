// Package pdf extracts text from PDF documents using ledongthuc/pdf.
package pdf

import (
	"bytes"
	"context"
	"strings"

	"github.com/fwojciec/docint"
	"github.com/ledongthuc/pdf"
)

var _ docint.DocumentExtractor = (*Extractor)(nil)

// MimeType is the content type handled by Extractor.
const MimeType = "application/pdf"

// Extractor extracts plain text from PDF documents page by page.
// Pages are separated by a blank line. Unreadable pages are skipped.
type Extractor struct{}

// NewExtractor creates a PDF extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string                 { return "pdf" }
func (e *Extractor) SupportedMimeTypes() []string { return []string{MimeType} }
func (e *Extractor) Priority() int                { return 10 }

func (e *Extractor) Extract(ctx context.Context, content []byte, mimeType string, _ *docint.ExtractionConfig) (res *docint.ExtractionResult, err error) {
	if len(content) == 0 {
		return nil, docint.Errorf(docint.EINVALID, "empty PDF content")
	}

	// The PDF reader panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, docint.Errorf(docint.EINVALID, "malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, docint.Errorf(docint.EINVALID, "open pdf: %v", err)
	}

	var (
		text    strings.Builder
		skipped int
	)
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			skipped++
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}

	res = &docint.ExtractionResult{
		Content:  text.String(),
		MimeType: mimeType,
	}
	res.SetMetadata("page_count", r.NumPage())
	if skipped > 0 {
		res.SetMetadata("skipped_pages", skipped)
	}
	info := r.Trailer().Key("Info")
	for key, field := range map[string]string{"title": "Title", "author": "Author", "subject": "Subject"} {
		if v := strings.TrimSpace(info.Key(field).Text()); v != "" {
			res.SetMetadata(key, v)
		}
	}
	return res, nil
}

