// Package readability extracts article content from HTML pages using
// go-readability.
package readability

import (
	"bytes"
	"context"
	"strings"

	"github.com/fwojciec/docint"
	docgoquery "github.com/fwojciec/docint/goquery"
	"github.com/fwojciec/docint/htmltomarkdown"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements docint.DocumentExtractor at compile time.
var _ docint.DocumentExtractor = (*Extractor)(nil)

// Extractor wraps go-readability to extract main content from HTML.
// It ranks below the trafilatura extractor and serves as its fallback
// when that one is not registered.
type Extractor struct {
	Converter docint.Converter
}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{Converter: htmltomarkdown.NewConverter(htmltomarkdown.WithoutImages())}
}

func (e *Extractor) Name() string                 { return "readability" }
func (e *Extractor) SupportedMimeTypes() []string { return docgoquery.HTMLMimeTypes }
func (e *Extractor) Priority() int                { return 40 }

// Extract processes raw HTML and returns the article content as Markdown.
func (e *Extractor) Extract(_ context.Context, content []byte, mimeType string, _ *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, docint.Errorf(docint.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(bytes.NewReader(content), nil)
	if err != nil {
		return nil, err
	}

	res := &docint.ExtractionResult{MimeType: mimeType}
	if strings.TrimSpace(article.Content) != "" {
		md, err := e.Converter.Convert(article.Content)
		if err != nil {
			return nil, err
		}
		res.Content = strings.TrimSpace(md)
		if res.Tables, err = docgoquery.TablesFromReader(strings.NewReader(article.Content)); err != nil {
			return nil, err
		}
	}

	for key, value := range map[string]string{
		"title":       article.Title,
		"author":      article.Byline,
		"description": article.Excerpt,
		"site_name":   article.SiteName,
	} {
		if value = strings.TrimSpace(value); value != "" {
			res.SetMetadata(key, value)
		}
	}
	return res, nil
}
