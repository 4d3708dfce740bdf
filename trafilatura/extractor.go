// Package trafilatura extracts the main content of HTML pages using
// go-trafilatura and renders it as Markdown.
package trafilatura

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docint"
	docgoquery "github.com/fwojciec/docint/goquery"
	"github.com/fwojciec/docint/htmltomarkdown"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// blockSelector matches the elements a main region must contain to be used.
const blockSelector = "p,h1,h2,h3,h4,h5,h6,table,pre,ul,ol,blockquote"

// regionSelectors locate the main region of a page, most specific first.
var regionSelectors = []string{"article", "main", "[role=main]"}

// Ensure Extractor implements docint.DocumentExtractor at compile time.
var _ docint.DocumentExtractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to extract main content from HTML.
type Extractor struct {
	// Converter renders the extracted content node as Markdown.
	Converter docint.Converter
}

// NewExtractor creates a new Extractor that converts with html-to-markdown.
func NewExtractor() *Extractor {
	return &Extractor{Converter: htmltomarkdown.NewConverter(htmltomarkdown.WithoutImages())}
}

func (e *Extractor) Name() string                 { return "trafilatura" }
func (e *Extractor) SupportedMimeTypes() []string { return docgoquery.HTMLMimeTypes }
func (e *Extractor) Priority() int                { return 50 }

// Extract processes raw HTML and returns the main content as Markdown.
func (e *Extractor) Extract(_ context.Context, content []byte, mimeType string, _ *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, docint.Errorf(docint.EINVALID, "empty HTML input")
	}

	opts := trafilatura.Options{
		EnableFallback: true,
	}

	extracted, err := trafilatura.Extract(bytes.NewReader(content), opts)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, docint.Errorf(docint.EINVALID, "failed to parse HTML: %v", err)
	}

	res := &docint.ExtractionResult{MimeType: mimeType}
	if node := mainNode(extracted.ContentNode, doc); node != nil {
		contentHTML, err := renderNode(node)
		if err != nil {
			return nil, err
		}
		md, err := e.Converter.Convert(contentHTML)
		if err != nil && docint.ErrorCode(err) != docint.EINVALID {
			return nil, err
		}
		res.Content = strings.TrimSpace(md)
		res.Tables = docgoquery.Tables(goquery.NewDocumentFromNode(node))
	}
	if res.Content == "" {
		res.Content = strings.TrimSpace(extracted.ContentText)
	}

	m := extracted.Metadata
	setNonEmpty(res, "title", m.Title)
	setNonEmpty(res, "author", m.Author)
	setNonEmpty(res, "description", m.Description)
	setNonEmpty(res, "site_name", m.Sitename)
	setNonEmpty(res, "language", m.Language)
	if !m.Date.IsZero() {
		res.SetMetadata("date", m.Date.Format("2006-01-02"))
	}
	return res, nil
}

// mainNode returns the node to render. A page that marks up its main
// region is rendered from that region: the fallback extractors of
// go-trafilatura flatten short pages into a single paragraph and drop their
// tables and inline formatting. Other pages use the extracted node.
func mainNode(extracted *html.Node, doc *goquery.Document) *html.Node {
	for _, sel := range regionSelectors {
		region := doc.Find(sel).First()
		if region.Length() == 0 || region.Find(blockSelector).Length() == 0 {
			continue
		}
		region.Find("script,style,noscript,nav,aside,form,button").Remove()
		return region.Get(0)
	}
	return extracted
}

func setNonEmpty(res *docint.ExtractionResult, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		res.SetMetadata(key, value)
	}
}

// renderNode converts an html.Node to a string.
func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
