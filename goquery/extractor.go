// Package goquery extracts text and tables from HTML documents using goquery.
package goquery

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docint"
)

// Ensure Extractor implements docint.DocumentExtractor at compile time.
var _ docint.DocumentExtractor = (*Extractor)(nil)

// HTMLMimeTypes are the MIME types the HTML extractors register for.
var HTMLMimeTypes = []string{"text/html", "application/xhtml+xml"}

const blockSelector = "p,div,h1,h2,h3,h4,h5,h6,li,tr,pre,blockquote,section,article,header,footer,dt,dd"

// Extractor returns the visible text of a whole HTML page together with its
// tables. It keeps boilerplate, so main-content extractors registered at a
// higher priority are preferred when available.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string                 { return "html_text" }
func (e *Extractor) SupportedMimeTypes() []string { return HTMLMimeTypes }
func (e *Extractor) Priority() int                { return 20 }

func (e *Extractor) Extract(_ context.Context, content []byte, mimeType string, _ *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, docint.Errorf(docint.EINVALID, "failed to parse HTML: %v", err)
	}

	res := &docint.ExtractionResult{
		MimeType: mimeType,
		Tables:   Tables(doc),
	}
	for key, value := range Metadata(doc) {
		res.SetMetadata(key, value)
	}

	doc.Find("script,style,noscript,template,head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	res.Content = cleanLines(doc.Text())
	return res, nil
}

// Metadata returns the page title, language, description and generator,
// omitting those that are absent.
func Metadata(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	if title := collapse(doc.Find("title").First().Text()); title != "" {
		meta["title"] = title
	}
	if lang, ok := doc.Find("html").Attr("lang"); ok && lang != "" {
		meta["language"] = lang
	}
	for _, name := range []string{"description", "generator", "author"} {
		if v, ok := doc.Find(`meta[name="` + name + `"]`).Attr("content"); ok && v != "" {
			meta[name] = collapse(v)
		}
	}
	return meta
}

// Tables returns every table in doc, one row per <tr> and one cell per
// <th> or <td>. Tables without cells are skipped.
func Tables(doc *goquery.Document) []docint.Table {
	var tables []docint.Table
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var rows [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var row []string
			tr.ChildrenFiltered("th,td").Each(func(_ int, cell *goquery.Selection) {
				row = append(row, collapse(cell.Text()))
			})
			if len(row) > 0 {
				rows = append(rows, row)
			}
		})
		if len(rows) > 0 {
			tables = append(tables, docint.NewTable(rows))
		}
	})
	return tables
}

// TablesFromReader parses HTML from r and returns its tables.
func TablesFromReader(r io.Reader) ([]docint.Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return Tables(doc), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanLines collapses whitespace within lines and drops blank lines.
func cleanLines(s string) string {
	var out []string
	for line := range strings.Lines(s) {
		if line = collapse(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
