// Package etree extracts text from XML documents using beevik/etree.
package etree

import (
	"context"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/docint"
)

var _ docint.DocumentExtractor = (*Extractor)(nil)

// Extractor returns the character data of an XML document, one line per
// text node, in document order.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string { return "xml" }

func (e *Extractor) SupportedMimeTypes() []string {
	return []string{"application/xml", "text/xml", "application/*+xml"}
}

func (e *Extractor) Priority() int { return 10 }

func (e *Extractor) Extract(_ context.Context, content []byte, mimeType string, _ *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, docint.Errorf(docint.EINVALID, "failed to parse XML: %v", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, docint.Errorf(docint.EINVALID, "XML document has no root element")
	}

	w := walker{}
	w.walk(root)

	res := &docint.ExtractionResult{
		Content:  strings.Join(w.lines, "\n"),
		MimeType: mimeType,
	}
	res.SetMetadata("root_element", root.Tag)
	res.SetMetadata("element_count", w.elements)
	if ns := root.NamespaceURI(); ns != "" {
		res.SetMetadata("namespace", ns)
	}
	return res, nil
}

type walker struct {
	lines    []string
	elements int
}

func (w *walker) walk(el *etree.Element) {
	w.elements++
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			if text := strings.Join(strings.Fields(t.Data), " "); text != "" {
				w.lines = append(w.lines, text)
			}
		case *etree.Element:
			w.walk(t)
		}
	}
}
