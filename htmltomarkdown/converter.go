// Package htmltomarkdown renders extracted HTML fragments as Markdown.
package htmltomarkdown

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/docint"
)

var _ docint.Converter = (*Converter)(nil)

// Option configures a Converter.
type Option func(*Converter)

// WithDomain resolves relative links and image sources against domain.
func WithDomain(domain string) Option {
	return func(c *Converter) {
		c.domain = domain
	}
}

// WithoutImages drops img elements. Extracted documents rarely carry the
// image files, so the links would dangle.
func WithoutImages() Option {
	return func(c *Converter) {
		c.dropImages = true
	}
}

// Converter renders HTML as CommonMark with GFM tables.
type Converter struct {
	conv       *converter.Converter
	domain     string
	dropImages bool
}

// NewConverter creates a new Converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{}
	for _, opt := range opts {
		opt(c)
	}

	c.conv = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	if c.dropImages {
		c.conv.Register.TagType("img", converter.TagTypeRemove, converter.PriorityStandard)
	}
	return c
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Convert transforms an HTML fragment into Markdown. Runs of blank lines are
// collapsed and the output carries no leading or trailing whitespace.
// Returns EINVALID for blank input.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", docint.Errorf(docint.EINVALID, "empty HTML input")
	}

	var opts []converter.ConvertOptionFunc
	if c.domain != "" {
		opts = append(opts, converter.WithDomain(c.domain))
	}

	md, err := c.conv.ConvertString(html, opts...)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(blankRuns.ReplaceAllString(md, "\n\n")), nil
}
