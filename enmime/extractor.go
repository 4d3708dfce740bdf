// Package enmime extracts the body and headers of RFC 822 email messages
// using jhillyerd/enmime.
package enmime

import (
	"bytes"
	"context"
	"strings"

	"github.com/fwojciec/docint"
	docgoquery "github.com/fwojciec/docint/goquery"
	"github.com/jhillyerd/enmime"
)

var _ docint.DocumentExtractor = (*Extractor)(nil)

// MimeType is the content type handled by Extractor.
const MimeType = "message/rfc822"

// Extractor returns the plain-text body of a message, falling back to the
// text of its HTML body. Headers and attachment names become metadata.
type Extractor struct {
	// HTML extracts text from HTML-only messages.
	HTML docint.DocumentExtractor
}

// NewExtractor creates an Extractor that reads HTML bodies with goquery.
func NewExtractor() *Extractor {
	return &Extractor{HTML: docgoquery.NewExtractor()}
}

// parser leaves Envelope.Text empty for HTML-only messages so the HTML body
// reaches the HTML extractor instead of enmime's plain-text rendering.
var parser = enmime.NewParser(enmime.DisableTextConversion(true))

func (e *Extractor) Name() string                 { return "email" }
func (e *Extractor) SupportedMimeTypes() []string { return []string{MimeType} }
func (e *Extractor) Priority() int                { return 10 }

func (e *Extractor) Extract(ctx context.Context, content []byte, mimeType string, cfg *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
	env, err := parser.ReadEnvelope(bytes.NewReader(content))
	if err != nil {
		return nil, docint.Errorf(docint.EINVALID, "failed to parse email: %v", err)
	}

	res := &docint.ExtractionResult{
		Content:  strings.TrimSpace(env.Text),
		MimeType: mimeType,
	}
	if res.Content == "" && strings.TrimSpace(env.HTML) != "" {
		html, err := e.HTML.Extract(ctx, []byte(env.HTML), "text/html", cfg)
		if err != nil {
			return nil, err
		}
		res.Content = html.Content
		res.Tables = html.Tables
	}

	for key, header := range map[string]string{
		"subject": "Subject",
		"from":    "From",
		"to":      "To",
		"cc":      "Cc",
		"date":    "Date",
	} {
		if v := strings.TrimSpace(env.GetHeader(header)); v != "" {
			res.SetMetadata(key, v)
		}
	}
	if subject, ok := res.Metadata.String("subject"); ok {
		res.SetMetadata("title", subject)
	}

	var attachments []string
	for _, part := range env.Attachments {
		if part.FileName != "" {
			attachments = append(attachments, part.FileName)
		}
	}
	if len(attachments) > 0 {
		res.SetMetadata("attachments", attachments)
	}
	return res, nil
}
