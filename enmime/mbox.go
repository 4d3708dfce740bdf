package enmime

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/emersion/go-mbox"
	"github.com/fwojciec/docint"
)

var _ docint.DocumentExtractor = (*MboxExtractor)(nil)

// MimeMbox is the content type handled by MboxExtractor.
const MimeMbox = "application/mbox"

// MboxExtractor extracts every message of an mbox mailbox with Message.
// Messages that fail to parse are skipped and counted.
type MboxExtractor struct {
	Message *Extractor
}

// NewMboxExtractor creates a MboxExtractor using NewExtractor for messages.
func NewMboxExtractor() *MboxExtractor {
	return &MboxExtractor{Message: NewExtractor()}
}

func (e *MboxExtractor) Name() string                 { return "mbox" }
func (e *MboxExtractor) SupportedMimeTypes() []string { return []string{MimeMbox} }
func (e *MboxExtractor) Priority() int                { return 10 }

func (e *MboxExtractor) Extract(ctx context.Context, content []byte, mimeType string, cfg *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
	r := mbox.NewReader(bytes.NewReader(content))

	res := &docint.ExtractionResult{MimeType: mimeType}
	var (
		sections []string
		subjects []string
		skipped  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := r.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, docint.Errorf(docint.EINVALID, "failed to read mailbox: %v", err)
		}
		raw, err := io.ReadAll(msg)
		if err != nil {
			skipped++
			continue
		}
		m, err := e.Message.Extract(ctx, raw, MimeType, cfg)
		if err != nil {
			skipped++
			continue
		}

		subject, _ := m.Metadata.String("subject")
		if subject == "" {
			subject = "(no subject)"
		}
		subjects = append(subjects, subject)
		sections = append(sections, "## "+subject+"\n\n"+m.Content)
		res.Tables = append(res.Tables, m.Tables...)
	}

	if len(sections) == 0 {
		return nil, docint.Errorf(docint.EINVALID, "mailbox contains no readable messages")
	}

	res.Content = strings.Join(sections, "\n\n---\n\n")
	res.SetMetadata("message_count", len(sections))
	res.SetMetadata("subjects", subjects)
	if skipped > 0 {
		res.SetMetadata("skipped_messages", skipped)
	}
	return res, nil
}
