// Package bloom removes repeated paragraphs from extracted content, using a
// Bloom filter to skip the exact comparison for paragraphs seen only once.
package bloom

import (
	"context"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/docint"
)

var _ docint.PostProcessor = (*Deduplicator)(nil)

// Defaults for NewDeduplicator.
const (
	DefaultMinLength = 20
	DefaultFPRate    = 0.001
)

// Deduplicator drops every paragraph that repeats an earlier one, keeping
// the first occurrence. Paragraphs are compared case-insensitively with
// whitespace collapsed. Paragraphs shorter than MinLength are always kept.
//
// Removed paragraph count is recorded in the "duplicate_paragraphs" metadata
// key when non-zero.
type Deduplicator struct {
	MinLength int
	FPRate    float64
}

// NewDeduplicator creates a Deduplicator with default settings.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{MinLength: DefaultMinLength, FPRate: DefaultFPRate}
}

func (d *Deduplicator) Name() string                  { return "dedup" }
func (d *Deduplicator) Stage() docint.ProcessingStage { return docint.StageMiddle }

func (d *Deduplicator) Process(ctx context.Context, result *docint.ExtractionResult, _ *docint.ExtractionConfig) error {
	paragraphs := strings.Split(result.Content, "\n\n")
	if len(paragraphs) < 2 {
		return nil
	}

	f := bloom.NewWithEstimates(uint(len(paragraphs)), d.FPRate)
	var (
		kept    = make([]string, 0, len(paragraphs))
		seen    []string
		removed int
	)
	for _, p := range paragraphs {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := normalize(p)
		if len(key) < d.MinLength {
			kept = append(kept, p)
			continue
		}
		// Only a positive needs confirming; a negative is exact.
		if f.TestString(key) && slices.Contains(seen, key) {
			removed++
			continue
		}
		f.AddString(key)
		seen = append(seen, key)
		kept = append(kept, p)
	}

	if removed > 0 {
		result.Content = strings.Join(kept, "\n\n")
		result.SetMetadata("duplicate_paragraphs", removed)
	}
	return nil
}

func normalize(p string) string {
	return strings.ToLower(strings.Join(strings.Fields(p), " "))
}
