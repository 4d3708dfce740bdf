// Package dateparse rewrites date metadata into a single format using
// araddon/dateparse.
package dateparse

import (
	"context"
	"time"

	"github.com/araddon/dateparse"
	"github.com/fwojciec/docint"
)

var _ docint.PostProcessor = (*Normalizer)(nil)

// DefaultKeys are the metadata keys extractors use for dates.
var DefaultKeys = []string{"date", "created", "modified", "published"}

// Normalizer parses the string values of Keys in any common layout and
// rewrites them as RFC 3339, or as a bare YYYY-MM-DD when the value carries
// no time of day. Values that do not parse are left unchanged.
type Normalizer struct {
	Keys []string

	// Location is used for values without a zone. Defaults to UTC.
	Location *time.Location
}

// NewNormalizer creates a Normalizer for DefaultKeys.
func NewNormalizer() *Normalizer {
	return &Normalizer{Keys: DefaultKeys, Location: time.UTC}
}

func (n *Normalizer) Name() string                  { return "dates" }
func (n *Normalizer) Stage() docint.ProcessingStage { return docint.StageLate }

func (n *Normalizer) Process(_ context.Context, result *docint.ExtractionResult, _ *docint.ExtractionConfig) error {
	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}
	for _, key := range n.Keys {
		raw, ok := result.Metadata.String(key)
		if !ok || raw == "" {
			continue
		}
		t, err := dateparse.ParseIn(raw, loc)
		if err != nil {
			continue
		}
		result.Metadata[key] = Format(t)
	}
	return nil
}

// Format renders t as YYYY-MM-DD at midnight, RFC 3339 otherwise.
func Format(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}
