package text

import (
	"context"
	"regexp"
	"strings"

	"github.com/fwojciec/docint"
)

var _ docint.PostProcessor = (*Normalizer)(nil)

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Normalizer is an early-stage post-processor that strips trailing
// whitespace and collapses runs of blank lines.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Name() string                  { return "whitespace" }
func (n *Normalizer) Stage() docint.ProcessingStage { return docint.StageEarly }

func (n *Normalizer) Process(_ context.Context, result *docint.ExtractionResult, _ *docint.ExtractionConfig) error {
	s := strings.ReplaceAll(result.Content, "\r\n", "\n")
	s = trailingSpace.ReplaceAllString(s, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	result.Content = strings.TrimSpace(s)
	return nil
}
