// Package whatlang detects the languages of extracted content using
// whatlanggo.
package whatlang

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/RadhiFadlillah/whatlanggo"
	"github.com/fwojciec/docint"
)

var _ docint.PostProcessor = (*Detector)(nil)

// Defaults for NewDetector.
const (
	DefaultMinShare  = 0.2
	DefaultMinLength = 40
)

// Detector fills ExtractionResult.DetectedLanguages with ISO 639-1 codes.
//
// Each paragraph of at least MinLength bytes is classified on its own. A
// language is reported when reliably detected paragraphs in it make up at
// least MinShare of the classified text. Languages are ordered by share,
// largest first.
type Detector struct {
	MinShare  float64
	MinLength int
}

// NewDetector creates a Detector with default thresholds.
func NewDetector() *Detector {
	return &Detector{MinShare: DefaultMinShare, MinLength: DefaultMinLength}
}

func (d *Detector) Name() string                  { return "language" }
func (d *Detector) Stage() docint.ProcessingStage { return docint.StageMiddle }

func (d *Detector) Process(ctx context.Context, result *docint.ExtractionResult, _ *docint.ExtractionConfig) error {
	bytesByLang := make(map[string]int)
	total := 0
	for p := range strings.SplitSeq(result.Content, "\n\n") {
		if err := ctx.Err(); err != nil {
			return err
		}
		p = strings.TrimSpace(p)
		if len(p) < d.MinLength {
			continue
		}
		info := whatlanggo.Detect(p)
		if !info.IsReliable() {
			continue
		}
		c := code(info.Lang)
		if c == "" {
			continue
		}
		bytesByLang[c] += len(p)
		total += len(p)
	}
	if total == 0 {
		return nil
	}

	type share struct {
		lang  string
		bytes int
	}
	var shares []share
	for lang, n := range bytesByLang {
		if float64(n)/float64(total) >= d.MinShare {
			shares = append(shares, share{lang, n})
		}
	}
	slices.SortFunc(shares, func(a, b share) int {
		return cmp.Or(cmp.Compare(b.bytes, a.bytes), cmp.Compare(a.lang, b.lang))
	})

	langs := make([]string, len(shares))
	for i, s := range shares {
		langs[i] = s.lang
	}
	result.DetectedLanguages = langs
	if len(langs) > 0 {
		result.SetMetadata("language", langs[0])
	}
	return nil
}

// code returns the two-letter code, or the three-letter one for languages
// that have none.
func code(l whatlanggo.Lang) string {
	if c := l.Iso6391(); c != "" {
		return c
	}
	return l.Iso6393()
}
