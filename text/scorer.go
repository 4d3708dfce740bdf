package text

import (
	"context"
	"unicode"
	"unicode/utf8"

	"github.com/fwojciec/docint"
)

var _ docint.QualityScorer = (*Scorer)(nil)

// shortContent is the length below which content is scored down linearly.
const shortContent = 200

// Scorer rates content by how much of it is readable text.
//
// The score is the share of letters, digits, punctuation and whitespace,
// minus twice the share of replacement characters, scaled down for very
// short content. Empty content scores 0.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

func (s *Scorer) Score(_ context.Context, result *docint.ExtractionResult) (float64, error) {
	content := result.Content
	total := utf8.RuneCountInString(content)
	if total == 0 {
		return 0, nil
	}

	var readable, replaced int
	for _, r := range content {
		switch {
		case r == utf8.RuneError:
			replaced++
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r), unicode.IsPunct(r):
			readable++
		}
	}

	score := float64(readable)/float64(total) - 2*float64(replaced)/float64(total)
	if total < shortContent {
		score *= float64(total) / shortContent
	}
	return min(max(score, 0), 1), nil
}
