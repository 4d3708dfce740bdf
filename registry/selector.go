package registry

import (
	"mime"
	"path"
	"strings"

	"github.com/fwojciec/docint"
)

// Match specificity, from least to most specific.
const (
	matchNone = iota
	matchAny
	matchType
	matchGlob
	matchExact
)

// Selector resolves a MIME type to the extractor that should handle it.
//
// Among registered extractors whose declared MIME types match, the most
// specific match wins (exact > glob subtype such as "application/*+xml" >
// "type/*" > "*/*"). Within the same specificity the highest priority wins.
// If priorities tie, the most recently registered extractor wins, so a
// caller can override a built-in extractor without knowing its priority.
type Selector struct {
	Extractors *Table[docint.DocumentExtractor]
}

// NewSelector creates a Selector over the given extractor table.
func NewSelector(extractors *Table[docint.DocumentExtractor]) *Selector {
	return &Selector{Extractors: extractors}
}

// Select returns the extractor handle for mimeType.
// Returns ENOEXTRACTOR if no registered extractor matches.
func (s *Selector) Select(mimeType string) (*Handle[docint.DocumentExtractor], error) {
	want := NormalizeMimeType(mimeType)
	if want == "" {
		return nil, docint.Errorf(docint.ENOEXTRACTOR, "no extractor for empty MIME type")
	}

	var (
		best      *Handle[docint.DocumentExtractor]
		bestMatch int
	)
	for _, h := range s.Extractors.Snapshot() {
		m := matchAll(h.Plugin.SupportedMimeTypes(), want)
		if m == matchNone {
			continue
		}
		if best == nil || better(h, m, best, bestMatch) {
			best, bestMatch = h, m
		}
	}
	if best == nil {
		return nil, docint.Errorf(docint.ENOEXTRACTOR, "no extractor registered for %q", want)
	}
	return best, nil
}

// better reports whether candidate h with match m beats the current best.
func better(h *Handle[docint.DocumentExtractor], m int, best *Handle[docint.DocumentExtractor], bestMatch int) bool {
	if m != bestMatch {
		return m > bestMatch
	}
	if h.Priority != best.Priority {
		return h.Priority > best.Priority
	}
	return h.seq > best.seq
}

func matchAll(patterns []string, mimeType string) int {
	best := matchNone
	for _, p := range patterns {
		if m := matchOne(NormalizeMimeType(p), mimeType); m > best {
			best = m
		}
	}
	return best
}

func matchOne(pattern, mimeType string) int {
	switch {
	case pattern == "":
		return matchNone
	case pattern == mimeType:
		return matchExact
	case pattern == "*/*" || pattern == "*":
		return matchAny
	}

	pType, pSub, ok := strings.Cut(pattern, "/")
	if !ok {
		return matchNone
	}
	mType, _, ok := strings.Cut(mimeType, "/")
	if !ok || pType != mType {
		return matchNone
	}
	if pSub == "*" {
		return matchType
	}
	if strings.ContainsAny(pSub, "*?[") {
		if matched, err := path.Match(pattern, mimeType); err == nil && matched {
			return matchGlob
		}
	}
	return matchNone
}

// NormalizeMimeType lowercases a MIME type and strips parameters such as
// "; charset=utf-8".
func NormalizeMimeType(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return mt
	}
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimSpace(s))
}
