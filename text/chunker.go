package text

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/docint"
)

var _ docint.Chunker = (*Chunker)(nil)

// Chunker splits content into overlapping chunks of at most MaxChars bytes,
// preferring to break at paragraph, line or word boundaries.
type Chunker struct {
	// Tokens, if set, fills in each chunk's token count.
	Tokens docint.TokenCounter
}

// NewChunker creates a new Chunker.
func NewChunker(tokens docint.TokenCounter) *Chunker {
	return &Chunker{Tokens: tokens}
}

// Chunk splits content. A nil cfg or a zero MaxChars uses the default
// limits. Chunks never split a UTF-8 sequence.
func (c *Chunker) Chunk(ctx context.Context, content string, cfg *docint.ChunkingConfig) ([]docint.Chunk, error) {
	maxChars, overlap := docint.DefaultChunkMaxChars, docint.DefaultChunkMaxOverlap
	if cfg != nil && cfg.MaxChars > 0 {
		maxChars, overlap = cfg.MaxChars, cfg.MaxOverlap
	}
	if overlap >= maxChars {
		return nil, docint.Errorf(docint.EINVALID, "chunk overlap (%d) must be smaller than max chars (%d)", overlap, maxChars)
	}
	if content == "" {
		return nil, nil
	}

	spans := split(content, maxChars, overlap)
	chunks := make([]docint.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = docint.Chunk{
			Content: content[sp.start:sp.end],
			Metadata: docint.ChunkMetadata{
				ByteStart:   sp.start,
				ByteEnd:     sp.end,
				ChunkIndex:  i,
				TotalChunks: len(spans),
			},
		}
		if c.Tokens != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			n, err := c.Tokens.CountTokens(ctx, chunks[i].Content)
			if err != nil {
				return nil, err
			}
			chunks[i].Metadata.TokenCount = n
		}
	}
	return chunks, nil
}

type span struct{ start, end int }

func split(s string, maxChars, overlap int) []span {
	var spans []span
	start := 0
	for start < len(s) {
		end := start + maxChars
		if end >= len(s) {
			end = len(s)
		} else {
			end = runeStart(s, end)
			if b := breakPoint(s[start:end]); b > 0 {
				end = start + b
			}
			if end <= start {
				_, size := utf8.DecodeRuneInString(s[start:])
				end = start + size
			}
		}
		spans = append(spans, span{start, end})
		if end == len(s) {
			break
		}

		next := runeStart(s, end-overlap)
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// breakPoint returns the offset just past the last paragraph, line or word
// break in the back half of window, or 0 if there is none.
func breakPoint(window string) int {
	half := len(window) / 2
	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(window, sep); i >= half {
			return i + len(sep)
		}
	}
	return 0
}

// runeStart moves i back to the start of the UTF-8 sequence containing it.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
