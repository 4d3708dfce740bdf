package gemini

import (
	"context"
	"sync"

	"github.com/fwojciec/docint"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ docint.TokenCounter = (*TokenCounter)(nil)

// DefaultTokenizerModel is the model whose vocabulary chunk token counts use.
const DefaultTokenizerModel = "gemini-2.0-flash"

// Loading a vocabulary is expensive, so tokenizers are shared per model.
var (
	tokenizersMu sync.Mutex
	tokenizers   = map[string]*tokenizer.LocalTokenizer{}
)

// TokenCounter counts tokens locally with a Gemini model's vocabulary.
// It is safe for concurrent use.
type TokenCounter struct {
	model string

	mu  sync.Mutex
	tok *tokenizer.LocalTokenizer
}

// NewTokenCounter returns a counter for model. Counters for the same model
// share one tokenizer.
func NewTokenCounter(model string) (*TokenCounter, error) {
	if model == "" {
		return nil, docint.Errorf(docint.EINVALID, "tokenizer model required")
	}

	tokenizersMu.Lock()
	defer tokenizersMu.Unlock()

	tok, ok := tokenizers[model]
	if !ok {
		var err error
		tok, err = tokenizer.NewLocalTokenizer(model)
		if err != nil {
			return nil, err
		}
		tokenizers[model] = tok
	}
	return &TokenCounter{model: model, tok: tok}, nil
}

// Model returns the model whose vocabulary the counter uses.
func (tc *TokenCounter) Model() string {
	return tc.model
}

// CountTokens returns the number of tokens in text.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	tc.mu.Lock()
	result, err := tc.tok.CountTokens(contents, nil)
	tc.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return int(result.TotalTokens), nil
}
