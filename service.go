package docint

import "context"

// ExtractionService runs a request through the extraction pipeline.
type ExtractionService interface {
	// Extract returns the validated result for req.
	// Returns ENOEXTRACTOR, EEXTRACTION, EVALIDATION or ECHUNKING on failure.
	Extract(ctx context.Context, req *ExtractionRequest) (*ExtractionResult, error)
}

// Cache stores raw extractor output between requests.
type Cache interface {
	// Get returns the cached result for key.
	// The bool result is false on a cache miss.
	Get(ctx context.Context, key string) (*ExtractionResult, bool, error)

	// Put stores result under key, replacing any previous entry.
	Put(ctx context.Context, key string, result *ExtractionResult) error
}

// MimeDetector determines a document's MIME type.
type MimeDetector interface {
	// Detect inspects content and, if available, its path.
	Detect(content []byte, path string) (string, error)
}

// QualityScorer rates extracted content between 0 and 1.
type QualityScorer interface {
	Score(ctx context.Context, result *ExtractionResult) (float64, error)
}

// Chunker splits content into chunks.
type Chunker interface {
	Chunk(ctx context.Context, content string, cfg *ChunkingConfig) ([]Chunk, error)
}

// TokenCounter counts tokens in text for a specific model.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// ResultStore persists extraction results.
// Saved results become visible together on Commit.
type ResultStore interface {
	// Save stages result under a name derived from source.
	Save(ctx context.Context, source string, result *ExtractionResult) error

	// Commit publishes all staged results, replacing previous output.
	Commit() error

	// Abort discards all staged results.
	Abort() error
}
