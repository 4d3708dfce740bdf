package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/docint"
	"github.com/fwojciec/docint/registry"
	"github.com/fwojciec/docint/sqlite"
	"github.com/fwojciec/docint/worker"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Interactive enables the progress line on Stderr.
	Interactive bool

	Plugins *registry.Set
	Pool    *worker.Pool
	Service docint.ExtractionService
	Cache   CacheStore

	// NewStore creates the store that extract writes results to.
	NewStore func(baseDir, name, format string) (docint.ResultStore, error)
}

// CacheStore lists and prunes cached extractions.
type CacheStore interface {
	Entries(ctx context.Context, limit, offset int) ([]*sqlite.CacheEntry, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB      string `env:"DOCINT_DB" help:"Path to the extraction cache database"`
	Verbose bool   `short:"v" help:"Log pipeline activity to stderr"`
	Workers int    `env:"DOCINT_WORKERS" default:"8" help:"Maximum concurrent pipeline executions"`

	Extract ExtractCmd `cmd:"" help:"Extract text from documents"`
	Plugins PluginsCmd `cmd:"" help:"List registered plugins"`
	Cache   CacheCmd   `cmd:"" help:"Inspect the extraction cache"`
}

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	Files       []string          `arg:"" type:"existingfile" help:"Documents to extract"`
	Output      string            `short:"o" help:"Write results under this directory instead of stdout"`
	Name        string            `default:"extracted" help:"Name of the output directory inside --output"`
	Format      string            `short:"f" enum:"markdown,json" default:"markdown" help:"Output format (markdown, json)"`
	MimeType    string            `short:"m" name:"mime-type" help:"Treat every file as this MIME type instead of detecting it"`
	Concurrency int               `short:"c" default:"4" help:"Documents extracted at once"`
	Rate        float64           `help:"Maximum documents started per second (0 = unlimited)"`
	Chunk       bool              `help:"Split content into chunks"`
	ChunkSize   int               `default:"1000" help:"Maximum chunk size in bytes"`
	Overlap     int               `default:"200" help:"Chunk overlap in bytes"`
	NoCache     bool              `help:"Bypass the extraction cache"`
	NoQuality   bool              `help:"Skip quality scoring"`
	CollectAll  bool              `help:"Run every validator and report all failures"`
	OCRBackend  string            `name:"ocr-backend" help:"OCR backend for images (default tesseract)"`
	OCRLang     string            `name:"ocr-lang" help:"OCR language, e.g. eng or eng+deu"`
	Hook        []string          `sep:"none" placeholder:"NAME=COMMAND" help:"Post-processor run in the order given; COMMAND reads {\"result\",\"config\"} JSON on stdin and prints the updated result"`
	Schema      []string          `type:"existingfile" help:"JSON Schema file the result must match (repeatable)"`
	Summarize   bool              `help:"Add a Gemini summary to metadata (needs GEMINI_API_KEY)"`
	Tokens      bool              `help:"Count chunk tokens with the Gemini tokenizer"`
}

// PluginsCmd is the "plugins" subcommand.
type PluginsCmd struct{}

// CacheCmd groups the cache subcommands.
type CacheCmd struct {
	List  CacheListCmd  `cmd:"" help:"List cached extractions"`
	Prune CachePruneCmd `cmd:"" help:"Delete old cached extractions"`
}

// CacheListCmd is the "cache list" subcommand.
type CacheListCmd struct {
	Limit  int `default:"50" help:"Maximum entries to show"`
	Offset int `help:"Entries to skip"`
}

// CachePruneCmd is the "cache prune" subcommand.
type CachePruneCmd struct {
	OlderThan time.Duration `default:"720h" help:"Delete entries older than this"`
}
