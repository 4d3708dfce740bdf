package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fwojciec/docint"
	"github.com/fwojciec/docint/fs"
	"github.com/fwojciec/docint/pipeline"
	"golang.org/x/time/rate"
)

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	cfg, err := c.config()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docint.ErrorMessage(err))
		return err
	}

	reqs := make([]*docint.ExtractionRequest, len(c.Files))
	var total uint64
	for i, path := range c.Files {
		reqs[i] = &docint.ExtractionRequest{Path: path, MimeType: c.MimeType, Config: cfg}
		if info, err := os.Stat(path); err == nil {
			total += uint64(info.Size())
		}
	}

	batch := &pipeline.BatchCoordinator{Service: deps.Service}
	if c.Rate > 0 {
		batch.Limiter = rate.NewLimiter(rate.Limit(c.Rate), 1)
	}
	if deps.Interactive {
		batch.Progress = progressPrinter(deps.Stderr, c.Files)
	}

	start := time.Now()
	outcomes := batch.RunBatch(deps.Ctx, reqs, c.Concurrency)

	var failed int
	for i, out := range outcomes {
		if out.Err != nil {
			failed++
			fmt.Fprintf(deps.Stderr, "error: %s: %s\n", c.Files[i], docint.ErrorMessage(out.Err))
		}
	}

	if c.Output != "" {
		if err := c.save(deps, outcomes); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", docint.ErrorMessage(err))
			return err
		}
	} else if err := c.print(deps.Stdout, outcomes); err != nil {
		return err
	}

	fmt.Fprintf(deps.Stderr, "Extracted %d of %d documents (%s) in %s\n",
		len(outcomes)-failed, len(outcomes), humanize.Bytes(total), time.Since(start).Round(time.Millisecond))

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(outcomes))
	}
	return nil
}

func (c *ExtractCmd) config() (*docint.ExtractionConfig, error) {
	cfg := &docint.ExtractionConfig{
		UseCache:                !c.NoCache,
		EnableQualityProcessing: !c.NoQuality,
	}
	if c.Chunk {
		cfg.Chunking = &docint.ChunkingConfig{Enabled: true, MaxChars: c.ChunkSize, MaxOverlap: c.Overlap}
	}
	if c.OCRBackend != "" || c.OCRLang != "" {
		cfg.OCR = &docint.OcrConfig{Backend: c.OCRBackend, Language: c.OCRLang}
	}
	if c.CollectAll {
		cfg.Validation = docint.CollectAll
	}
	return cfg, cfg.Validate()
}

// save writes successful results to a ResultStore. Nothing is published
// unless every save succeeds.
func (c *ExtractCmd) save(deps *Dependencies, outcomes []pipeline.Outcome) error {
	store, err := deps.NewStore(c.Output, c.Name, c.Format)
	if err != nil {
		return err
	}
	for i, out := range outcomes {
		if out.Err != nil {
			continue
		}
		if err := store.Save(deps.Ctx, c.Files[i], out.Result); err != nil {
			_ = store.Abort()
			return err
		}
	}
	return store.Commit()
}

type documentOutput struct {
	Source string                   `json:"source"`
	Result *docint.ExtractionResult `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

func (c *ExtractCmd) print(w io.Writer, outcomes []pipeline.Outcome) error {
	if c.Format == fs.FormatJSON {
		docs := make([]documentOutput, len(outcomes))
		for i, out := range outcomes {
			docs[i] = documentOutput{Source: c.Files[i], Result: out.Result}
			if out.Err != nil {
				docs[i].Error = docint.ErrorMessage(out.Err)
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	now := time.Now()
	for i, out := range outcomes {
		if out.Err != nil {
			continue
		}
		b, err := fs.MarshalMarkdown(c.Files[i], out.Result, now)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func progressPrinter(w io.Writer, files []string) pipeline.ProgressFunc {
	return func(e pipeline.ProgressEvent) {
		switch e.Type {
		case pipeline.ProgressCompleted:
			fmt.Fprintf(w, "\r\033[K[%d/%d] %s", e.Completed, e.Total, files[e.Index])
		case pipeline.ProgressFailed:
			fmt.Fprintf(w, "\r\033[K[%d/%d] %s (failed)", e.Completed, e.Total, files[e.Index])
		case pipeline.ProgressFinished:
			if e.Total > 0 {
				fmt.Fprint(w, "\r\033[K")
			}
		}
	}
}
