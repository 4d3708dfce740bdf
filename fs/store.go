// Package fs provides file-based storage for extraction results.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/docint"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Ensure ResultStore implements docint.ResultStore at compile time.
var _ docint.ResultStore = (*ResultStore)(nil)

// ResultStore implements docint.ResultStore with atomic update semantics.
// Results are saved to a temporary directory, then moved atomically on Commit.
type ResultStore struct {
	baseDir string
	name    string
	format  string

	// Now returns the extraction timestamp written to front matter.
	Now func() time.Time
}

// NewResultStore creates a new ResultStore.
// baseDir is the parent directory, name is the output directory name.
// Files are saved to baseDir/name.tmp and moved to baseDir/name on Commit.
func NewResultStore(baseDir, name, format string) (*ResultStore, error) {
	switch format {
	case FormatMarkdown, FormatJSON:
	default:
		return nil, docint.Errorf(docint.EINVALID, "unknown output format %q", format)
	}
	return &ResultStore{
		baseDir: baseDir,
		name:    name,
		format:  format,
		Now:     time.Now,
	}, nil
}

func (s *ResultStore) tempDir() string {
	return filepath.Join(s.baseDir, s.name+".tmp")
}

func (s *ResultStore) finalDir() string {
	return filepath.Join(s.baseDir, s.name)
}

func (s *ResultStore) Save(ctx context.Context, source string, result *docint.ExtractionResult) error {
	if result == nil {
		return docint.Errorf(docint.EINVALID, "result required")
	}

	var (
		ext     = ".md"
		content []byte
		err     error
	)
	if s.format == FormatJSON {
		ext = ".json"
		content, err = json.MarshalIndent(result, "", "  ")
	} else {
		content, err = MarshalMarkdown(source, result, s.Now())
	}
	if err != nil {
		return err
	}

	fullPath := filepath.Join(s.tempDir(), OutputPath(source, ext))

	// Create parent directories
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, content, 0644)
}

func (s *ResultStore) Commit() error {
	// Remove existing final directory if present
	if err := os.RemoveAll(s.finalDir()); err != nil {
		return err
	}
	return os.Rename(s.tempDir(), s.finalDir())
}

func (s *ResultStore) Abort() error {
	return os.RemoveAll(s.tempDir())
}

// OutputPath converts a source document path to a relative output path.
// The source extension is kept so that report.pdf and report.docx do not
// collide. Leading separators and ".." elements are dropped.
// Example: ../docs/report.pdf → docs/report.pdf.md
func OutputPath(source, ext string) string {
	source = filepath.ToSlash(filepath.Clean(source))
	var parts []string
	for _, p := range strings.Split(source, "/") {
		switch p {
		case "", ".", "..":
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "document" + ext
	}
	return filepath.Join(parts...) + ext
}

type frontMatter struct {
	Source    string   `yaml:"source"`
	MimeType  string   `yaml:"mime_type"`
	Title     string   `yaml:"title,omitempty"`
	Languages []string `yaml:"languages,omitempty,flow"`
	Quality   *float64 `yaml:"quality,omitempty"`
	Tables    int      `yaml:"tables,omitempty"`
	Chunks    int      `yaml:"chunks,omitempty"`
	Extracted string   `yaml:"extracted"`
}

// MarshalMarkdown formats a result as Markdown with YAML front matter.
func MarshalMarkdown(source string, result *docint.ExtractionResult, now time.Time) ([]byte, error) {
	title, _ := result.Metadata.String("title")
	fm, err := yaml.Marshal(frontMatter{
		Source:    source,
		MimeType:  result.MimeType,
		Title:     title,
		Languages: result.DetectedLanguages,
		Quality:   result.QualityScore,
		Tables:    len(result.Tables),
		Chunks:    len(result.Chunks),
		Extracted: now.Format("2006-01-02"),
	})
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(result.Content)
	if !strings.HasSuffix(result.Content, "\n") {
		b.WriteString("\n")
	}
	return b.Bytes(), nil
}
