// Package tesseract implements docint.OcrBackend by running the tesseract
// command-line program.
package tesseract

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/fwojciec/docint"
)

var (
	_ docint.OcrBackend  = (*Backend)(nil)
	_ docint.Initializer = (*Backend)(nil)
)

// DefaultLanguages are the languages a stock tesseract install ships with.
var DefaultLanguages = []string{"eng", "osd"}

// Backend runs `tesseract stdin stdout -l LANG tsv` and rebuilds the text
// from the word-level TSV output, which also yields a mean confidence.
type Backend struct {
	// Path is the tesseract executable. Defaults to "tesseract".
	Path string

	// TessdataDir overrides the trained data directory, if set.
	TessdataDir string

	// Languages lists the accepted language codes. Empty accepts any.
	Languages []string

	Runner Runner
}

// NewBackend creates a Backend that runs the tesseract binary on PATH.
func NewBackend(logger *slog.Logger) *Backend {
	return &Backend{
		Path:      "tesseract",
		Languages: DefaultLanguages,
		Runner:    ExecRunner{Logger: logger},
	}
}

func (b *Backend) Name() string { return docint.DefaultOcrBackend }

func (b *Backend) SupportedLanguages() []string { return b.Languages }

// Initialize verifies that the executable can be found.
func (b *Backend) Initialize() error {
	if _, err := exec.LookPath(b.path()); err != nil {
		return docint.Errorf(docint.ENOTFOUND, "tesseract executable %q not found", b.path())
	}
	return nil
}

func (b *Backend) ProcessImage(ctx context.Context, image []byte, cfg *docint.OcrConfig) (*docint.OcrResult, error) {
	lang := "eng"
	if cfg != nil && cfg.Language != "" {
		lang = cfg.Language
	}

	args := []string{"stdin", "stdout", "-l", lang}
	if b.TessdataDir != "" {
		args = append(args, "--tessdata-dir", b.TessdataDir)
	}
	args = append(args, "tsv")

	out, stderr, err := b.Runner.Run(ctx, image, b.path(), args...)
	if err != nil {
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return nil, fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("tesseract: %w", err)
	}

	text, conf := ParseTSV(string(out))
	return &docint.OcrResult{
		Content:    text,
		Language:   lang,
		Confidence: conf,
	}, nil
}

func (b *Backend) path() string {
	if b.Path == "" {
		return "tesseract"
	}
	return b.Path
}

// ParseTSV rebuilds text from tesseract TSV output and returns it with the
// mean word confidence in [0, 1]. Words on the same line are joined by a
// space; lines are joined by a newline; paragraphs and blocks are separated
// by a blank line.
func ParseTSV(tsv string) (string, float64) {
	const (
		colLevel = iota
		colPage
		colBlock
		colPar
		colLine
		colWord
		colLeft
		colTop
		colWidth
		colHeight
		colConf
		colText
		numCols
	)

	var (
		sb       strings.Builder
		lastPar  string
		lastLine string
		sum      float64
		n        int
	)
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 {
			continue
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < numCols || cols[colLevel] != "5" {
			continue
		}
		word := strings.TrimSpace(cols[colText])
		if word == "" {
			continue
		}

		par := cols[colPage] + "." + cols[colBlock] + "." + cols[colPar]
		line := par + "." + cols[colLine]
		switch {
		case sb.Len() == 0:
		case par != lastPar:
			sb.WriteString("\n\n")
		case line != lastLine:
			sb.WriteString("\n")
		default:
			sb.WriteString(" ")
		}
		sb.WriteString(word)
		lastPar, lastLine = par, line

		if conf, err := strconv.ParseFloat(cols[colConf], 64); err == nil && conf >= 0 {
			sum += conf
			n++
		}
	}
	if n == 0 {
		return sb.String(), 0
	}
	return sb.String(), sum / float64(n) / 100
}
