package gemini

import (
	"context"
	"fmt"

	"github.com/fwojciec/docint"
	"google.golang.org/genai"
)

// DefaultModel is the model used for summaries.
const DefaultModel = "gemini-2.5-flash"

// MaxSummaryInput bounds how much content is sent for summarization.
const MaxSummaryInput = 100_000

// SummaryKey is the metadata key the summary is stored under.
const SummaryKey = "summary"

// Ensure Summarizer implements docint.PostProcessor at compile time.
var _ docint.PostProcessor = (*Summarizer)(nil)

// Summarizer is a late-stage post-processor that stores a short summary of
// the extracted content in the result metadata.
type Summarizer struct {
	client *genai.Client
	model  string
}

// NewSummarizer creates a new Summarizer. An empty model uses DefaultModel.
func NewSummarizer(client *genai.Client, model string) *Summarizer {
	if model == "" {
		model = DefaultModel
	}
	return &Summarizer{client: client, model: model}
}

func (s *Summarizer) Name() string                  { return "gemini_summary" }
func (s *Summarizer) Stage() docint.ProcessingStage { return docint.StageLate }

// Process summarizes result.Content. Empty content is left alone.
func (s *Summarizer) Process(ctx context.Context, result *docint.ExtractionResult, _ *docint.ExtractionConfig) error {
	if result.Content == "" {
		return nil
	}
	if s.client == nil {
		return docint.Errorf(docint.EINVALID, "gemini client required")
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: BuildSummaryPrompt(result)}},
		}},
		BuildSummaryConfig(),
	)
	if err != nil {
		return err
	}
	if resp == nil {
		return docint.Errorf(docint.EINTERNAL, "gemini returned nil result")
	}

	result.SetMetadata(SummaryKey, resp.Text())
	return nil
}

// BuildSummaryConfig returns the GenerateContentConfig for summary calls.
func BuildSummaryConfig() *genai.GenerateContentConfig {
	temp := float32(0.2)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You summarize documents. Reply with at most three sentences of plain text describing what the document is about. Use only the document provided.",
			}},
		},
		Temperature: &temp,
	}
}

// BuildSummaryPrompt builds the user prompt for result, truncating content
// to MaxSummaryInput bytes.
func BuildSummaryPrompt(result *docint.ExtractionResult) string {
	content := result.Content
	if len(content) > MaxSummaryInput {
		content = content[:MaxSummaryInput]
	}
	return fmt.Sprintf("<document type=%q>\n%s\n</document>", result.MimeType, content)
}
