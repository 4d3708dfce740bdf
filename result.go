package docint

import "slices"

// ExtractionResult is the value threaded through the extraction pipeline.
// A result is owned by exactly one pipeline execution; each stage receives
// exclusive access and must not retain it after returning.
type ExtractionResult struct {
	Content           string   `json:"content"`
	MimeType          string   `json:"mimeType"`
	Metadata          Metadata `json:"metadata"`
	Tables            []Table  `json:"tables,omitempty"`
	Chunks            []Chunk  `json:"chunks,omitempty"`
	DetectedLanguages []string `json:"detectedLanguages,omitempty"`
	QualityScore      *float64 `json:"qualityScore,omitempty"`
}

// Metadata is an open, string-keyed map attached to a result.
type Metadata map[string]any

// String returns the string value stored under key.
// The bool result is false if the key is absent or not a string.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Table is a table recovered from a document.
type Table struct {
	Cells      [][]string `json:"cells"`
	Markdown   string     `json:"markdown"`
	PageNumber int        `json:"pageNumber,omitempty"`
}

// Chunk is a contiguous piece of a result's content.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkMetadata locates a chunk within the content it was cut from.
type ChunkMetadata struct {
	ByteStart   int `json:"byteStart"`
	ByteEnd     int `json:"byteEnd"`
	ChunkIndex  int `json:"chunkIndex"`
	TotalChunks int `json:"totalChunks"`
	TokenCount  int `json:"tokenCount,omitempty"`
}

// Clone returns a deep copy of the result. Metadata maps and slices
// ([]string, []any, map[string]any, Metadata) are copied recursively; other
// values are copied as-is.
func (r *ExtractionResult) Clone() *ExtractionResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Metadata != nil {
		c.Metadata = cloneMap(r.Metadata)
	}
	if r.Tables != nil {
		c.Tables = make([]Table, len(r.Tables))
		for i, t := range r.Tables {
			c.Tables[i] = t
			if t.Cells != nil {
				c.Tables[i].Cells = make([][]string, len(t.Cells))
				for j, row := range t.Cells {
					c.Tables[i].Cells[j] = append([]string(nil), row...)
				}
			}
		}
	}
	if r.Chunks != nil {
		c.Chunks = append([]Chunk(nil), r.Chunks...)
	}
	if r.DetectedLanguages != nil {
		c.DetectedLanguages = append([]string(nil), r.DetectedLanguages...)
	}
	if r.QualityScore != nil {
		score := *r.QualityScore
		c.QualityScore = &score
	}
	return &c
}

func cloneMap[M ~map[string]any](m M) M {
	c := make(M, len(m))
	for k, v := range m {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case []string:
		if v == nil {
			return v
		}
		return slices.Clone(v)
	case []any:
		if v == nil {
			return v
		}
		c := make([]any, len(v))
		for i, e := range v {
			c[i] = cloneValue(e)
		}
		return c
	case map[string]any:
		if v == nil {
			return v
		}
		return cloneMap(v)
	case Metadata:
		if v == nil {
			return v
		}
		return cloneMap(v)
	default:
		return v
	}
}

// SetMetadata stores value under key, allocating the map if needed.
func (r *ExtractionResult) SetMetadata(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(Metadata)
	}
	r.Metadata[key] = value
}

// OcrResult holds text recovered from an image by an OcrBackend.
type OcrResult struct {
	Content    string   `json:"content"`
	Language   string   `json:"language,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Tables     []Table  `json:"tables,omitempty"`
	Metadata   Metadata `json:"metadata,omitempty"`
}
