package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// TextGenerator is the generation capability the pipeline depends on. Providers are
// interchangeable behind it. Text and code generation return errors; analysis
// never does and reports failures in Analysis.Error because review is best-effort.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)
	GenerateCode(ctx context.Context, prompt, language string) (string, error)
	AnalyzeCode(ctx context.Context, code string) Analysis
	ModelName() string
}

// GenerateOptions are per-call overrides.
type GenerateOptions struct {
	Temperature *float32
	MaxTokens   int
	System      string
}

// GenerateOption mutates GenerateOptions.
type GenerateOption func(*GenerateOptions)

// WithTemperature overrides the sampling temperature for one call.
func WithTemperature(t float32) GenerateOption {
	return func(o *GenerateOptions) { o.Temperature = &t }
}

// WithMaxTokens overrides the output token limit for one call.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) { o.MaxTokens = n }
}

// WithSystem adds a system message ahead of the prompt.
func WithSystem(s string) GenerateOption {
	return func(o *GenerateOptions) { o.System = s }
}

// ApplyOptions folds opts into a GenerateOptions value.
func ApplyOptions(opts ...GenerateOption) GenerateOptions {
	var o GenerateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FlexString decodes a JSON string or number into a string. Models return
// "line": 12 and "line": "12-14" interchangeably.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err //nolint:wrapcheck // json error is descriptive
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(strings.Trim(string(data), `"`))
	return nil
}

// Issue is one finding from code analysis.
type Issue struct {
	Severity    string     `json:"severity"`
	Description string     `json:"description"`
	Line        FlexString `json:"line,omitempty"`
	Suggestion  string     `json:"suggestion,omitempty"`
}

// Analysis is the structured-or-raw result of AnalyzeCode. When the model
// response is not JSON, Raw holds the text and the structured fields are empty.
type Analysis struct {
	Issues       []Issue    `json:"issues,omitempty"`
	QualityScore FlexString `json:"quality_score,omitempty"`
	Suggestions  []string   `json:"suggestions,omitempty"`
	Raw          string     `json:"analysis,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Failed reports whether the analysis call itself failed.
func (a Analysis) Failed() bool {
	return a.Error != ""
}
