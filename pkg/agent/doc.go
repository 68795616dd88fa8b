// Package agent builds the text generation capability used by the pipeline.
//
// The package is organized as:
//   - llm: request/response types, the TextGenerator interface and middleware chaining
//   - llmerrors: classification of provider failures for logs and metrics
//   - middleware: metrics, empty-response validation and timeout layers
//   - internal/llmimpl: one raw client per provider (Gemini, OpenAI, Azure OpenAI, Anthropic, Ollama)
//
// NewTextGenerator picks a provider from configuration, wraps the raw client
// with middleware and returns a Generator.
package agent
