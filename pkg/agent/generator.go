package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"codeagent/pkg/agent/llm"
	"codeagent/pkg/agent/llmerrors"
	"codeagent/pkg/logx"
)

// CodeTemperature is used by GenerateCode for more deterministic output.
const CodeTemperature = 0.1

const codePromptTemplate = `Generate %s code for the following task:

%s

Provide only the code without explanations. Ensure the code is complete, well-structured, and follows best practices.`

const analysisPromptTemplate = "Analyze the following code for quality, potential issues, and suggestions for improvement:\n\n```\n%s\n```\n\n" +
	`Provide your analysis in the following JSON format:
{
    "issues": [
        {
            "severity": "high/medium/low",
            "description": "Description of the issue",
            "line": "line number or range",
            "suggestion": "Suggested fix"
        }
    ],
    "quality_score": "1-10",
    "suggestions": [
        "Suggestion 1",
        "Suggestion 2"
    ]
}

Return ONLY the JSON without any additional text or explanation.`

// Generator implements llm.TextGenerator on top of any LLMClient.
type Generator struct {
	client      llm.LLMClient
	logger      *logx.Logger
	maxTokens   int
	temperature float32
}

// NewGenerator wraps client. maxTokens and temperature are the per-call defaults.
func NewGenerator(client llm.LLMClient, maxTokens int, temperature float32, logger *logx.Logger) *Generator {
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	if logger == nil {
		logger = logx.NewLogger("generator")
	}
	return &Generator{
		client:      client,
		logger:      logger,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// ModelName returns the underlying model.
func (g *Generator) ModelName() string {
	return g.client.GetModelName()
}

func (g *Generator) complete(ctx context.Context, prompt string, o llm.GenerateOptions) (string, error) {
	messages := make([]llm.CompletionMessage, 0, 2)
	if o.System != "" {
		messages = append(messages, llm.NewSystemMessage(o.System))
	}
	messages = append(messages, llm.NewUserMessage(prompt))

	req := llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}
	if o.MaxTokens > 0 {
		req.MaxTokens = o.MaxTokens
	}
	if o.Temperature != nil {
		req.Temperature = *o.Temperature
	}

	logx.Debug(ctx, "llm", "Sending prompt to %s (length: %d): %s",
		g.client.GetModelName(), len(prompt), llmerrors.SanitizePrompt(prompt, 500))

	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		return "", err //nolint:wrapcheck // callers add operation context
	}
	logx.Debug(ctx, "llm", "Received response (length: %d): %s",
		len(resp.Content), llmerrors.SanitizePrompt(resp.Content, 500))
	return resp.Content, nil
}

// GenerateText sends prompt and returns the raw completion.
func (g *Generator) GenerateText(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	text, err := g.complete(ctx, prompt, llm.ApplyOptions(opts...))
	if err != nil {
		return "", fmt.Errorf("error generating text: %w", err)
	}
	return text, nil
}

// GenerateCode asks for code only in language. The result may still be fenced.
func (g *Generator) GenerateCode(ctx context.Context, prompt, language string) (string, error) {
	text, err := g.complete(ctx, fmt.Sprintf(codePromptTemplate, language, prompt),
		llm.ApplyOptions(llm.WithTemperature(CodeTemperature)))
	if err != nil {
		return "", fmt.Errorf("error generating code: %w", err)
	}
	return text, nil
}

// AnalyzeCode requests a JSON quality report. Failures are reported in the result.
func (g *Generator) AnalyzeCode(ctx context.Context, code string) llm.Analysis {
	text, err := g.complete(ctx, fmt.Sprintf(analysisPromptTemplate, code), llm.GenerateOptions{})
	if err != nil {
		msg := fmt.Sprintf("Error analyzing code: %v", err)
		g.logger.Error("%s", msg)
		return llm.Analysis{Error: msg}
	}
	return ParseAnalysis(text)
}

// ParseAnalysis decodes the JSON object embedded in text, falling back to the raw text.
func ParseAnalysis(text string) llm.Analysis {
	payload, ok := llm.ExtractJSON(text)
	if !ok {
		return llm.Analysis{Raw: text}
	}
	var a llm.Analysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return llm.Analysis{Raw: text}
	}
	return a
}
