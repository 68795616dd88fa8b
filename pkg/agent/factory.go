package agent

import (
	"fmt"

	"codeagent/pkg/agent/internal/llmimpl/anthropic"
	"codeagent/pkg/agent/internal/llmimpl/google"
	"codeagent/pkg/agent/internal/llmimpl/ollama"
	"codeagent/pkg/agent/internal/llmimpl/openaiofficial"
	"codeagent/pkg/agent/llm"
	"codeagent/pkg/agent/middleware/metrics"
	"codeagent/pkg/agent/middleware/resilience/timeout"
	"codeagent/pkg/agent/middleware/validation"
	"codeagent/pkg/config"
	"codeagent/pkg/logx"
)

// ErrNoProvider is returned when no provider in the fallback order has credentials.
var ErrNoProvider = fmt.Errorf("no LLM provider is configured: set one of GOOGLE_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, AZURE_OPENAI_API_KEY or OLLAMA_HOST")

// CandidateProviders returns preferred followed by the remaining providers in fallback order.
func CandidateProviders(preferred string) []string {
	out := make([]string, 0, len(config.ProviderFallbackOrder))
	if config.IsKnownProvider(preferred) {
		out = append(out, preferred)
	}
	for _, p := range config.ProviderFallbackOrder {
		if p != preferred {
			out = append(out, p)
		}
	}
	return out
}

// SelectProvider picks the first candidate with credentials.
func SelectProvider(cfg *config.Config) (string, error) {
	for _, p := range CandidateProviders(cfg.Provider) {
		if cfg.HasCredentials(p) {
			return p, nil
		}
	}
	return "", ErrNoProvider
}

// NewRawClient constructs the provider client without middleware.
func NewRawClient(cfg *config.Config, provider string) (llm.LLMClient, error) {
	model := cfg.ModelFor(provider)
	creds := cfg.Credentials
	switch provider {
	case config.ProviderGemini:
		return google.NewGeminiClientWithModel(creds.GoogleAPIKey, model), nil
	case config.ProviderOpenAI:
		return openaiofficial.NewOfficialClientWithModel(creds.OpenAIAPIKey, model), nil
	case config.ProviderAzure:
		return openaiofficial.NewAzureClient(creds.AzureEndpoint, creds.AzureAPIVersion, creds.AzureAPIKey, model), nil
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithModel(creds.AnthropicAPIKey, model), nil
	case config.ProviderOllama:
		return ollama.NewOllamaClientWithModel(creds.OllamaHost, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// WrapWithMiddleware builds the chain Metrics -> EmptyResponse -> Timeout -> raw client.
// There is deliberately no retry layer; failed generations are reported once.
func WrapWithMiddleware(raw llm.LLMClient, cfg *config.Config, recorder metrics.Recorder, logger *logx.Logger) llm.LLMClient {
	return llm.Chain(raw,
		metrics.Middleware(recorder, nil, logger),
		validation.EmptyResponseMiddleware(logger),
		timeout.Middleware(cfg.LLM.Timeout),
	)
}

// NewTextGenerator selects a provider (preferred first, then the fixed fallback
// order) and returns a generator over the wrapped client plus the provider used.
func NewTextGenerator(cfg *config.Config, recorder metrics.Recorder, logger *logx.Logger) (*Generator, string, error) {
	if logger == nil {
		logger = logx.NewLogger("llm")
	}
	provider, err := SelectProvider(cfg)
	if err != nil {
		return nil, "", err
	}
	if provider != cfg.Provider {
		logger.Warn("⚠️  Provider %s has no credentials, falling back to %s", cfg.Provider, provider)
	}
	raw, err := NewRawClient(cfg, provider)
	if err != nil {
		return nil, "", err
	}
	maxTokens := config.CapOutputTokens(cfg.ModelFor(provider), cfg.LLM.MaxOutputTokens)
	client := WrapWithMiddleware(raw, cfg, recorder, logger)
	logger.Info("🤖 Using %s model %s", provider, raw.GetModelName())
	return NewGenerator(client, maxTokens, cfg.LLM.Temperature, logger), provider, nil
}
