package config

import "strings"

// Provider identifiers accepted in the provider setting.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderAzure     = "azure"
	ProviderOllama    = "ollama"
)

// ProviderFallbackOrder is the order in which providers are tried when the
// preferred one has no credentials.
//
//nolint:gochecknoglobals // Static ordering table
var ProviderFallbackOrder = []string{
	ProviderGemini,
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderAzure,
	ProviderOllama,
}

// Model name constants.
const (
	ModelGemini20Flash = "gemini-2.0-flash"
	ModelGemini25Pro   = "gemini-2.5-pro"
	ModelGPT4o         = "gpt-4o"
	ModelGPT4oMini     = "gpt-4o-mini"
	ModelClaude3Opus   = "claude-3-opus-20240229"
	ModelClaudeSonnet4 = "claude-sonnet-4-5"
	ModelOllamaDefault = "llama3.1:8b"
)

// ModelInfo contains static information about a known LLM model.
type ModelInfo struct {
	Provider         string
	MaxContextTokens int
	MaxOutputTokens  int
}

// KnownModels maps model names to their provider and token limits.
//
//nolint:gochecknoglobals // Intentional global for static model registry
var KnownModels = map[string]ModelInfo{
	ModelGemini20Flash: {Provider: ProviderGemini, MaxContextTokens: 1048576, MaxOutputTokens: 8192},
	ModelGemini25Pro:   {Provider: ProviderGemini, MaxContextTokens: 1048576, MaxOutputTokens: 65536},
	ModelGPT4o:         {Provider: ProviderOpenAI, MaxContextTokens: 128000, MaxOutputTokens: 16384},
	ModelGPT4oMini:     {Provider: ProviderOpenAI, MaxContextTokens: 128000, MaxOutputTokens: 16384},
	ModelClaude3Opus:   {Provider: ProviderAnthropic, MaxContextTokens: 200000, MaxOutputTokens: 4096},
	ModelClaudeSonnet4: {Provider: ProviderAnthropic, MaxContextTokens: 200000, MaxOutputTokens: 8192},
	ModelOllamaDefault: {Provider: ProviderOllama, MaxContextTokens: 128000, MaxOutputTokens: 4096},
}

// ProviderPattern maps a model-name prefix to its provider.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns infer the provider for models missing from KnownModels.
//
//nolint:gochecknoglobals // Static lookup table
var ProviderPatterns = []ProviderPattern{
	{"gemini", ProviderGemini},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"claude", ProviderAnthropic},
	{"llama", ProviderOllama},
	{"mistral", ProviderOllama},
	{"qwen", ProviderOllama},
	{"ollama:", ProviderOllama},
}

// GetModelInfo returns the registry entry for modelName. Unknown models get a
// conservative default with an inferred provider and false.
func GetModelInfo(modelName string) (ModelInfo, bool) {
	if info, exists := KnownModels[modelName]; exists {
		return info, true
	}
	provider := ""
	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			provider = ProviderPatterns[i].Provider
			break
		}
	}
	return ModelInfo{
		Provider:         provider,
		MaxContextTokens: 32000,
		MaxOutputTokens:  4096,
	}, false
}

// CapOutputTokens clamps requested to the model's output limit when it is known.
func CapOutputTokens(modelName string, requested int) int {
	info, ok := GetModelInfo(modelName)
	if ok && info.MaxOutputTokens > 0 && requested > info.MaxOutputTokens {
		return info.MaxOutputTokens
	}
	return requested
}

// IsKnownProvider reports whether p names a supported backend.
func IsKnownProvider(p string) bool {
	for _, known := range ProviderFallbackOrder {
		if p == known {
			return true
		}
	}
	return false
}
