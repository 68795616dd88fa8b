package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeagent/pkg/agent/llm"
	"codeagent/pkg/agent/llmerrors"
	"codeagent/pkg/agent/middleware/metrics"
	"codeagent/pkg/config"
)

func noCredentials() *config.Config {
	cfg := config.Default()
	cfg.Credentials = config.Credentials{}
	return cfg
}

func TestCandidateProviders(t *testing.T) {
	assert.Equal(t,
		[]string{"anthropic", "gemini", "openai", "azure", "ollama"},
		CandidateProviders(config.ProviderAnthropic))
	assert.Equal(t, config.ProviderFallbackOrder, CandidateProviders("bogus"))
}

func TestSelectProvider(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(c *config.Config)
		want    string
		wantErr bool
	}{
		{
			name:    "nothing configured",
			setup:   func(_ *config.Config) {},
			wantErr: true,
		},
		{
			name: "preferred has key",
			setup: func(c *config.Config) {
				c.Provider = config.ProviderAnthropic
				c.Credentials.AnthropicAPIKey = "a"
				c.Credentials.GoogleAPIKey = "g"
			},
			want: config.ProviderAnthropic,
		},
		{
			name: "falls back in order",
			setup: func(c *config.Config) {
				c.Provider = config.ProviderGemini
				c.Credentials.AnthropicAPIKey = "a"
				c.Credentials.OpenAIAPIKey = "o"
			},
			want: config.ProviderOpenAI,
		},
		{
			name: "azure needs endpoint",
			setup: func(c *config.Config) {
				c.Provider = config.ProviderAzure
				c.Credentials.AzureAPIKey = "z"
				c.Credentials.OllamaHost = "http://localhost:11434"
			},
			want: config.ProviderOllama,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := noCredentials()
			tt.setup(cfg)
			got, err := SelectProvider(cfg)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRawClientModels(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials.AzureEndpoint = "https://example.openai.azure.com"
	for _, p := range config.ProviderFallbackOrder {
		client, err := NewRawClient(cfg, p)
		require.NoError(t, err, p)
		assert.Equal(t, cfg.ModelFor(p), client.GetModelName(), p)
	}
	_, err := NewRawClient(cfg, "bogus")
	require.Error(t, err)
}

func TestNewTextGenerator(t *testing.T) {
	cfg := noCredentials()
	cfg.Credentials.OpenAIAPIKey = "o"

	gen, provider, err := NewTextGenerator(cfg, metrics.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderOpenAI, provider)
	assert.Equal(t, config.ModelGPT4o, gen.ModelName())
}

type slowClient struct{}

func (slowClient) Complete(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	<-ctx.Done()
	return llm.CompletionResponse{}, ctx.Err()
}

func (s slowClient) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return llm.SingleShotStream(ctx, s, in)
}

func (slowClient) GetModelName() string { return "slow" }

func TestWrapWithMiddlewareTimesOut(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Timeout = 20 * time.Millisecond

	client := WrapWithMiddleware(slowClient{}, cfg, metrics.Nop(), nil)
	_, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("x")}))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, llmerrors.ErrorTypeTransient, llmerrors.Classify(err, 0).Type)
}

func TestWrapWithMiddlewareRejectsEmpty(t *testing.T) {
	mock := NewMockLLMClient([]llm.CompletionResponse{{Content: "   "}}, nil)
	client := WrapWithMiddleware(mock, config.Default(), metrics.Nop(), nil)
	_, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("x")}))
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse), "got %v", err)
}
