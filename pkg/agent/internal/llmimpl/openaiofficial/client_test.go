package openaiofficial

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeagent/pkg/agent/llm"
	"codeagent/pkg/agent/llmerrors"
	"codeagent/pkg/config"
)

func TestNewOfficialClient(t *testing.T) {
	assert.Equal(t, config.ModelGPT4o, NewOfficialClient("test-api-key").GetModelName())
	assert.Equal(t, "gpt-4o-mini", NewOfficialClientWithModel("k", "gpt-4o-mini").GetModelName())
}

func TestNewAzureClientUsesDeploymentAsModel(t *testing.T) {
	client := NewAzureClient("https://example.openai.azure.com", "", "k", "my-deployment")
	assert.Equal(t, "my-deployment", client.GetModelName())
}

func TestConvertMessages(t *testing.T) {
	_, err := convertMessages(nil)
	require.Error(t, err)

	msgs, err := convertMessages([]llm.CompletionMessage{
		llm.NewSystemMessage("sys"),
		llm.NewUserMessage("hi"),
		{Role: llm.RoleAssistant, Content: "hello"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
}

func TestStopReason(t *testing.T) {
	assert.Equal(t, "end_turn", stopReason("stop"))
	assert.Equal(t, "max_tokens", stopReason("length"))
	assert.Equal(t, "content_filter", stopReason("content_filter"))
}

func TestCompleteAgainstServer(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "generated"}}]
		}`))
	}))
	defer srv.Close()

	client := newClient("gpt-4o",
		option.WithAPIKey("k"),
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithMaxRetries(0),
	)
	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages:    []llm.CompletionMessage{llm.NewUserMessage("write code")},
		MaxTokens:   100000,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "generated", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, "gpt-4o", body["model"])
	// capped to the model's output limit
	assert.InDelta(t, 16384, body["max_completion_tokens"], 0)
}

func TestCompleteClassifiesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := newClient("gpt-4o",
		option.WithAPIKey("k"),
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithMaxRetries(0),
	)
	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.CompletionMessage{llm.NewUserMessage("hi")},
	})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth), "got %v", err)
}
