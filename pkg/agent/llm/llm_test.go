package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var calls []string
	tag := func(name string) Middleware {
		return func(next LLMClient) LLMClient {
			return WrapClient(
				func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
					calls = append(calls, name)
					return next.Complete(ctx, req)
				},
				next.Stream,
				next.GetModelName,
			)
		}
	}
	base := WrapClient(
		func(context.Context, CompletionRequest) (CompletionResponse, error) {
			calls = append(calls, "base")
			return CompletionResponse{Content: "done"}, nil
		},
		nil,
		func() string { return "base-model" },
	)

	client := Chain(base, tag("outer"), tag("inner"))
	resp, err := client.Complete(context.Background(), NewCompletionRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
	assert.Equal(t, []string{"outer", "inner", "base"}, calls)
	assert.Equal(t, "base-model", client.GetModelName())
}

func TestNewCompletionRequestDefaults(t *testing.T) {
	req := NewCompletionRequest([]CompletionMessage{NewSystemMessage("sys"), NewUserMessage("hi")})
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	assert.InDelta(t, TemperatureDefault, req.Temperature, 1e-6)
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "System: sys\n\nhi", FlattenMessages(req.Messages))
}

func TestSingleShotStreamAndReader(t *testing.T) {
	base := WrapClient(
		func(context.Context, CompletionRequest) (CompletionResponse, error) {
			return CompletionResponse{Content: "streamed text"}, nil
		},
		nil,
		func() string { return "m" },
	)
	ch, err := SingleShotStream(context.Background(), base, CompletionRequest{})
	require.NoError(t, err)
	data, err := io.ReadAll(StreamToReader(ch))
	require.NoError(t, err)
	assert.Equal(t, "streamed text", string(data))

	failing := WrapClient(
		func(context.Context, CompletionRequest) (CompletionResponse, error) {
			return CompletionResponse{}, errors.New("nope")
		},
		nil,
		func() string { return "m" },
	)
	ch, err = SingleShotStream(context.Background(), failing, CompletionRequest{})
	require.NoError(t, err)
	_, err = io.ReadAll(StreamToReader(ch))
	assert.EqualError(t, err, "nope")
}

func TestGenerateOptions(t *testing.T) {
	o := ApplyOptions(WithTemperature(0.4), WithMaxTokens(100), WithSystem("be terse"))
	require.NotNil(t, o.Temperature)
	assert.InDelta(t, 0.4, *o.Temperature, 1e-6)
	assert.Equal(t, 100, o.MaxTokens)
	assert.Equal(t, "be terse", o.System)
	assert.Nil(t, ApplyOptions().Temperature)
}

func TestExtractJSON(t *testing.T) {
	got, ok := ExtractJSON("Here you go:\n```json\n{\"commands\": [], \"code_changes\": []}\n```\nDone.")
	require.True(t, ok)
	assert.Equal(t, `{"commands": [], "code_changes": []}`, got)

	_, ok = ExtractJSON("no payload here")
	assert.False(t, ok)
	_, ok = ExtractJSON("} backwards {")
	assert.False(t, ok)
}

// Braces in prose outside the object widen the span and the result no longer
// parses. This is the documented limitation of first/last brace scanning.
func TestExtractJSONStrayBraceLimitation(t *testing.T) {
	text := "Replace {placeholder} below.\n{\"commands\": []}"
	got, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.Equal(t, "{placeholder} below.\n{\"commands\": []}", got)

	var v map[string]any
	assert.Error(t, json.Unmarshal([]byte(got), &v))

	// Balanced braces inside string values are fine.
	got, ok = ExtractJSON(`{"code": "func main() { fmt.Println(1) }"}`)
	require.True(t, ok)
	assert.NoError(t, json.Unmarshal([]byte(got), &v))
}

func TestAnalysisDecodesFlexibleFields(t *testing.T) {
	var a Analysis
	payload := `{"issues":[{"severity":"high","description":"nil deref","line":12,"suggestion":"check"},
		{"severity":"low","description":"naming","line":"3-5"}],"quality_score":7,"suggestions":["add tests"]}`
	require.NoError(t, json.Unmarshal([]byte(payload), &a))
	require.Len(t, a.Issues, 2)
	assert.Equal(t, FlexString("12"), a.Issues[0].Line)
	assert.Equal(t, FlexString("3-5"), a.Issues[1].Line)
	assert.Equal(t, FlexString("7"), a.QualityScore)
	assert.False(t, a.Failed())
}
