// Package validation provides response validation middleware for LLM clients.
package validation

import (
	"context"
	"strings"

	"codeagent/pkg/agent/llm"
	"codeagent/pkg/agent/llmerrors"
	"codeagent/pkg/logx"
)

// ShortResponseChars is the length below which a response is logged as suspicious.
const ShortResponseChars = 10

// EmptyResponseMiddleware turns whitespace-only completions into ErrorTypeEmptyResponse
// errors and warns about suspiciously short ones. It never retries.
func EmptyResponseMiddleware(logger *logx.Logger) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				if err != nil {
					return resp, err //nolint:wrapcheck // Middleware passes errors through unchanged
				}
				trimmed := strings.TrimSpace(resp.Content)
				if trimmed == "" {
					return resp, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse,
						"received empty response from "+next.GetModelName())
				}
				if len(trimmed) < ShortResponseChars && logger != nil {
					logger.Warn("⚠️  Very short response from %s: %q", next.GetModelName(), trimmed)
				}
				return resp, nil
			},
			next.Stream,
			next.GetModelName,
		)
	}
}
