package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   ErrorType
	}{
		{"deadline", context.DeadlineExceeded, 0, ErrorTypeTransient},
		{"wrapped cancel", fmt.Errorf("call: %w", context.Canceled), 0, ErrorTypeTransient},
		{"explicit 401", errors.New("boom"), 401, ErrorTypeAuth},
		{"status in message", errors.New("POST /v1/messages: status code: 429 Too Many Requests"), 0, ErrorTypeRateLimit},
		{"server error", errors.New("HTTP 503 service unavailable"), 0, ErrorTypeTransient},
		{"connection refused", errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"), 0, ErrorTypeTransient},
		{"quota", errors.New("Quota exceeded for project"), 0, ErrorTypeRateLimit},
		{"api key", errors.New("API key not valid"), 0, ErrorTypeAuth},
		{"model missing", errors.New("model 'x' not found"), 0, ErrorTypeBadPrompt},
		{"other", errors.New("something odd"), 0, ErrorTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, tt.status)
			assert.Equal(t, tt.want, got.Type, got.Error())
			assert.True(t, errors.Is(got, tt.err), "classified error must wrap the cause")
		})
	}
}

func TestClassifyPassThrough(t *testing.T) {
	assert.Nil(t, Classify(nil, 0))
	orig := NewError(ErrorTypeEmptyResponse, "no text")
	wrapped := fmt.Errorf("generate: %w", orig)
	assert.Same(t, orig, Classify(wrapped, 500))
	assert.True(t, Is(wrapped, ErrorTypeEmptyResponse))
	assert.Equal(t, ErrorTypeEmptyResponse, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "rate_limit", ErrorTypeRateLimit.String())
	assert.Equal(t, "empty_response", ErrorTypeEmptyResponse.String())
	assert.Equal(t, "invalid", ErrorType(42).String())
}

func TestSanitizePrompt(t *testing.T) {
	assert.Equal(t, "short", SanitizePrompt("short", 500))
	long := strings.Repeat("a", 300) + strings.Repeat("b", 300)
	got := SanitizePrompt(long, 200)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 100)))
	assert.True(t, strings.HasSuffix(got, strings.Repeat("b", 100)))
	assert.Contains(t, got, "[600 chars, hash:")
}
