package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"codeagent/pkg/agent/llm"
)

// MockLLMClient provides a controllable implementation of LLMClient for testing.
type MockLLMClient struct {
	responses     []llm.CompletionResponse
	responseIndex int
	errors        []error
	errorIndex    int
	requests      []llm.CompletionRequest
	mu            sync.Mutex
}

// NewMockLLMClient creates a new mock client with predefined responses.
func NewMockLLMClient(responses []llm.CompletionResponse, errors []error) *MockLLMClient {
	return &MockLLMClient{
		responses: responses,
		errors:    errors,
	}
}

// Complete returns the next predefined response or error.
func (m *MockLLMClient) Complete(_ context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, in)

	if m.errorIndex < len(m.errors) {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		if err != nil {
			return llm.CompletionResponse{}, err
		}
	}

	if m.responseIndex >= len(m.responses) {
		return llm.CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}

	resp := m.responses[m.responseIndex]
	m.responseIndex++
	return resp, nil
}

// Stream returns a channel that will receive the next predefined response.
func (m *MockLLMClient) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return llm.SingleShotStream(ctx, m, in)
}

// GetModelName returns a fixed model name.
func (m *MockLLMClient) GetModelName() string {
	return "mock-model"
}

// Requests returns every request the mock has received.
func (m *MockLLMClient) Requests() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.CompletionRequest(nil), m.requests...)
}

// MockGenerator is a scripted llm.TextGenerator. Each method consults its hook
// first, then the queued text responses, and records every prompt it saw.
//
//nolint:govet // Test helper, grouping by concern
type MockGenerator struct {
	TextFunc     func(prompt string) (string, error)
	CodeFunc     func(prompt, language string) (string, error)
	AnalysisFunc func(code string) llm.Analysis

	mu        sync.Mutex
	responses []string
	prompts   []string
}

// NewMockGenerator creates a generator returning responses in order from GenerateText.
func NewMockGenerator(responses ...string) *MockGenerator {
	return &MockGenerator{responses: responses}
}

// Queue appends more text responses.
func (m *MockGenerator) Queue(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

func (m *MockGenerator) record(prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
}

func (m *MockGenerator) next() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		return "", fmt.Errorf("mock generator: no more responses")
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r, nil
}

// GenerateText implements llm.TextGenerator.
func (m *MockGenerator) GenerateText(_ context.Context, prompt string, _ ...llm.GenerateOption) (string, error) {
	m.record(prompt)
	if m.TextFunc != nil {
		return m.TextFunc(prompt)
	}
	return m.next()
}

// GenerateCode implements llm.TextGenerator.
func (m *MockGenerator) GenerateCode(_ context.Context, prompt, language string) (string, error) {
	m.record(prompt)
	if m.CodeFunc != nil {
		return m.CodeFunc(prompt, language)
	}
	return m.next()
}

// AnalyzeCode implements llm.TextGenerator. Without a hook it reports no issues.
func (m *MockGenerator) AnalyzeCode(_ context.Context, code string) llm.Analysis {
	m.record(code)
	if m.AnalysisFunc != nil {
		return m.AnalysisFunc(code)
	}
	return llm.Analysis{QualityScore: "10"}
}

// ModelName implements llm.TextGenerator.
func (m *MockGenerator) ModelName() string {
	return "mock-generator"
}

// Prompts returns every prompt seen so far.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// PromptsContaining counts prompts that contain substr.
func (m *MockGenerator) PromptsContaining(substr string) int {
	n := 0
	for _, p := range m.Prompts() {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}
