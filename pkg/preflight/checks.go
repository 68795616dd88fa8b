package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bitfield/script"

	"codeagent/pkg/config"
)

// Toolchains the pipeline knows how to probe.
const (
	ToolGit    = "git"
	ToolPython = "python"
	ToolPip    = "pip"
	ToolNode   = "node"
	ToolNPM    = "npm"
	ToolGo     = "go"
	ToolCargo  = "cargo"
	ToolMaven  = "mvn"
	ToolGradle = "gradle"
	ToolJava   = "java"
)

// versionCommands lists the probes for each tool, tried in order.
var versionCommands = map[string][]string{
	ToolGit:    {"git --version"},
	ToolPython: {"python3 --version", "python --version"},
	ToolPip:    {"pip3 --version", "pip --version"},
	ToolNode:   {"node --version"},
	ToolNPM:    {"npm --version"},
	ToolGo:     {"go version"},
	ToolCargo:  {"cargo --version"},
	ToolMaven:  {"mvn --version"},
	ToolGradle: {"gradle --version"},
	ToolJava:   {"java -version"},
}

// KnownTools returns the names CheckTool understands.
func KnownTools() []string {
	return []string{ToolGit, ToolPython, ToolPip, ToolNode, ToolNPM, ToolGo, ToolCargo, ToolMaven, ToolGradle, ToolJava}
}

// versionProbe runs one version command and returns its first output line.
// It is a variable so tests can fake the host.
var versionProbe = func(command string) (string, error) {
	out, err := script.Exec(command).String()
	if err != nil {
		return "", err //nolint:wrapcheck // wrapped by caller
	}
	first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(first), nil
}

// CheckTool verifies that tool is installed by running its version command.
func CheckTool(_ context.Context, tool string) CheckResult {
	result := CheckResult{Name: tool, Kind: KindTool}

	commands, ok := versionCommands[tool]
	if !ok {
		result.Message = "Unknown tool"
		result.Error = fmt.Errorf("unknown tool: %s", tool)
		return result
	}

	var lastErr error
	for _, cmd := range commands {
		version, err := versionProbe(cmd)
		if err != nil {
			lastErr = err
			continue
		}
		result.Passed = true
		result.Version = version
		result.Message = fmt.Sprintf("%s is installed (%s)", tool, version)
		return result
	}

	result.Message = fmt.Sprintf("%s is not installed or not on PATH", tool)
	result.Error = fmt.Errorf("%s: %w", commands[len(commands)-1], lastErr)
	return result
}

// CheckProvider verifies that some provider can be constructed, preferring the
// configured one. Ollama is additionally probed over HTTP because it needs no key.
func CheckProvider(ctx context.Context, cfg *config.Config) CheckResult {
	result := CheckResult{Name: cfg.Provider, Kind: KindProvider}

	provider := ""
	for _, p := range append([]string{cfg.Provider}, config.ProviderFallbackOrder...) {
		if cfg.HasCredentials(p) {
			provider = p
			break
		}
	}
	switch {
	case provider == "":
		result.Message = "No LLM provider has credentials"
		result.Error = fmt.Errorf("missing credentials for %s", cfg.Provider)
		return result
	case provider == config.ProviderOllama:
		return checkOllama(ctx, cfg)
	}

	result.Name = provider
	result.Passed = true
	if provider == cfg.Provider {
		result.Message = fmt.Sprintf("%s credentials are configured", provider)
	} else {
		result.Message = fmt.Sprintf("%s has no credentials, %s will be used", cfg.Provider, provider)
	}
	return result
}

// OllamaModel represents a model from Ollama's API.
type OllamaModel struct {
	Name string `json:"name"`
}

// OllamaModelsResponse represents the response from Ollama's /api/tags endpoint.
type OllamaModelsResponse struct {
	Models []OllamaModel `json:"models"`
}

// checkOllama verifies Ollama is reachable and the configured model is pulled.
func checkOllama(ctx context.Context, cfg *config.Config) CheckResult {
	result := CheckResult{Name: config.ProviderOllama, Kind: KindProvider}

	ollamaURL := strings.TrimRight(cfg.Credentials.OllamaHost, "/")
	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ollamaURL+"/api/tags", http.NoBody)
	if err != nil {
		result.Message = "Failed to create Ollama request"
		result.Error = err
		return result
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Message = fmt.Sprintf("Cannot reach Ollama at %s", ollamaURL)
		result.Error = err
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Message = fmt.Sprintf("Ollama returned status %d", resp.StatusCode)
		result.Error = fmt.Errorf("ollama returned status %d", resp.StatusCode)
		return result
	}

	var modelsResp OllamaModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		result.Message = "Failed to parse Ollama models response"
		result.Error = err
		return result
	}

	want := cfg.Models.Ollama
	for _, m := range modelsResp.Models {
		if m.Name == want || strings.TrimSuffix(m.Name, ":latest") == want {
			result.Passed = true
			result.Message = fmt.Sprintf("Ollama is running with %s available", want)
			return result
		}
	}
	result.Message = fmt.Sprintf("Missing Ollama model: %s", want)
	result.Error = fmt.Errorf("missing model: %s", want)
	return result
}
