package preflight

import (
	"fmt"
	"strings"

	"codeagent/pkg/config"
)

// FormatCheckError formats a failed check result with actionable guidance.
func FormatCheckError(check CheckResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s: %s\n", check.Name, check.Message))
	sb.WriteString(fmt.Sprintf("    %s\n", getGuidance(check)))
	return sb.String()
}

// FormatResults formats all preflight results for display.
func FormatResults(results *Results) string {
	var sb strings.Builder

	if results.Passed {
		sb.WriteString("Preflight checks passed\n")
	} else {
		sb.WriteString("Preflight checks failed\n\n")
		sb.WriteString("Failed checks:\n")
		for _, c := range results.Failed() {
			sb.WriteString(FormatCheckError(c))
			sb.WriteString("\n")
		}
		sb.WriteString("Passed checks:\n")
	}
	for i := range results.Checks {
		if results.Checks[i].Passed {
			sb.WriteString(fmt.Sprintf("  [PASS] %s: %s\n", results.Checks[i].Name, results.Checks[i].Message))
		}
	}
	return sb.String()
}

// getGuidance returns actionable guidance for fixing a failed check.
func getGuidance(check CheckResult) string {
	if check.Kind == KindProvider {
		switch check.Name {
		case config.ProviderOllama:
			return "Install and start Ollama, then pull the configured model: ollama serve && ollama pull <model>"
		default:
			return "Set one of GOOGLE_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY or AZURE_OPENAI_API_KEY + AZURE_OPENAI_ENDPOINT"
		}
	}

	switch check.Name {
	case ToolGit:
		return "Install git: https://git-scm.com/downloads"
	case ToolPython, ToolPip:
		return "Install Python 3 with pip: https://www.python.org/downloads/"
	case ToolNode, ToolNPM:
		return "Install Node.js (includes npm): https://nodejs.org/"
	case ToolGo:
		return "Install Go: https://go.dev/dl/"
	case ToolCargo:
		return "Install Rust via rustup: https://rustup.rs/"
	case ToolMaven, ToolJava:
		return "Install a JDK and Maven: https://maven.apache.org/install.html"
	case ToolGradle:
		return "Install Gradle or use the project's ./gradlew wrapper: https://gradle.org/install/"
	default:
		return "Check the tool documentation for setup instructions."
	}
}
