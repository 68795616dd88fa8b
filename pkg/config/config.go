// Package config loads codeagent settings from codeagent.yaml and the environment.
// Configuration is read once at startup by the CLI and passed down explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config file constants.
const (
	ConfigName     = "codeagent"
	ConfigType     = "yaml"
	UserConfigDir  = ".codeagent"
	StateFileName  = "project_state.json"
	ReadmeFileName = "README.md"
)

// Defaults mirror the behavior operators expect from the agent.
const (
	DefaultProvider            = ProviderGemini
	DefaultTemperature         = 0.2
	DefaultPlanningTemperature = 0.4
	DefaultMaxOutputTokens     = 8192
	DefaultOutputDir           = "output"
	DefaultCommitPrefix        = "[AI-AGENT]"
	DefaultBranch              = "main"
	DefaultCommandTimeout      = 600 * time.Second
	DefaultCommitTimeout       = 30 * time.Second
	DefaultLLMTimeout          = 180 * time.Second
	DefaultDeploySettle        = 5 * time.Second
	DefaultMaxFallbackTasks    = 10
	DefaultAzureAPIVersion     = "2024-06-01"
	DefaultOllamaHost          = "http://localhost:11434"
)

// ModelConfig names the model used for each provider.
type ModelConfig struct {
	Gemini    string `yaml:"gemini"`
	OpenAI    string `yaml:"openai"`
	Anthropic string `yaml:"anthropic"`
	Azure     string `yaml:"azure"` // Azure deployment name
	Ollama    string `yaml:"ollama"`
}

// Credentials are only ever read from the environment.
type Credentials struct {
	GoogleAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	AzureAPIKey     string
	AzureEndpoint   string
	AzureAPIVersion string
	OllamaHost      string
}

// LLMConfig controls generation requests.
type LLMConfig struct {
	Temperature         float32       `yaml:"temperature"`
	PlanningTemperature float32       `yaml:"planning_temperature"`
	MaxOutputTokens     int           `yaml:"max_output_tokens"`
	Timeout             time.Duration `yaml:"timeout"`
}

// GitConfig controls the version-control coordinator.
type GitConfig struct {
	CommitPrefix  string        `yaml:"commit_prefix"`
	DefaultBranch string        `yaml:"default_branch"`
	CommitTimeout time.Duration `yaml:"commit_timeout"`
}

// ExecConfig controls the command runner.
type ExecConfig struct {
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// DeployConfig controls local deployment.
type DeployConfig struct {
	SettleTime time.Duration `yaml:"settle_time"`
}

// PlannerConfig controls plan and task generation.
type PlannerConfig struct {
	MaxFallbackTasks int `yaml:"max_fallback_tasks"`
	// Combined requests the plan and the task list in a single call.
	Combined bool `yaml:"combined"`
}

// Config is the full codeagent configuration.
//
//nolint:govet // Logical grouping preferred over field alignment
type Config struct {
	Provider    string        `yaml:"provider"`
	OutputDir   string        `yaml:"output_dir"`
	Models      ModelConfig   `yaml:"models"`
	LLM         LLMConfig     `yaml:"llm"`
	Git         GitConfig     `yaml:"git"`
	Exec        ExecConfig    `yaml:"exec"`
	Deploy      DeployConfig  `yaml:"deploy"`
	Planner     PlannerConfig `yaml:"planner"`
	MetricsAddr string        `yaml:"metrics_listen"`
	Audit       bool          `yaml:"audit"`

	Credentials Credentials `yaml:"-"`
	// Source is the config file that was read, empty when only defaults applied.
	Source string `yaml:"-"`
}

// Default returns a Config populated with defaults and no credentials.
func Default() *Config {
	return &Config{
		Provider:  DefaultProvider,
		OutputDir: DefaultOutputDir,
		Models: ModelConfig{
			Gemini:    ModelGemini20Flash,
			OpenAI:    ModelGPT4o,
			Anthropic: ModelClaude3Opus,
			Azure:     ModelGPT4o,
			Ollama:    ModelOllamaDefault,
		},
		LLM: LLMConfig{
			Temperature:         DefaultTemperature,
			PlanningTemperature: DefaultPlanningTemperature,
			MaxOutputTokens:     DefaultMaxOutputTokens,
			Timeout:             DefaultLLMTimeout,
		},
		Git: GitConfig{
			CommitPrefix:  DefaultCommitPrefix,
			DefaultBranch: DefaultBranch,
			CommitTimeout: DefaultCommitTimeout,
		},
		Exec:    ExecConfig{CommandTimeout: DefaultCommandTimeout},
		Deploy:  DeployConfig{SettleTime: DefaultDeploySettle},
		Planner: PlannerConfig{MaxFallbackTasks: DefaultMaxFallbackTasks},
		Audit:   true,
		Credentials: Credentials{
			AzureAPIVersion: DefaultAzureAPIVersion,
			OllamaHost:      DefaultOllamaHost,
		},
	}
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType(ConfigType)

	v.SetDefault("provider", cfg.Provider)
	v.SetDefault("output_dir", cfg.OutputDir)
	v.SetDefault("models.gemini", cfg.Models.Gemini)
	v.SetDefault("models.openai", cfg.Models.OpenAI)
	v.SetDefault("models.anthropic", cfg.Models.Anthropic)
	v.SetDefault("models.azure", cfg.Models.Azure)
	v.SetDefault("models.ollama", cfg.Models.Ollama)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.planning_temperature", cfg.LLM.PlanningTemperature)
	v.SetDefault("llm.max_output_tokens", cfg.LLM.MaxOutputTokens)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("git.commit_prefix", cfg.Git.CommitPrefix)
	v.SetDefault("git.default_branch", cfg.Git.DefaultBranch)
	v.SetDefault("git.commit_timeout", cfg.Git.CommitTimeout)
	v.SetDefault("exec.command_timeout", cfg.Exec.CommandTimeout)
	v.SetDefault("deploy.settle_time", cfg.Deploy.SettleTime)
	v.SetDefault("planner.max_fallback_tasks", cfg.Planner.MaxFallbackTasks)
	v.SetDefault("planner.combined", cfg.Planner.Combined)
	v.SetDefault("metrics_listen", "")
	v.SetDefault("audit", cfg.Audit)
	v.SetDefault("credentials.azure_api_version", cfg.Credentials.AzureAPIVersion)
	v.SetDefault("credentials.ollama_host", cfg.Credentials.OllamaHost)

	// Environment overrides. Errors are impossible with a non-empty key.
	_ = v.BindEnv("provider", "SELECTED_PROVIDER")
	_ = v.BindEnv("output_dir", "OUTPUT_PATH")
	_ = v.BindEnv("models.gemini", "GEMINI_MODEL")
	_ = v.BindEnv("models.openai", "OPENAI_MODEL")
	_ = v.BindEnv("models.anthropic", "ANTHROPIC_MODEL")
	_ = v.BindEnv("models.azure", "AZURE_OPENAI_DEPLOYMENT")
	_ = v.BindEnv("models.ollama", "OLLAMA_MODEL")
	_ = v.BindEnv("credentials.google_api_key", "GOOGLE_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("credentials.openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("credentials.anthropic_api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("credentials.azure_api_key", "AZURE_OPENAI_API_KEY")
	_ = v.BindEnv("credentials.azure_endpoint", "AZURE_OPENAI_ENDPOINT")
	_ = v.BindEnv("credentials.azure_api_version", "AZURE_OPENAI_API_VERSION")
	_ = v.BindEnv("credentials.ollama_host", "OLLAMA_HOST")
	return v
}

// Load reads configuration. An explicit path must exist; otherwise codeagent.yaml
// is searched in the working directory and ~/.codeagent, and defaults are used
// when neither has one.
func Load(path string) (*Config, error) {
	cfg := Default()
	v := newViper(cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, UserConfigDir))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		cfg.Source = v.ConfigFileUsed()
	}

	cfg.Provider = v.GetString("provider")
	cfg.OutputDir = v.GetString("output_dir")
	cfg.Models = ModelConfig{
		Gemini:    v.GetString("models.gemini"),
		OpenAI:    v.GetString("models.openai"),
		Anthropic: v.GetString("models.anthropic"),
		Azure:     v.GetString("models.azure"),
		Ollama:    v.GetString("models.ollama"),
	}
	cfg.LLM = LLMConfig{
		Temperature:         float32(v.GetFloat64("llm.temperature")),
		PlanningTemperature: float32(v.GetFloat64("llm.planning_temperature")),
		MaxOutputTokens:     v.GetInt("llm.max_output_tokens"),
		Timeout:             v.GetDuration("llm.timeout"),
	}
	cfg.Git = GitConfig{
		CommitPrefix:  v.GetString("git.commit_prefix"),
		DefaultBranch: v.GetString("git.default_branch"),
		CommitTimeout: v.GetDuration("git.commit_timeout"),
	}
	cfg.Exec.CommandTimeout = v.GetDuration("exec.command_timeout")
	cfg.Deploy.SettleTime = v.GetDuration("deploy.settle_time")
	cfg.Planner.MaxFallbackTasks = v.GetInt("planner.max_fallback_tasks")
	cfg.Planner.Combined = v.GetBool("planner.combined")
	cfg.MetricsAddr = v.GetString("metrics_listen")
	cfg.Audit = v.GetBool("audit")
	cfg.Credentials = Credentials{
		GoogleAPIKey:    v.GetString("credentials.google_api_key"),
		OpenAIAPIKey:    v.GetString("credentials.openai_api_key"),
		AnthropicAPIKey: v.GetString("credentials.anthropic_api_key"),
		AzureAPIKey:     v.GetString("credentials.azure_api_key"),
		AzureEndpoint:   v.GetString("credentials.azure_endpoint"),
		AzureAPIVersion: v.GetString("credentials.azure_api_version"),
		OllamaHost:      v.GetString("credentials.ollama_host"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if !IsKnownProvider(c.Provider) {
		return fmt.Errorf("unknown provider %q (expected one of %v)", c.Provider, ProviderFallbackOrder)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0, got %v", c.LLM.Temperature)
	}
	if c.LLM.PlanningTemperature < 0 || c.LLM.PlanningTemperature > 2 {
		return fmt.Errorf("llm.planning_temperature must be between 0.0 and 2.0, got %v", c.LLM.PlanningTemperature)
	}
	if c.LLM.MaxOutputTokens <= 0 {
		return fmt.Errorf("llm.max_output_tokens must be positive")
	}
	if c.Exec.CommandTimeout <= 0 {
		return fmt.Errorf("exec.command_timeout must be positive")
	}
	if c.Git.CommitTimeout <= 0 {
		return fmt.Errorf("git.commit_timeout must be positive")
	}
	if c.Planner.MaxFallbackTasks <= 0 {
		return fmt.Errorf("planner.max_fallback_tasks must be positive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}
	return nil
}

// ModelFor returns the configured model for provider.
func (c *Config) ModelFor(provider string) string {
	switch provider {
	case ProviderGemini:
		return c.Models.Gemini
	case ProviderOpenAI:
		return c.Models.OpenAI
	case ProviderAnthropic:
		return c.Models.Anthropic
	case ProviderAzure:
		return c.Models.Azure
	case ProviderOllama:
		return c.Models.Ollama
	default:
		return ""
	}
}

// HasCredentials reports whether provider can be constructed from the environment.
// Ollama needs no key and is always considered available.
func (c *Config) HasCredentials(provider string) bool {
	switch provider {
	case ProviderGemini:
		return c.Credentials.GoogleAPIKey != ""
	case ProviderOpenAI:
		return c.Credentials.OpenAIAPIKey != ""
	case ProviderAnthropic:
		return c.Credentials.AnthropicAPIKey != ""
	case ProviderAzure:
		return c.Credentials.AzureAPIKey != "" && c.Credentials.AzureEndpoint != ""
	case ProviderOllama:
		return c.Credentials.OllamaHost != ""
	default:
		return false
	}
}

// WriteDefault writes a commented default config file to path. Existing files are kept.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	data, err := yaml.Marshal(defaultFile(Default()))
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	header := "# codeagent configuration\n" +
		"# API keys are read from the environment only:\n" +
		"#   GOOGLE_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY,\n" +
		"#   AZURE_OPENAI_API_KEY + AZURE_OPENAI_ENDPOINT, OLLAMA_HOST\n"
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// fileConfig is the on-disk shape; durations are written as strings so viper can parse them back.
type fileConfig struct {
	Provider  string      `yaml:"provider"`
	OutputDir string      `yaml:"output_dir"`
	Models    ModelConfig `yaml:"models"`
	LLM       struct {
		Temperature         float32 `yaml:"temperature"`
		PlanningTemperature float32 `yaml:"planning_temperature"`
		MaxOutputTokens     int     `yaml:"max_output_tokens"`
		Timeout             string  `yaml:"timeout"`
	} `yaml:"llm"`
	Git struct {
		CommitPrefix  string `yaml:"commit_prefix"`
		DefaultBranch string `yaml:"default_branch"`
		CommitTimeout string `yaml:"commit_timeout"`
	} `yaml:"git"`
	Exec struct {
		CommandTimeout string `yaml:"command_timeout"`
	} `yaml:"exec"`
	Deploy struct {
		SettleTime string `yaml:"settle_time"`
	} `yaml:"deploy"`
	Planner     PlannerConfig `yaml:"planner"`
	MetricsAddr string        `yaml:"metrics_listen"`
	Audit       bool          `yaml:"audit"`
}

func defaultFile(c *Config) fileConfig {
	var f fileConfig
	f.Provider = c.Provider
	f.OutputDir = c.OutputDir
	f.Models = c.Models
	f.LLM.Temperature = c.LLM.Temperature
	f.LLM.PlanningTemperature = c.LLM.PlanningTemperature
	f.LLM.MaxOutputTokens = c.LLM.MaxOutputTokens
	f.LLM.Timeout = c.LLM.Timeout.String()
	f.Git.CommitPrefix = c.Git.CommitPrefix
	f.Git.DefaultBranch = c.Git.DefaultBranch
	f.Git.CommitTimeout = c.Git.CommitTimeout.String()
	f.Exec.CommandTimeout = c.Exec.CommandTimeout.String()
	f.Deploy.SettleTime = c.Deploy.SettleTime.String()
	f.Planner = c.Planner
	f.MetricsAddr = c.MetricsAddr
	f.Audit = c.Audit
	return f
}
