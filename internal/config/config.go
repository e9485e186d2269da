// Package config holds all paperlens configuration, loaded from a YAML file
// with environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"paperlens/internal/detect"
)

// Config holds all paperlens configuration.
type Config struct {
	// Chrome controls how the driven browser is launched.
	Chrome ChromeConfig `yaml:"chrome"`

	// Studio describes the remote generative surface paperlens drives.
	Studio StudioConfig `yaml:"studio"`

	// Detector holds the answer-stabilization thresholds.
	Detector DetectorConfig `yaml:"detector"`

	// AI configures the text-generation backend used for summaries and
	// note classification (not the driven surface itself).
	AI AIConfig `yaml:"ai_service"`

	// Vault configures the note vault.
	Vault VaultConfig `yaml:"vault"`

	// Data configures local persistence (trees, reading log).
	Data DataConfig `yaml:"data"`

	// Logging configures the zap logger.
	Logging LoggingConfig `yaml:"logging"`
}

// ChromeConfig controls the local Chrome instance.
type ChromeConfig struct {
	Bin        string `yaml:"bin"`
	ProfileDir string `yaml:"profile_dir"`
	DebugPort  int    `yaml:"remote_debugging_port"`
	Headless   bool   `yaml:"headless"`
}

// StudioConfig describes the driven page. The selectors default to the
// AI Studio layout but are exposed so a surface redesign is a config edit,
// not a rebuild.
type StudioConfig struct {
	URL                      string `yaml:"url"`
	InputSelector            string `yaml:"input_selector"`
	ChunkSelector            string `yaml:"chunk_selector"`
	RunButtonSelector        string `yaml:"run_button_selector"`
	NavigationTimeoutSeconds int    `yaml:"navigation_timeout_seconds"`
}

// NavigationTimeout returns the page navigation timeout.
func (s StudioConfig) NavigationTimeout() time.Duration {
	if s.NavigationTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.NavigationTimeoutSeconds) * time.Second
}

// DetectorConfig holds the stabilization thresholds.
type DetectorConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	StablePolls         int `yaml:"stable_polls"`
	MinContentChars     int `yaml:"min_content_chars"`
	RecoverAfterPolls   int `yaml:"recover_after_polls"`
	TimeoutSeconds      int `yaml:"timeout_seconds"`
}

// ToDetect converts to the detector's config type.
func (d DetectorConfig) ToDetect() detect.Config {
	return detect.Config{
		PollInterval:      time.Duration(d.PollIntervalSeconds) * time.Second,
		StableThreshold:   d.StablePolls,
		MinContentLen:     d.MinContentChars,
		RecoverAfterPolls: d.RecoverAfterPolls,
		Timeout:           time.Duration(d.TimeoutSeconds) * time.Second,
	}
}

// AIConfig selects and configures the generation backend.
type AIConfig struct {
	Provider   string        `yaml:"provider"` // openai, anthropic, qianfan, ollama
	MaxRetries int           `yaml:"max_retries"`
	OpenAI     BackendConfig `yaml:"openai"`
	Anthropic  BackendConfig `yaml:"anthropic"`
	Qianfan    BackendConfig `yaml:"qianfan"`
	Ollama     BackendConfig `yaml:"ollama"`
}

// BackendConfig holds per-backend connection settings.
type BackendConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-attempt request timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// VaultConfig configures the note vault.
type VaultConfig struct {
	Path         string   `yaml:"path"`
	AssetsFolder string   `yaml:"assets_folder"`
	DefaultTags  []string `yaml:"default_tags"`
	InboxFolder  string   `yaml:"inbox_folder"`
}

// DataConfig configures local persistence paths.
type DataConfig struct {
	Dir       string `yaml:"dir"`
	StatsFile string `yaml:"stats_file"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Chrome: ChromeConfig{
			DebugPort: 9222,
		},
		Studio: StudioConfig{
			URL:                      "https://aistudio.google.com/prompts/new_chat",
			InputSelector:            "textarea.cdk-textarea-autosize",
			ChunkSelector:            "ms-text-chunk",
			RunButtonSelector:        "ms-run-button button",
			NavigationTimeoutSeconds: 30,
		},
		Detector: DetectorConfig{
			PollIntervalSeconds: 3,
			StablePolls:         2,
			MinContentChars:     10,
			RecoverAfterPolls:   10,
			TimeoutSeconds:      180,
		},
		AI: AIConfig{
			Provider:   "openai",
			MaxRetries: 3,
			OpenAI: BackendConfig{
				BaseURL:        "https://api.openai.com/v1",
				Model:          "gpt-4o-mini",
				TimeoutSeconds: 30,
			},
			Anthropic: BackendConfig{
				BaseURL:        "https://api.anthropic.com",
				Model:          "claude-3-5-haiku-latest",
				TimeoutSeconds: 30,
			},
			Qianfan: BackendConfig{
				BaseURL:        "https://qianfan.baidubce.com/v2",
				Model:          "deepseek-v3",
				TimeoutSeconds: 30,
			},
			Ollama: BackendConfig{
				BaseURL:        "http://localhost:11434",
				Model:          "llama3.1",
				TimeoutSeconds: 60,
			},
		},
		Vault: VaultConfig{
			AssetsFolder: "assets",
			DefaultTags:  []string{"paper-note"},
			InboxFolder:  "00_inbox/paper-notes",
		},
		Data: DataConfig{
			Dir:       "data",
			StatsFile: "data/reading_stats.jsonl",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "logs/paperlens.log",
		},
	}
}

// Load reads a config file, fills gaps with defaults, and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides pulls credentials from the environment when the file
// leaves them empty.
func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"OPENAI_API_KEY", &c.AI.OpenAI.APIKey},
		{"ANTHROPIC_API_KEY", &c.AI.Anthropic.APIKey},
		{"QIANFAN_API_KEY", &c.AI.Qianfan.APIKey},
	}
	for _, o := range overrides {
		if *o.dst == "" {
			if v := os.Getenv(o.env); v != "" {
				*o.dst = v
			}
		}
	}
	if v := os.Getenv("PAPERLENS_VAULT"); v != "" && c.Vault.Path == "" {
		c.Vault.Path = v
	}
}

// Validate checks the parts that would otherwise fail deep inside a session.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "openai", "anthropic", "qianfan", "ollama":
	default:
		return fmt.Errorf("unknown ai provider: %q", c.AI.Provider)
	}
	if c.Studio.URL == "" {
		return fmt.Errorf("studio.url is required")
	}
	if c.Detector.PollIntervalSeconds <= 0 {
		return fmt.Errorf("detector.poll_interval_seconds must be positive")
	}
	if c.Detector.TimeoutSeconds <= c.Detector.PollIntervalSeconds {
		return fmt.Errorf("detector.timeout_seconds must exceed the poll interval")
	}
	return nil
}

// Backend returns the settings for the selected provider.
func (c *Config) Backend() BackendConfig {
	switch c.AI.Provider {
	case "anthropic":
		return c.AI.Anthropic
	case "qianfan":
		return c.AI.Qianfan
	case "ollama":
		return c.AI.Ollama
	default:
		return c.AI.OpenAI
	}
}
