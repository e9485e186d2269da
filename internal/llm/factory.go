package llm

import (
	"fmt"

	"go.uber.org/zap"

	"paperlens/internal/config"
)

// NewCallerFromConfig selects the backend named by the provider tag once at
// startup and wraps it in the retry adapter. No runtime type inspection.
func NewCallerFromConfig(cfg *config.Config, logger *zap.Logger) (*Caller, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	backend := cfg.Backend()
	return NewCaller(client, CallerConfig{
		MaxRetries:     cfg.AI.MaxRetries,
		AttemptTimeout: backend.Timeout(),
	}, logger), nil
}

func newClient(cfg *config.Config) (Client, error) {
	switch cfg.AI.Provider {
	case "openai":
		b := cfg.AI.OpenAI
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  b.APIKey,
			BaseURL: b.BaseURL,
			Model:   b.Model,
			Timeout: b.Timeout(),
		}), nil
	case "qianfan":
		b := cfg.AI.Qianfan
		return NewOpenAIClient(OpenAIConfig{
			Name:    "qianfan",
			APIKey:  b.APIKey,
			BaseURL: b.BaseURL,
			Model:   b.Model,
			Timeout: b.Timeout(),
		}), nil
	case "anthropic":
		b := cfg.AI.Anthropic
		return NewAnthropicClient(AnthropicConfig{
			APIKey:  b.APIKey,
			BaseURL: b.BaseURL,
			Model:   b.Model,
			Timeout: b.Timeout(),
		}), nil
	case "ollama":
		b := cfg.AI.Ollama
		return NewOllamaClient(OllamaConfig{
			BaseURL: b.BaseURL,
			Model:   b.Model,
			Timeout: b.Timeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown ai provider: %q", cfg.AI.Provider)
	}
}
