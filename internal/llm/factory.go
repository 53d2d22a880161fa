package llm

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Environment variables consulted by NewFromEnv.
const (
	EnvProvider     = "THREADSCOUT_LLM_PROVIDER"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
)

// Config holds explicit completer configuration.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// New creates a completer from explicit configuration.
func New(cfg Config, logger *slog.Logger) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL, logger)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownProvider, cfg.Provider)
	}
}

// NewFromEnv creates a completer from environment variables.
// Priority:
// 1. THREADSCOUT_LLM_PROVIDER (openai, anthropic)
// 2. Auto-detect from OPENAI_API_KEY / ANTHROPIC_API_KEY
// No key at all is a Configuration-Missing condition, not a silent no-op.
func NewFromEnv(logger *slog.Logger) (Completer, error) {
	provider := strings.ToLower(os.Getenv(EnvProvider))
	openaiKey := os.Getenv(EnvOpenAIKey)
	anthropicKey := os.Getenv(EnvAnthropicKey)

	if provider != "" {
		switch provider {
		case ProviderOpenAI:
			return NewOpenAIClient(openaiKey, "", "", logger)
		case ProviderAnthropic:
			return NewAnthropicClient(anthropicKey, "", "", logger)
		default:
			return nil, fmt.Errorf("%w: %q", errUnknownProvider, provider)
		}
	}

	if openaiKey != "" {
		return NewOpenAIClient(openaiKey, "", "", logger)
	}
	if anthropicKey != "" {
		return NewAnthropicClient(anthropicKey, "", "", logger)
	}
	return nil, fmt.Errorf("%w: set %s or %s", ErrNotConfigured, EnvOpenAIKey, EnvAnthropicKey)
}
