// Package config loads runtime configuration from an optional YAML file
// with environment-variable overrides for credentials.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/threadscout/threadscout-mcp/internal/llm"
)

// LLMConfig selects and configures the text-generation provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" or "anthropic"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// Config is the full runtime configuration.
type Config struct {
	UserAgent string `yaml:"user_agent"`

	CacheTTL        string `yaml:"cache_ttl"`
	CacheMaxEntries int    `yaml:"cache_max_entries"`

	RateWindow       string `yaml:"rate_window"`
	RateMaxPerWindow int    `yaml:"rate_max_per_window"`

	MinRelevance  int `yaml:"min_relevance"`
	FallbackLimit int `yaml:"fallback_limit"`

	LLM *LLMConfig `yaml:"llm,omitempty"`
}

// Default returns a configuration with the standard values; the server is
// usable with no config file at all.
func Default() *Config {
	return &Config{
		CacheTTL:         "5m",
		CacheMaxEntries:  1000,
		RateWindow:       "2s",
		RateMaxPerWindow: 1,
		MinRelevance:     6,
		FallbackLimit:    20,
	}
}

// Load reads the YAML file at path. An empty path or a missing file yields
// the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// CacheTTLDuration parses the cache TTL, falling back to 5 minutes.
func (c *Config) CacheTTLDuration() time.Duration {
	return parseDuration(c.CacheTTL, 5*time.Minute)
}

// RateWindowDuration parses the rate limit window, falling back to 2s.
func (c *Config) RateWindowDuration() time.Duration {
	return parseDuration(c.RateWindow, 2*time.Second)
}

// Completer builds the text-generation client. File settings win; env
// variables fill the gaps. Returns llm.ErrNotConfigured (wrapped) when no
// credential is available anywhere.
func (c *Config) Completer(logger *slog.Logger) (llm.Completer, error) {
	if c.LLM != nil && c.LLM.Provider != "" {
		return llm.New(llm.Config{
			Provider: c.LLM.Provider,
			Model:    c.LLM.Model,
			APIKey:   c.resolveAPIKey(),
			BaseURL:  c.LLM.BaseURL,
		}, logger)
	}
	return llm.NewFromEnv(logger)
}

// resolveAPIKey prefers the config file key, then the provider's env var.
func (c *Config) resolveAPIKey() string {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	switch c.LLM.Provider {
	case llm.ProviderOpenAI:
		return os.Getenv(llm.EnvOpenAIKey)
	case llm.ProviderAnthropic:
		return os.Getenv(llm.EnvAnthropicKey)
	}
	return ""
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
