// Package llm wraps text-generation services behind a single Completer
// interface, with provider selection from configuration and best-effort
// extraction of structured data from completions.
package llm

import (
	"context"
	"errors"
)

// Provider names
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-haiku-4-5"

	defaultMaxTokens = 1024
)

var (
	// ErrNotConfigured means no API key is available. Fatal; callers should
	// surface it as an actionable configuration message.
	ErrNotConfigured = errors.New("text-generation service not configured")

	// ErrUnauthorized means the service rejected the credential.
	ErrUnauthorized = errors.New("text-generation service rejected credentials")

	ErrEmptyCompletion = errors.New("empty completion")

	errUnknownProvider = errors.New("unknown text-generation provider")
)

// Message is one role-tagged turn of a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single text-generation call.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completer produces one text completion per request. Implementations must
// be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
	Model() string
}
