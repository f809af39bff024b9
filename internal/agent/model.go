package agent

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/gosuda/hrdesk/internal/config"
)

// ErrMissingAPIKey is returned when the selected provider needs a key that is not configured.
var ErrMissingAPIKey = errors.New("agent: missing API key") //nolint:gochecknoglobals // sentinel error

// NewModel creates the chat model selected by cfg.Provider. Each provider
// request is bounded by cfg.RequestTimeout.
func NewModel(cfg config.LLMConfig) (llms.Model, error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	switch cfg.Provider {
	case "ollama":
		model, err := ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("agent.NewModel: ollama: %w", err)
		}
		return model, nil

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("agent.NewModel: openai: %w", ErrMissingAPIKey)
		}
		opts := []openai.Option{
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(httpClient),
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("agent.NewModel: openai: %w", err)
		}
		return model, nil

	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("agent.NewModel: anthropic: %w", ErrMissingAPIKey)
		}
		model, err := anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
			anthropic.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("agent.NewModel: anthropic: %w", err)
		}
		return model, nil

	default:
		return nil, fmt.Errorf("agent.NewModel: unsupported provider %q", cfg.Provider)
	}
}
