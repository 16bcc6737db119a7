package ai

import (
	"context"
	"fmt"

	"github.com/tajer-app/locations/internal/config"
)

const (
	ProviderOpenAI    = "openai"
	ProviderGigaChat  = "gigachat"
	ProviderYandexGPT = "yandexgpt"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Prompt is a single-turn chat request.
type Prompt struct {
	System string
	User   string
	// JSON asks the provider for a JSON object when it supports that mode.
	JSON bool
}

// Generator produces a completion for prompt using the given model.
type Generator interface {
	Generate(ctx context.Context, model string, prompt Prompt) (string, error)
}

// New returns the generator configured by cfg. It returns nil when no api key
// is set, callers then skip the ai stage.
func New(cfg config.AIConfig) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	case ProviderGigaChat:
		return NewGigaChatClient(cfg.APIKey, cfg.GigaChatScope, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	case ProviderYandexGPT:
		return NewYandexGPTClient(cfg.APIKey, cfg.YandexFolderID, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
