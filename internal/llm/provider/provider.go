// Package provider picks the completion backend named in configuration.
package provider

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/fieldextract/constants"
	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/llm"
	"github.com/joseph-ayodele/fieldextract/internal/llm/ollama"
	"github.com/joseph-ayodele/fieldextract/internal/llm/openai"
)

// New returns the Completer for cfg.Provider. An empty provider selects Ollama.
func New(cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	switch cfg.Provider {
	case "", constants.ProviderOllama:
		return ollama.NewClient(ollama.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: float64(cfg.Temperature),
			Timeout:     cfg.Timeout,
		}, logger)
	case constants.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	default:
		return nil, common.NewAppError(common.CodeConfig,
			fmt.Sprintf("unknown LLM_PROVIDER %q", cfg.Provider), common.ErrInvalidInput)
	}
}
