package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/config"
	"telegram-match-analysis/internal/domain/ports/adapter"
)

// New builds the configured provider adapter, wrapped with the concurrency
// limiter.
func New(ctx context.Context, cfg *config.AIConfig, logger *zerolog.Logger) (adapter.AIAdapter, error) {
	var (
		inner adapter.AIAdapter
		err   error
	)
	switch cfg.Provider {
	case "openai":
		inner, err = NewOpenAIAdapter(cfg, logger)
	case "gemini":
		inner, err = NewGeminiAdapter(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewLimitedAI(inner, cfg.ConcurrentLimit), nil
}
