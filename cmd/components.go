package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
	"github.com/gramo-ai/gramo-cli/internal/analysis"
	"github.com/gramo-ai/gramo-cli/internal/config"
	"github.com/gramo-ai/gramo-cli/internal/llmclient"
	"github.com/gramo-ai/gramo-cli/internal/ratelimit"
	"github.com/gramo-ai/gramo-cli/internal/resilience"
)

// appComponents holds the initialized analysis pipeline shared by the
// one-shot and server commands.
type appComponents struct {
	Router   *llmclient.Router
	Analyzer *analysis.Analyzer
	Limiter  *ratelimit.TokenBucket
}

// Shutdown releases the underlying model clients.
func (ac *appComponents) Shutdown() {
	if ac.Router != nil {
		if err := ac.Router.Close(); err != nil {
			zap.L().Warn("Error closing model clients", zap.Error(err))
		}
	}
}

// initializeComponents handles dependency injection for the analysis
// pipeline: model routing, retry policy, token budget and dispatcher.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*appComponents, error) {
	router, err := llmclient.NewRouterFromConfig(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model clients: %w", err)
	}

	roleTiers := make(map[schemas.Role]schemas.ModelTier, len(cfg.Analysis.RoleTiers))
	for role, tier := range cfg.Analysis.RoleTiers {
		roleTiers[schemas.Role(role)] = schemas.ModelTier(tier)
	}

	retry := resilience.NewRetryPolicy(cfg.Analysis.RetryMaxAttempts, cfg.Analysis.RetryBaseDelay, logger)
	limiter := ratelimit.NewTokenBucket(cfg.Analysis.TokensPerMinute)

	analyzer := analysis.New(router, retry, limiter, analysis.Options{
		MaxInputChars: cfg.Analysis.MaxInputChars,
		Temperature:   cfg.Analysis.Temperature,
		MaxTokens:     cfg.Analysis.MaxTokens,
		RoleTiers:     roleTiers,
	}, logger)

	return &appComponents{
		Router:   router,
		Analyzer: analyzer,
		Limiter:  limiter,
	}, nil
}
