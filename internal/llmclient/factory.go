package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
	"github.com/gramo-ai/gramo-cli/internal/config"
)

// NewClient creates an LLMClient for a single model configuration.
func NewClient(cfg config.ModelConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGroq:
		return NewGroqClient(cfg, logger)
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: %q. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGroq, config.ProviderGemini)
	}
}

// NewRouterFromConfig builds the tier router from the LLM section of
// the configuration, applying the shared API key to models that don't
// carry their own.
func NewRouterFromConfig(cfg config.LLMConfig, logger *zap.Logger) (*Router, error) {
	fastCfg, ok := cfg.Models[cfg.FastModel]
	if !ok {
		return nil, fmt.Errorf("llm.models is missing the fast model %q", cfg.FastModel)
	}
	powerfulCfg, ok := cfg.Models[cfg.PowerfulModel]
	if !ok {
		return nil, fmt.Errorf("llm.models is missing the powerful model %q", cfg.PowerfulModel)
	}

	if fastCfg.APIKey == "" {
		fastCfg.APIKey = cfg.APIKey
	}
	if powerfulCfg.APIKey == "" {
		powerfulCfg.APIKey = cfg.APIKey
	}

	fastClient, err := NewClient(fastCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("building fast tier client: %w", err)
	}
	powerfulClient, err := NewClient(powerfulCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("building powerful tier client: %w", err)
	}

	return NewRouter(logger, fastClient, powerfulClient)
}
