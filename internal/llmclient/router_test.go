package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
	"github.com/gramo-ai/gramo-cli/internal/config"
)

// stubClient records calls and answers with a fixed string.
type stubClient struct {
	name   string
	calls  int
	closed int
}

func (s *stubClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	s.calls++
	return s.name, nil
}

func (s *stubClient) Close() error {
	s.closed++
	return nil
}

func TestRouter_RoutesByTier(t *testing.T) {
	fast := &stubClient{name: "fast"}
	powerful := &stubClient{name: "powerful"}
	router, err := NewRouter(zap.NewNop(), fast, powerful)
	require.NoError(t, err)

	out, err := router.Generate(context.Background(), schemas.GenerationRequest{Tier: schemas.TierFast})
	require.NoError(t, err)
	assert.Equal(t, "fast", out)

	out, err = router.Generate(context.Background(), schemas.GenerationRequest{Tier: schemas.TierPowerful})
	require.NoError(t, err)
	assert.Equal(t, "powerful", out)
}

func TestRouter_EmptyTierDefaultsToPowerful(t *testing.T) {
	fast := &stubClient{name: "fast"}
	powerful := &stubClient{name: "powerful"}
	router, err := NewRouter(zap.NewNop(), fast, powerful)
	require.NoError(t, err)

	out, err := router.Generate(context.Background(), schemas.GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "powerful", out)
}

func TestRouter_UnknownTierErrors(t *testing.T) {
	router, err := NewRouter(zap.NewNop(), &stubClient{}, &stubClient{})
	require.NoError(t, err)

	_, err = router.Generate(context.Background(), schemas.GenerationRequest{Tier: "experimental"})

	assert.Error(t, err)
}

func TestRouter_RequiresBothClients(t *testing.T) {
	_, err := NewRouter(zap.NewNop(), nil, &stubClient{})
	assert.Error(t, err)

	_, err = NewRouter(zap.NewNop(), &stubClient{}, nil)
	assert.Error(t, err)
}

func TestRouter_CloseClosesEachClientOnce(t *testing.T) {
	// The same client serving both tiers must only be closed once.
	shared := &stubClient{name: "shared"}
	router, err := NewRouter(zap.NewNop(), shared, shared)
	require.NoError(t, err)

	require.NoError(t, router.Close())
	assert.Equal(t, 1, shared.closed)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(config.ModelConfig{Provider: "openai"}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestNewRouterFromConfig_AppliesSharedAPIKey(t *testing.T) {
	cfg := config.LLMConfig{
		APIKey:        "shared-key",
		FastModel:     "fast-model",
		PowerfulModel: "big-model",
		Models: map[string]config.ModelConfig{
			"fast-model": {Provider: config.ProviderGroq, Model: "fast-model"},
			"big-model":  {Provider: config.ProviderGroq, Model: "big-model"},
		},
	}

	router, err := NewRouterFromConfig(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, router)
	assert.NoError(t, router.Close())
}

func TestNewRouterFromConfig_MissingModelEntry(t *testing.T) {
	cfg := config.LLMConfig{
		FastModel:     "fast-model",
		PowerfulModel: "big-model",
		Models:        map[string]config.ModelConfig{},
	}

	_, err := NewRouterFromConfig(cfg, zap.NewNop())

	assert.Error(t, err)
}
