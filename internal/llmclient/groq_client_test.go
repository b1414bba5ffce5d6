package llmclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
	"github.com/gramo-ai/gramo-cli/internal/config"
)

func newTestGroqClient(t *testing.T, handler http.HandlerFunc) (*GroqClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewGroqClient(config.ModelConfig{
		Provider: config.ProviderGroq,
		Model:    "test-model",
		APIKey:   "test-key",
		Endpoint: server.URL,
	}, zap.NewNop())
	require.NoError(t, err)
	return client, server
}

func generationRequest() schemas.GenerationRequest {
	return schemas.GenerationRequest{
		SystemPrompt: "You are a grammar checker.",
		UserPrompt:   "Check this text.",
		Tier:         schemas.TierFast,
		Options: schemas.GenerationOptions{
			Temperature:     0.7,
			ForceJSONFormat: true,
			MaxTokens:       512,
		},
	}
}

func TestGroqGenerate_Success(t *testing.T) {
	var captured chatRequestPayload
	client, _ := newTestGroqClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "{\"analysis\": {}}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	})

	out, err := client.Generate(context.Background(), generationRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"analysis": {}}`, out)

	// The request faithfully carries the prompts and options.
	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "You are a grammar checker.", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, 0.7, captured.Temperature)
	assert.Equal(t, 512, captured.MaxTokens)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
}

func TestGroqGenerate_RateLimitedIsTransient(t *testing.T) {
	client, _ := newTestGroqClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Generate(context.Background(), generationRequest())

	assert.True(t, schemas.IsTransient(err))
}

func TestGroqGenerate_ServerErrorIsTransient(t *testing.T) {
	for _, status := range []int{500, 502, 503, 504} {
		client, _ := newTestGroqClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := client.Generate(context.Background(), generationRequest())
		assert.True(t, schemas.IsTransient(err), "status %d", status)
	}
}

func TestGroqGenerate_ClientErrorIsProviderError(t *testing.T) {
	client, _ := newTestGroqClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	})

	_, err := client.Generate(context.Background(), generationRequest())

	var pe *schemas.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
	assert.False(t, schemas.IsTransient(err))
}

func TestGroqGenerate_ErrorPayloadIsProviderError(t *testing.T) {
	client, _ := newTestGroqClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "model decommissioned", "type": "invalid_request_error"}}`))
	})

	_, err := client.Generate(context.Background(), generationRequest())

	var pe *schemas.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "model decommissioned")
}

func TestGroqGenerate_NoChoicesIsProviderError(t *testing.T) {
	client, _ := newTestGroqClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.Generate(context.Background(), generationRequest())

	var pe *schemas.ProviderError
	assert.ErrorAs(t, err, &pe)
}

func TestGroqGenerate_ConnectionRefusedIsTransient(t *testing.T) {
	client, server := newTestGroqClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.Generate(context.Background(), generationRequest())

	assert.True(t, schemas.IsTransient(err))
}

func TestGroqGenerate_ContextCancelledPassesThrough(t *testing.T) {
	client, _ := newTestGroqClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, generationRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewGroqClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGroqClient(config.ModelConfig{Model: "m"}, zap.NewNop())

	assert.Error(t, err)
}
