// Package llmclient implements the outbound model-provider clients and
// the tier router in front of them. Clients are single-attempt: they
// classify failures as transient or permanent, and the resilience
// layer above decides whether to retry.
package llmclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
	"github.com/gramo-ai/gramo-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultGroqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// GroqClient talks to Groq's OpenAI-compatible chat completions API.
type GroqClient struct {
	apiKey     string
	endpoint   string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
}

// -- Chat completions request/response structures (internal to this file) --

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatRequestPayload struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	Temperature    float64             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponsePayload struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewGroqClient initializes the client.
func NewGroqClient(cfg config.ModelConfig, logger *zap.Logger) (*GroqClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultGroqEndpoint
	}
	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GroqClient{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("llm_client.groq"),
	}, nil
}

// Generate sends the prompts to the chat completions endpoint and
// returns the generated content. Network failures and retryable
// statuses come back as TransientError; everything else is a
// ProviderError.
func (c *GroqClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	payload := chatRequestPayload{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxTokens,
	}
	if payload.MaxTokens == 0 {
		payload.MaxTokens = c.maxTokens
	}
	if req.Options.ForceJSONFormat {
		payload.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)
	if err != nil {
		return "", classifyNetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &schemas.TransientError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatusError(c.logger, resp.StatusCode, respBody)
	}

	var responsePayload chatResponsePayload
	if err := json.Unmarshal(respBody, &responsePayload); err != nil {
		return "", &schemas.ProviderError{Message: fmt.Sprintf("undecodable response payload: %v", err)}
	}
	if responsePayload.Error != nil {
		return "", &schemas.ProviderError{Message: responsePayload.Error.Message}
	}
	if len(responsePayload.Choices) == 0 {
		return "", &schemas.ProviderError{Message: "provider returned no choices"}
	}

	c.logger.Info("LLM generation complete",
		zap.String("model", c.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", responsePayload.Usage.PromptTokens),
		zap.Int("completion_tokens", responsePayload.Usage.CompletionTokens),
		zap.Int("total_tokens", responsePayload.Usage.TotalTokens),
	)

	return responsePayload.Choices[0].Message.Content, nil
}

// Close releases client resources. The shared HTTP transport has
// nothing to tear down.
func (c *GroqClient) Close() error { return nil }

// classifyNetworkError maps transport-level failures to the transient
// class so the retry layers can act on them.
func classifyNetworkError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &schemas.TransientError{Err: err}
	}
	return &schemas.TransientError{Err: fmt.Errorf("failed to execute HTTP request: %w", err)}
}

// classifyStatusError separates retryable statuses from explicit
// provider errors.
func classifyStatusError(logger *zap.Logger, statusCode int, body []byte) error {
	logger.Error("provider returned error status",
		zap.Int("status", statusCode),
		zap.ByteString("response", body),
	)
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable,
		http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusInternalServerError:
		return &schemas.TransientError{Err: fmt.Errorf("provider status %d: %s", statusCode, body)}
	default:
		return &schemas.ProviderError{Status: statusCode, Message: string(body)}
	}
}
