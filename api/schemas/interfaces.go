package schemas

import "context"

// ModelTier selects between a cheap, fast model and a slower, more
// capable one. Each role is mapped to a tier in configuration.
type ModelTier string

const (
	TierFast     ModelTier = "fast"
	TierPowerful ModelTier = "powerful"
)

// GenerationOptions carries advanced generation parameters.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`       // Controls randomness. Lower is more deterministic.
	ForceJSONFormat bool    `json:"force_json_format"` // If true, asks the provider for a JSON-only response.
	MaxTokens       int     `json:"max_tokens"`        // Response token budget; 0 uses the model default.
}

// GenerationRequest encapsulates a complete request to the model
// backend: the role's system prompt, the user prompt built from the
// chained text, the desired tier, and generation options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Tier         ModelTier         `json:"tier"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient is the outbound contract to the model-inference provider.
// The returned string should contain one structured payload matching
// the calling role's documented shape, but may be malformed; the
// sanitizer exists precisely because this boundary is untrusted.
type LLMClient interface {
	// Generate produces a text completion based on the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close cleans up any resources held by the client.
	Close() error
}
