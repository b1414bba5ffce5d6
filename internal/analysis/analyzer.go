// Package analysis implements the text-analysis orchestration core:
// deterministic metrics and tone scoring, and the role dispatcher that
// chains grammar, style and structure passes through the model
// backend, merging their output into one unified result.
package analysis

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
	"github.com/gramo-ai/gramo-cli/internal/ratelimit"
	"github.com/gramo-ai/gramo-cli/internal/resilience"
	"github.com/gramo-ai/gramo-cli/internal/sanitize"
)

// promptTokenBuffer pads the rough word-count token estimate to cover
// the response side of a generation.
const promptTokenBuffer = 500

// rawSnippetLen caps how much raw model output is carried inside a
// MalformedResponseError.
const rawSnippetLen = 500

// Options tunes the dispatcher.
type Options struct {
	// MaxInputChars truncates longer inputs before dispatch; 0 disables.
	MaxInputChars int
	// Temperature for role generations.
	Temperature float64
	// MaxTokens bounds the response size; 0 uses the provider default.
	MaxTokens int
	// RoleTiers maps each role to a model tier; unset roles use the
	// powerful tier.
	RoleTiers map[schemas.Role]schemas.ModelTier
}

// envelope is the wrapper the role prompts demand around the payload.
type envelope[T any] struct {
	Analysis *T `json:"analysis"`
}

// Analyzer dispatches analysis roles sequentially, feeding each role's
// improved text forward, and merges the results. A role failure after
// all retries degrades to an absent entry; it never aborts the run.
type Analyzer struct {
	llm     schemas.LLMClient
	retry   *resilience.RetryPolicy
	limiter *ratelimit.TokenBucket
	opts    Options
	logger  *zap.Logger
}

// New builds an Analyzer. The limiter may be nil when no local budget
// applies (tests, one-shot CLI runs).
func New(llm schemas.LLMClient, retry *resilience.RetryPolicy, limiter *ratelimit.TokenBucket, opts Options, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		llm:     llm,
		retry:   retry,
		limiter: limiter,
		opts:    opts,
		logger:  logger.Named("analyzer"),
	}
}

// Analyze runs the full pipeline for one request. It fails only on a
// precondition violation or when the backend is unreachable for every
// selected role with a transient error; role-level parse failures are
// swallowed and reported as absent entries.
func (a *Analyzer) Analyze(ctx context.Context, req schemas.AnalysisRequest) (schemas.UnifiedAnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return FallbackResult(req.Text), err
	}

	text := req.Text
	if a.opts.MaxInputChars > 0 && len(text) > a.opts.MaxInputChars {
		a.logger.Warn("input truncated",
			zap.Int("original_len", len(text)),
			zap.Int("max", a.opts.MaxInputChars),
		)
		text = text[:a.opts.MaxInputChars] + "..."
	}

	result := schemas.UnifiedAnalysisResult{
		OriginalText: text,
		ImprovedText: text,
		TextStats:    ComputeMetrics(text),
		ToneAnalysis: ClassifyTone(text),
	}

	improved := text
	var lastTransient error

	for _, role := range schemas.RoleOrder {
		if !req.HasFocus(role) {
			continue
		}

		raw, err := a.invokeRole(ctx, role, improved, req.OutputStyle)
		if err != nil {
			if schemas.IsTransient(err) {
				lastTransient = err
			}
			a.logger.Warn("role failed after retries, leaving entry absent",
				zap.String("role", string(role)),
				zap.Error(err),
			)
			continue
		}

		if next, ok := a.recordRole(&result, role, raw); ok && next != "" {
			improved = next
		}
	}

	result.ImprovedText = improved
	result.Feedback = DeriveFeedback(text, result.Analysis, result.TextStats)

	// Nothing succeeded and the backend was unreachable: bubble the
	// transient error so the session layer can drive its own retry.
	if lastTransient != nil && result.Analysis.Grammar == nil &&
		result.Analysis.Style == nil && result.Analysis.Structure == nil {
		return FallbackResult(text), lastTransient
	}

	return result, nil
}

// invokeRole runs one model call under the rate limiter and the
// role-level retry policy, returning raw model output.
func (a *Analyzer) invokeRole(ctx context.Context, role schemas.Role, text string, style schemas.OutputStyle) (string, error) {
	prompt := userPrompt(role, text, style)

	if a.limiter != nil {
		estimated := len(strings.Fields(prompt)) + promptTokenBuffer
		if err := a.limiter.Acquire(ctx, estimated); err != nil {
			return "", err
		}
	}

	req := schemas.GenerationRequest{
		SystemPrompt: systemPrompt(role),
		UserPrompt:   prompt,
		Tier:         a.tierFor(role),
		Options: schemas.GenerationOptions{
			Temperature:     a.opts.Temperature,
			ForceJSONFormat: true,
			MaxTokens:       a.opts.MaxTokens,
		},
	}

	var raw string
	err := a.retry.Do(ctx, string(role), func(ctx context.Context) error {
		out, err := a.llm.Generate(ctx, req)
		if err != nil {
			return err
		}
		// Validate parseability inside the retry loop so a garbled
		// generation gets a fresh attempt instead of a silent gap.
		if parseErr := a.checkParse(role, out); parseErr != nil {
			return parseErr
		}
		raw = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (a *Analyzer) tierFor(role schemas.Role) schemas.ModelTier {
	if t, ok := a.opts.RoleTiers[role]; ok && t != "" {
		return t
	}
	return schemas.TierPowerful
}

// checkParse decodes raw into the role's typed shape, reporting a
// MalformedResponseError when every repair tier fails.
func (a *Analyzer) checkParse(role schemas.Role, raw string) error {
	var err error
	switch role {
	case schemas.RoleGrammar:
		_, err = decodeRole[schemas.GrammarAnalysis](raw)
	case schemas.RoleStyle:
		_, err = decodeRole[schemas.StyleAnalysis](raw)
	case schemas.RoleStructure:
		_, err = decodeRole[schemas.StructureAnalysis](raw)
	}
	if err != nil {
		return &schemas.MalformedResponseError{
			Role: role,
			Raw:  sanitize.Truncate(raw, rawSnippetLen),
			Err:  err,
		}
	}
	return nil
}

// recordRole stores the parsed payload under the role's entry and
// returns the role's improved text for chaining.
func (a *Analyzer) recordRole(result *schemas.UnifiedAnalysisResult, role schemas.Role, raw string) (string, bool) {
	switch role {
	case schemas.RoleGrammar:
		parsed, err := decodeRole[schemas.GrammarAnalysis](raw)
		if err != nil {
			return "", false
		}
		result.Analysis.Grammar = parsed
		return parsed.ImprovedText, true
	case schemas.RoleStyle:
		parsed, err := decodeRole[schemas.StyleAnalysis](raw)
		if err != nil {
			return "", false
		}
		result.Analysis.Style = parsed
		return parsed.ImprovedText, true
	case schemas.RoleStructure:
		parsed, err := decodeRole[schemas.StructureAnalysis](raw)
		if err != nil {
			return "", false
		}
		result.Analysis.Structure = parsed
		return parsed.ImprovedText, true
	}
	return "", false
}

// decodeRole unwraps the "analysis" envelope; a payload without the
// envelope is accepted as the bare role shape.
func decodeRole[T any](raw string) (*T, error) {
	wrapped, err := sanitize.Decode[envelope[T]](raw)
	if err == nil && wrapped.Analysis != nil {
		return wrapped.Analysis, nil
	}
	return sanitize.Decode[T](raw)
}

// FallbackResult builds the non-empty placeholder rendered when an
// analysis fails outright: original text echoed back, zeroed metrics,
// neutral tone. Callers never have to handle an absent result.
func FallbackResult(text string) schemas.UnifiedAnalysisResult {
	return schemas.UnifiedAnalysisResult{
		OriginalText: text,
		ImprovedText: text,
		TextStats:    schemas.TextMetrics{},
		ToneAnalysis: NeutralTone(),
		Feedback:     schemas.DerivedFeedback{Pros: []string{}, Cons: []string{}},
	}
}
