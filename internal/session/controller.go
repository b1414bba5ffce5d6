package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
	"github.com/gramo-ai/gramo-cli/internal/analysis"
)

// Session-level retry defaults: up to three attempts, waiting
// min(base*2^attempt, cap) between them, plus the debounce quiet
// window for auto-triggered analyses.
const (
	DefaultDebounceInterval = time.Second
	DefaultRetryMaxAttempts = 3
	DefaultRetryBaseDelay   = time.Second
	DefaultRetryMaxDelay    = 8 * time.Second
)

// Config tunes the controller's timing.
type Config struct {
	DebounceInterval time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
}

func (c Config) withDefaults() Config {
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = DefaultDebounceInterval
	}
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = DefaultRetryMaxAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = DefaultRetryMaxDelay
	}
	return c
}

// Analyzer is the slice of the analysis core the controller needs.
type Analyzer interface {
	Analyze(ctx context.Context, req schemas.AnalysisRequest) (schemas.UnifiedAnalysisResult, error)
}

// Controller owns one editing session. It is the only writer of the
// session State; every mutation goes through the reducer.
type Controller struct {
	mu    sync.Mutex
	state State

	analyzer Analyzer
	cfg      Config
	logger   *zap.Logger

	gen      atomic.Uint64
	debounce debounceTimer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates a session with the given initial configuration.
func NewController(analyzer Analyzer, cfg Config, logger *zap.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		state: State{
			OutputStyle: schemas.StyleProfessional,
			FocusAreas:  append([]schemas.Role(nil), schemas.RoleOrder...),
		},
		analyzer: analyzer,
		cfg:      cfg.withDefaults(),
		logger:   logger.Named("session"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// apply runs one event through the reducer under the state mutex.
func (c *Controller) apply(ev Event) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, ev)
	return c.state
}

// SetText updates the pending input and (re)arms the debounce timer;
// only the last change within the quiet window triggers an analysis.
func (c *Controller) SetText(text string) {
	c.apply(TextChanged{Text: text})
	c.debounce.Arm(c.cfg.DebounceInterval, func() {
		// Registering under the mutex keeps the Add ordered against a
		// concurrent Close: once Close has cancelled the context no new
		// work is admitted, so Wait observes a settled count.
		c.mu.Lock()
		if c.ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.wg.Add(1)
		c.mu.Unlock()
		go func() {
			defer c.wg.Done()
			if _, err := c.Analyze(c.ctx); err != nil {
				c.logger.Debug("debounced analysis failed", zap.Error(err))
			}
		}()
	})
}

// SetOutputStyle updates the steering style. An existing result is
// marked stale; refreshing requires an explicit Analyze call.
func (c *Controller) SetOutputStyle(style schemas.OutputStyle) {
	c.apply(StyleChanged{Style: style})
}

// SetFocusAreas updates the selected roles, with the same staleness
// rule as SetOutputStyle.
func (c *Controller) SetFocusAreas(areas []schemas.Role) {
	c.apply(FocusChanged{Areas: areas})
}

// Analyze runs the full analysis for the current state, blocking
// through session-level retries. Only transient backend failures are
// retried; precondition and provider errors surface immediately. After
// the retry budget is spent the session enters a terminal error state
// holding a fallback result.
func (c *Controller) Analyze(ctx context.Context) (schemas.UnifiedAnalysisResult, error) {
	gen := c.gen.Add(1)
	c.apply(AnalysisStarted{Generation: gen})
	req := c.Snapshot().Request()

	var lastErr error
	for attempt := 0; attempt < c.cfg.RetryMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt - 1)
			c.apply(RetryScheduled{Generation: gen, Attempt: attempt})
			c.logger.Info("scheduling session retry",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			if err := sleepCtx(ctx, delay); err != nil {
				fallback := analysis.FallbackResult(req.Text)
				c.apply(AnalysisFailed{Generation: gen, Message: err.Error(), Terminal: true, Fallback: fallback})
				return fallback, err
			}
		}

		result, err := c.analyzer.Analyze(ctx, req)
		if err == nil {
			c.apply(AnalysisSucceeded{Generation: gen, Result: result})
			return result, nil
		}
		lastErr = err

		if !schemas.IsTransient(err) {
			fallback := analysis.FallbackResult(req.Text)
			c.apply(AnalysisFailed{Generation: gen, Message: err.Error(), Terminal: true, Fallback: fallback})
			return fallback, err
		}
	}

	err := fmt.Errorf("%w: %v", schemas.ErrRetryBudgetExhausted, lastErr)
	fallback := analysis.FallbackResult(req.Text)
	c.apply(AnalysisFailed{
		Generation: gen,
		Message:    "analysis failed repeatedly, please try again",
		Terminal:   true,
		Fallback:   fallback,
	})
	return fallback, err
}

// retryDelay computes min(base*2^attempt, cap).
func (c *Controller) retryDelay(attempt int) time.Duration {
	delay := c.cfg.RetryBaseDelay << uint(attempt)
	if delay > c.cfg.RetryMaxDelay {
		delay = c.cfg.RetryMaxDelay
	}
	return delay
}

// Close revokes the debounce timer and waits for in-flight
// auto-triggered analyses to finish.
func (c *Controller) Close() {
	c.debounce.Stop()
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
