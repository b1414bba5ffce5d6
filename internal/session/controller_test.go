package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
)

// -- Mock analyzer --

type mockAnalyzer struct {
	mu       sync.Mutex
	requests []schemas.AnalysisRequest
	// errs are consumed one per call; a nil entry (or an exhausted
	// slice) means success.
	errs []error
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req schemas.AnalysisRequest) (schemas.UnifiedAnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	var err error
	if len(m.errs) > 0 {
		err = m.errs[0]
		m.errs = m.errs[1:]
	}
	if err != nil {
		return schemas.UnifiedAnalysisResult{}, err
	}
	return schemas.UnifiedAnalysisResult{
		OriginalText: req.Text,
		ImprovedText: req.Text + " improved",
	}, nil
}

func (m *mockAnalyzer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockAnalyzer) lastRequest() schemas.AnalysisRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func fastConfig() Config {
	return Config{
		DebounceInterval: 20 * time.Millisecond,
		RetryMaxAttempts: 3,
		RetryBaseDelay:   time.Millisecond,
		RetryMaxDelay:    4 * time.Millisecond,
	}
}

// -- Tests --

func TestController_AnalyzeSuccess(t *testing.T) {
	mock := &mockAnalyzer{}
	c := NewController(mock, fastConfig(), zap.NewNop())
	defer c.Close()

	c.apply(TextChanged{Text: "hello world"})
	result, err := c.Analyze(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "hello world improved", result.ImprovedText)

	state := c.Snapshot()
	require.NotNil(t, state.LastResult)
	assert.False(t, state.IsLoading)
	assert.False(t, state.IsStale)
	assert.Empty(t, state.LastError)
}

func TestController_DebounceCoalescesRapidEdits(t *testing.T) {
	defer goleak.VerifyNone(t)

	mock := &mockAnalyzer{}
	c := NewController(mock, fastConfig(), zap.NewNop())

	c.SetText("first")
	c.SetText("second")
	c.SetText("third")

	// Wait past the quiet window for the single coalesced run.
	assert.Eventually(t, func() bool {
		return mock.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "third", mock.lastRequest().Text)

	// No further runs arrive after the window closes.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, mock.callCount())

	c.Close()
}

func TestController_EditDuringQuietWindowRearms(t *testing.T) {
	mock := &mockAnalyzer{}
	cfg := fastConfig()
	cfg.DebounceInterval = 40 * time.Millisecond
	c := NewController(mock, cfg, zap.NewNop())
	defer c.Close()

	c.SetText("first")
	time.Sleep(20 * time.Millisecond) // inside the window
	c.SetText("second")

	time.Sleep(25 * time.Millisecond) // first window would have expired
	assert.Equal(t, 0, mock.callCount())

	assert.Eventually(t, func() bool {
		return mock.callCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "second", mock.lastRequest().Text)
}

func TestController_TransientErrorRetried(t *testing.T) {
	transient := &schemas.TransientError{Err: context.DeadlineExceeded}
	mock := &mockAnalyzer{errs: []error{transient, transient, nil}}
	c := NewController(mock, fastConfig(), zap.NewNop())
	defer c.Close()

	c.apply(TextChanged{Text: "retry me"})
	result, err := c.Analyze(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, mock.callCount())
	assert.Equal(t, "retry me improved", result.ImprovedText)
	assert.Equal(t, 0, c.Snapshot().RetryCount)
}

func TestController_RetryBudgetExhaustedIsTerminal(t *testing.T) {
	transient := &schemas.TransientError{Err: context.DeadlineExceeded}
	mock := &mockAnalyzer{errs: []error{transient, transient, transient}}
	c := NewController(mock, fastConfig(), zap.NewNop())
	defer c.Close()

	c.apply(TextChanged{Text: "doomed"})
	result, err := c.Analyze(context.Background())

	require.ErrorIs(t, err, schemas.ErrRetryBudgetExhausted)
	assert.Equal(t, 3, mock.callCount())

	// The session still holds a renderable fallback result.
	assert.Equal(t, "doomed", result.OriginalText)
	state := c.Snapshot()
	require.NotNil(t, state.LastResult)
	assert.Equal(t, "analysis failed repeatedly, please try again", state.LastError)
	assert.False(t, state.IsLoading)
}

func TestController_PreconditionErrorNotRetried(t *testing.T) {
	precondition := &schemas.PreconditionError{Reason: "text cannot be empty"}
	mock := &mockAnalyzer{errs: []error{precondition}}
	c := NewController(mock, fastConfig(), zap.NewNop())
	defer c.Close()

	_, err := c.Analyze(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, mock.callCount())
}

func TestController_ProviderErrorNotRetried(t *testing.T) {
	provider := &schemas.ProviderError{Status: 401, Message: "bad key"}
	mock := &mockAnalyzer{errs: []error{provider}}
	c := NewController(mock, fastConfig(), zap.NewNop())
	defer c.Close()

	c.apply(TextChanged{Text: "no retry"})
	_, err := c.Analyze(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, mock.callCount())
	assert.Equal(t, provider.Error(), c.Snapshot().LastError)
}

func TestController_StyleChangeMarksStale(t *testing.T) {
	mock := &mockAnalyzer{}
	c := NewController(mock, fastConfig(), zap.NewNop())
	defer c.Close()

	c.apply(TextChanged{Text: "some text"})
	_, err := c.Analyze(context.Background())
	require.NoError(t, err)

	c.SetOutputStyle(schemas.StyleConcise)

	state := c.Snapshot()
	assert.True(t, state.IsStale)
	// Staleness never auto-triggers; the result is kept until asked.
	assert.Equal(t, 1, mock.callCount())
}

func TestController_CloseRacingDebounceFire(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Close while the quiet window is expiring, repeatedly, so the
	// timer callback and the shutdown path overlap. The callback must
	// either be admitted before cancellation or skipped entirely;
	// Waiting on a count that is still being added to panics.
	for i := 0; i < 50; i++ {
		mock := &mockAnalyzer{}
		cfg := fastConfig()
		cfg.DebounceInterval = time.Millisecond
		c := NewController(mock, cfg, zap.NewNop())

		c.SetText("racing edit")
		time.Sleep(time.Millisecond)
		c.Close()
	}
}

func TestController_CloseCancelsPendingDebounce(t *testing.T) {
	defer goleak.VerifyNone(t)

	mock := &mockAnalyzer{}
	cfg := fastConfig()
	cfg.DebounceInterval = time.Hour
	c := NewController(mock, cfg, zap.NewNop())

	c.SetText("never analyzed")
	c.Close()

	assert.Equal(t, 0, mock.callCount())
}
