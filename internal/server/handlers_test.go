package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
	"github.com/gramo-ai/gramo-cli/internal/config"
	"github.com/gramo-ai/gramo-cli/internal/ratelimit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// -- Mock analyzer --

type mockAnalyzer struct {
	mu       sync.Mutex
	requests []schemas.AnalysisRequest
	result   schemas.UnifiedAnalysisResult
	err      error
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req schemas.AnalysisRequest) (schemas.UnifiedAnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return schemas.UnifiedAnalysisResult{}, m.err
	}
	return m.result, nil
}

func (m *mockAnalyzer) lastRequest() schemas.AnalysisRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func newTestServer(analyzer Analyzer, limiter *ratelimit.TokenBucket) *Server {
	return New(config.ServerConfig{Addr: ":0"}, analyzer, limiter, zap.NewNop())
}

func postAnalyze(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/text/analyze", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// -- Tests --

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&mockAnalyzer{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/text/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "healthy"}`, rec.Body.String())
}

func TestAnalyzeEndpoint_Success(t *testing.T) {
	mock := &mockAnalyzer{result: schemas.UnifiedAnalysisResult{
		OriginalText: "hello world",
		ImprovedText: "Hello, world.",
	}}
	srv := newTestServer(mock, nil)

	rec := postAnalyze(t, srv, `{"text": "hello world", "style": "friendly", "focus_areas": ["grammar"]}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var result schemas.UnifiedAnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Hello, world.", result.ImprovedText)

	got := mock.lastRequest()
	assert.Equal(t, schemas.StyleFriendly, got.OutputStyle)
	assert.Equal(t, []schemas.Role{schemas.RoleGrammar}, got.FocusAreas)
}

func TestAnalyzeEndpoint_DefaultsApplied(t *testing.T) {
	mock := &mockAnalyzer{}
	srv := newTestServer(mock, nil)

	rec := postAnalyze(t, srv, `{"text": "hello world"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	got := mock.lastRequest()
	assert.Equal(t, schemas.StyleProfessional, got.OutputStyle)
	assert.Equal(t, schemas.RoleOrder, got.FocusAreas)
}

func TestAnalyzeEndpoint_MalformedBody(t *testing.T) {
	srv := newTestServer(&mockAnalyzer{}, nil)

	rec := postAnalyze(t, srv, `{"text": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_request")
}

func TestAnalyzeEndpoint_BlankTextRejected(t *testing.T) {
	mock := &mockAnalyzer{err: &schemas.PreconditionError{Reason: "text cannot be empty"}}
	srv := newTestServer(mock, nil)

	rec := postAnalyze(t, srv, `{"text": "   "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "text cannot be empty")
}

func TestAnalyzeEndpoint_RateLimited(t *testing.T) {
	limiter := ratelimit.NewTokenBucket(1)
	srv := newTestServer(&mockAnalyzer{}, limiter)

	first := postAnalyze(t, srv, `{"text": "hello"}`)
	second := postAnalyze(t, srv, `{"text": "hello"}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "rate_limited")
}

func TestAnalyzeEndpoint_ProviderErrorIsBadGateway(t *testing.T) {
	mock := &mockAnalyzer{err: &schemas.ProviderError{Status: 401, Message: "bad key"}}
	srv := newTestServer(mock, nil)

	rec := postAnalyze(t, srv, `{"text": "hello"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "provider_error")
}

func TestAnalyzeEndpoint_TransientErrorIsUnavailable(t *testing.T) {
	mock := &mockAnalyzer{err: &schemas.TransientError{Err: context.DeadlineExceeded}}
	srv := newTestServer(mock, nil)

	rec := postAnalyze(t, srv, `{"text": "hello"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "backend_unavailable")
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newTestServer(&mockAnalyzer{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/text/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDGenerated(t *testing.T) {
	srv := newTestServer(&mockAnalyzer{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/text/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
