// Package session owns the request lifecycle around the analyzer:
// debounced auto-triggering, staleness tracking, session-level retry
// with exponential backoff, and generation fencing so a slow response
// can never clobber state produced by a newer request.
//
// All state transitions go through a pure reducer so they can be
// tested in isolation; the controller applies events under one mutex.
package session

import (
	"github.com/gramo-ai/gramo-cli/api/schemas"
)

// State is the session's complete mutable state. It is treated as a
// value: the reducer returns a new State rather than mutating in
// place.
type State struct {
	CurrentText string
	OutputStyle schemas.OutputStyle
	FocusAreas  []schemas.Role

	LastResult *schemas.UnifiedAnalysisResult
	IsStale    bool
	IsLoading  bool
	LastError  string
	RetryCount int

	// Generation is a monotonic counter for in-flight analyses. A
	// completion event carrying an older generation is discarded.
	Generation uint64
}

// Event is a state transition input.
type Event interface{ isEvent() }

// TextChanged updates the pending input. A previous result is kept on
// screen but marked stale; the previous error and retry count no
// longer apply.
type TextChanged struct {
	Text string
}

// StyleChanged updates the steering style. If a result already exists
// it is marked stale; no analysis is auto-triggered.
type StyleChanged struct {
	Style schemas.OutputStyle
}

// FocusChanged updates the selected roles, with the same staleness
// rule as StyleChanged.
type FocusChanged struct {
	Areas []schemas.Role
}

// AnalysisStarted records that the given generation is now in flight.
type AnalysisStarted struct {
	Generation uint64
}

// RetryScheduled records a session-level retry attempt for an
// in-flight generation.
type RetryScheduled struct {
	Generation uint64
	Attempt    int
}

// AnalysisSucceeded delivers a completed result for a generation.
type AnalysisSucceeded struct {
	Generation uint64
	Result     schemas.UnifiedAnalysisResult
}

// AnalysisFailed delivers a failure for a generation. Terminal
// failures install the fallback result so consumers never render an
// absent one.
type AnalysisFailed struct {
	Generation uint64
	Message    string
	Terminal   bool
	Fallback   schemas.UnifiedAnalysisResult
}

func (TextChanged) isEvent()       {}
func (StyleChanged) isEvent()      {}
func (FocusChanged) isEvent()      {}
func (AnalysisStarted) isEvent()   {}
func (RetryScheduled) isEvent()    {}
func (AnalysisSucceeded) isEvent() {}
func (AnalysisFailed) isEvent()    {}

// Reduce applies one event to the state and returns the successor
// state. Pure: no clocks, no IO, no mutation of the input.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case TextChanged:
		s.CurrentText = e.Text
		if s.LastResult != nil {
			s.IsStale = true
		}
		s.LastError = ""
		s.RetryCount = 0

	case StyleChanged:
		s.OutputStyle = e.Style
		if s.LastResult != nil {
			s.IsStale = true
		}

	case FocusChanged:
		s.FocusAreas = append([]schemas.Role(nil), e.Areas...)
		if s.LastResult != nil {
			s.IsStale = true
		}

	case AnalysisStarted:
		if e.Generation <= s.Generation {
			break // out-of-order start from a superseded request
		}
		s.Generation = e.Generation
		s.IsLoading = true
		s.LastError = ""

	case RetryScheduled:
		if e.Generation != s.Generation {
			break
		}
		s.RetryCount = e.Attempt

	case AnalysisSucceeded:
		if e.Generation < s.Generation {
			break // stale response, a newer request owns the session
		}
		result := e.Result
		s.LastResult = &result
		s.IsLoading = false
		s.IsStale = false
		s.LastError = ""
		s.RetryCount = 0

	case AnalysisFailed:
		if e.Generation < s.Generation {
			break
		}
		s.IsLoading = false
		s.LastError = e.Message
		if e.Terminal {
			fallback := e.Fallback
			s.LastResult = &fallback
			s.RetryCount = 0
		}
	}
	return s
}

// Request builds the analysis request for the current state.
func (s State) Request() schemas.AnalysisRequest {
	return schemas.AnalysisRequest{
		Text:        s.CurrentText,
		OutputStyle: s.OutputStyle,
		FocusAreas:  append([]schemas.Role(nil), s.FocusAreas...),
	}
}
