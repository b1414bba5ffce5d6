// Package schemas holds the shared data model for the gramo analysis
// pipeline: the analysis request contract, the per-role payload shapes
// returned by the model layer, and the unified result consumed by the
// CLI and HTTP surfaces.
package schemas

import "strings"

// Role identifies one of the independent analysis passes. Roles always
// execute in declaration order; each role's improved text feeds the
// next role's input.
type Role string

const (
	RoleGrammar   Role = "grammar"
	RoleStyle     Role = "style"
	RoleStructure Role = "structure"
)

// RoleOrder is the fixed execution order for role dispatch.
var RoleOrder = []Role{RoleGrammar, RoleStyle, RoleStructure}

// ValidRole reports whether r names a known analysis role.
func ValidRole(r Role) bool {
	switch r {
	case RoleGrammar, RoleStyle, RoleStructure:
		return true
	}
	return false
}

// OutputStyle steers the style role toward a target register.
type OutputStyle string

const (
	StyleGrammar      OutputStyle = "grammar"
	StyleFriendly     OutputStyle = "friendly"
	StyleProfessional OutputStyle = "professional"
	StyleConcise      OutputStyle = "concise"
)

// ValidOutputStyle reports whether s is a supported output style.
func ValidOutputStyle(s OutputStyle) bool {
	switch s {
	case StyleGrammar, StyleFriendly, StyleProfessional, StyleConcise:
		return true
	}
	return false
}

// AnalysisRequest is the inbound contract for one analysis run.
type AnalysisRequest struct {
	Text        string      `json:"text"`
	OutputStyle OutputStyle `json:"style"`
	FocusAreas  []Role      `json:"focus_areas"`
}

// HasFocus reports whether the request selects the given role.
func (r AnalysisRequest) HasFocus(role Role) bool {
	for _, f := range r.FocusAreas {
		if f == role {
			return true
		}
	}
	return false
}

// Validate checks the request preconditions. Blank text is fatal to
// the call and is never retried.
func (r AnalysisRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return &PreconditionError{Reason: "text cannot be empty"}
	}
	if len(r.FocusAreas) == 0 {
		return &PreconditionError{Reason: "at least one focus area is required"}
	}
	for _, f := range r.FocusAreas {
		if !ValidRole(f) {
			return &PreconditionError{Reason: "unknown focus area: " + string(f)}
		}
	}
	if r.OutputStyle != "" && !ValidOutputStyle(r.OutputStyle) {
		return &PreconditionError{Reason: "unknown output style: " + string(r.OutputStyle)}
	}
	return nil
}

// GrammarIssue is one correction reported by the grammar role.
type GrammarIssue struct {
	Type         string `json:"type"`
	OriginalText string `json:"text"`
	Correction   string `json:"correction"`
	Explanation  string `json:"explanation"`
}

// GrammarAnalysis is the grammar role's payload shape.
type GrammarAnalysis struct {
	Issues          []GrammarIssue `json:"issues"`
	ImprovedText    string         `json:"improved_text"`
	ConfidenceScore float64        `json:"confidence_score"`
}

// StyleSuggestion is one improvement reported by the style role.
type StyleSuggestion struct {
	Aspect      string `json:"aspect"`
	Current     string `json:"current"`
	Improvement string `json:"improvement"`
	Rationale   string `json:"rationale"`
}

// StyleAnalysis is the style role's payload shape.
type StyleAnalysis struct {
	StyleScore   float64           `json:"style_score"`
	Tone         string            `json:"tone"`
	Suggestions  []StyleSuggestion `json:"suggestions"`
	ImprovedText string            `json:"improved_text"`
}

// FlowIssue is one structural problem reported by the structure role.
type FlowIssue struct {
	Type       string `json:"type"`
	Location   string `json:"location"`
	Suggestion string `json:"suggestion"`
	Rationale  string `json:"rationale"`
}

// StructureAnalysis is the structure role's payload shape.
type StructureAnalysis struct {
	StructureScore float64     `json:"structure_score"`
	FlowIssues     []FlowIssue `json:"flow_issues"`
	ImprovedText   string      `json:"improved_text"`
}

// PerRoleAnalysis maps each role to its result. A nil entry means the
// role was not selected or failed after all retries; a single role's
// failure never aborts the whole analysis.
type PerRoleAnalysis struct {
	Grammar   *GrammarAnalysis   `json:"grammar"`
	Style     *StyleAnalysis     `json:"style"`
	Structure *StructureAnalysis `json:"structure"`
}

// TextMetrics are deterministic statistics derived solely from the
// original input text, never from model output.
type TextMetrics struct {
	WordCount         int     `json:"word_count"`
	SentenceCount     int     `json:"sentence_count"`
	AvgWordLength     float64 `json:"avg_word_length"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
	ReadabilityScore  float64 `json:"readability_score"`
}

// ToneResult is the lexical tone classification of the original text.
type ToneResult struct {
	PrimaryTone string         `json:"primary_tone"`
	ToneScores  map[string]int `json:"tone_scores"`
}

// DerivedFeedback summarizes the present role results into reader
// facing pros, cons and an overall score.
type DerivedFeedback struct {
	Pros         []string `json:"pros"`
	Cons         []string `json:"cons"`
	OverallScore int      `json:"overall_score"`
}

// UnifiedAnalysisResult is the single merged output of one analysis
// run. ImprovedText always defaults to OriginalText when no role ran
// or every selected role failed.
type UnifiedAnalysisResult struct {
	OriginalText string          `json:"original_text"`
	ImprovedText string          `json:"improved_text"`
	Analysis     PerRoleAnalysis `json:"analysis"`
	TextStats    TextMetrics     `json:"text_stats"`
	ToneAnalysis ToneResult      `json:"tone_analysis"`
	Feedback     DerivedFeedback `json:"feedback"`
}
