package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/gramo-ai/gramo-cli/api/schemas"
)

// Feedback scoring constants. Each reported item costs 10 points off a
// role's sub-score; the overall score never drops below the floor for
// non-blank text.
const (
	issuePenalty      = 10
	overallScoreFloor = 60
	roleDivisor       = 3 // fixed regardless of how many roles ran
	readabilityProMin = 70
	minorIssueMax     = 2
)

// positiveKeywords in a style rationale promote the suggestion to a
// "pro" line instead of a "con".
var positiveKeywords = []string{"good", "well", "effective", "strong", "clear"}

// DeriveFeedback turns whichever role results are present into pros,
// cons and an overall score. Metrics contribute only the readability
// pro line; the sub-scores come from role issue counts alone.
func DeriveFeedback(text string, roles schemas.PerRoleAnalysis, stats schemas.TextMetrics) schemas.DerivedFeedback {
	fb := schemas.DerivedFeedback{Pros: []string{}, Cons: []string{}}

	var subTotal float64

	if g := roles.Grammar; g != nil {
		sub := subScore(len(g.Issues))
		subTotal += sub
		switch {
		case len(g.Issues) == 0:
			fb.Pros = append(fb.Pros, "Excellent grammar! No issues were found in your text.")
		case len(g.Issues) <= minorIssueMax:
			fb.Pros = append(fb.Pros, "Good grammar with only minor issues to address.")
		}
		for _, issue := range g.Issues {
			fb.Cons = append(fb.Cons, fmt.Sprintf("Grammar: %s -> %s - %s",
				issue.OriginalText, issue.Correction, issue.Explanation))
		}
	}

	if s := roles.Style; s != nil {
		sub := subScore(len(s.Suggestions))
		subTotal += sub
		stylePro := false
		switch {
		case len(s.Suggestions) == 0:
			fb.Pros = append(fb.Pros, "Your writing style needs no adjustments.")
			stylePro = true
		case len(s.Suggestions) <= minorIssueMax:
			fb.Pros = append(fb.Pros, "Solid writing style with only small refinements suggested.")
		}
		for _, sugg := range s.Suggestions {
			if hasPositiveKeyword(sugg.Rationale) {
				fb.Pros = append(fb.Pros, fmt.Sprintf("Style: %s", sugg.Rationale))
				stylePro = true
				continue
			}
			fb.Cons = append(fb.Cons, fmt.Sprintf("Style: %s - %s", sugg.Improvement, sugg.Rationale))
		}
		if !stylePro {
			if sub > 80 {
				fb.Pros = append(fb.Pros, "Your writing style is strong and engaging.")
			} else if sub > 60 {
				fb.Pros = append(fb.Pros, "Your writing style is generally clear and readable.")
			}
		}
	}

	if st := roles.Structure; st != nil {
		sub := subScore(len(st.FlowIssues))
		subTotal += sub
		switch {
		case len(st.FlowIssues) == 0:
			fb.Pros = append(fb.Pros, "Well-structured text with a logical flow.")
		case len(st.FlowIssues) <= minorIssueMax:
			fb.Pros = append(fb.Pros, "Good structure with only minor flow improvements suggested.")
		}
		for _, flow := range st.FlowIssues {
			fb.Cons = append(fb.Cons, fmt.Sprintf("Structure: %s - %s", flow.Suggestion, flow.Rationale))
		}
	}

	if stats.ReadabilityScore > readabilityProMin {
		fb.Pros = append(fb.Pros, fmt.Sprintf("Readability: your text scores %.1f/100, which is easy to read.",
			stats.ReadabilityScore))
	}

	if strings.TrimSpace(text) != "" {
		fb.OverallScore = int(math.Max(overallScoreFloor, math.Round(subTotal/roleDivisor)))
	}

	return fb
}

func subScore(issueCount int) float64 {
	return math.Max(0, float64(100-issueCount*issuePenalty))
}

func hasPositiveKeyword(rationale string) bool {
	lowered := strings.ToLower(rationale)
	for _, kw := range positiveKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
