package analysis

import (
	"math"
	"regexp"
	"strings"

	"github.com/gramo-ai/gramo-cli/api/schemas"
)

// Tone labels. ToneBalanced is never scored directly; it is the
// override when no category dominates.
const (
	ToneFormal    = "formal"
	ToneCasual    = "casual"
	ToneTechnical = "technical"
	ToneFriendly  = "friendly"
	ToneBalanced  = "balanced"
)

// toneCategory pairs a label with its lexical and punctuation markers.
// Declaration order doubles as the tie-break order for the primary
// tone.
type toneCategory struct {
	name     string
	weight   float64
	patterns []*regexp.Regexp
}

// Category weights compensate for the formal and technical marker sets
// being sparser but more diagnostic than the casual and friendly ones.
var toneCategories = []toneCategory{
	{
		name:   ToneFormal,
		weight: 1.2,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(therefore|furthermore|consequently|thus|hence|accordingly)\b`),
			regexp.MustCompile(`\b(moreover|nevertheless|however|despite|although|whereas)\b`),
			regexp.MustCompile(`\b(demonstrate|indicate|suggest|conclude|analyze|determine)\b`),
		},
	},
	{
		name:   ToneCasual,
		weight: 1.0,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(like|just|pretty|kind of|sort of|you know)\b`),
			regexp.MustCompile(`\b(anyway|basically|actually|literally|stuff|things)\b`),
			regexp.MustCompile(`\b(cool|awesome|nice|great|okay|ok)\b`),
			regexp.MustCompile(`!{2,}|\?{2,}`),
		},
	},
	{
		name:   ToneTechnical,
		weight: 1.1,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(specifically|particularly|significantly|methodology|implementation)\b`),
			regexp.MustCompile(`\b(system|process|function|data|analysis|result)\b`),
			regexp.MustCompile(`\b(configure|implement|integrate|optimize|validate)\b`),
		},
	},
	{
		name:   ToneFriendly,
		weight: 1.0,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(thanks|please|appreciate|welcome|glad|happy)\b`),
			regexp.MustCompile(`\b(love|enjoy|feel|think|believe|hope)\b`),
			regexp.MustCompile(`\b(we|our|us|together|share|help)\b`),
			regexp.MustCompile(`(?:^|\s)(?::\)|:\(|;\)|\(:)(?:\s|$)`),
		},
	},
}

// Normalization constants: matched weight is spread over 80 points and
// every category keeps a baseline of 2 so zero-scoring categories do
// not look falsely absent. A top score under 30 means no tone
// dominates.
const (
	toneScoreSpread   = 80.0
	toneScoreBaseline = 2.0
	toneUniformScore  = 25
	toneDominanceMin  = 30
)

// ClassifyTone scores the text against each tone category's patterns
// and returns the normalized distribution plus the primary tone. Pure
// and deterministic; no model involvement.
func ClassifyTone(text string) schemas.ToneResult {
	lowered := strings.ToLower(text)

	raw := make(map[string]float64, len(toneCategories))
	var totalWeight float64
	for _, cat := range toneCategories {
		var matches int
		for _, p := range cat.patterns {
			matches += len(p.FindAllString(lowered, -1))
		}
		score := float64(matches) * cat.weight
		raw[cat.name] = score
		totalWeight += score
	}

	scores := make(map[string]int, len(toneCategories))
	for _, cat := range toneCategories {
		if totalWeight > 0 {
			scores[cat.name] = int(math.Round(raw[cat.name]/totalWeight*toneScoreSpread + toneScoreBaseline))
		} else {
			scores[cat.name] = toneUniformScore
		}
	}

	primary := toneCategories[0].name
	best := scores[primary]
	for _, cat := range toneCategories[1:] {
		if scores[cat.name] > best {
			primary = cat.name
			best = scores[cat.name]
		}
	}
	if best < toneDominanceMin {
		primary = ToneBalanced
	}

	return schemas.ToneResult{
		PrimaryTone: primary,
		ToneScores:  scores,
	}
}

// NeutralTone is the fallback distribution used when an analysis fails
// outright and a placeholder result must still be rendered.
func NeutralTone() schemas.ToneResult {
	scores := make(map[string]int, len(toneCategories))
	for _, cat := range toneCategories {
		scores[cat.name] = toneUniformScore
	}
	return schemas.ToneResult{PrimaryTone: ToneBalanced, ToneScores: scores}
}
