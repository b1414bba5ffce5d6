package analysis

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gramo-ai/gramo-cli/api/schemas"
)

var (
	// \w in Go's regexp is ASCII-only, which would split accented
	// words; match letters and digits across scripts instead.
	wordRegex     = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
)

// Readability weights. The score starts at 100 and is pulled down by
// sentence length, word length and the two complexity ratios.
const (
	sentenceLengthWeight     = 0.2
	wordLengthWeight         = 5.0
	wordComplexityWeight     = 8.0
	sentenceComplexityWeight = 6.0
	complexWordChars         = 6  // characters above which a word counts as complex
	complexSentenceTokens    = 15 // tokens above which a sentence counts as complex
)

// ComputeMetrics derives deterministic text statistics from raw text.
// It is a pure function with no failure modes; empty text yields zero
// counts and the readability baseline of 100.
func ComputeMetrics(text string) schemas.TextMetrics {
	words := wordRegex.FindAllString(strings.ToLower(text), -1)

	var sentences []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, strings.TrimSpace(s))
		}
	}

	var avgWordLength, avgSentenceLength float64
	var wordComplexity, sentenceComplexity float64

	if len(words) > 0 {
		totalChars := 0
		complexWords := 0
		for _, w := range words {
			n := utf8.RuneCountInString(w)
			totalChars += n
			if n > complexWordChars {
				complexWords++
			}
		}
		avgWordLength = float64(totalChars) / float64(len(words))
		wordComplexity = float64(complexWords) / float64(len(words))
	}

	if len(sentences) > 0 {
		avgSentenceLength = float64(len(words)) / float64(len(sentences))
		complexSentences := 0
		for _, s := range sentences {
			if len(strings.Fields(s)) > complexSentenceTokens {
				complexSentences++
			}
		}
		sentenceComplexity = float64(complexSentences) / float64(len(sentences))
	}

	readability := 100 - (sentenceLengthWeight*avgSentenceLength +
		wordLengthWeight*avgWordLength +
		wordComplexityWeight*wordComplexity +
		sentenceComplexityWeight*sentenceComplexity)
	readability = math.Max(0, math.Min(100, readability))

	return schemas.TextMetrics{
		WordCount:         len(words),
		SentenceCount:     len(sentences),
		AvgWordLength:     round1(avgWordLength),
		AvgSentenceLength: round1(avgSentenceLength),
		ReadabilityScore:  round1(readability),
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
