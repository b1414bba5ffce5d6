// Package sanitize repairs loosely formatted model responses into
// parseable JSON. Model output routinely arrives wrapped in markdown
// fences, double-escaped, or littered with control artifacts; the
// cleaning stages and the staged decode cascade here exist to absorb
// all of that before the role payload is typed.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// Regexes use \x60 for backticks because Go raw strings cannot contain them.

	// fencedBlockRegex extracts content wrapped in a markdown code fence,
	// tolerating a language tag such as ```json.
	fencedBlockRegex = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z]*\\s*(.*?)\\s*\x60\x60\x60")

	// invalidEscapeRegex matches a backslash followed by a character that
	// is not a recognized JSON escape target. The backslash is dropped.
	invalidEscapeRegex = regexp.MustCompile(`\\([^"\\/bfnrtu])`)
)

// canonicalEscapes maps the canonical JSON escape sequences to their
// literal characters. The double-backslash pair comes last so the more
// specific sequences win during replacement.
var canonicalEscapes = strings.NewReplacer(
	`\"`, `"`,
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "\r",
	`\b`, "\b",
	`\f`, "\f",
	`\/`, "/",
	`\\`, `\`,
)

// Clean runs the repair stages in order: strip code fences, trim
// whitespace, collapse invalid backslash escapes, normalize canonical
// escape sequences, and strip BOM artifacts. The output is intended to
// parse as JSON but is not guaranteed to; Decode layers the parse
// cascade on top.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if m := fencedBlockRegex.FindStringSubmatch(s); len(m) > 1 {
			s = m[1]
		} else {
			// Unterminated fence: drop the opening delimiter line.
			s = strings.TrimPrefix(s, "```")
			if i := strings.IndexByte(s, '\n'); i >= 0 && isFenceTag(s[:i]) {
				s = s[i+1:]
			}
		}
	}

	s = strings.TrimSpace(s)
	s = invalidEscapeRegex.ReplaceAllString(s, "$1")
	s = canonicalEscapes.Replace(s)
	s = strings.ReplaceAll(s, "\uFEFF", "")
	s = strings.ReplaceAll(s, "\u200B", "")

	return strings.TrimSpace(s)
}

func isFenceTag(s string) bool {
	for _, r := range strings.TrimSpace(s) {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// stripControlChars removes every code point below 0x20. This is the
// last repair tier; it sacrifices embedded newlines to salvage an
// otherwise unparseable payload.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}

// Decode cleans raw model output and attempts to unmarshal it into T,
// cascading through three repair tiers: the cleaned payload as-is, a
// second pass of canonical escape substitution, and finally a pass
// with all control characters stripped. A payload that survives none
// of the tiers yields an error, never a panic.
func Decode[T any](raw string) (*T, error) {
	cleaned := Clean(raw)

	candidates := []string{
		cleaned,
		canonicalEscapes.Replace(cleaned),
	}
	candidates = append(candidates, stripControlChars(candidates[1]))

	var lastErr error
	for _, candidate := range candidates {
		var out T
		if err := json.UnmarshalFromString(candidate, &out); err != nil {
			lastErr = err
			continue
		}
		return &out, nil
	}

	return nil, fmt.Errorf("response failed all repair tiers: %w", lastErr)
}

// Truncate caps a string for inclusion in error values and log lines.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
