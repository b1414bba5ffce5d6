package analysis

import (
	"fmt"

	"github.com/gramo-ai/gramo-cli/api/schemas"
)

// Role system prompts. Each role demands a JSON object wrapped in an
// "analysis" envelope; the sanitizer and the envelope decode absorb
// the cases where the model does not comply.

const grammarSystemPrompt = `You are a Grammar Analysis Agent specialized in identifying and correcting text issues.

TASK:
Analyze the text and provide detailed feedback on grammar, spelling, and punctuation.

OUTPUT FORMAT:
Return a JSON object with this structure:
{
    "analysis": {
        "issues": [
            {
                "type": "grammar/spelling/punctuation",
                "text": "problematic text",
                "correction": "suggested correction",
                "explanation": "why this needs correction"
            }
        ],
        "improved_text": "complete corrected version of the text",
        "confidence_score": 0-100
    }
}`

const styleSystemPrompt = `You are a Style Analysis Agent focused on improving writing clarity and impact.

TASK:
Analyze the text's style, tone, and readability.

OUTPUT FORMAT:
Return a JSON object with this structure:
{
    "analysis": {
        "style_score": 0-100,
        "tone": "formal/informal/technical/casual",
        "suggestions": [
            {
                "aspect": "clarity/conciseness/tone/etc",
                "current": "current problematic text",
                "improvement": "suggested improvement",
                "rationale": "why this improvement helps"
            }
        ],
        "improved_text": "complete improved version"
    }
}`

const structureSystemPrompt = `You are an Editor Agent specializing in text structure and organization.

TASK:
Analyze the text's structure, flow, and organization.

OUTPUT FORMAT:
Return a JSON object with this structure:
{
    "analysis": {
        "structure_score": 0-100,
        "flow_issues": [
            {
                "type": "transition/paragraph/organization",
                "location": "problematic section",
                "suggestion": "improvement suggestion",
                "rationale": "why this improves the text"
            }
        ],
        "improved_text": "complete restructured version"
    }
}`

// systemPrompt returns the role's persona and output contract.
func systemPrompt(role schemas.Role) string {
	switch role {
	case schemas.RoleGrammar:
		return grammarSystemPrompt
	case schemas.RoleStyle:
		return styleSystemPrompt
	case schemas.RoleStructure:
		return structureSystemPrompt
	}
	return ""
}

// userPrompt builds the role-specific instruction around the chained
// text. The style role additionally receives the requested output
// style as a steering parameter.
func userPrompt(role schemas.Role, text string, style schemas.OutputStyle) string {
	switch role {
	case schemas.RoleGrammar:
		return fmt.Sprintf("Analyze this text and provide detailed grammar feedback: %s", text)
	case schemas.RoleStyle:
		focus := string(style)
		if focus == "" {
			focus = "clarity"
		}
		return fmt.Sprintf("Analyze this text for style improvements with focus on %s: %s", focus, text)
	case schemas.RoleStructure:
		return fmt.Sprintf("Analyze this text for structural improvements: %s", text)
	}
	return text
}
