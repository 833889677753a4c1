package genai

import (
	"regexp"
	"strings"
)

// reasoningPattern matches a <think>...</think> span, non-greedy and across lines.
var reasoningPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripReasoning removes every reasoning span. Text without a complete span
// is returned unchanged. Removal repeats until no span is left, so the
// function is idempotent even for nested or interleaved markers.
func StripReasoning(text string) string {
	if !reasoningPattern.MatchString(text) {
		return text
	}
	for reasoningPattern.MatchString(text) {
		text = reasoningPattern.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
