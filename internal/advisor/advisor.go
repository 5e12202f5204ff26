// Package advisor defines the shared LLM advisor contract used by the Query
// Parser (C5), Release Grouper (C7), and Candidate Selector (C8). Every
// caller follows the same pattern: send a prompt, extract the first JSON
// object from the response via brace matching, and fall back to a
// deterministic path on any failure. The advisor itself never gates control
// flow - its absence or failure is always a valid, handled outcome.
package advisor

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a nil/disabled Advisor implementation so
// callers can fall through to their deterministic path without treating it
// as an upstream failure worth logging loudly.
var ErrNotConfigured = errors.New("advisor not configured")

// Advisor sends a single-turn prompt to an LLM backend and returns its raw
// text response. Implementations MUST NOT retry; the caller's fallback is
// the retry strategy.
type Advisor interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (Response, error)
}

// Response carries the advisor's raw text plus best-effort usage data for
// session telemetry (spec §4.11). Usage fields are zero when unavailable.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	CostUSD          *float64
}

// ExtractJSONObject returns the first brace-balanced JSON object substring
// in text, or "" if none is found. It tolerates leading prose (a model
// preamble before the JSON) and nested braces within string values by doing
// a simple depth count - it does not need to be a full JSON tokenizer
// because advisor responses are expected to contain exactly one object.
func ExtractJSONObject(text string) string {
	start := -1
	depth := 0
	for i, r := range text {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
