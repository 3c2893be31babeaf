// Package signal extracts structured signals from raw pane text.
//
// Agents expose no programmatic status API; the only channel is the
// text visible in their tmux window. Everything here is best-effort
// parsing of that text: extraction either finds a signal or returns
// nothing, it never fails.
package signal

import (
	"regexp"
	"strconv"
	"strings"
)

// HighUsageThreshold is the context percentage at or above which an
// agent is considered close to exhausting its window.
const HighUsageThreshold = 85.0

// ContextUsage is a point-in-time reading of an agent's context window.
type ContextUsage struct {
	TokensUsed  int     `json:"tokens_used"`
	TokensTotal int     `json:"tokens_total"`
	Percentage  float64 `json:"percentage"`
}

// NewContextUsage builds a usage reading from raw token counts.
// A zero total yields 0.0 percent rather than dividing by zero.
func NewContextUsage(used, total int) ContextUsage {
	u := ContextUsage{TokensUsed: used, TokensTotal: total}
	if total > 0 {
		u.Percentage = float64(used) / float64(total) * 100
	}
	return u
}

// IsHighUsage reports whether the agent is near its context limit.
func (u ContextUsage) IsHighUsage() bool {
	return u.Percentage >= HighUsageThreshold
}

// ansiEscapeRegex matches ANSI escape sequences for stripping.
// Includes CSI sequences (with private mode ?) and OSC sequences.
var ansiEscapeRegex = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\a\x1b]*(\a|\x1b\\)`)

// StripANSI removes ANSI escape sequences from a string.
func StripANSI(s string) string {
	return ansiEscapeRegex.ReplaceAllString(s, "")
}

// tokenRatioRegex matches the "used/total" token counter agents print,
// e.g. "Context: 45000/200000 (22%)". Labels, surrounding whitespace
// and a trailing percentage are all tolerated.
var tokenRatioRegex = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)

// ParseContextUsage scans pane text for the first token ratio and
// returns the usage it implies, or nil when no ratio is present.
func ParseContextUsage(pane string) *ContextUsage {
	m := tokenRatioRegex.FindStringSubmatch(StripANSI(pane))
	if m == nil {
		return nil
	}
	used, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	total, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	u := NewContextUsage(used, total)
	return &u
}

// questionFieldRegex matches the "question" field inside a structured
// tool-invocation block (a JSON string value, escapes included).
var questionFieldRegex = regexp.MustCompile(`"question"\s*:\s*("(?:[^"\\]|\\.)*")`)

// optionMarkerRegex matches lines that open a choice list: a bullet
// glyph or a leading digit. Hitting one while collecting backward
// means the lines above belong to an options block, not the question.
var optionMarkerRegex = regexp.MustCompile(`^\s*(?:[-*•●○▶›>]|\d)`)

// ExtractQuestion pulls the agent's pending question out of pane text.
//
// A structured tool-invocation block takes precedence: when the pane
// contains a serialized question prompt, its "question" field is
// returned verbatim. Otherwise the trailing-"?" heuristic applies:
// scan lines bottom-up for the most recent line ending in "?", then
// walk backward prepending non-blank lines until a blank line or an
// option marker, and join the collected lines with single spaces.
//
// The bottom-most match always wins so that historical tool calls
// higher in the scrollback cannot shadow the live state. Returns ""
// when no question is found.
func ExtractQuestion(pane string) string {
	text := StripANSI(pane)

	if q := extractStructuredQuestion(text); q != "" {
		return q
	}
	return extractTrailingQuestion(text)
}

// extractStructuredQuestion returns the question from the last
// tool-invocation block in the text, or "". Within one block the
// first list element's question is the live prompt; across blocks the
// bottom-most block is.
func extractStructuredQuestion(text string) string {
	if idx := strings.LastIndex(text, `"questions"`); idx >= 0 {
		if m := questionFieldRegex.FindStringSubmatch(text[idx:]); m != nil {
			if q, err := strconv.Unquote(m[1]); err == nil {
				return q
			}
		}
	}

	// No block wrapper; fall back to the last bare "question" field.
	matches := questionFieldRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	q, err := strconv.Unquote(matches[len(matches)-1][1])
	if err != nil {
		return ""
	}
	return q
}

// extractTrailingQuestion implements the bottom-up "?" heuristic.
func extractTrailingQuestion(text string) string {
	lines := strings.Split(text, "\n")

	anchor := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasSuffix(strings.TrimSpace(lines[i]), "?") {
			anchor = i
			break
		}
	}
	if anchor == -1 {
		return ""
	}

	collected := []string{strings.TrimSpace(lines[anchor])}
	for i := anchor - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			break
		}
		if optionMarkerRegex.MatchString(lines[i]) {
			break
		}
		collected = append([]string{line}, collected...)
	}

	return strings.Join(collected, " ")
}
