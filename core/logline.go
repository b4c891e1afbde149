package core

import "strings"

// LogLine is one indexed line of log content. Lines are owned by the caller
// and the engine only ever reads them.
type LogLine struct {
	Index int    `json:"index"`
	Raw   string `json:"text"`
	// Normalized is the cleaned form of Raw. It is matched instead of Raw
	// when HasNormalized is set; an empty normalized form means the line
	// carried no content (blank or separator) and will not match anything
	// beyond trivial patterns.
	Normalized    string `json:"-"`
	HasNormalized bool   `json:"-"`
}

// Text returns the form of the line that patterns are matched against.
func (l LogLine) Text() string {
	if l.HasNormalized {
		return l.Normalized
	}
	return l.Raw
}

// LinesFromStrings wraps raw strings as indexed log lines.
func LinesFromStrings(raw []string) []LogLine {
	lines := make([]LogLine, len(raw))
	for i, s := range raw {
		lines[i] = LogLine{Index: i, Raw: s}
	}
	return lines
}

// NormalizeLines trims whitespace and blanks out separator lines, preserving
// the original index of every line. Lines starting with one of the filter
// prefixes are normalized to empty so patterns never match decoration.
// This mirrors what the upstream extractor does; it is provided for callers
// (the CLI) that feed raw files straight into the engine.
func NormalizeLines(lines []LogLine, filterPrefixes []string) []LogLine {
	out := make([]LogLine, len(lines))
	for i, line := range lines {
		trimmed := strings.TrimSpace(line.Raw)
		for _, prefix := range filterPrefixes {
			if prefix != "" && strings.HasPrefix(trimmed, prefix) {
				trimmed = ""
				break
			}
		}
		out[i] = LogLine{Index: line.Index, Raw: line.Raw, Normalized: trimmed, HasNormalized: true}
	}
	return out
}

// DefaultFilterPrefixes are separator prefixes stripped during
// normalization.
var DefaultFilterPrefixes = []string{"====", "---"}
