package match

import (
	"strings"
	"time"

	"loglens/core"
	"loglens/metrics"

	"github.com/dlclark/regexp2"
)

// CompiledPattern is one executable pattern: the compiled regex, the capture
// groups the rule extracts, and the cheap prefilter used to reject most
// lines before full evaluation.
type CompiledPattern struct {
	// ID identifies the pattern within its rule set, e.g. "rule-1" or
	// "rule-2#seg0".
	ID     string
	Source string
	Flags  string
	Regex  *regexp2.Regexp
	// CaptureNames are the named groups the rule declares; only these are
	// extracted into candidate captures.
	CaptureNames []string
	// GroupNames are all named groups present in the regex.
	GroupNames []string
	Prefilter  Prefilter
}

// Eval matches the pattern against one line of text. It returns the
// extracted captures on a match, nil on a miss, and core.ErrRegexTimeout
// when the evaluation exceeded the pattern's time budget.
func (p *CompiledPattern) Eval(text string) (map[string]string, error) {
	if !p.Prefilter.Match(text) {
		metrics.PrefilterRejections.Inc()
		return nil, nil
	}

	start := time.Now()
	m, err := p.Regex.FindStringMatch(text)
	metrics.RegexExecutionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "timeout") {
			metrics.RegexTimeouts.WithLabelValues(p.ID).Inc()
			return nil, core.ErrRegexTimeout
		}
		return nil, err
	}
	if m == nil {
		return nil, nil
	}

	captures := make(map[string]string, len(p.CaptureNames))
	for _, name := range p.CaptureNames {
		if g := m.GroupByName(name); g != nil && len(g.Captures) > 0 {
			captures[name] = g.String()
		}
	}
	return captures, nil
}

// HasGroup reports whether the pattern declares the named capture group.
func (p *CompiledPattern) HasGroup(name string) bool {
	for _, g := range p.GroupNames {
		if g == name {
			return true
		}
	}
	return false
}

// CompiledSingleRule pairs a single-line rule with its compiled pattern.
type CompiledSingleRule struct {
	Rule    core.Rule
	Pattern *CompiledPattern
}

// CompiledSegment pairs one multi-line segment with its compiled pattern.
type CompiledSegment struct {
	Spec    core.SegmentSpec
	Pattern *CompiledPattern
}

// CompiledMultiRule is a multi-line rule with its segments sorted by order
// and the scan-line bound after which an incomplete scan expires.
type CompiledMultiRule struct {
	Rule     core.Rule
	Segments []CompiledSegment
	MaxScan  int
}

// RequiredCount returns the number of required segments.
func (r *CompiledMultiRule) RequiredCount() int {
	n := 0
	for _, seg := range r.Segments {
		if seg.Spec.Required {
			n++
		}
	}
	return n
}

// CompiledCorrelationRule is a correlation rule with its compiled pattern
// pair and pre-parsed conditions.
type CompiledCorrelationRule struct {
	Rule        core.Rule
	Primary     *CompiledPattern
	Related     *CompiledPattern
	MaxDistance int
	Conditions  []Condition
}

// CompiledRuleSet is an immutable snapshot of compiled rules. It is built
// once per load or reload and shared read-only across all workers; a reload
// produces a new snapshot swapped atomically, never mutated in place.
// Rules within each variant are sorted by rule ID for deterministic output.
type CompiledRuleSet struct {
	Version     string
	SingleLine  []*CompiledSingleRule
	MultiLine   []*CompiledMultiRule
	Correlation []*CompiledCorrelationRule
}

// Len returns the total number of compiled rules.
func (s *CompiledRuleSet) Len() int {
	return len(s.SingleLine) + len(s.MultiLine) + len(s.Correlation)
}

// Empty reports whether the set holds no rules at all.
func (s *CompiledRuleSet) Empty() bool { return s.Len() == 0 }
