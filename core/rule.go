package core

import (
	"fmt"
	"strings"
)

// RuleType discriminates the three rule variants. Each variant is evaluated
// by its own engine; dispatch is by this tag.
type RuleType string

const (
	RuleTypeSingleLine  RuleType = "single_line"
	RuleTypeMultiLine   RuleType = "multi_line"
	RuleTypeCorrelation RuleType = "correlation"
)

// Severity levels, ordered by priority. Priority drives both the weight
// calculation and the degradation order when resource limits are hit.
const (
	SeverityFatal   = "fatal"
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// SeverityPriority returns a priority factor in (0,1] for a severity level.
// Unknown severities rank below warning so malformed rules lose ties.
func SeverityPriority(severity string) float64 {
	switch strings.ToLower(severity) {
	case SeverityFatal:
		return 1.0
	case SeverityError:
		return 0.9
	case SeverityWarning:
		return 0.75
	default:
		return 0.5
	}
}

// PatternSpec describes a single regex pattern within a rule definition.
// CaptureGroups lists the named groups the rule relies on; the compiler
// verifies each is declared in the regex itself.
type PatternSpec struct {
	Regex         string   `json:"regex" yaml:"regex"`
	Flags         string   `json:"flags,omitempty" yaml:"flags,omitempty"`
	CaptureGroups []string `json:"capture_groups,omitempty" yaml:"capture_groups,omitempty"`
}

// SegmentSpec is one ordered sub-pattern of a multi-line rule.
type SegmentSpec struct {
	Order           int      `json:"order" yaml:"order"`
	Pattern         string   `json:"pattern" yaml:"pattern"`
	CaptureGroups   []string `json:"capture_groups,omitempty" yaml:"capture_groups,omitempty"`
	Required        bool     `json:"required" yaml:"required"`
	MaxLineDistance int      `json:"max_line_distance,omitempty" yaml:"max_line_distance,omitempty"`
}

// CorrelationPatterns holds the primary/related pattern pair of a
// correlation rule.
type CorrelationPatterns struct {
	Primary string `json:"primary" yaml:"primary"`
	Related string `json:"related" yaml:"related"`
}

// CorrelationSpec configures chain discovery for a correlation rule.
// Conditions are expressions of the form "${a} in ${b}"; they are parsed
// once at compile time and evaluated by capture substitution only.
type CorrelationSpec struct {
	MaxDistance int      `json:"max_distance,omitempty" yaml:"max_distance,omitempty"`
	Conditions  []string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Rule is an error-detection rule as defined in a rule file. Exactly one of
// Pattern, Segments, or Patterns+Correlation is set, according to Type.
type Rule struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Type     RuleType `json:"type" yaml:"type"`
	Severity string   `json:"severity" yaml:"severity"`
	// Weight is the base rule weight in [0,1]. Zero means "unset" and is
	// treated as 0.5.
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`

	Pattern     *PatternSpec         `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Segments    []SegmentSpec        `json:"segments,omitempty" yaml:"segments,omitempty"`
	Patterns    *CorrelationPatterns `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Correlation *CorrelationSpec     `json:"correlation,omitempty" yaml:"correlation,omitempty"`
}

// BaseWeight returns the rule's base weight, defaulting to 0.5 when unset
// and clamping declared values into [0,1].
func (r Rule) BaseWeight() float64 {
	if r.Weight <= 0 {
		return 0.5
	}
	if r.Weight > 1 {
		return 1
	}
	return r.Weight
}

// Validate checks the structural invariants a rule must satisfy before
// pattern compilation is even attempted.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule missing id")
	}
	switch r.Type {
	case RuleTypeSingleLine:
		if r.Pattern == nil || r.Pattern.Regex == "" {
			return fmt.Errorf("rule %s: single_line rule requires a pattern", r.ID)
		}
	case RuleTypeMultiLine:
		if len(r.Segments) == 0 {
			return fmt.Errorf("rule %s: multi_line rule requires segments", r.ID)
		}
		seen := make(map[int]bool, len(r.Segments))
		required := false
		for _, seg := range r.Segments {
			if seg.Pattern == "" {
				return fmt.Errorf("rule %s: segment %d has no pattern", r.ID, seg.Order)
			}
			if seen[seg.Order] {
				return fmt.Errorf("rule %s: duplicate segment order %d", r.ID, seg.Order)
			}
			seen[seg.Order] = true
			required = required || seg.Required
		}
		if !required {
			return fmt.Errorf("rule %s: multi_line rule needs at least one required segment", r.ID)
		}
	case RuleTypeCorrelation:
		if r.Patterns == nil || r.Patterns.Primary == "" || r.Patterns.Related == "" {
			return fmt.Errorf("rule %s: correlation rule requires primary and related patterns", r.ID)
		}
	default:
		return fmt.Errorf("rule %s: unknown rule type %q", r.ID, r.Type)
	}
	switch strings.ToLower(r.Severity) {
	case SeverityFatal, SeverityError, SeverityWarning:
	default:
		return fmt.Errorf("rule %s: unknown severity %q", r.ID, r.Severity)
	}
	if r.Weight < 0 || r.Weight > 1 {
		return fmt.Errorf("rule %s: weight %v outside [0,1]", r.ID, r.Weight)
	}
	return nil
}

// Rules is the top-level document shape of a rule file.
type Rules struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}
