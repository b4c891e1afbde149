package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across engine stages.
var (
	// ErrRegexTimeout marks a pattern evaluation abandoned because it
	// exceeded its per-pattern time budget.
	ErrRegexTimeout = errors.New("regex evaluation timeout")
	// ErrEmptyRuleSet is returned when a session is started with no
	// compiled rules.
	ErrEmptyRuleSet = errors.New("compiled rule set is empty")
	// ErrEmptyInput is returned when a session is started with no log
	// lines.
	ErrEmptyInput = errors.New("log input is empty")
)

// PatternError reports a rule whose pattern could not be compiled or
// exceeded the complexity budget. It is carried as a compile diagnostic;
// the offending rule is excluded and compilation of the rest proceeds.
type PatternError struct {
	RuleID  string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("rule %s: pattern %q: %v", e.RuleID, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// CorrelationConditionError reports a malformed correlation condition
// expression. The rule is flagged invalid at compile time.
type CorrelationConditionError struct {
	RuleID     string
	Expression string
	Err        error
}

func (e *CorrelationConditionError) Error() string {
	return fmt.Sprintf("rule %s: condition %q: %v", e.RuleID, e.Expression, e.Err)
}

func (e *CorrelationConditionError) Unwrap() error { return e.Err }

// ResourceLimitError reports that a session exceeded a configured memory or
// CPU budget. The orchestrator degrades by dropping lowest-priority rules
// first; the error is fatal only when no rules remain.
type ResourceLimitError struct {
	Resource string
	Limit    int64
	Observed int64
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("resource limit exceeded: %s (limit %d, observed %d)", e.Resource, e.Limit, e.Observed)
}

// OrchestrationError is the only fatal session error: an empty compiled
// rule set or empty input content.
type OrchestrationError struct {
	Err error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("orchestration failed: %v", e.Err)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }
