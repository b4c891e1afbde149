package core

// MatchCandidate is an unscored match produced by one of the candidate
// engines. Candidates flow by value into the weight calculator and then the
// conflict resolver; stages never share them mutably.
type MatchCandidate struct {
	RuleID    string
	RuleType  RuleType
	Severity  string
	StartLine int
	EndLine   int
	Captures  map[string]string
	// RawWeight is the weight seeded by the producing engine, before the
	// multi-factor calculation. Single-line and multi-line engines seed the
	// rule's base weight; the correlation engine scales it by chain quality.
	RawWeight float64
	// Weight is the normalized weight in [0,1], set by the orchestrator
	// after the multi-factor calculation. Conflict resolution reads it.
	Weight float64
	// SegmentsMatched and SegmentsTotal feed the completeness factor.
	// Single-line candidates report 1/1.
	SegmentsMatched int
	SegmentsTotal   int
}

// Overlaps reports whether two candidates cover intersecting line ranges.
func (c MatchCandidate) Overlaps(other MatchCandidate) bool {
	return c.StartLine <= other.EndLine && other.StartLine <= c.EndLine
}

// FinalMatch is the terminal, conflict-resolved, weighted match returned to
// the caller. GroupID is set only when the match was merged from several
// overlapping candidates of the same rule family.
type FinalMatch struct {
	RuleID    string            `json:"rule_id"`
	Severity  string            `json:"severity"`
	Weight    float64           `json:"weight"`
	LineRange [2]int            `json:"line_range"`
	Captures  map[string]string `json:"captures,omitempty"`
	GroupID   string            `json:"group_id,omitempty"`
}

// Warning is a non-fatal condition recorded during a match session and
// returned alongside the results, never silently discarded.
type Warning struct {
	Code    string `json:"code"`
	RuleID  string `json:"rule_id,omitempty"`
	Message string `json:"message"`
	// Count is the number of underlying events this warning aggregates,
	// such as abandoned evaluations for one rule across a session.
	Count int `json:"count,omitempty"`
}

// Warning codes attached to session results.
const (
	WarnMatchTimeout  = "match_timeout"
	WarnScanExpired   = "scan_expired"
	WarnResourceLimit = "resource_limit"
	WarnRuleDropped   = "rule_dropped"
	WarnCandidateCap  = "candidate_cap"
	WarnSessionCut    = "session_deadline"
)

// Diagnostic is a per-rule compile-time finding. Invalid rules are excluded
// from the compiled set but never abort compilation of the rest.
type Diagnostic struct {
	RuleID  string `json:"rule_id"`
	Message string `json:"message"`
}

// SessionStats summarizes one match session.
type SessionStats struct {
	LinesScanned          int `json:"lines_scanned"`
	SingleLineCandidates  int `json:"single_line_candidates"`
	MultiLineCandidates   int `json:"multi_line_candidates"`
	CorrelationCandidates int `json:"correlation_candidates"`
	Timeouts              int `json:"timeouts"`
	ExpiredScans          int `json:"expired_scans"`
	DroppedCandidates     int `json:"dropped_candidates"`
}

// MatchResult is the complete outcome of a match session: the final ordered
// matches plus everything that went wrong along the way.
type MatchResult struct {
	Matches  []FinalMatch `json:"matches"`
	Warnings []Warning    `json:"warnings,omitempty"`
	Stats    SessionStats `json:"stats"`
}
