package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"loglens/core"
	"loglens/metrics"

	"go.uber.org/zap"
)

// MultiLineEngine performs stateful ordered-segment scanning. Each
// multi-line rule gets its own state machine per scan window:
//
//	Idle -> Scanning -> Complete | Expired -> Idle
//
// A window closes when every segment has matched, when it exceeds the scan
// bound, when the opening segment fires again, or at end of input. Closing
// emits one candidate spanning the window if every required segment matched
// within the distance constraints, and discards the state otherwise; an
// expired window is never retried.
type MultiLineEngine struct {
	logger *zap.SugaredLogger
}

// NewMultiLineEngine creates a MultiLineEngine.
func NewMultiLineEngine(logger *zap.SugaredLogger) *MultiLineEngine {
	return &MultiLineEngine{logger: logger}
}

// Scan runs every multi-line rule over the lines, one worker-pool unit per
// rule. A nil pool runs scans sequentially.
func (e *MultiLineEngine) Scan(ctx context.Context, lines []core.LogLine, rules []*CompiledMultiRule, pool *core.WorkerPool) ([]core.MatchCandidate, []core.Warning) {
	perRule := make([][]core.MatchCandidate, len(rules))
	perRuleWarns := make([][]core.Warning, len(rules))

	var wg sync.WaitGroup
	for i, rule := range rules {
		i, rule := i, rule
		task := func() {
			defer wg.Done()
			perRule[i], perRuleWarns[i] = e.scanRule(ctx, lines, rule)
		}
		wg.Add(1)
		if pool == nil || pool.Submit(task) != nil {
			task()
		}
	}
	wg.Wait()

	var candidates []core.MatchCandidate
	var warnings []core.Warning
	for i := range rules {
		candidates = append(candidates, perRule[i]...)
		warnings = append(warnings, perRuleWarns[i]...)
	}
	metrics.CandidatesProduced.WithLabelValues("multi_line").Add(float64(len(candidates)))
	return candidates, warnings
}

// segmentHit records where a segment matched within the current window.
type segmentHit struct {
	order    int
	line     int
	captures map[string]string
	required bool
	maxGap   int
}

// multiState is the ephemeral per-rule scan state. It is owned by exactly
// one worker and discarded on completion, expiry, or cancellation.
type multiState struct {
	scanning        bool
	firstLine       int
	lastLine        int
	matched         map[int]segmentHit // keyed by segment order
	highestRequired int
}

func newMultiState() *multiState {
	return &multiState{matched: make(map[int]segmentHit), highestRequired: -1}
}

func (s *multiState) reset() {
	s.scanning = false
	s.firstLine = 0
	s.lastLine = 0
	s.matched = make(map[int]segmentHit)
	s.highestRequired = -1
}

func (e *MultiLineEngine) scanRule(ctx context.Context, lines []core.LogLine, rule *CompiledMultiRule) ([]core.MatchCandidate, []core.Warning) {
	state := newMultiState()
	var candidates []core.MatchCandidate
	timeouts := 0
	expired := 0

	// finalize closes the current window: a candidate when every required
	// segment matched and the distance constraints hold, expiry otherwise.
	finalize := func() {
		if !state.scanning {
			return
		}
		if cand, ok := e.tryComplete(rule, state); ok {
			candidates = append(candidates, cand)
		} else {
			expired++
		}
		state.reset()
	}

	record := func(hit *segmentHit) {
		state.matched[hit.order] = *hit
		if !state.scanning {
			state.scanning = true
			state.firstLine = hit.line
			state.lastLine = hit.line
		}
		if hit.line > state.lastLine {
			state.lastLine = hit.line
		}
		if hit.required && hit.order > state.highestRequired {
			state.highestRequired = hit.order
		}
	}

	for _, line := range lines {
		if ctx.Err() != nil {
			// Cooperative cancellation discards accumulated state.
			return candidates, multiWarnings(rule.Rule.ID, timeouts, expired)
		}

		// Close an overlong window before considering the line, so the
		// same line may immediately open a fresh window.
		if state.scanning && line.Index-state.firstLine+1 > rule.MaxScan {
			finalize()
		}

		hit, timedOut := e.matchLine(line, rule, state)
		timeouts += timedOut
		if hit == nil {
			// A window satisfied except for optional segments stays open
			// hoping to absorb them. When the opening segment fires again
			// instead, a new instance has begun: close the window and let
			// the same hit open a fresh one.
			if state.scanning && e.requiredComplete(rule, state) {
				opening, timedOut := e.openingHit(line, rule)
				timeouts += timedOut
				if opening != nil {
					finalize()
					record(opening)
				}
			}
			continue
		}

		record(hit)

		// Nothing left to absorb: the window is as complete as it can get.
		if len(state.matched) == len(rule.Segments) {
			finalize()
		}
	}

	// End of input closes whatever window is still open.
	finalize()
	return candidates, multiWarnings(rule.Rule.ID, timeouts, expired)
}

// requiredComplete reports whether every required segment has matched in
// the current window.
func (e *MultiLineEngine) requiredComplete(rule *CompiledMultiRule, state *multiState) bool {
	for _, seg := range rule.Segments {
		if seg.Spec.Required {
			if _, ok := state.matched[seg.Spec.Order]; !ok {
				return false
			}
		}
	}
	return true
}

// openingHit evaluates the line against the rule's first segment and
// returns the hit on a match, along with the number of abandoned
// evaluations.
func (e *MultiLineEngine) openingHit(line core.LogLine, rule *CompiledMultiRule) (*segmentHit, int) {
	if len(rule.Segments) == 0 {
		return nil, 0
	}
	seg := rule.Segments[0]
	captures, err := seg.Pattern.Eval(line.Text())
	if err != nil {
		if errors.Is(err, core.ErrRegexTimeout) {
			return nil, 1
		}
		return nil, 0
	}
	if captures == nil {
		return nil, 0
	}
	return &segmentHit{
		order:    seg.Spec.Order,
		line:     line.Index,
		captures: captures,
		required: seg.Spec.Required,
		maxGap:   seg.Spec.MaxLineDistance,
	}, 0
}

// matchLine tries the line against every unmatched eligible segment,
// lowest order first, so a line matching several segments lands on the
// lowest-order one.
func (e *MultiLineEngine) matchLine(line core.LogLine, rule *CompiledMultiRule, state *multiState) (*segmentHit, int) {
	timeouts := 0
	for _, seg := range rule.Segments {
		if _, done := state.matched[seg.Spec.Order]; done {
			continue
		}
		// Required segments advance monotonically; optional segments may be
		// recorded whenever they appear.
		if seg.Spec.Required && seg.Spec.Order < state.highestRequired {
			continue
		}
		captures, err := seg.Pattern.Eval(line.Text())
		if err != nil {
			if errors.Is(err, core.ErrRegexTimeout) {
				timeouts++
			}
			continue
		}
		if captures == nil {
			continue
		}
		return &segmentHit{
			order:    seg.Spec.Order,
			line:     line.Index,
			captures: captures,
			required: seg.Spec.Required,
			maxGap:   seg.Spec.MaxLineDistance,
		}, timeouts
	}
	return nil, timeouts
}

// tryComplete fires Complete when every required segment is matched and all
// consecutive matched-segment line gaps satisfy the distance constraints.
func (e *MultiLineEngine) tryComplete(rule *CompiledMultiRule, state *multiState) (core.MatchCandidate, bool) {
	for _, seg := range rule.Segments {
		if seg.Spec.Required {
			if _, ok := state.matched[seg.Spec.Order]; !ok {
				return core.MatchCandidate{}, false
			}
		}
	}

	hits := make([]segmentHit, 0, len(state.matched))
	for _, hit := range state.matched {
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].line < hits[j].line })

	for i := 1; i < len(hits); i++ {
		gap := hits[i].line - hits[i-1].line
		if hits[i].maxGap > 0 && gap > hits[i].maxGap {
			return core.MatchCandidate{}, false
		}
	}

	captures := make(map[string]string)
	for _, hit := range hits {
		for k, v := range hit.captures {
			captures[k] = v
		}
	}

	return core.MatchCandidate{
		RuleID:          rule.Rule.ID,
		RuleType:        core.RuleTypeMultiLine,
		Severity:        rule.Rule.Severity,
		StartLine:       hits[0].line,
		EndLine:         hits[len(hits)-1].line,
		Captures:        captures,
		RawWeight:       rule.Rule.BaseWeight(),
		SegmentsMatched: len(hits),
		SegmentsTotal:   len(rule.Segments),
	}, true
}

func multiWarnings(ruleID string, timeouts, expired int) []core.Warning {
	var warnings []core.Warning
	if timeouts > 0 {
		warnings = append(warnings, core.Warning{
			Code:    core.WarnMatchTimeout,
			RuleID:  ruleID,
			Message: fmt.Sprintf("%d segment evaluation(s) exceeded the pattern time budget", timeouts),
			Count:   timeouts,
		})
	}
	if expired > 0 {
		warnings = append(warnings, core.Warning{
			Code:    core.WarnScanExpired,
			RuleID:  ruleID,
			Message: fmt.Sprintf("%d scan window(s) expired without completing", expired),
			Count:   expired,
		})
	}
	return warnings
}
