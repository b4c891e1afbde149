package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"loglens/core"
	"loglens/metrics"

	"go.uber.org/zap"
)

// RegexEngine evaluates single-line patterns against log lines. Independent
// patterns run concurrently on the worker pool; results are merged in
// rule-id order so output is deterministic regardless of completion order.
type RegexEngine struct {
	logger *zap.SugaredLogger
}

// NewRegexEngine creates a RegexEngine.
func NewRegexEngine(logger *zap.SugaredLogger) *RegexEngine {
	return &RegexEngine{logger: logger}
}

// Match runs every single-line rule over the lines. A nil pool runs each
// pattern sequentially on the calling goroutine.
func (e *RegexEngine) Match(ctx context.Context, lines []core.LogLine, rules []*CompiledSingleRule, pool *core.WorkerPool) ([]core.MatchCandidate, []core.Warning) {
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
			// No pool, or queue full: degrade to inline execution.
			task()
		}
	}
	wg.Wait()

	// Rules are sorted by id at compile time, so appending in slice order
	// merges in pattern-id order.
	var candidates []core.MatchCandidate
	var warnings []core.Warning
	for i := range rules {
		candidates = append(candidates, perRule[i]...)
		warnings = append(warnings, perRuleWarns[i]...)
	}
	metrics.CandidatesProduced.WithLabelValues("regex").Add(float64(len(candidates)))
	return candidates, warnings
}

// scanRule evaluates one pattern over all lines, polling cancellation at
// every line boundary.
func (e *RegexEngine) scanRule(ctx context.Context, lines []core.LogLine, rule *CompiledSingleRule) ([]core.MatchCandidate, []core.Warning) {
	var candidates []core.MatchCandidate
	timeouts := 0

	for _, line := range lines {
		if ctx.Err() != nil {
			break
		}
		captures, err := rule.Pattern.Eval(line.Text())
		if err != nil {
			if errors.Is(err, core.ErrRegexTimeout) {
				// Abandoned, counted, not retried within this pass.
				timeouts++
				continue
			}
			e.logger.Warnw("Pattern evaluation failed",
				"rule_id", rule.Rule.ID,
				"line", line.Index,
				"error", err)
			continue
		}
		if captures == nil {
			continue
		}
		candidates = append(candidates, core.MatchCandidate{
			RuleID:          rule.Rule.ID,
			RuleType:        core.RuleTypeSingleLine,
			Severity:        rule.Rule.Severity,
			StartLine:       line.Index,
			EndLine:         line.Index,
			Captures:        captures,
			RawWeight:       rule.Rule.BaseWeight(),
			SegmentsMatched: 1,
			SegmentsTotal:   1,
		})
	}

	var warnings []core.Warning
	if timeouts > 0 {
		warnings = append(warnings, core.Warning{
			Code:    core.WarnMatchTimeout,
			RuleID:  rule.Rule.ID,
			Message: fmt.Sprintf("%d evaluation(s) exceeded the pattern time budget", timeouts),
			Count:   timeouts,
		})
	}
	return candidates, warnings
}

// patternHit is one line matched by a raw pattern scan.
type patternHit struct {
	line     int
	captures map[string]string
}

// scanPattern evaluates one compiled pattern over all lines and returns the
// matching lines with their captures, plus the number of abandoned
// evaluations. The correlation engine uses it to collect graph nodes.
func scanPattern(ctx context.Context, lines []core.LogLine, pattern *CompiledPattern) ([]patternHit, int) {
	var hits []patternHit
	timeouts := 0
	for _, line := range lines {
		if ctx.Err() != nil {
			break
		}
		captures, err := pattern.Eval(line.Text())
		if err != nil {
			if errors.Is(err, core.ErrRegexTimeout) {
				timeouts++
			}
			continue
		}
		if captures != nil {
			hits = append(hits, patternHit{line: line.Index, captures: captures})
		}
	}
	return hits, timeouts
}
