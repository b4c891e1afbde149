package match

import (
	"context"
	"fmt"
	"sync"

	"loglens/core"
	"loglens/metrics"

	"go.uber.org/zap"
)

// Chain traversal bounds. Each chain search is a single bounded attempt per
// session; it is never retried.
const (
	maxChainDepth       = 4
	maxChainsPerPrimary = 16
)

// CorrelationEngine builds a correlation graph over matched segments and
// enumerates causal chains. Nodes are lines matched by a rule's primary or
// related pattern; an edge connects A to B when B occurs within the rule's
// distance bound after A. For every primary node a depth- and
// distance-bounded traversal enumerates candidate chains; a chain is valid
// only when every declared condition evaluates true under substitution of
// the resolved captures.
type CorrelationEngine struct {
	logger *zap.SugaredLogger
}

// NewCorrelationEngine creates a CorrelationEngine.
func NewCorrelationEngine(logger *zap.SugaredLogger) *CorrelationEngine {
	return &CorrelationEngine{logger: logger}
}

// Correlate runs every correlation rule over the lines, one worker-pool
// unit per rule. It runs only after the candidate-producing engines have
// joined; the orchestrator enforces the stage boundary.
func (e *CorrelationEngine) Correlate(ctx context.Context, lines []core.LogLine, rules []*CompiledCorrelationRule, pool *core.WorkerPool) ([]core.MatchCandidate, []core.Warning) {
	perRule := make([][]core.MatchCandidate, len(rules))
	perRuleWarns := make([][]core.Warning, len(rules))

	var wg sync.WaitGroup
	for i, rule := range rules {
		i, rule := i, rule
		task := func() {
			defer wg.Done()
			perRule[i], perRuleWarns[i] = e.correlateRule(ctx, lines, rule)
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
	metrics.CandidatesProduced.WithLabelValues("correlation").Add(float64(len(candidates)))
	return candidates, warnings
}

func (e *CorrelationEngine) correlateRule(ctx context.Context, lines []core.LogLine, rule *CompiledCorrelationRule) ([]core.MatchCandidate, []core.Warning) {
	primaries, t1 := scanPattern(ctx, lines, rule.Primary)
	relateds, t2 := scanPattern(ctx, lines, rule.Related)
	timeouts := t1 + t2

	var candidates []core.MatchCandidate
	for _, primary := range primaries {
		if ctx.Err() != nil {
			break
		}
		chains := enumerateChains(primary, relateds, rule.MaxDistance)
		for _, chain := range chains {
			if cand, ok := e.evaluateChain(rule, chain); ok {
				candidates = append(candidates, cand)
			}
		}
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

// enumerateChains walks the graph from a primary node. Every path of one
// primary followed by one or more related nodes, each within maxDistance
// lines after its predecessor, is a candidate chain, bounded by depth and
// by chain count per primary.
func enumerateChains(primary patternHit, relateds []patternHit, maxDistance int) [][]patternHit {
	var chains [][]patternHit

	var walk func(chain []patternHit)
	walk = func(chain []patternHit) {
		if len(chains) >= maxChainsPerPrimary || len(chain) > maxChainDepth {
			return
		}
		last := chain[len(chain)-1]
		for _, rel := range relateds {
			gap := rel.line - last.line
			if gap <= 0 {
				continue
			}
			if gap > maxDistance {
				break // relateds are in line order; nothing closer follows
			}
			next := append(append([]patternHit{}, chain...), rel)
			chains = append(chains, next)
			if len(chains) >= maxChainsPerPrimary {
				return
			}
			walk(next)
		}
	}
	walk([]patternHit{primary})
	return chains
}

// evaluateChain resolves the chain's captures and applies the rule's
// conditions. Later nodes override earlier captures on key collision.
func (e *CorrelationEngine) evaluateChain(rule *CompiledCorrelationRule, chain []patternHit) (core.MatchCandidate, bool) {
	captures := make(map[string]string)
	for _, node := range chain {
		for k, v := range node.captures {
			captures[k] = v
		}
	}

	// Conditions are evaluated only after all referenced captures resolve;
	// an unresolved or false condition invalidates the chain.
	satisfied := 0
	for _, cond := range rule.Conditions {
		ok, resolved := cond.Evaluate(captures)
		if !resolved || !ok {
			return core.MatchCandidate{}, false
		}
		satisfied++
	}

	condFraction := 1.0
	if len(rule.Conditions) > 0 {
		condFraction = float64(satisfied) / float64(len(rule.Conditions))
	}
	seed := chainLengthFactor(len(chain)) * condFraction

	return core.MatchCandidate{
		RuleID:          rule.Rule.ID,
		RuleType:        core.RuleTypeCorrelation,
		Severity:        rule.Rule.Severity,
		StartLine:       chain[0].line,
		EndLine:         chain[len(chain)-1].line,
		Captures:        captures,
		RawWeight:       rule.Rule.BaseWeight() * seed,
		SegmentsMatched: len(chain),
		SegmentsTotal:   len(chain),
	}, true
}

// chainLengthFactor grows from 0.5 for a minimal chain towards 1.0 at the
// depth bound, so longer corroborated chains seed heavier candidates.
func chainLengthFactor(length int) float64 {
	if length <= 2 {
		return 0.5
	}
	f := 0.5 + 0.5*float64(length-2)/float64(maxChainDepth-2)
	if f > 1 {
		return 1
	}
	return f
}
