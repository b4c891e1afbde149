package match

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"loglens/config"
	"loglens/core"
	"loglens/metrics"

	"go.uber.org/zap"
)

// approxCandidateBytes is the rough in-memory footprint of one candidate,
// used to turn the memory budget into a candidate cap.
const approxCandidateBytes = 512

// Matcher orchestrates the full pipeline: candidate generation by the three
// engines, weighting, conflict resolution, and final ordering. Rule sets are
// swapped atomically, so sessions in flight keep the set they started with.
type Matcher struct {
	cfg    *config.Config
	logger *zap.SugaredLogger

	rules atomic.Pointer[CompiledRuleSet]
	cache *PatternCache
	pool  *core.WorkerPool

	regex       *RegexEngine
	multi       *MultiLineEngine
	correlation *CorrelationEngine
	calculator  *WeightCalculator
	resolver    *ConflictResolver
	history     HistoryProvider
}

// NewMatcher builds a Matcher from configuration. The worker pool starts
// immediately when parallel matching is enabled; call Stop to release it.
func NewMatcher(cfg *config.Config, logger *zap.SugaredLogger) (*Matcher, error) {
	cache, err := NewPatternCache(cfg.Optimization.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern cache: %w", err)
	}

	var history HistoryProvider = NoopHistory{}
	if cfg.History.Path != "" {
		h, err := OpenSQLiteHistory(cfg.History.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open rule feedback database: %w", err)
		}
		history = h
	}

	m := &Matcher{
		cfg:         cfg,
		logger:      logger,
		cache:       cache,
		regex:       NewRegexEngine(logger),
		multi:       NewMultiLineEngine(logger),
		correlation: NewCorrelationEngine(logger),
		calculator:  NewWeightCalculator(cfg.MultiLine.ContextSize, history, DefaultFactorWeights()),
		resolver:    NewConflictResolver(logger),
		history:     history,
	}

	if cfg.Optimization.ParallelMatching {
		workers := cfg.EffectiveWorkers()
		m.pool = core.NewWorkerPool(context.Background(), workers, workers*4, "match", logger)
		m.pool.Start()
	}
	return m, nil
}

// LoadRules compiles the given rules and atomically installs the result as
// the active set. Invalid rules are reported as diagnostics and excluded;
// compilation never fails wholesale.
func (m *Matcher) LoadRules(rules []core.Rule) (*CompiledRuleSet, []core.Diagnostic) {
	opts := OptionsFromConfig(m.cfg, m.cache)
	compiled, diags := Compile(rules, opts, m.logger)
	m.rules.Store(compiled)
	m.logger.Infow("Rule set installed",
		"version", compiled.Version,
		"rules", compiled.Len(),
		"rejected", len(diags))
	return compiled, diags
}

// RuleSet returns the currently installed compiled rule set, or nil when no
// rules have been loaded.
func (m *Matcher) RuleSet() *CompiledRuleSet {
	return m.rules.Load()
}

// Match runs one session against the given log lines and returns the
// weighted, conflict-resolved matches in (start line, rule id) order. Lines
// are matched exactly as supplied, with their indexes intact; normalization
// is the caller's concern. The only fatal errors are an empty rule set and
// empty input; everything else degrades into warnings on the result.
func (m *Matcher) Match(ctx context.Context, lines []core.LogLine) (*core.MatchResult, error) {
	rs := m.rules.Load()
	if rs == nil || rs.Empty() {
		return nil, &core.OrchestrationError{Err: core.ErrEmptyRuleSet}
	}
	if len(lines) == 0 {
		return nil, &core.OrchestrationError{Err: core.ErrEmptyInput}
	}

	start := time.Now()
	defer func() {
		metrics.MatchSessionDuration.Observe(time.Since(start).Seconds())
	}()

	if m.cfg.Matcher.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Matcher.Timeout)*time.Second)
		defer cancel()
	}

	result := &core.MatchResult{}
	result.Stats.LinesScanned = len(lines)

	single, warns := m.regex.Match(ctx, lines, rs.SingleLine, m.pool)
	result.Warnings = append(result.Warnings, warns...)
	result.Stats.SingleLineCandidates = len(single)

	multi, warns := m.multi.Scan(ctx, lines, rs.MultiLine, m.pool)
	result.Warnings = append(result.Warnings, warns...)
	result.Stats.MultiLineCandidates = len(multi)

	corr, warns := m.correlation.Correlate(ctx, lines, rs.Correlation, m.pool)
	result.Warnings = append(result.Warnings, warns...)
	result.Stats.CorrelationCandidates = len(corr)

	candidates := make([]core.MatchCandidate, 0, len(single)+len(multi)+len(corr))
	candidates = append(candidates, single...)
	candidates = append(candidates, multi...)
	candidates = append(candidates, corr...)

	if ctx.Err() != nil {
		result.Warnings = append(result.Warnings, core.Warning{
			Code:    core.WarnSessionCut,
			Message: "session deadline reached, results are partial",
		})
		m.logger.Warnw("Match session cut short by deadline",
			"elapsed", time.Since(start),
			"candidates", len(candidates))
	}

	candidates, dropped := m.enforceCandidateBudget(candidates)
	if dropped > 0 {
		result.Stats.DroppedCandidates = dropped
		result.Warnings = append(result.Warnings, core.Warning{
			Code:    core.WarnResourceLimit,
			Message: fmt.Sprintf("memory budget exceeded, dropped %d lowest-priority candidates", dropped),
		})
	}

	for i := range candidates {
		candidates[i].Weight = m.calculator.Calculate(candidates[i], len(lines))
	}

	result.Matches = m.resolver.Resolve(candidates)

	if limit := m.cfg.Matcher.MaxMatches; limit > 0 && len(result.Matches) > limit {
		result.Warnings = append(result.Warnings, core.Warning{
			Code:    core.WarnCandidateCap,
			Message: fmt.Sprintf("match list truncated from %d to %d", len(result.Matches), limit),
		})
		result.Matches = result.Matches[:limit]
	}

	result.Stats.Timeouts = sumWarningEvents(result.Warnings, core.WarnMatchTimeout)
	result.Stats.ExpiredScans = sumWarningEvents(result.Warnings, core.WarnScanExpired)

	for _, match := range result.Matches {
		metrics.MatchesEmitted.WithLabelValues(match.Severity).Inc()
	}

	m.logger.Debugw("Match session complete",
		"lines", len(lines),
		"candidates", len(candidates),
		"matches", len(result.Matches),
		"warnings", len(result.Warnings),
		"elapsed", time.Since(start))
	return result, nil
}

// enforceCandidateBudget drops the lowest-severity candidates when the
// candidate population exceeds the memory budget, keeping the highest
// severities intact. Candidates with equal severity are kept in arrival
// order.
func (m *Matcher) enforceCandidateBudget(candidates []core.MatchCandidate) ([]core.MatchCandidate, int) {
	budget := m.cfg.Resources.MaxMemory
	if budget <= 0 {
		return candidates, 0
	}
	limit := int(budget / approxCandidateBytes)
	if limit < 1 {
		limit = 1
	}
	if len(candidates) <= limit {
		return candidates, 0
	}

	kept := append([]core.MatchCandidate{}, candidates...)
	sort.SliceStable(kept, func(i, j int) bool {
		return core.SeverityPriority(kept[i].Severity) > core.SeverityPriority(kept[j].Severity)
	})
	dropped := len(kept) - limit
	return kept[:limit], dropped
}

// sumWarningEvents totals the event counts carried by warnings of the given
// code. One warning aggregates all of a rule's events for the session, so
// the stats sum counts rather than warning entries.
func sumWarningEvents(warnings []core.Warning, code string) int {
	total := 0
	for _, w := range warnings {
		if w.Code != code {
			continue
		}
		if w.Count > 0 {
			total += w.Count
		} else {
			total++
		}
	}
	return total
}

// Stop releases the matcher's resources: the worker pool and, when the
// historical-accuracy provider owns a database handle, that handle too.
func (m *Matcher) Stop() {
	if m.pool != nil {
		m.pool.Stop()
	}
	if closer, ok := m.history.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			m.logger.Warnw("Failed to close rule feedback database", "error", err)
		}
	}
}
