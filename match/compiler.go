package match

import (
	"fmt"
	"sort"
	"time"

	"loglens/config"
	"loglens/core"
	"loglens/metrics"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompilerOptions bound pattern compilation.
type CompilerOptions struct {
	// RegexTimeout is the per-pattern evaluation budget applied to every
	// compiled pattern.
	RegexTimeout time.Duration
	// Complexity budget.
	MaxPatternLength int
	MaxQuantifiers   int
	MaxGroups        int
	MaxAlternations  int
	MaxRecursion     int
	// DefaultMaxDistance applies to correlation rules that declare none.
	DefaultMaxDistance int
	// DefaultMaxScanLines bounds multi-line scans.
	DefaultMaxScanLines int
	// EnablePrefilter derives literal prefilters for compiled patterns.
	EnablePrefilter bool
	// Cache, when non-nil, reuses compiled patterns across snapshots.
	Cache *PatternCache
}

// DefaultCompilerOptions returns the bounds used when no configuration is
// present.
func DefaultCompilerOptions() CompilerOptions {
	return CompilerOptions{
		RegexTimeout:        500 * time.Millisecond,
		MaxPatternLength:    DefaultMaxPatternLength,
		MaxQuantifiers:      DefaultMaxQuantifiers,
		MaxGroups:           DefaultMaxGroups,
		MaxAlternations:     DefaultMaxAlternations,
		MaxRecursion:        10,
		DefaultMaxDistance:  10,
		DefaultMaxScanLines: 50,
		EnablePrefilter:     true,
	}
}

// OptionsFromConfig maps engine configuration onto compiler options.
func OptionsFromConfig(cfg *config.Config, cache *PatternCache) CompilerOptions {
	opts := DefaultCompilerOptions()
	opts.RegexTimeout = time.Duration(cfg.Regex.Timeout * float64(time.Second))
	opts.MaxRecursion = cfg.Regex.MaxRecursion
	opts.DefaultMaxDistance = cfg.Correlation.MaxDistance
	opts.DefaultMaxScanLines = cfg.MultiLine.MaxLines
	opts.EnablePrefilter = cfg.Optimization.PatternOptimization
	opts.Cache = cache
	return opts
}

// Compile turns rule definitions into an immutable CompiledRuleSet. A rule
// whose pattern cannot be parsed, exceeds the complexity budget, or breaks
// a structural invariant is excluded with a diagnostic; compilation of the
// remaining set always proceeds.
func Compile(rules []core.Rule, opts CompilerOptions, logger *zap.SugaredLogger) (*CompiledRuleSet, []core.Diagnostic) {
	guard := newRegexGuard(opts)
	set := &CompiledRuleSet{Version: uuid.NewString()}
	var diags []core.Diagnostic

	reject := func(ruleID string, err error) {
		diags = append(diags, core.Diagnostic{RuleID: ruleID, Message: err.Error()})
		metrics.RuleCompileFailures.WithLabelValues("pattern").Inc()
		if logger != nil {
			logger.Warnw("Rule excluded from compiled set", "rule_id", ruleID, "error", err)
		}
	}

	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			reject(rule.ID, err)
			continue
		}
		if seen[rule.ID] {
			reject(rule.ID, fmt.Errorf("duplicate rule id %q", rule.ID))
			continue
		}
		seen[rule.ID] = true

		switch rule.Type {
		case core.RuleTypeSingleLine:
			compiled, err := compileSingle(rule, guard, opts)
			if err != nil {
				reject(rule.ID, err)
				continue
			}
			set.SingleLine = append(set.SingleLine, compiled)
		case core.RuleTypeMultiLine:
			compiled, err := compileMulti(rule, guard, opts)
			if err != nil {
				reject(rule.ID, err)
				continue
			}
			set.MultiLine = append(set.MultiLine, compiled)
		case core.RuleTypeCorrelation:
			compiled, err := compileCorrelation(rule, guard, opts)
			if err != nil {
				reject(rule.ID, err)
				continue
			}
			set.Correlation = append(set.Correlation, compiled)
		}
		metrics.RulesCompiled.WithLabelValues(string(rule.Type)).Inc()
	}

	// Deterministic evaluation and merge order.
	sort.Slice(set.SingleLine, func(i, j int) bool { return set.SingleLine[i].Rule.ID < set.SingleLine[j].Rule.ID })
	sort.Slice(set.MultiLine, func(i, j int) bool { return set.MultiLine[i].Rule.ID < set.MultiLine[j].Rule.ID })
	sort.Slice(set.Correlation, func(i, j int) bool { return set.Correlation[i].Rule.ID < set.Correlation[j].Rule.ID })

	if logger != nil {
		logger.Infow("Compiled rule set",
			"version", set.Version,
			"single_line", len(set.SingleLine),
			"multi_line", len(set.MultiLine),
			"correlation", len(set.Correlation),
			"rejected", len(diags))
	}
	return set, diags
}

func compileSingle(rule core.Rule, guard regexGuard, opts CompilerOptions) (*CompiledSingleRule, error) {
	pattern, err := compilePattern(rule.ID, rule.Pattern.Regex, rule.Pattern.Flags, rule.Pattern.CaptureGroups, guard, opts)
	if err != nil {
		return nil, err
	}
	return &CompiledSingleRule{Rule: rule, Pattern: pattern}, nil
}

func compileMulti(rule core.Rule, guard regexGuard, opts CompilerOptions) (*CompiledMultiRule, error) {
	segments := make([]CompiledSegment, 0, len(rule.Segments))
	for _, spec := range rule.Segments {
		id := fmt.Sprintf("%s#seg%d", rule.ID, spec.Order)
		pattern, err := compilePattern(id, spec.Pattern, "", spec.CaptureGroups, guard, opts)
		if err != nil {
			return nil, err
		}
		segments = append(segments, CompiledSegment{Spec: spec, Pattern: pattern})
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Spec.Order < segments[j].Spec.Order })
	return &CompiledMultiRule{Rule: rule, Segments: segments, MaxScan: opts.DefaultMaxScanLines}, nil
}

func compileCorrelation(rule core.Rule, guard regexGuard, opts CompilerOptions) (*CompiledCorrelationRule, error) {
	primary, err := compilePattern(rule.ID+"#primary", rule.Patterns.Primary, "", nil, guard, opts)
	if err != nil {
		return nil, err
	}
	related, err := compilePattern(rule.ID+"#related", rule.Patterns.Related, "", nil, guard, opts)
	if err != nil {
		return nil, err
	}

	maxDistance := opts.DefaultMaxDistance
	var rawConditions []string
	if rule.Correlation != nil {
		if rule.Correlation.MaxDistance > 0 {
			maxDistance = rule.Correlation.MaxDistance
		}
		rawConditions = rule.Correlation.Conditions
	}

	conditions := make([]Condition, 0, len(rawConditions))
	for _, expr := range rawConditions {
		cond, err := ParseCondition(expr)
		if err != nil {
			return nil, &core.CorrelationConditionError{RuleID: rule.ID, Expression: expr, Err: err}
		}
		for _, name := range cond.Variables() {
			if !primary.HasGroup(name) && !related.HasGroup(name) {
				return nil, &core.CorrelationConditionError{
					RuleID:     rule.ID,
					Expression: expr,
					Err:        fmt.Errorf("capture %q not declared by primary or related pattern", name),
				}
			}
		}
		conditions = append(conditions, cond)
	}

	return &CompiledCorrelationRule{
		Rule:        rule,
		Primary:     primary,
		Related:     related,
		MaxDistance: maxDistance,
		Conditions:  conditions,
	}, nil
}

// compilePattern applies the complexity guard, compiles via regexp2 with the
// match timeout, resolves named capture groups, and derives the prefilter.
func compilePattern(id, source, flags string, captureGroups []string, guard regexGuard, opts CompilerOptions) (*CompiledPattern, error) {
	if err := guard.check(source); err != nil {
		return nil, &core.PatternError{RuleID: id, Pattern: source, Err: err}
	}

	re, cached := opts.Cache.Get(source, flags, opts.RegexTimeout)
	if !cached {
		var options regexp2.RegexOptions
		for _, f := range flags {
			switch f {
			case 'i':
				options |= regexp2.IgnoreCase
			case 'm':
				options |= regexp2.Multiline
			case 's':
				options |= regexp2.Singleline
			default:
				return nil, &core.PatternError{RuleID: id, Pattern: source, Err: fmt.Errorf("unknown flag %q", string(f))}
			}
		}

		var err error
		re, err = regexp2.Compile(source, options)
		if err != nil {
			return nil, &core.PatternError{RuleID: id, Pattern: source, Err: err}
		}
		re.MatchTimeout = opts.RegexTimeout
		opts.Cache.Add(source, flags, opts.RegexTimeout, re)
	}

	groupNames := namedGroups(re)
	for _, name := range captureGroups {
		if !containsString(groupNames, name) {
			return nil, &core.PatternError{
				RuleID:  id,
				Pattern: source,
				Err:     fmt.Errorf("declared capture group %q not present in pattern", name),
			}
		}
	}
	// Rules that declare no capture list get every named group extracted.
	if len(captureGroups) == 0 {
		captureGroups = groupNames
	}

	var prefilter Prefilter
	if opts.EnablePrefilter {
		prefilter = derivePrefilter(source, containsRune(flags, 'i'))
	}

	return &CompiledPattern{
		ID:           id,
		Source:       source,
		Flags:        flags,
		Regex:        re,
		CaptureNames: captureGroups,
		GroupNames:   groupNames,
		Prefilter:    prefilter,
	}, nil
}

// namedGroups returns the non-numeric group names of a compiled regex.
func namedGroups(re *regexp2.Regexp) []string {
	var names []string
	for _, name := range re.GetGroupNames() {
		numeric := true
		for _, r := range name {
			if r < '0' || r > '9' {
				numeric = false
				break
			}
		}
		if !numeric {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
