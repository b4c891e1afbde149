package match

import (
	"fmt"
	"regexp/syntax"
	"strings"
)

// Complexity budget defaults. Patterns beyond these bounds are rejected at
// compile time with a PatternError rather than risked at match time.
const (
	DefaultMaxPatternLength = 1000
	DefaultMaxQuantifiers   = 20
	DefaultMaxGroups        = 20
	DefaultMaxAlternations  = 50
)

// regexGuard validates patterns against the complexity budget before they
// are handed to regexp2.
type regexGuard struct {
	maxLength       int
	maxQuantifiers  int
	maxGroups       int
	maxAlternations int
	maxDepth        int
}

func newRegexGuard(opts CompilerOptions) regexGuard {
	return regexGuard{
		maxLength:       opts.MaxPatternLength,
		maxQuantifiers:  opts.MaxQuantifiers,
		maxGroups:       opts.MaxGroups,
		maxAlternations: opts.MaxAlternations,
		maxDepth:        opts.MaxRecursion,
	}
}

// check returns an error when the pattern exceeds the complexity budget.
func (g regexGuard) check(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("pattern is empty")
	}
	if len(pattern) > g.maxLength {
		return fmt.Errorf("pattern too long: %d characters (max %d)", len(pattern), g.maxLength)
	}
	if n := strings.Count(pattern, "|"); n > g.maxAlternations {
		return fmt.Errorf("too many alternations: %d (max %d)", n, g.maxAlternations)
	}

	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		// regexp2 accepts constructs the standard parser rejects
		// (lookarounds, backreferences); fall back to token counting.
		return g.checkHeuristic(pattern)
	}

	quantifiers, groups := 0, 0
	depth := treeStats(re, &quantifiers, &groups)
	if quantifiers > g.maxQuantifiers {
		return fmt.Errorf("too many quantifiers: %d (max %d)", quantifiers, g.maxQuantifiers)
	}
	if groups > g.maxGroups {
		return fmt.Errorf("too many capture groups: %d (max %d)", groups, g.maxGroups)
	}
	if depth > g.maxDepth {
		return fmt.Errorf("pattern nesting too deep: %d (max %d)", depth, g.maxDepth)
	}
	return nil
}

// checkHeuristic approximates the budget by token counting when the pattern
// cannot be structurally parsed.
func (g regexGuard) checkHeuristic(pattern string) error {
	quantifiers := strings.Count(pattern, "*") + strings.Count(pattern, "+") +
		strings.Count(pattern, "?") + strings.Count(pattern, "{")
	if quantifiers > g.maxQuantifiers {
		return fmt.Errorf("too many quantifiers: %d (max %d)", quantifiers, g.maxQuantifiers)
	}
	if groups := strings.Count(pattern, "("); groups > g.maxGroups {
		return fmt.Errorf("too many groups: %d (max %d)", groups, g.maxGroups)
	}
	return nil
}

// treeStats walks the parse tree accumulating quantifier and capture-group
// counts, returning the nesting depth.
func treeStats(re *syntax.Regexp, quantifiers, groups *int) int {
	switch re.Op {
	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest, syntax.OpRepeat:
		*quantifiers++
	case syntax.OpCapture:
		*groups++
	}
	deepest := 0
	for _, sub := range re.Sub {
		if d := treeStats(sub, quantifiers, groups); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}
