package match

import (
	"regexp/syntax"
	"strings"
)

// minPrefilterToken is the shortest literal worth gating on; anything
// shorter rejects too few lines to pay for itself.
const minPrefilterToken = 3

// Prefilter is a cheap literal or token-set test used to skip full pattern
// evaluation on lines that cannot possibly match. An empty prefilter passes
// everything.
type Prefilter struct {
	// Literal is a substring every matching line must contain.
	Literal string
	// Tokens is an alternative set: a matching line must contain at least
	// one of them. Set when the pattern is a top-level alternation.
	Tokens []string
	// Fold enables case-insensitive containment.
	Fold bool
}

// Match reports whether the line could match the full pattern.
func (p Prefilter) Match(text string) bool {
	if p.Literal == "" && len(p.Tokens) == 0 {
		return true
	}
	if p.Fold {
		text = strings.ToLower(text)
	}
	if p.Literal != "" {
		return strings.Contains(text, p.Literal)
	}
	for _, tok := range p.Tokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}

// derivePrefilter extracts a mandatory literal substring (or one literal per
// alternation branch) from a pattern. Patterns the standard parser cannot
// handle (backreferences, lookarounds) get a pass-all prefilter; regexp2
// still evaluates them in full.
func derivePrefilter(pattern string, fold bool) Prefilter {
	flags := syntax.Perl
	if fold {
		flags |= syntax.FoldCase
	}
	re, err := syntax.Parse(pattern, flags)
	if err != nil {
		return Prefilter{}
	}
	re = re.Simplify()

	if re.Op == syntax.OpAlternate {
		tokens := make([]string, 0, len(re.Sub))
		for _, sub := range re.Sub {
			lit := mandatoryLiteral(sub)
			if len(lit) < minPrefilterToken {
				return Prefilter{}
			}
			tokens = append(tokens, normalizeToken(lit, fold))
		}
		return Prefilter{Tokens: tokens, Fold: fold}
	}

	lit := mandatoryLiteral(re)
	if len(lit) < minPrefilterToken {
		return Prefilter{}
	}
	return Prefilter{Literal: normalizeToken(lit, fold), Fold: fold}
}

// mandatoryLiteral returns the longest literal every match of re must
// contain, or "" when no such literal exists.
func mandatoryLiteral(re *syntax.Regexp) string {
	switch re.Op {
	case syntax.OpLiteral:
		return string(re.Rune)
	case syntax.OpConcat:
		longest := ""
		for _, sub := range re.Sub {
			if lit := mandatoryLiteral(sub); len(lit) > len(longest) {
				longest = lit
			}
		}
		return longest
	case syntax.OpCapture:
		return mandatoryLiteral(re.Sub[0])
	case syntax.OpPlus:
		// A plus guarantees at least one occurrence of its operand.
		return mandatoryLiteral(re.Sub[0])
	default:
		return ""
	}
}

func normalizeToken(tok string, fold bool) string {
	if fold {
		return strings.ToLower(tok)
	}
	return tok
}
