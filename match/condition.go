package match

import (
	"fmt"
	"strings"
)

// CondOp is a correlation condition operator.
type CondOp string

const (
	// OpEquals compares both sides for equality.
	OpEquals CondOp = "=="
	// OpNotEquals compares both sides for inequality.
	OpNotEquals CondOp = "!="
	// OpIn tests substring containment of the left side in the right.
	OpIn CondOp = "in"
	// OpNotIn is the negation of OpIn.
	OpNotIn CondOp = "not_in"
)

// Operand is one side of a condition: either a capture variable reference
// written as ${name}, or a literal.
type Operand struct {
	Variable string
	Literal  string
}

func (o Operand) isVariable() bool { return o.Variable != "" }

// Condition is a pre-parsed correlation condition. Conditions are parsed
// once at compile time and evaluated by substituting resolved captures;
// no runtime expression evaluation ever happens.
type Condition struct {
	Raw   string
	Left  Operand
	Op    CondOp
	Right Operand
}

// Variables returns the capture names the condition references.
func (c Condition) Variables() []string {
	var vars []string
	if c.Left.isVariable() {
		vars = append(vars, c.Left.Variable)
	}
	if c.Right.isVariable() {
		vars = append(vars, c.Right.Variable)
	}
	return vars
}

// Evaluate substitutes captures into the condition. The second return value
// reports whether every referenced variable resolved; when it is false the
// first value is meaningless.
func (c Condition) Evaluate(captures map[string]string) (bool, bool) {
	left, ok := resolveOperand(c.Left, captures)
	if !ok {
		return false, false
	}
	right, ok := resolveOperand(c.Right, captures)
	if !ok {
		return false, false
	}

	switch c.Op {
	case OpEquals:
		return left == right, true
	case OpNotEquals:
		return left != right, true
	case OpIn:
		return strings.Contains(right, left), true
	case OpNotIn:
		return !strings.Contains(right, left), true
	default:
		return false, false
	}
}

func resolveOperand(o Operand, captures map[string]string) (string, bool) {
	if o.isVariable() {
		v, ok := captures[o.Variable]
		return v, ok
	}
	return o.Literal, true
}

// ParseCondition parses an expression of the form
//
//	${left} OP ${right}
//
// where OP is one of ==, !=, in, not in / not_in, and either side may be a
// literal (optionally quoted) instead of a variable reference.
func ParseCondition(expr string) (Condition, error) {
	tokens := tokenizeCondition(expr)
	if len(tokens) == 4 && strings.EqualFold(tokens[1], "not") && strings.EqualFold(tokens[2], "in") {
		tokens = []string{tokens[0], string(OpNotIn), tokens[3]}
	}
	if len(tokens) != 3 {
		return Condition{}, fmt.Errorf("expected <operand> <operator> <operand>, got %d tokens", len(tokens))
	}

	var op CondOp
	switch strings.ToLower(tokens[1]) {
	case "==", "=":
		op = OpEquals
	case "!=":
		op = OpNotEquals
	case "in":
		op = OpIn
	case "not_in":
		op = OpNotIn
	default:
		return Condition{}, fmt.Errorf("unknown operator %q", tokens[1])
	}

	left, err := parseOperand(tokens[0])
	if err != nil {
		return Condition{}, err
	}
	right, err := parseOperand(tokens[2])
	if err != nil {
		return Condition{}, err
	}
	return Condition{Raw: expr, Left: left, Op: op, Right: right}, nil
}

func parseOperand(tok string) (Operand, error) {
	if strings.HasPrefix(tok, "${") {
		if !strings.HasSuffix(tok, "}") || len(tok) < 4 {
			return Operand{}, fmt.Errorf("malformed variable reference %q", tok)
		}
		name := tok[2 : len(tok)-1]
		if strings.ContainsAny(name, "${} \t") {
			return Operand{}, fmt.Errorf("malformed variable reference %q", tok)
		}
		return Operand{Variable: name}, nil
	}
	if len(tok) >= 2 && (tok[0] == '"' || tok[0] == '\'') && tok[len(tok)-1] == tok[0] {
		tok = tok[1 : len(tok)-1]
	}
	return Operand{Literal: tok}, nil
}

// tokenizeCondition splits on whitespace, keeping quoted literals intact.
func tokenizeCondition(expr string) []string {
	var tokens []string
	var buf strings.Builder
	var quote byte

	flush := func() {
		if buf.Len() > 0 {
			tokens = append(tokens, buf.String())
			buf.Reset()
		}
	}

	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		switch {
		case quote != 0:
			buf.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
			buf.WriteByte(ch)
		case ch == ' ' || ch == '\t':
			flush()
		default:
			buf.WriteByte(ch)
		}
	}
	flush()
	return tokens
}
