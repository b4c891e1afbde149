package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition_Equality(t *testing.T) {
	cond, err := ParseCondition("${thread_id} == ${crash_thread}")
	require.NoError(t, err)

	assert.Equal(t, OpEquals, cond.Op)
	assert.Equal(t, "thread_id", cond.Left.Variable)
	assert.Equal(t, "crash_thread", cond.Right.Variable)
	assert.ElementsMatch(t, []string{"thread_id", "crash_thread"}, cond.Variables())
}

func TestParseCondition_LiteralOperand(t *testing.T) {
	cond, err := ParseCondition(`${module} == "Assembly-CSharp"`)
	require.NoError(t, err)

	assert.Equal(t, "module", cond.Left.Variable)
	assert.Equal(t, "Assembly-CSharp", cond.Right.Literal)

	ok, resolved := cond.Evaluate(map[string]string{"module": "Assembly-CSharp"})
	assert.True(t, resolved)
	assert.True(t, ok)
}

func TestParseCondition_InOperator(t *testing.T) {
	cond, err := ParseCondition("${error_code} in ${known_codes}")
	require.NoError(t, err)
	assert.Equal(t, OpIn, cond.Op)

	ok, resolved := cond.Evaluate(map[string]string{
		"error_code":  "CS1002",
		"known_codes": "CS1001,CS1002,CS1003",
	})
	assert.True(t, resolved)
	assert.True(t, ok)

	ok, resolved = cond.Evaluate(map[string]string{
		"error_code":  "CS9999",
		"known_codes": "CS1001,CS1002",
	})
	assert.True(t, resolved)
	assert.False(t, ok)
}

func TestParseCondition_NotInCollapsesTwoTokens(t *testing.T) {
	cond, err := ParseCondition("${file} not in ${ignored_files}")
	require.NoError(t, err)
	assert.Equal(t, OpNotIn, cond.Op)

	ok, resolved := cond.Evaluate(map[string]string{
		"file":          "Game.cs",
		"ignored_files": "Test.cs,Mock.cs",
	})
	assert.True(t, resolved)
	assert.True(t, ok)
}

func TestParseCondition_NotEquals(t *testing.T) {
	cond, err := ParseCondition("${a} != ${b}")
	require.NoError(t, err)

	ok, resolved := cond.Evaluate(map[string]string{"a": "x", "b": "y"})
	assert.True(t, resolved)
	assert.True(t, ok)

	ok, _ = cond.Evaluate(map[string]string{"a": "x", "b": "x"})
	assert.False(t, ok)
}

func TestConditionEvaluate_UnresolvedVariable(t *testing.T) {
	cond, err := ParseCondition("${present} == ${missing}")
	require.NoError(t, err)

	_, resolved := cond.Evaluate(map[string]string{"present": "x"})
	assert.False(t, resolved, "missing capture must report unresolved, not false")
}

func TestParseCondition_QuotedLiteralWithSpaces(t *testing.T) {
	cond, err := ParseCondition(`${message} in "fatal error detected"`)
	require.NoError(t, err)
	assert.Equal(t, "fatal error detected", cond.Right.Literal)
}

func TestParseCondition_Errors(t *testing.T) {
	cases := []string{
		"",
		"${a}",
		"${a} ==",
		"${a} ~= ${b}",
		"${a} == ${b} == ${c}",
		"${ bad name } == ${b}",
	}
	for _, expr := range cases {
		_, err := ParseCondition(expr)
		assert.Error(t, err, "expression %q should not parse", expr)
	}
}
