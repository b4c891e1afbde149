package match

import (
	"context"
	"testing"

	"loglens/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func crashCorrelationRule() core.Rule {
	return core.Rule{
		ID:       "deadlock",
		Type:     core.RuleTypeCorrelation,
		Severity: core.SeverityFatal,
		Weight:   1.0,
		Patterns: &core.CorrelationPatterns{
			Primary: `crash in thread (?P<thread_id>\d+)`,
			Related: `thread (?P<waiting_thread>\d+) waiting on lock held by (?P<holder>\d+)`,
		},
		Correlation: &core.CorrelationSpec{
			MaxDistance: 5,
			Conditions:  []string{"${thread_id} == ${holder}"},
		},
	}
}

func correlate(t *testing.T, rule core.Rule, lines []core.LogLine) ([]core.MatchCandidate, []core.Warning) {
	t.Helper()
	set, diags := compileSet(t, []core.Rule{rule})
	require.Empty(t, diags)
	require.Len(t, set.Correlation, 1)

	engine := NewCorrelationEngine(zap.NewNop().Sugar())
	return engine.Correlate(context.Background(), lines, set.Correlation, nil)
}

func TestCorrelationEngine_LinksPrimaryToRelated(t *testing.T) {
	lines := testLines(
		"crash in thread 12",
		"noise",
		"thread 7 waiting on lock held by 12",
	)

	candidates, warnings := correlate(t, crashCorrelationRule(), lines)

	require.Empty(t, warnings)
	require.Len(t, candidates, 1)

	cand := candidates[0]
	assert.Equal(t, "deadlock", cand.RuleID)
	assert.Equal(t, core.RuleTypeCorrelation, cand.RuleType)
	assert.Equal(t, 0, cand.StartLine)
	assert.Equal(t, 2, cand.EndLine)
	assert.Equal(t, "12", cand.Captures["thread_id"])
	assert.Equal(t, "12", cand.Captures["holder"])
	assert.Equal(t, "7", cand.Captures["waiting_thread"])
}

func TestCorrelationEngine_ConditionFilterRejectsChains(t *testing.T) {
	lines := testLines(
		"crash in thread 12",
		"thread 7 waiting on lock held by 99",
	)

	candidates, _ := correlate(t, crashCorrelationRule(), lines)
	assert.Empty(t, candidates, "a false condition invalidates the chain")
}

func TestCorrelationEngine_DistanceBoundCutsEdges(t *testing.T) {
	lines := testLines(
		"crash in thread 12",
		"a", "b", "c", "d", "e",
		"thread 7 waiting on lock held by 12",
	)

	candidates, _ := correlate(t, crashCorrelationRule(), lines)
	assert.Empty(t, candidates, "related lines beyond max_distance are unreachable")
}

func TestCorrelationEngine_RelatedMustFollowPrimary(t *testing.T) {
	lines := testLines(
		"thread 7 waiting on lock held by 12",
		"crash in thread 12",
	)

	candidates, _ := correlate(t, crashCorrelationRule(), lines)
	assert.Empty(t, candidates, "edges only run forward in line order")
}

func TestCorrelationEngine_LongerChainsSeedHigherWeight(t *testing.T) {
	rule := crashCorrelationRule()
	rule.Correlation.Conditions = nil

	short := testLines(
		"crash in thread 12",
		"thread 7 waiting on lock held by 12",
	)
	long := testLines(
		"crash in thread 12",
		"thread 7 waiting on lock held by 12",
		"thread 8 waiting on lock held by 12",
	)

	shortCands, _ := correlate(t, rule, short)
	require.Len(t, shortCands, 1)

	longCands, _ := correlate(t, rule, long)
	require.NotEmpty(t, longCands)

	maxSeed := 0.0
	for _, cand := range longCands {
		if cand.RawWeight > maxSeed {
			maxSeed = cand.RawWeight
		}
	}
	assert.Greater(t, maxSeed, shortCands[0].RawWeight,
		"a chain with more corroborating nodes seeds a heavier candidate")
}

func TestCorrelationEngine_ChainCountBounded(t *testing.T) {
	rule := crashCorrelationRule()
	rule.Correlation.Conditions = nil
	rule.Correlation.MaxDistance = 100

	raw := []string{"crash in thread 12"}
	for i := 0; i < 30; i++ {
		raw = append(raw, "thread 7 waiting on lock held by 12")
	}

	candidates, _ := correlate(t, rule, testLines(raw...))
	assert.LessOrEqual(t, len(candidates), maxChainsPerPrimary,
		"chain enumeration per primary is bounded")
}

func TestCorrelationEngine_UnresolvedConditionInvalidatesChain(t *testing.T) {
	rule := crashCorrelationRule()
	// Reference a capture only the related pattern can provide, then make
	// the related line not produce it.
	rule.Patterns.Related = `thread (?P<waiting_thread>\d+) waiting(?: on lock held by (?P<holder>\d+))?`

	lines := testLines(
		"crash in thread 12",
		"thread 7 waiting",
	)

	candidates, _ := correlate(t, rule, lines)
	assert.Empty(t, candidates, "chains with unresolved condition variables are invalid")
}
