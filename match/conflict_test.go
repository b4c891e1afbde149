package match

import (
	"testing"

	"loglens/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newResolver() *ConflictResolver {
	return NewConflictResolver(zap.NewNop().Sugar())
}

func TestConflictResolver_EmptyInput(t *testing.T) {
	assert.Nil(t, newResolver().Resolve(nil))
}

func TestConflictResolver_NonOverlappingPassThrough(t *testing.T) {
	finals := newResolver().Resolve([]core.MatchCandidate{
		{RuleID: "a", Severity: core.SeverityError, StartLine: 0, EndLine: 0, Weight: 0.5},
		{RuleID: "b", Severity: core.SeverityError, StartLine: 5, EndLine: 6, Weight: 0.9},
	})

	require.Len(t, finals, 2)
	assert.Equal(t, "a", finals[0].RuleID)
	assert.Equal(t, "b", finals[1].RuleID)
	assert.Empty(t, finals[0].GroupID, "unmerged matches carry no group id")
}

func TestConflictResolver_MergesSameRuleFamilyWithCompatibleCaptures(t *testing.T) {
	finals := newResolver().Resolve([]core.MatchCandidate{
		{
			RuleID: "stack", Severity: core.SeverityFatal,
			StartLine: 2, EndLine: 4, Weight: 0.7,
			Captures: map[string]string{"exception": "NullReferenceException"},
		},
		{
			RuleID: "stack", Severity: core.SeverityFatal,
			StartLine: 4, EndLine: 7, Weight: 0.9,
			Captures: map[string]string{"exception": "NullReferenceException", "method": "Game.Update"},
		},
	})

	require.Len(t, finals, 1)
	merged := finals[0]
	assert.Equal(t, [2]int{2, 7}, merged.LineRange, "merged range is the union")
	assert.Equal(t, 0.9, merged.Weight, "merged weight is the maximum")
	assert.Equal(t, "NullReferenceException", merged.Captures["exception"])
	assert.Equal(t, "Game.Update", merged.Captures["method"], "captures are unioned")
	assert.NotEmpty(t, merged.GroupID, "merged matches are tagged with a group id")
}

func TestConflictResolver_ContradictoryCapturesDoNotMerge(t *testing.T) {
	finals := newResolver().Resolve([]core.MatchCandidate{
		{
			RuleID: "stack", Severity: core.SeverityFatal,
			StartLine: 2, EndLine: 4, Weight: 0.7,
			Captures: map[string]string{"exception": "NullReferenceException"},
		},
		{
			RuleID: "stack", Severity: core.SeverityFatal,
			StartLine: 3, EndLine: 6, Weight: 0.6,
			Captures: map[string]string{"exception": "InvalidOperationException"},
		},
	})

	// Same family but disagreeing captures: they compete instead, and the
	// heavier one wins the overlap.
	require.Len(t, finals, 1)
	assert.Equal(t, "NullReferenceException", finals[0].Captures["exception"])
	assert.Empty(t, finals[0].GroupID)
}

func TestConflictResolver_HeavierCandidateWinsOverlap(t *testing.T) {
	finals := newResolver().Resolve([]core.MatchCandidate{
		{RuleID: "generic-error", Severity: core.SeverityError, StartLine: 10, EndLine: 10, Weight: 0.55},
		{RuleID: "oom-crash", Severity: core.SeverityFatal, StartLine: 9, EndLine: 12, Weight: 0.92},
	})

	require.Len(t, finals, 1)
	assert.Equal(t, "oom-crash", finals[0].RuleID)
}

func TestConflictResolver_WeightTieBreaksByStartThenRuleID(t *testing.T) {
	finals := newResolver().Resolve([]core.MatchCandidate{
		{RuleID: "zeta", Severity: core.SeverityError, StartLine: 0, EndLine: 2, Weight: 0.8},
		{RuleID: "alpha", Severity: core.SeverityError, StartLine: 0, EndLine: 2, Weight: 0.8},
	})

	require.Len(t, finals, 1)
	assert.Equal(t, "alpha", finals[0].RuleID, "ties break to the smallest rule id")
}

func TestConflictResolver_WinnerEliminationCascades(t *testing.T) {
	// b overlaps both a and c; a and c do not overlap each other. The
	// winner b eliminates both.
	finals := newResolver().Resolve([]core.MatchCandidate{
		{RuleID: "a", Severity: core.SeverityError, StartLine: 0, EndLine: 2, Weight: 0.5},
		{RuleID: "b", Severity: core.SeverityError, StartLine: 2, EndLine: 5, Weight: 0.9},
		{RuleID: "c", Severity: core.SeverityError, StartLine: 5, EndLine: 7, Weight: 0.6},
	})

	require.Len(t, finals, 1)
	assert.Equal(t, "b", finals[0].RuleID)
}

func TestConflictResolver_SurvivorsOutsideWinnerRangeRemain(t *testing.T) {
	finals := newResolver().Resolve([]core.MatchCandidate{
		{RuleID: "a", Severity: core.SeverityError, StartLine: 0, EndLine: 1, Weight: 0.5},
		{RuleID: "b", Severity: core.SeverityError, StartLine: 1, EndLine: 2, Weight: 0.9},
		{RuleID: "c", Severity: core.SeverityError, StartLine: 4, EndLine: 5, Weight: 0.4},
	})

	require.Len(t, finals, 2)
	assert.Equal(t, "b", finals[0].RuleID)
	assert.Equal(t, "c", finals[1].RuleID)
}

func TestConflictResolver_OutputSortedByStartLineThenRuleID(t *testing.T) {
	finals := newResolver().Resolve([]core.MatchCandidate{
		{RuleID: "late", Severity: core.SeverityError, StartLine: 20, EndLine: 21, Weight: 0.9},
		{RuleID: "early", Severity: core.SeverityError, StartLine: 1, EndLine: 2, Weight: 0.3},
	})

	require.Len(t, finals, 2)
	assert.Equal(t, "early", finals[0].RuleID)
	assert.Equal(t, "late", finals[1].RuleID)
}

func TestConflictResolver_DeterministicAcrossInputOrder(t *testing.T) {
	candidates := []core.MatchCandidate{
		{RuleID: "a", Severity: core.SeverityError, StartLine: 0, EndLine: 3, Weight: 0.7, Captures: map[string]string{"k": "1"}},
		{RuleID: "b", Severity: core.SeverityFatal, StartLine: 2, EndLine: 5, Weight: 0.7},
		{RuleID: "c", Severity: core.SeverityWarning, StartLine: 9, EndLine: 9, Weight: 0.2},
	}
	reversed := []core.MatchCandidate{candidates[2], candidates[1], candidates[0]}

	a := newResolver().Resolve(candidates)
	b := newResolver().Resolve(reversed)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].RuleID, b[i].RuleID)
		assert.Equal(t, a[i].LineRange, b[i].LineRange)
		assert.Equal(t, a[i].Weight, b[i].Weight)
	}
}
