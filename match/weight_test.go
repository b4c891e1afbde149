package match

import (
	"testing"

	"loglens/core"

	"github.com/stretchr/testify/assert"
)

type fixedHistory float64

func (h fixedHistory) Accuracy(string) float64 { return float64(h) }

func midCandidate() core.MatchCandidate {
	return core.MatchCandidate{
		RuleID:          "r",
		Severity:        core.SeverityError,
		StartLine:       50,
		EndLine:         50,
		RawWeight:       0.8,
		SegmentsMatched: 1,
		SegmentsTotal:   1,
	}
}

func TestWeightCalculator_ResultAlwaysInUnitInterval(t *testing.T) {
	calc := NewWeightCalculator(5, NoopHistory{}, DefaultFactorWeights())

	cases := []core.MatchCandidate{
		midCandidate(),
		{RuleID: "zero", RawWeight: 0, SegmentsMatched: 0, SegmentsTotal: 3},
		{RuleID: "edge", RawWeight: 1, StartLine: 0, EndLine: 0, SegmentsMatched: 1, SegmentsTotal: 1, Severity: core.SeverityFatal},
		{RuleID: "over", RawWeight: 5, StartLine: 10, EndLine: 12, SegmentsMatched: 2, SegmentsTotal: 2},
	}
	for _, cand := range cases {
		w := calc.Calculate(cand, 100)
		assert.GreaterOrEqual(t, w, 0.0, "rule %s", cand.RuleID)
		assert.LessOrEqual(t, w, 1.0, "rule %s", cand.RuleID)
	}
}

func TestWeightCalculator_CompletenessLowersPartialMatches(t *testing.T) {
	calc := NewWeightCalculator(0, NoopHistory{}, DefaultFactorWeights())

	full := midCandidate()
	full.SegmentsMatched = 3
	full.SegmentsTotal = 3

	partial := midCandidate()
	partial.SegmentsMatched = 2
	partial.SegmentsTotal = 3

	assert.Greater(t, calc.Calculate(full, 100), calc.Calculate(partial, 100))
}

func TestWeightCalculator_EdgeOfInputLowersContextRelevance(t *testing.T) {
	calc := NewWeightCalculator(5, NoopHistory{}, DefaultFactorWeights())

	centered := midCandidate()
	atEdge := midCandidate()
	atEdge.StartLine = 0
	atEdge.EndLine = 0

	assert.Greater(t, calc.Calculate(centered, 100), calc.Calculate(atEdge, 100),
		"a match at the first line has no preceding context")
}

func TestWeightCalculator_HistoryShiftsWeight(t *testing.T) {
	trusted := NewWeightCalculator(0, fixedHistory(0.95), DefaultFactorWeights())
	noisy := NewWeightCalculator(0, fixedHistory(0.1), DefaultFactorWeights())

	cand := midCandidate()
	assert.Greater(t, trusted.Calculate(cand, 100), noisy.Calculate(cand, 100))
}

func TestWeightCalculator_SeverityPriorityShiftsWeight(t *testing.T) {
	calc := NewWeightCalculator(0, NoopHistory{}, DefaultFactorWeights())

	fatal := midCandidate()
	fatal.Severity = core.SeverityFatal
	warning := midCandidate()
	warning.Severity = core.SeverityWarning

	assert.Greater(t, calc.Calculate(fatal, 100), calc.Calculate(warning, 100))
}

func TestWeightCalculator_ZeroContextSizeIsNeutral(t *testing.T) {
	calc := NewWeightCalculator(0, NoopHistory{}, DefaultFactorWeights())

	atEdge := midCandidate()
	atEdge.StartLine = 0
	atEdge.EndLine = 0
	centered := midCandidate()

	assert.Equal(t, calc.Calculate(atEdge, 100), calc.Calculate(centered, 100),
		"with no context window configured, position does not matter")
}

func TestWeightCalculator_NilHistoryFallsBackToNeutral(t *testing.T) {
	withNil := NewWeightCalculator(0, nil, DefaultFactorWeights())
	withNoop := NewWeightCalculator(0, NoopHistory{}, DefaultFactorWeights())

	cand := midCandidate()
	assert.Equal(t, withNoop.Calculate(cand, 100), withNil.Calculate(cand, 100))
}
