package match

import (
	"math"

	"loglens/core"
)

// FactorWeights are the exponents of the weighted-product combination. A
// factor with exponent zero is ignored entirely.
type FactorWeights struct {
	Base         float64
	Context      float64
	Completeness float64
	History      float64
	Priority     float64
}

// DefaultFactorWeights favors the producing engine's seed weight, with
// completeness as the strongest secondary signal.
func DefaultFactorWeights() FactorWeights {
	return FactorWeights{
		Base:         1.0,
		Context:      0.25,
		Completeness: 0.5,
		History:      0.25,
		Priority:     0.25,
	}
}

// WeightCalculator scores candidates. It is a pure function of the
// candidate and the session context; the historical-accuracy lookup is the
// only external read, and it is injected and read-only.
type WeightCalculator struct {
	contextSize int
	history     HistoryProvider
	weights     FactorWeights
}

// NewWeightCalculator creates a calculator. A nil history provider falls
// back to the neutral default ratio.
func NewWeightCalculator(contextSize int, history HistoryProvider, weights FactorWeights) *WeightCalculator {
	if history == nil {
		history = NoopHistory{}
	}
	return &WeightCalculator{contextSize: contextSize, history: history, weights: weights}
}

// Calculate combines the factor scores into a weight in [0,1]:
//
//	weight = base^wB * context^wX * completeness^wC * history^wH * priority^wP
//
// where every factor is itself in [0,1]. totalLines is the number of lines
// in the session input, used by the context-relevance factor.
func (w *WeightCalculator) Calculate(cand core.MatchCandidate, totalLines int) float64 {
	base := cand.RawWeight
	if base <= 0 {
		base = 0.5
	}
	if base > 1 {
		base = 1
	}

	product := math.Pow(base, w.weights.Base) *
		math.Pow(w.contextRelevance(cand, totalLines), w.weights.Context) *
		math.Pow(w.completeness(cand), w.weights.Completeness) *
		math.Pow(w.history.Accuracy(cand.RuleID), w.weights.History) *
		math.Pow(core.SeverityPriority(cand.Severity), w.weights.Priority)

	return clamp01(product)
}

// contextRelevance is the fraction of the declared context window around
// the match range that is adjacent real content. Matches at the very edge
// of the input have less corroborating context and score lower.
func (w *WeightCalculator) contextRelevance(cand core.MatchCandidate, totalLines int) float64 {
	if w.contextSize <= 0 || totalLines <= 0 {
		return 1
	}
	before := cand.StartLine
	if before > w.contextSize {
		before = w.contextSize
	}
	after := totalLines - 1 - cand.EndLine
	if after > w.contextSize {
		after = w.contextSize
	}
	if before < 0 {
		before = 0
	}
	if after < 0 {
		after = 0
	}
	return float64(before+after) / float64(2*w.contextSize)
}

func (w *WeightCalculator) completeness(cand core.MatchCandidate) float64 {
	if cand.SegmentsTotal <= 0 {
		return 1
	}
	return float64(cand.SegmentsMatched) / float64(cand.SegmentsTotal)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
