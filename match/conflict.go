package match

import (
	"sort"

	"loglens/core"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConflictResolver reconciles overlapping interpretations of the same log
// region. Candidates of the same rule family with compatible captures merge
// into one match covering their union; unrelated overlapping candidates
// compete, and only the heaviest survives. Resolution is deterministic for
// identical input ordering.
type ConflictResolver struct {
	logger *zap.SugaredLogger
}

// NewConflictResolver creates a ConflictResolver.
func NewConflictResolver(logger *zap.SugaredLogger) *ConflictResolver {
	return &ConflictResolver{logger: logger}
}

// resolved is a candidate or merged group moving through resolution.
type resolved struct {
	ruleID   string
	severity string
	weight   float64
	start    int
	end      int
	captures map[string]string
	groupID  string
	members  int
}

func (r resolved) overlaps(other resolved) bool {
	return r.start <= other.end && other.start <= r.end
}

// Resolve groups overlapping candidates, merges mergeable families, selects
// winners among the rest, and returns final matches. Candidate weights must
// already be normalized by the weight calculator.
func (c *ConflictResolver) Resolve(candidates []core.MatchCandidate) []core.FinalMatch {
	if len(candidates) == 0 {
		return nil
	}

	sorted := append([]core.MatchCandidate{}, candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartLine != sorted[j].StartLine {
			return sorted[i].StartLine < sorted[j].StartLine
		}
		if sorted[i].RuleID != sorted[j].RuleID {
			return sorted[i].RuleID < sorted[j].RuleID
		}
		return sorted[i].EndLine < sorted[j].EndLine
	})

	var finals []core.FinalMatch
	for _, cluster := range clusterOverlaps(sorted) {
		merged := c.mergeFamilies(cluster)
		for _, winner := range selectWinners(merged) {
			finals = append(finals, core.FinalMatch{
				RuleID:    winner.ruleID,
				Severity:  winner.severity,
				Weight:    winner.weight,
				LineRange: [2]int{winner.start, winner.end},
				Captures:  winner.captures,
				GroupID:   winner.groupID,
			})
		}
	}

	sort.Slice(finals, func(i, j int) bool {
		if finals[i].LineRange[0] != finals[j].LineRange[0] {
			return finals[i].LineRange[0] < finals[j].LineRange[0]
		}
		return finals[i].RuleID < finals[j].RuleID
	})
	return finals
}

// clusterOverlaps sweeps the sorted candidates into groups of transitively
// overlapping line ranges.
func clusterOverlaps(sorted []core.MatchCandidate) [][]core.MatchCandidate {
	var clusters [][]core.MatchCandidate
	var current []core.MatchCandidate
	clusterEnd := -1

	for _, cand := range sorted {
		if len(current) > 0 && cand.StartLine > clusterEnd {
			clusters = append(clusters, current)
			current = nil
			clusterEnd = -1
		}
		current = append(current, cand)
		if cand.EndLine > clusterEnd {
			clusterEnd = cand.EndLine
		}
	}
	if len(current) > 0 {
		clusters = append(clusters, current)
	}
	return clusters
}

// mergeFamilies collapses overlapping same-rule candidates with compatible
// captures into single entries. The cluster's candidates arrive sorted by
// (start, rule id, end).
func (c *ConflictResolver) mergeFamilies(cluster []core.MatchCandidate) []resolved {
	byRule := make(map[string][]core.MatchCandidate)
	var ruleOrder []string
	for _, cand := range cluster {
		if _, ok := byRule[cand.RuleID]; !ok {
			ruleOrder = append(ruleOrder, cand.RuleID)
		}
		byRule[cand.RuleID] = append(byRule[cand.RuleID], cand)
	}
	sort.Strings(ruleOrder)

	var out []resolved
	for _, ruleID := range ruleOrder {
		family := byRule[ruleID]
		var groups []resolved
		for _, cand := range family {
			mergedInto := -1
			for i := range groups {
				if groups[i].start <= cand.EndLine && cand.StartLine <= groups[i].end &&
					capturesCompatible(groups[i].captures, cand.Captures) {
					mergedInto = i
					break
				}
			}
			if mergedInto < 0 {
				groups = append(groups, resolved{
					ruleID:   cand.RuleID,
					severity: cand.Severity,
					weight:   cand.Weight,
					start:    cand.StartLine,
					end:      cand.EndLine,
					captures: copyCaptures(cand.Captures),
					members:  1,
				})
				continue
			}
			g := &groups[mergedInto]
			if cand.StartLine < g.start {
				g.start = cand.StartLine
			}
			if cand.EndLine > g.end {
				g.end = cand.EndLine
			}
			if cand.Weight > g.weight {
				g.weight = cand.Weight
			}
			// Candidates arrive in start order, so the incoming member
			// starts no earlier than the group and overrides on collision.
			for k, v := range cand.Captures {
				g.captures[k] = v
			}
			g.members++
		}
		for i := range groups {
			if groups[i].members > 1 {
				groups[i].groupID = uuid.NewString()
			}
			out = append(out, groups[i])
		}
	}
	return out
}

// capturesCompatible reports whether two capture sets agree on every shared
// key. Contradictory captures keep candidates apart even within a family.
func capturesCompatible(a, b map[string]string) bool {
	for k, av := range a {
		if bv, ok := b[k]; ok && av != bv {
			return false
		}
	}
	return true
}

// selectWinners picks the surviving entries among non-mergeable overlaps:
// highest weight first, ties broken by earliest start line then smallest
// rule id; everything a winner overlaps is discarded.
func selectWinners(entries []resolved) []resolved {
	remaining := append([]resolved{}, entries...)
	sort.Slice(remaining, func(i, j int) bool {
		if remaining[i].weight != remaining[j].weight {
			return remaining[i].weight > remaining[j].weight
		}
		if remaining[i].start != remaining[j].start {
			return remaining[i].start < remaining[j].start
		}
		return remaining[i].ruleID < remaining[j].ruleID
	})

	var winners []resolved
	for len(remaining) > 0 {
		winner := remaining[0]
		winners = append(winners, winner)
		var next []resolved
		for _, e := range remaining[1:] {
			if !e.overlaps(winner) {
				next = append(next, e)
			}
		}
		remaining = next
	}
	return winners
}

func copyCaptures(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
