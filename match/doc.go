// Package match implements the rule matching engine: it compiles
// error-detection rules into executable matchers and evaluates them against
// parsed log content, producing weighted, conflict-resolved matches.
//
// The pipeline runs in stages. The regex and multi-line engines produce
// match candidates over independent partitions of the rule set, the
// correlation engine links matched segments into causal chains, the weight
// calculator scores every candidate, and the conflict resolver reconciles
// overlapping interpretations of the same log region. The orchestrator
// coordinates the stages over a bounded worker pool and returns the final
// ordered result.
package match
