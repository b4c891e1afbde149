// Package core holds the shared data model of the matching engine: rule
// definitions as they arrive from rule files, log lines as they arrive from
// the upstream reader, and the candidate/final match types that flow between
// the engine stages. It also provides the bounded worker pool used to run
// independent matching units in parallel.
package core
