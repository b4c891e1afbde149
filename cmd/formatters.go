package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"loglens/core"

	"github.com/fatih/color"
)

// CLI output formatters
var (
	fatalColor   = color.New(color.FgRed, color.Bold)
	errColor     = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen, color.Bold)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// outputAsJSON marshals v to indented JSON on stdout.
func outputAsJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func severityColor(severity string) *color.Color {
	switch severity {
	case core.SeverityFatal:
		return fatalColor
	case core.SeverityError:
		return errColor
	case core.SeverityWarning:
		return warnColor
	default:
		return infoColor
	}
}

// renderResult prints a match result in human-readable form.
func renderResult(result *core.MatchResult) {
	if len(result.Matches) == 0 {
		successColor.Println("No matches found")
	} else {
		headerColor.Printf("%d match(es):\n\n", len(result.Matches))
		for _, m := range result.Matches {
			lineRange := fmt.Sprintf("line %d", m.LineRange[0]+1)
			if m.LineRange[1] != m.LineRange[0] {
				lineRange = fmt.Sprintf("lines %d-%d", m.LineRange[0]+1, m.LineRange[1]+1)
			}
			severityColor(m.Severity).Printf("  [%s]", strings.ToUpper(m.Severity))
			fmt.Printf(" %s  %s  weight=%.2f", m.RuleID, lineRange, m.Weight)
			if m.GroupID != "" {
				fmt.Printf("  group=%s", m.GroupID[:8])
			}
			fmt.Println()
			if len(m.Captures) > 0 {
				keys := make([]string, 0, len(m.Captures))
				for k := range m.Captures {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("      %s = %s\n", k, m.Captures[k])
				}
			}
		}
	}

	if !quiet && len(result.Warnings) > 0 {
		fmt.Println()
		warnColor.Printf("%d warning(s):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			if w.RuleID != "" {
				fmt.Printf("  [%s] %s: %s\n", w.Code, w.RuleID, w.Message)
			} else {
				fmt.Printf("  [%s] %s\n", w.Code, w.Message)
			}
		}
	}

	if !quiet {
		fmt.Println()
		infoColor.Printf("Scanned %d lines, %d candidates (%d single-line, %d multi-line, %d correlation)\n",
			result.Stats.LinesScanned,
			result.Stats.SingleLineCandidates+result.Stats.MultiLineCandidates+result.Stats.CorrelationCandidates,
			result.Stats.SingleLineCandidates,
			result.Stats.MultiLineCandidates,
			result.Stats.CorrelationCandidates)
	}
}

// renderDiagnostics prints validate output.
func renderDiagnostics(validCount int, diags []core.Diagnostic) {
	if len(diags) == 0 {
		successColor.Printf("All %d rules valid\n", validCount)
		return
	}
	errColor.Printf("%d rule(s) rejected:\n", len(diags))
	for _, d := range diags {
		fmt.Printf("  %s: %s\n", d.RuleID, d.Message)
	}
	if validCount > 0 {
		infoColor.Printf("%d rule(s) compiled successfully\n", validCount)
	}
}

// hasFatal reports whether any final match carries fatal severity.
func hasFatal(result *core.MatchResult) bool {
	for _, m := range result.Matches {
		if m.Severity == core.SeverityFatal {
			return true
		}
	}
	return false
}
