package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"loglens/bootstrap"
	"loglens/core"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// newMatchCmd creates the 'match' subcommand.
func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <rules-file> <log-file>",
		Short: "Match rules against a log file",
		Long: `Compile the given rule file and evaluate it against the log file.
Matches are printed in line order with their severity, weight, and captured
values. Use '-' as the log file to read from stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.NewApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			if _, _, err := app.LoadRuleFile(args[0]); err != nil {
				return err
			}

			raw, err := readLogLines(args[1])
			if err != nil {
				return fmt.Errorf("failed to read log file: %w", err)
			}
			lines := core.NormalizeLines(core.LinesFromStrings(raw), core.DefaultFilterPrefixes)

			var s *spinner.Spinner
			if !quiet && !outputJSON {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = fmt.Sprintf(" Matching %d lines...", len(lines))
				s.Start()
			}

			result, err := app.Matcher.Match(context.Background(), lines)
			if s != nil {
				s.Stop()
			}
			if err != nil {
				return err
			}

			if outputJSON {
				return outputAsJSON(result)
			}

			renderResult(result)
			if len(result.Matches) > 0 && hasFatal(result) {
				os.Exit(2)
			}
			return nil
		},
	}
	return cmd
}

// readLogLines reads a log file line by line, or stdin when the filename is
// "-".
func readLogLines(filename string) ([]string, error) {
	var file *os.File
	if filename == "-" {
		file = os.Stdin
	} else {
		f, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		file = f
	}

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
