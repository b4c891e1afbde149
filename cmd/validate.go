package cmd

import (
	"fmt"

	"loglens/bootstrap"
	"loglens/match"

	"github.com/spf13/cobra"
)

// newValidateCmd creates the 'validate' subcommand.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules-file>",
		Short: "Validate a rule file without matching",
		Long: `Load and compile the given rule file, reporting every rule that fails
validation or pattern compilation. Exits non-zero when any rule is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.NewApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			rules, err := match.LoadRules(args[0], app.Sugar)
			if err != nil {
				return err
			}

			compiled, diags := app.Matcher.LoadRules(rules)

			if outputJSON {
				return outputAsJSON(map[string]interface{}{
					"valid_rules": compiled.Len(),
					"rejected":    diags,
					"version":     compiled.Version,
				})
			}

			renderDiagnostics(compiled.Len(), diags)
			if len(diags) > 0 {
				return fmt.Errorf("%d of %d rules failed validation", len(diags), len(rules))
			}
			return nil
		},
	}
}
