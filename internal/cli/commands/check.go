package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/google/grr-sub002/pkg/assist"
)

// ErrProblemsFound is returned by check when a diagnostic reaches the
// --fail-on severity.
var ErrProblemsFound = errors.New("problems found")

// CheckOptions holds options for the check command.
type CheckOptions struct {
	FailOn string
}

var failOnLevels = map[string]assist.Severity{
	"error":   assist.SeverityError,
	"warning": assist.SeverityWarning,
	"info":    assist.SeverityInfo,
	"hint":    assist.SeverityHint,
	"never":   0,
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check [query]",
		Short: "Check a query against the osquery schema",
		Long: `Check a query for unknown tables and columns, platform problems,
missing required constraints and unrecognized input.

The query is read from the arguments, or from stdin when none are given.`,
		Example: `  # Check a query for the default platform
  osqhelper check "SELECT pid, name FROM processes"

  # Check a query for Windows and print JSON
  osqhelper check -p windows -o json "SELECT * FROM kernel_modules"

  # Check a file, failing only on errors
  osqhelper check --fail-on error < query.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.FailOn, "fail-on", "warning", "Lowest severity that fails the check (error|warning|info|hint|never)")
	_ = cmd.RegisterFlagCompletionFunc("fail-on", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warning", "info", "hint", "never"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts *CheckOptions) error {
	failOn, ok := failOnLevels[strings.ToLower(opts.FailOn)]
	if !ok {
		return fmt.Errorf("unknown --fail-on level %q", opts.FailOn)
	}

	query, err := readQuery(cmd, args)
	if err != nil {
		return err
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	res, err := cmdCtx.Provider.Analyze(cmd.Context(), assist.Request{
		Text:   query,
		Cursor: len(query),
		Limit:  -1,
	})
	if err != nil {
		return err
	}
	cmdCtx.Logger.Debug("query checked",
		"tables", len(res.Resolution.Tables),
		"diagnostics", len(res.Diagnostics))

	if err := renderDiagnostics(cmdCtx.Renderer, res); err != nil {
		return err
	}

	if failOn == 0 {
		return nil
	}
	for _, d := range res.Diagnostics {
		if d.Severity <= failOn {
			return ErrProblemsFound
		}
	}
	return nil
}
