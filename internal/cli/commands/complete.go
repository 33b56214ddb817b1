package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/google/grr-sub002/pkg/assist"
)

// CompleteOptions holds options for the complete command.
type CompleteOptions struct {
	Offset int
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand() *cobra.Command {
	opts := &CompleteOptions{}

	cmd := &cobra.Command{
		Use:   "complete [query]",
		Short: "Suggest completions at a cursor offset",
		Long: `Suggest tables, columns or keywords for the word at the cursor.

The cursor is a byte offset into the query and defaults to its end. The
query is read from the arguments, or from stdin when none are given.`,
		Example: `  # Complete a table name
  osqhelper complete "SELECT * FROM proc"

  # Complete the column list of a query
  osqhelper complete --offset 9 "SELECT p. FROM processes p"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Offset, "offset", -1, "Cursor byte offset (default: end of query)")

	return cmd
}

func runComplete(cmd *cobra.Command, args []string, opts *CompleteOptions) error {
	query, err := readQuery(cmd, args)
	if err != nil {
		return err
	}

	cursor := len(query)
	if opts.Offset >= 0 {
		if opts.Offset > len(query) {
			return fmt.Errorf("offset %d is past the end of the query (%d bytes)", opts.Offset, len(query))
		}
		cursor = opts.Offset
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	res, err := cmdCtx.Provider.Analyze(cmd.Context(), assist.Request{Text: query, Cursor: cursor})
	if err != nil {
		return err
	}
	return renderSuggestions(cmdCtx.Renderer, res.Suggestions)
}
