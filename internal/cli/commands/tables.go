package commands

import (
	"github.com/spf13/cobra"

	"github.com/google/grr-sub002/internal/cli/config"
	"github.com/google/grr-sub002/internal/cli/output"
	"github.com/google/grr-sub002/pkg/schema"
)

// TablesOptions holds options for the tables command.
type TablesOptions struct {
	All bool
}

// TableListing is the JSON form of one listed table.
type TableListing struct {
	Name        string             `json:"name"`
	Platforms   schema.PlatformSet `json:"platforms"`
	Evented     bool               `json:"evented,omitempty"`
	Columns     int                `json:"columns"`
	Description string             `json:"description,omitempty"`
}

// maxDescription is the widest description shown in table output.
const maxDescription = 60

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	opts := &TablesOptions{}

	cmd := &cobra.Command{
		Use:   "tables [prefix]",
		Short: "List osquery tables",
		Long: `List the tables of the schema whose names start with prefix.

Only tables available on the target platform are listed unless --all is set.`,
		Example: `  # Tables available on the configured platform
  osqhelper tables

  # Every process table on any platform, as JSON
  osqhelper tables --all -o json process`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeTableNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "List tables for every platform")

	return cmd
}

func runTables(cmd *cobra.Command, args []string, opts *TablesOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	var prefix string
	if len(args) > 0 {
		prefix = args[0]
	}
	platform := cmdCtx.Provider.Platform()
	if opts.All {
		platform = 0
	}
	return writeTables(cmdCtx.Renderer, cmdCtx.Provider.Index(), prefix, platform)
}

// writeTables lists the tables starting with prefix. A zero platform lists
// tables of every platform.
func writeTables(r *output.Renderer, idx *schema.Index, prefix string, platform schema.Platform) error {
	listing := []TableListing{}
	for _, name := range idx.PrefixSearch(prefix) {
		t, _ := idx.Table(name)
		if platform != 0 && !t.Platforms.Has(platform) {
			continue
		}
		listing = append(listing, TableListing{
			Name:        t.Name,
			Platforms:   t.Platforms,
			Evented:     t.Evented,
			Columns:     len(t.Columns),
			Description: t.Description,
		})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(listing)
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Header(1, "osquery "+idx.Version()+" tables")
	}
	if len(listing) == 0 {
		r.Println("No tables found")
		return nil
	}

	rows := make([][]any, len(listing))
	for i, t := range listing {
		evented := ""
		if t.Evented {
			evented = "yes"
		}
		rows[i] = []any{t.Name, output.PlatformLabel(t.Platforms), evented, t.Columns, truncate(t.Description, maxDescription)}
	}
	r.Table([]any{"Table", "Platforms", "Evented", "Columns", "Description"}, rows)
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// completeTableNames offers table names for shell completion.
func completeTableNames(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	idx, err := config.GetCurrentConfig().OpenIndex()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return idx.PrefixSearch(toComplete), cobra.ShellCompDirectiveNoFileComp
}
