package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/google/grr-sub002/pkg/schema"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the osqhelper version and the bundled osquery schema versions.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "osqhelper v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "osquery schemas: %s (default %s)\n",
				strings.Join(schema.BundledVersions(), ", "), schema.DefaultVersion)
		},
	}
}
