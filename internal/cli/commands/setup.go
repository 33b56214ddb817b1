package commands

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/google/grr-sub002/internal/cli/config"
	"github.com/google/grr-sub002/internal/cli/output"
	"github.com/google/grr-sub002/internal/provider"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Provider *provider.Provider
	Renderer *output.Renderer
}

// NewCommandContext loads the configured schema index and creates a
// provider and renderer around it.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetCurrentConfig()
	logger := config.GetLogger(cmd.Context())

	idx, err := cfg.OpenIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	logger.Debug("schema loaded", "version", idx.Version(), "tables", idx.Len())

	prov := provider.New(idx, provider.Options{
		Platform: cfg.TargetPlatform(),
		Limit:    cfg.Limit,
		Logger:   logger,
	})

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Provider: prov,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}, nil
}

// readQuery returns the query given as arguments, or stdin when there are
// none or the only argument is "-".
func readQuery(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && (len(args) != 1 || args[0] != "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read query from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
