package commands

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/google/grr-sub002/internal/lsp"
	"github.com/google/grr-sub002/internal/provider"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for editor integration.

The server communicates over stdin/stdout using JSON-RPC. Clients may set
the target platform with the "platform" initialization option. With --watch
and a schema_path the schema is reloaded when the file changes and open
documents are re-checked.`,
		Example: `  # Start LSP server (usually called by an editor)
  osqhelper lsp

  # Reload a custom schema on change
  osqhelper lsp --schema-path ./tables.json --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLSP(cmd, version)
		},
	}

	cmd.Flags().Bool("watch", false, "Reload the schema file when it changes")

	return cmd
}

func runLSP(cmd *cobra.Command, version string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg

	srv := lsp.NewServer(cmd.InOrStdin(), cmd.OutOrStdout(), cmdCtx.Provider, lsp.Options{
		Debounce: cfg.Debounce,
		Logger:   cmdCtx.Logger,
		Version:  version,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		// The watcher has nothing left to serve once the session ends.
		defer cancel()
		return srv.Run(egctx)
	})

	if cfg.Watch {
		if cfg.SchemaPath == "" {
			cmdCtx.Logger.Warn("watch requested without a schema path, nothing to watch")
		} else {
			eg.Go(func() error {
				return cmdCtx.Provider.Watch(egctx, cfg.SchemaVersion, cfg.SchemaPath, provider.DefaultReloadDelay, func(err error) {
					if err == nil {
						srv.Refresh()
					}
				})
			})
		}
	}

	return eg.Wait()
}
