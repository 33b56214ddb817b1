package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/google/grr-sub002/internal/api"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query assistant over HTTP",
		Long: `Start an HTTP server exposing the schema and the query assistant as
a JSON API.

Endpoints:
  GET  /healthz
  GET  /api/v1/schema
  GET  /api/v1/tables?prefix=&platform=
  GET  /api/v1/tables/{name}
  POST /api/v1/assist
  GET  /api/v1/events   (server-sent schema reloads)`,
		Example: `  # Serve on the default address
  osqhelper serve

  # Serve a custom schema and reload it on change
  osqhelper serve --addr 127.0.0.1:9000 --schema-path ./tables.json --watch`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Address to listen on (default: :8088)")
	cmd.Flags().Bool("watch", false, "Reload the schema file when it changes")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg

	server := api.NewServer(api.Config{
		Provider:      cmdCtx.Provider,
		Addr:          cfg.Serve.Addr,
		Watch:         cfg.Watch,
		SchemaVersion: cfg.SchemaVersion,
		SchemaPath:    cfg.SchemaPath,
		Logger:        cmdCtx.Logger,
	})

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Serving on %s, press Ctrl+C to stop\n", cfg.Serve.Addr)
	return server.Serve(cmd.Context())
}
