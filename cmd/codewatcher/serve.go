package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/codewatcher/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP report rendering service",
		Long: `Serve starts an HTTP service that renders analysis results into reports.

Endpoints:
  GET  /api/v1/health
  POST /api/v1/reports/render?format=text|markdown|json

The render endpoint accepts the same payloads as 'codewatcher render'.

Examples:
  # Listen on the configured address (default 127.0.0.1:8080)
  codewatcher serve

  # Render a result over HTTP
  curl -s -X POST 'http://127.0.0.1:8080/api/v1/reports/render?format=markdown' \
    --data-binary @result.json`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", "",
		"Address to listen on (default: 127.0.0.1:8080)")
	cmd.Flags().Bool("access-log", true,
		"Write an access log line per request to stderr")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	listen, err := cmd.Flags().GetString("listen")
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.ListenAddress = listen
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithVersion(getVersion()),
		server.WithViewOptions(cfg.ViewOptions()...),
	}
	accessLog, err := cmd.Flags().GetBool("access-log")
	if err != nil {
		return err
	}
	if accessLog {
		opts = append(opts, server.WithAccessLog(cmd.ErrOrStderr()))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Render service listening on http://%s\n", cfg.ListenAddress)
	return server.New(cfg.ListenAddress, opts...).ListenAndServe(ctx)
}
