package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/codewatcher/internal/config"
	"github.com/nao1215/codewatcher/internal/report"
	"github.com/nao1215/codewatcher/internal/schema"
	"github.com/nao1215/codewatcher/internal/watch"
)

// NewRenderCmd creates the render command.
func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a saved analysis result as a report",
		Long: `Render reads an analysis result produced by the CodeWatcher backend, or a
JSON report written by 'codewatcher analyze --json', and prints the report.

Both bare results and results wrapped as {"success", "repo_url", "branch",
"results"} are accepted. Fields that do not match the expected shape are
reported as warnings and replaced with empty values.

Examples:
  # Render a saved result
  codewatcher render result.json

  # Read from standard input
  curl -s -X POST http://localhost:8000/api/v1/analysis/analyze \
    -d '{"repo_url":"https://github.com/user/repo"}' | codewatcher render -

  # Render as Markdown and re-render whenever the file changes
  codewatcher render --markdown --watch result.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRenderCmd,
	}

	cmd.Flags().BoolP("watch", "w", false,
		"Re-render the report whenever the file changes")
	addReportFlags(cmd)

	return cmd
}

// runRenderCmd executes the render command.
func runRenderCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}

	path := "-"
	if len(args) == 1 {
		path = args[0]
	}

	watchFile, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}
	if watchFile && path == "-" {
		return errors.New("--watch requires a file path")
	}

	if err := renderFile(cmd, cfg, path, logger); err != nil {
		return err
	}
	if !watchFile {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchAndRender(ctx, cmd, cfg, path, logger)
}

// renderFile decodes the result at path ("-" for stdin) and writes its report.
func renderFile(cmd *cobra.Command, cfg *config.Config, path string, logger *slog.Logger) error {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path) //nolint:gosec // User-provided result path is intentional
		if err != nil {
			return fmt.Errorf("failed to open result file: %w", err)
		}
		defer f.Close()
		r = f
	}

	env, err := schema.DecodeReader(r)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	env.LogWarnings(logger.With("file", path))

	rep := report.NewReport(env.RepoURL, env.Branch, env.Result, cfg.ViewOptions()...)
	return writeReport(cmd, cfg, rep)
}

// watchAndRender re-renders path after every change until ctx is canceled.
// Decode failures are reported and watching continues, since editors often
// save partial files.
func watchAndRender(ctx context.Context, cmd *cobra.Command, cfg *config.Config, path string, logger *slog.Logger) error {
	w, err := watch.NewFileWatcher(path, 0, func(string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n--- %s changed at %s ---\n\n", path, time.Now().Format(time.TimeOnly))
		if err := renderFile(cmd, cfg, path, logger); err != nil {
			logger.Warn("failed to re-render report", "file", path, "error", err)
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes (Ctrl-C to stop)\n", w.Path())
	return w.Run(ctx)
}
