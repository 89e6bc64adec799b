package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/codewatcher/internal/client"
	"github.com/nao1215/codewatcher/internal/dashboard"
	"github.com/nao1215/codewatcher/internal/database"
	"github.com/nao1215/codewatcher/internal/session"
)

// skipDashboardEnv disables the interactive program, for tests.
const skipDashboardEnv = "CODEWATCHER_SKIP_DASHBOARD_RUN"

// NewDashboardCmd creates the dashboard command.
func NewDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Interactive terminal dashboard",
		Long: `Dashboard opens an interactive terminal UI with four tabs:

  Code Analysis  enter a repository URL and run an analysis
  Integrations   the GitHub webhook URL of the backend
  Security       (under development)
  Settings       the effective configuration

Use tab and shift+tab to switch tabs, enter to analyze, and esc or ctrl+c
to quit.`,
		Args: cobra.NoArgs,
		RunE: runDashboardCmd,
	}

	cmd.Flags().Bool("no-save", false,
		"Do not record analyses in the history database")

	return cmd
}

// runDashboardCmd executes the dashboard command.
func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return err
	}
	if noSave {
		cfg.SaveToDB = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	// The dashboard owns the terminal; only verbose runs may write logs to it.
	if !cfg.Verbose {
		logger = slog.New(slog.DiscardHandler)
	}

	c, err := client.New(cfg.ServerURL,
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(logger),
		client.WithUserAgent(cfg.UserAgent),
		client.WithToken(cfg.Token),
	)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	s, err := session.New(c, session.WithLogger(logger))
	if err != nil {
		return err
	}

	opts := []dashboard.Option{dashboard.WithLogger(logger)}
	if cfg.SaveToDB {
		opts = append(opts, dashboard.WithResultHook(func(ctx context.Context, res *client.Result) error {
			db, err := openHistory(cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()
			_, err = db.SaveAnalysis(ctx, &database.AnalysisRecord{
				RepoURL:   res.RepoURL,
				Branch:    res.Branch,
				Timestamp: time.Now(),
				Result:    res.Result,
			})
			return err
		}))
	}

	if os.Getenv(skipDashboardEnv) == "true" {
		return nil
	}
	return dashboard.Run(cmd.Context(), dashboard.New(cmd.Context(), s, cfg, opts...))
}
