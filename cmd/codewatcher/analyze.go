package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/codewatcher/internal/batch"
	"github.com/nao1215/codewatcher/internal/client"
	"github.com/nao1215/codewatcher/internal/config"
	"github.com/nao1215/codewatcher/internal/database"
	"github.com/nao1215/codewatcher/internal/model"
	"github.com/nao1215/codewatcher/internal/report"
	"github.com/nao1215/codewatcher/internal/session"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [repository-url...]",
		Short: "Analyze repositories and print the review reports",
		Long: `Analyze asks the CodeWatcher backend to analyze Git repositories and prints
the review reports.

The report contains:
- An overall score from 0 to 100 (excellent, good, or needs improvement)
- Static analysis errors and warnings
- Hardcoded secrets and dependency vulnerabilities
- Suggestions for improvement

Several repositories are analyzed concurrently; their reports are printed
in the order given. --all adds every repository listed in the
configuration file. Each successful analysis is saved to the history
database unless --no-save is given.

Examples:
  # Analyze the default branch
  codewatcher analyze https://github.com/user/repo

  # Analyze another branch
  codewatcher analyze --branch develop https://github.com/user/repo

  # Write a Markdown report to a file
  codewatcher analyze --markdown -o report.md https://github.com/user/repo

  # Analyze every configured repository, two at a time
  codewatcher analyze --all --concurrency 2

  # Use another backend
  codewatcher analyze --server https://codewatcher.example.com https://github.com/user/repo`,
		Args: cobra.ArbitraryArgs,
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().StringP("branch", "b", "",
		"Branch to analyze (default: configured branch, usually main)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Maximum time to wait for each analysis")
	cmd.Flags().BoolP("all", "a", false,
		"Also analyze every repository listed in the configuration file")
	cmd.Flags().IntP("concurrency", "p", batch.DefaultConcurrency,
		"Maximum number of concurrent analyses")
	cmd.Flags().Bool("no-save", false,
		"Do not record analyses in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	addReportFlags(cmd)

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	if len(args) == 0 && !all {
		return errors.New("repository URL is required (use --all to analyze configured repositories)")
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}
	if err := applyDBDirFlag(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("timeout") {
		if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
			return err
		}
	}
	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return err
	}
	if noSave {
		cfg.SaveToDB = false
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}

	repoURLs := args
	if all {
		repoURLs = append(repoURLs, cfg.RepositoryURLs()...)
	}
	jobs, err := buildJobs(cmd, cfg, repoURLs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case len(jobs) == 0:
		return errors.New("no repositories to analyze (add them under 'repositories' in the configuration file)")
	case len(jobs) == 1:
		return runAnalyze(ctx, cmd, cfg, jobs[0], logger)
	case cfg.ReportFile != "":
		return errors.New("--output cannot be used when analyzing several repositories")
	default:
		return runBatch(ctx, cmd, cfg, jobs, concurrency, logger)
	}
}

// buildJobs resolves branch and timeout for each repository. Duplicates
// are dropped, keeping the first occurrence.
func buildJobs(cmd *cobra.Command, cfg *config.Config, repoURLs []string) ([]batch.Job, error) {
	branch, err := cmd.Flags().GetString("branch")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(repoURLs))
	jobs := make([]batch.Job, 0, len(repoURLs))
	for _, repoURL := range repoURLs {
		if seen[repoURL] {
			continue
		}
		seen[repoURL] = true

		rc := cfg.RepositoryConfig(repoURL)
		if cmd.Flags().Changed("branch") {
			rc.Branch = branch
		}
		// An explicit --timeout wins over per-repository overrides.
		if cmd.Flags().Changed("timeout") {
			rc.Timeout = cfg.Timeout
		}
		jobs = append(jobs, batch.Job{RepoURL: repoURL, Branch: rc.Branch, Timeout: rc.Timeout})
	}
	return jobs, nil
}

// newSession creates a session with its own backend client for job.
func newSession(cfg *config.Config, job batch.Job, logger *slog.Logger) (*session.Session, error) {
	c, err := client.New(cfg.ServerURL,
		client.WithTimeout(job.Timeout),
		client.WithLogger(logger),
		client.WithUserAgent(cfg.UserAgent),
		client.WithToken(cfg.Token),
	)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return session.New(c, session.WithLogger(logger))
}

// runAnalyze runs one analysis through a session and reports the result.
func runAnalyze(ctx context.Context, cmd *cobra.Command, cfg *config.Config, job batch.Job, logger *slog.Logger) error {
	s, err := newSession(cfg, job, logger)
	if err != nil {
		return err
	}

	logger.Info("starting analysis", "repo_url", job.RepoURL, "branch", job.Branch, "server", cfg.ServerURL)
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", model.LoadingMessage, job.RepoURL)

	res, err := s.Submit(ctx, job.RepoURL, job.Branch)
	if err != nil {
		logger.Debug("analysis failed", "repo_url", job.RepoURL, "error", err)
		return &userError{message: session.UserMessage(err), err: err}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Analysis completed in %s\n\n", res.Duration.Round(time.Millisecond))

	return reportAnalysis(ctx, cmd, cfg, res, s.Snapshot().FinishedAt, logger)
}

// runBatch analyzes several repositories concurrently and prints their
// reports in job order.
func runBatch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, jobs []batch.Job, concurrency int, logger *slog.Logger) error {
	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "%s %d repositories\n", model.LoadingMessage, len(jobs))

	p := batch.NewProcessor(func(job batch.Job) (*session.Session, error) {
		return newSession(cfg, job, logger)
	}, batch.WithConcurrency(concurrency), batch.WithLogger(logger))

	outcomes, err := p.Run(ctx, jobs)
	if err != nil {
		return &userError{message: session.UserMessage(err), err: err}
	}

	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
			fmt.Fprintf(stderr, "%s: %s\n", o.Job.RepoURL, session.UserMessage(o.Err))
			continue
		}
		if err := reportAnalysis(ctx, cmd, cfg, o.Result, o.FinishedAt, logger); err != nil {
			return err
		}
	}

	fmt.Fprintf(stderr, "Analyzed %d of %d repositories\n", len(jobs)-failed, len(jobs))
	if failed > 0 {
		return &userError{
			message: fmt.Sprintf("%d of %d analyses failed", failed, len(jobs)),
			err:     client.ErrAnalysisFailed,
		}
	}
	return nil
}

// reportAnalysis writes the report for res and records it in history.
func reportAnalysis(ctx context.Context, cmd *cobra.Command, cfg *config.Config, res *client.Result, finishedAt time.Time, logger *slog.Logger) error {
	rep := report.NewReport(res.RepoURL, res.Branch, res.Result, cfg.ViewOptions()...)
	rep.AnalyzedAt = finishedAt

	if err := writeReport(cmd, cfg, rep); err != nil {
		return err
	}

	if cfg.SaveToDB {
		if err := saveAnalysis(ctx, cfg, rep, logger); err != nil {
			logger.Error("failed to save analysis", "repo_url", rep.RepoURL, "error", err)
		}
	}
	return nil
}

// saveAnalysis records rep in the history database.
func saveAnalysis(ctx context.Context, cfg *config.Config, rep *report.Report, logger *slog.Logger) error {
	db, err := openHistory(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.SaveAnalysis(ctx, &database.AnalysisRecord{
		RepoURL:   rep.RepoURL,
		Branch:    rep.Branch,
		Timestamp: rep.AnalyzedAt,
		Result:    rep.Result,
	})
	if err != nil {
		return err
	}

	logger.Info("analysis saved to history", "id", id, "repo_url", rep.RepoURL)
	return nil
}
