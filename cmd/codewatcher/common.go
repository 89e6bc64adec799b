package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/codewatcher/internal/config"
	"github.com/nao1215/codewatcher/internal/database"
	applog "github.com/nao1215/codewatcher/internal/log"
	"github.com/nao1215/codewatcher/internal/report"
)

// userError carries a short message for the terminal while keeping the
// underlying error for errors.Is and the logs.
type userError struct {
	message string
	err     error
}

func (e *userError) Error() string { return e.message }
func (e *userError) Unwrap() error { return e.err }

// lookupFlag finds a flag on the command or, if flags have not been merged
// yet, on the root's persistent flags.
func lookupFlag(cmd *cobra.Command, name string) string {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	if f := cmd.Root().PersistentFlags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return lookupFlag(cmd, "verbose") == "true"
}

// buildConfig creates a Config from defaults, the configuration file, the
// environment, and the global flags, in that order. Command-specific flags
// are applied by each command afterwards.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ConfigFilePath = lookupFlag(cmd, "config")

	// An explicitly named file must exist; otherwise a missing file means
	// defaults.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
		cfg.ConfigFilePath = configPath
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.ApplyEnv()

	if server := lookupFlag(cmd, "server"); server != "" {
		cfg.ServerURL = server
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// addReportFlags registers the report output flags shared by commands
// that print analysis reports.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("all-findings", false,
		"List every finding in text reports instead of a preview")
}

// applyReportFlags overrides the configured report format and destination
// with the flags the user set.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	jsonChanged := cmd.Flags().Changed("json")
	markdownChanged := cmd.Flags().Changed("markdown")
	if jsonChanged || markdownChanged {
		var err error
		if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
			return err
		}
		if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
			return err
		}
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output != "" {
		cfg.ReportFile = output
	}

	if cfg.ShowAllFindings, err = cmd.Flags().GetBool("all-findings"); err != nil {
		return err
	}
	return nil
}

// newReportWriter returns the writer for format, honoring --all-findings
// for text output.
func newReportWriter(cfg *config.Config, format report.Format, out io.Writer) (report.Writer, error) {
	if format == report.FormatText {
		return report.NewSimpleWriter(out, report.WithShowAll(cfg.ShowAllFindings)), nil
	}
	return report.New(format, out, getVersion())
}

// reportFormat returns the output format selected by the configuration.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}

// setupLogger creates a secure structured logger writing to stderr.
func setupLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	format, err := applog.ParseFormat(lookupFlag(cmd, "log-format"))
	if err != nil {
		return nil, err
	}
	return applog.New(cmd.ErrOrStderr(), applog.Options{Verbose: cfg.Verbose, Format: format}), nil
}

// writeReport writes rep in the configured format. With a report file the
// formatted report goes to the file and a text summary to stdout.
func writeReport(cmd *cobra.Command, cfg *config.Config, rep *report.Report) error {
	format := reportFormat(cfg)

	if cfg.ReportFile == "" {
		w, err := newReportWriter(cfg, format, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		_, err = w.Write(rep)
		return err
	}

	f, err := createReportFile(cfg.ReportFile)
	if err != nil {
		return err
	}
	if err := writeReportFile(cmd, cfg, rep, format, f); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", cfg.ReportFile)
	return nil
}

// writeReportFile writes rep to f and closes it. A failed close is
// reported so a truncated report does not pass silently.
func writeReportFile(cmd *cobra.Command, cfg *config.Config, rep *report.Report, format report.Format, f io.WriteCloser) (err error) {
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report file: %w", cerr)
		}
	}()

	fileWriter, err := newReportWriter(cfg, format, f)
	if err != nil {
		return err
	}

	writers := []report.Writer{fileWriter}
	if format != report.FormatText {
		writers = append(writers, report.NewSimpleWriter(cmd.OutOrStdout(), report.WithShowAll(cfg.ShowAllFindings)))
	}
	if _, err := report.NewMultiWriter(writers...).Write(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// createReportFile creates or truncates path with owner-only permissions,
// creating parent directories as needed.
func createReportFile(path string) (io.WriteCloser, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may reveal secret locations in the analyzed repository.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// applyDBDirFlag overrides the history directory when --db-dir is set.
func applyDBDirFlag(cmd *cobra.Command, cfg *config.Config) error {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dir != "" {
		cfg.DBDir = dir
	}
	return nil
}

// openHistory opens the history database. With mustExist, a missing
// database is reported instead of created.
func openHistory(cfg *config.Config, mustExist bool) (*database.HistoryDB, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = !mustExist

	db, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		if mustExist {
			if _, statErr := os.Stat(cfg.DBPath()); errors.Is(statErr, os.ErrNotExist) {
				return nil, errNoHistory
			}
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// errNoHistory is returned when no analysis has been recorded yet.
var errNoHistory = errors.New("no analysis history found (run 'codewatcher analyze' first)")
