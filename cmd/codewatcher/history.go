package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/codewatcher/internal/config"
	"github.com/nao1215/codewatcher/internal/database"
	"github.com/nao1215/codewatcher/internal/model"
	"github.com/nao1215/codewatcher/internal/report"
)

const historyDateLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [repository-url]",
		Short: "Show, re-render, and compare past analyses",
		Long: `History shows analyses recorded by 'codewatcher analyze'.

Examples:
  # List all analyzed repositories
  codewatcher history --list-repos

  # List past analyses of a repository, newest first
  codewatcher history https://github.com/user/repo

  # Re-render a stored analysis by ID
  codewatcher history --show 3f0c8a2e-...

  # Compare the two latest analyses of a repository
  codewatcher history --compare https://github.com/user/repo`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-repos", "L", false,
		"List all repositories in the history database")
	cmd.Flags().String("show", "",
		"Re-render the stored analysis with this ID")
	cmd.Flags().Bool("compare", false,
		"Compare the two latest analyses of the repository")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	addReportFlags(cmd)

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listRepos, err := cmd.Flags().GetBool("list-repos")
	if err != nil {
		return err
	}
	showID, err := cmd.Flags().GetString("show")
	if err != nil {
		return err
	}
	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	if !listRepos && showID == "" && len(args) == 0 {
		return errors.New("repository URL is required (use --list-repos to see analyzed repositories)")
	}
	if compare && len(args) == 0 {
		return errors.New("--compare requires a repository URL")
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
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	db, err := openHistory(cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case listRepos:
		return listRepositories(ctx, out, db)
	case showID != "":
		return showAnalysis(ctx, cmd, cfg, db, showID)
	case compare:
		return compareLatest(ctx, out, cfg, db, args[0])
	default:
		return listHistory(ctx, out, db, args[0])
	}
}

// listRepositories prints every repository with recorded analyses.
func listRepositories(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	repos, err := db.ListRepositories(ctx)
	if err != nil {
		return err
	}

	if len(repos) == 0 {
		fmt.Fprintln(out, "No analyzed repositories found in the database.")
		fmt.Fprintln(out, "\nUse 'codewatcher analyze <repository-url>' to analyze a repository.")
		return nil
	}

	fmt.Fprintf(out, "Analyzed repositories (%d):\n\n", len(repos))
	for _, r := range repos {
		fmt.Fprintf(out, "  • %s  (%d analyses, last %s)\n",
			r.RepoURL, r.AnalysisCount, r.LastAnalyzedAt.Local().Format(historyDateLayout))
	}
	fmt.Fprintln(out, "\nUse 'codewatcher history <repository-url>' to see the history of a repository.")
	return nil
}

// listHistory prints the analyses of repoURL, newest first.
func listHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, repoURL string) error {
	records, err := db.GetHistory(ctx, repoURL)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No analysis history found for %s\n", repoURL)
		fmt.Fprintln(out, "\nUse 'codewatcher analyze' to analyze this repository.")
		return nil
	}

	fmt.Fprintf(out, "Analysis history for %s (%d analyses):\n\n", repoURL, len(records))
	fmt.Fprintf(out, "  %-36s  %-19s  %-10s  %5s  %-17s  %s\n",
		"ID", "Date", "Branch", "Score", "Tier", "Findings")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 110))

	for _, rec := range records {
		fmt.Fprintf(out, "  %-36s  %-19s  %-10s  %5d  %-17s  %s\n",
			rec.ID,
			rec.Timestamp.Local().Format(historyDateLayout),
			orDash(rec.Branch),
			rec.Summary.Score,
			rec.Summary.Tier.String(),
			formatFindings(rec.Summary),
		)
	}

	fmt.Fprintln(out, "\nUse 'codewatcher history --show <id>' to re-render an analysis.")
	fmt.Fprintln(out, "Use 'codewatcher history --compare <repository-url>' to compare the latest two analyses.")
	return nil
}

// formatFindings summarizes finding counts as "E:2 W:1 S:1 V:0".
func formatFindings(s model.Summary) string {
	if s.TotalIssues() == 0 {
		return "No findings"
	}
	return fmt.Sprintf("E:%d W:%d S:%d V:%d",
		s.ErrorCount, s.WarningCount, s.SecretCount, s.VulnerabilityCount)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// showAnalysis re-renders a stored analysis.
func showAnalysis(ctx context.Context, cmd *cobra.Command, cfg *config.Config, db *database.HistoryDB, id string) error {
	rec, err := db.GetAnalysisByID(ctx, id)
	if err != nil {
		return err
	}

	rep := report.NewReport(rec.RepoURL, rec.Branch, rec.Result, cfg.ViewOptions()...)
	rep.AnalyzedAt = rec.Timestamp
	return writeReport(cmd, cfg, rep)
}

// historyComparison is the JSON form of a comparison.
type historyComparison struct {
	RepoURL    string    `json:"repo_url"`
	PreviousID string    `json:"previous_id"`
	CurrentID  string    `json:"current_id"`
	PreviousAt time.Time `json:"previous_at"`
	CurrentAt  time.Time `json:"current_at"`
	model.Comparison
}

// compareLatest compares the two latest analyses of repoURL.
func compareLatest(ctx context.Context, out io.Writer, cfg *config.Config, db *database.HistoryDB, repoURL string) error {
	records, err := db.GetLatestAnalyses(ctx, repoURL, 2)
	if err != nil {
		return err
	}
	if len(records) < 2 {
		return fmt.Errorf("at least two analyses of %s are required for comparison (found %d)", repoURL, len(records))
	}

	current, previous := records[0], records[1]
	result := historyComparison{
		RepoURL:    repoURL,
		PreviousID: previous.ID,
		CurrentID:  current.ID,
		PreviousAt: previous.Timestamp,
		CurrentAt:  current.Timestamp,
		Comparison: model.Compare(previous.Summary, current.Summary),
	}

	switch reportFormat(cfg) {
	case report.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case report.FormatMarkdown:
		return outputComparisonMarkdown(out, &result)
	default:
		outputComparisonText(out, &result)
		return nil
	}
}

// comparisonRows returns metric, previous, current, and change columns.
func comparisonRows(r *historyComparison) [][]string {
	p, c := r.Previous, r.Current
	return [][]string{
		{"Score", strconv.Itoa(p.Score), strconv.Itoa(c.Score), formatDelta(r.ScoreDelta)},
		{"Errors", strconv.Itoa(p.ErrorCount), strconv.Itoa(c.ErrorCount), formatDelta(r.ErrorDelta)},
		{"Warnings", strconv.Itoa(p.WarningCount), strconv.Itoa(c.WarningCount), formatDelta(r.WarningDelta)},
		{"Secrets", strconv.Itoa(p.SecretCount), strconv.Itoa(c.SecretCount), formatDelta(r.SecretDelta)},
		{"Vulnerabilities", strconv.Itoa(p.VulnerabilityCount), strconv.Itoa(c.VulnerabilityCount), formatDelta(r.VulnerabilityDelta)},
	}
}

// outputComparisonText outputs the comparison in human-readable text format.
func outputComparisonText(out io.Writer, r *historyComparison) {
	fmt.Fprintf(out, "Analysis Comparison: %s\n", r.RepoURL)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nStatus: %s\n", formatDirection(r.Direction))
	if r.TierChanged {
		fmt.Fprintf(out, "Tier:   %s -> %s\n", r.Previous.Tier.Label(), r.Current.Tier.Label())
	}

	fmt.Fprintf(out, "\nPrevious analysis: %s  (%s)\n", r.PreviousAt.Local().Format(historyDateLayout), r.PreviousID)
	fmt.Fprintf(out, "Current analysis:  %s  (%s)\n", r.CurrentAt.Local().Format(historyDateLayout), r.CurrentID)

	fmt.Fprintf(out, "\n  %-16s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 52))
	for _, row := range comparisonRows(r) {
		fmt.Fprintf(out, "  %-16s  %-10s  %-10s  %-10s\n", row[0], row[1], row[2], row[3])
	}
}

// outputComparisonMarkdown outputs the comparison in Markdown format.
func outputComparisonMarkdown(out io.Writer, r *historyComparison) error {
	md := markdown.NewMarkdown(out)
	md.H1f("Analysis Comparison: %s", r.RepoURL)
	md.PlainText("")
	md.PlainTextf("%s %s", markdown.Bold("Status:"), formatDirection(r.Direction))
	md.PlainText("")
	if r.TierChanged {
		md.PlainTextf("%s %s → %s", markdown.Bold("Tier:"), r.Previous.Tier.Label(), r.Current.Tier.Label())
		md.PlainText("")
	}

	rows := [][]string{
		{"Date", r.PreviousAt.Local().Format(historyDateLayout), r.CurrentAt.Local().Format(historyDateLayout), "-"},
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   append(rows, comparisonRows(r)...),
	})
	return md.Build()
}

// formatDirection formats the change direction for display.
func formatDirection(d model.Direction) string {
	switch d {
	case model.Improved:
		return "IMPROVED"
	case model.Worsened:
		return "WORSENED"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
