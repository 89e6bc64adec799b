package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/codewatcher/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown, suitable for
// pull request comments. Unlike the text writer it lists every finding of
// the result, not only the preview.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("🤖 CodeWatcher AI Review Report")
	md.PlainText("")
	w.writeMetadata(md, report)

	view := report.View
	if view == nil || view.Loading {
		md.PlainText(model.LoadingMessage)
		return len(md.String()), md.Build()
	}

	result := report.Result.Normalize()
	w.writeScore(md, view.Score)
	w.writeSummary(md, result.Summary())
	w.writeStaticAnalysis(md, view.StaticAnalysis, result.StaticAnalysis)
	w.writeSecurity(md, view.Security, result.Security)
	w.writeSuggestions(md, view.Suggestions)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeMetadata(md *markdown.Markdown, report *Report) {
	var rows [][]string
	if report.RepoURL != "" {
		rows = append(rows, []string{"Repository", markdown.Code(report.RepoURL)})
	}
	if report.Branch != "" {
		rows = append(rows, []string{"Branch", markdown.Code(report.Branch)})
	}
	if !report.AnalyzedAt.IsZero() {
		rows = append(rows, []string{"Analyzed", report.AnalyzedAt.Format(timestampLayout)})
	}
	if len(rows) == 0 {
		return
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeScore(md *markdown.Markdown, score *model.ScoreBanner) {
	if score == nil {
		return
	}
	md.H2f("%s %s (%d/%d)", tierEmoji(score.Tier), score.Label, score.Value, score.Max)
	md.PlainText("")
}

// writeSummary writes the finding count table and, when there are findings,
// a mermaid pie chart of their distribution.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s model.Summary) {
	md.Table(markdown.TableSet{
		Header: []string{"Finding", "Count"},
		Rows: [][]string{
			{"❌ Errors", strconv.Itoa(s.ErrorCount)},
			{"⚠️ Warnings", strconv.Itoa(s.WarningCount)},
			{"🔑 Secrets", strconv.Itoa(s.SecretCount)},
			{"🚨 Vulnerabilities", strconv.Itoa(s.VulnerabilityCount)},
			{markdown.Bold("Total"), markdown.Bold(strconv.Itoa(s.TotalIssues()))},
		},
	})
	md.PlainText("")

	if s.TotalIssues() == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Distribution"),
		piechart.WithShowData(true),
	)
	for _, slice := range []struct {
		label string
		count int
	}{
		{"Errors", s.ErrorCount},
		{"Warnings", s.WarningCount},
		{"Secrets", s.SecretCount},
		{"Vulnerabilities", s.VulnerabilityCount},
	} {
		if slice.count > 0 {
			chart.LabelAndIntValue(slice.label, uint64(slice.count))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeStaticAnalysis(md *markdown.Markdown, section *model.StaticAnalysisSection, sa model.StaticAnalysis) {
	if section == nil {
		return
	}
	md.H2("🔍 " + section.Title)
	md.PlainText("")

	if section.Clean {
		md.Tip(section.SuccessMessage)
		md.PlainText("")
		return
	}

	if section.Errors != nil {
		md.H3("❌ Errors")
		md.PlainText("")
		md.Caution(section.Errors.Header)
		md.PlainText("")
		md.BulletList(issueLines(sa.Errors)...)
		md.PlainText("")
	}
	if section.Warnings != nil {
		md.H3("⚠️ Warnings")
		md.PlainText("")
		md.Warning(section.Warnings.Header)
		md.PlainText("")
		md.BulletList(issueLines(sa.Warnings)...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeSecurity(md *markdown.Markdown, section *model.SecuritySection, sec model.Security) {
	if section == nil {
		return
	}
	md.H2("🔒 " + section.Title)
	md.PlainText("")

	if section.Clean {
		md.Tip(section.SuccessMessage)
		md.PlainText("")
	} else {
		md.Caution(section.Secrets.Header)
		md.PlainText("")
		lines := make([]string, 0, len(sec.Secrets))
		for _, s := range sec.Secrets {
			lines = append(lines, markdown.Bold(s.Location())+" - "+model.SecretDetectedMessage+
				" ("+markdown.Code(s.Pattern)+", "+s.Severity.String()+")")
		}
		md.BulletList(lines...)
		md.PlainText("")
	}

	if len(section.Vulnerabilities) > 0 {
		md.H3("🚨 Vulnerabilities")
		md.PlainText("")
		lines := make([]string, 0, len(section.Vulnerabilities))
		for _, v := range section.Vulnerabilities {
			lines = append(lines, markdown.Bold(v.Secondary)+" - "+v.Primary)
		}
		md.BulletList(lines...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeSuggestions(md *markdown.Markdown, section *model.SuggestionsSection) {
	if section == nil {
		return
	}
	md.H2("💡 " + section.Title)
	md.PlainText("")
	md.BulletList(section.Items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*This report is automatically generated by CodeWatcher AI*")
}

func issueLines(issues []model.AnalysisIssue) []string {
	lines := make([]string, 0, len(issues))
	for _, issue := range issues {
		line := markdown.Bold(issue.Location()) + " - " + issue.Message
		if issue.Code != "" {
			line += " (" + markdown.Code(issue.Code) + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

func tierEmoji(t model.Tier) string {
	switch t {
	case model.TierExcellent:
		return "✅"
	case model.TierGood:
		return "⚠️"
	default:
		return "❌"
	}
}
