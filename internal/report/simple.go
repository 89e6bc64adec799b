package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/codewatcher/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showAll lists every finding instead of the view's preview.
	showAll bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowAll makes the writer list every finding of the result rather than
// the bounded preview carried by the view.
func WithShowAll(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showAll = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *Report) (int, error) {
	return io.WriteString(w.output, w.Render(report))
}

// Render returns the text the writer would output for report.
func (w *SimpleWriter) Render(report *Report) string {
	var sb strings.Builder
	view := report.View

	w.writeHeader(&sb, report)
	if view == nil || view.Loading {
		msg := model.LoadingMessage
		if view != nil && view.Message != "" {
			msg = view.Message
		}
		sb.WriteString(msg)
		sb.WriteString("\n")
		return sb.String()
	}

	w.writeScore(&sb, view.Score)
	w.writeStaticAnalysis(&sb, report)
	w.writeSecurity(&sb, report)
	w.writeSuggestions(&sb, view.Suggestions)
	w.writeFooter(&sb)
	return sb.String()
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *Report) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                      CODEWATCHER ANALYSIS REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	if label := repoLabel(report); label != "" {
		fmt.Fprintf(sb, "Repository: %s\n", label)
	}
	if !report.AnalyzedAt.IsZero() {
		fmt.Fprintf(sb, "Analyzed:   %s\n", report.AnalyzedAt.Format(timestampLayout))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeScore(sb *strings.Builder, score *model.ScoreBanner) {
	if score == nil {
		return
	}
	fmt.Fprintf(sb, "[%s] Overall Score: %d/%d (%s)\n\n",
		statusIndicator(score.Status), score.Value, score.Max, score.Label)
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(strings.ToUpper(title))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeStaticAnalysis(sb *strings.Builder, report *Report) {
	section := report.View.StaticAnalysis
	if section == nil {
		return
	}
	w.writeSection(sb, section.Title)

	if section.Clean {
		fmt.Fprintf(sb, "  [%s] %s\n\n", statusIndicator(model.StatusSuccess), section.SuccessMessage)
		return
	}

	if section.Errors != nil {
		items := section.Errors.Items
		if w.showAll && report.Result != nil {
			items = allIssueItems(report.Result.StaticAnalysis.Errors)
		}
		w.writeAlert(sb, section.Errors, items)
	}
	if section.Warnings != nil {
		items := section.Warnings.Items
		if w.showAll && report.Result != nil {
			items = allIssueItems(report.Result.StaticAnalysis.Warnings)
		}
		w.writeAlert(sb, section.Warnings, items)
	}
}

func (w *SimpleWriter) writeSecurity(sb *strings.Builder, report *Report) {
	section := report.View.Security
	if section == nil {
		return
	}
	w.writeSection(sb, section.Title)

	if section.Clean {
		fmt.Fprintf(sb, "  [%s] %s\n\n", statusIndicator(model.StatusSuccess), section.SuccessMessage)
	} else {
		items := section.Secrets.Items
		if w.showAll && report.Result != nil {
			items = allSecretItems(report.Result.Security.Secrets)
		}
		w.writeAlert(sb, section.Secrets, items)
	}

	if len(section.Vulnerabilities) > 0 {
		fmt.Fprintf(sb, "  [%s] %d vulnerability record(s)\n", statusIndicator(model.StatusInfo), len(section.Vulnerabilities))
		for _, v := range section.Vulnerabilities {
			fmt.Fprintf(sb, "    * %s - %s\n", v.Secondary, v.Primary)
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeAlert(sb *strings.Builder, alert *model.Alert, items []model.PreviewItem) {
	fmt.Fprintf(sb, "  [%s] %s\n", statusIndicator(alert.Status), alert.Header)
	for _, item := range items {
		fmt.Fprintf(sb, "    * %s\n", item.Primary)
		if item.Secondary != "" {
			fmt.Fprintf(sb, "      %s\n", item.Secondary)
		}
	}
	if hidden := alert.Total - len(items); hidden > 0 {
		fmt.Fprintf(sb, "    ... and %d more\n", hidden)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSuggestions(sb *strings.Builder, section *model.SuggestionsSection) {
	if section == nil {
		return
	}
	w.writeSection(sb, section.Title)
	for _, s := range section.Items {
		fmt.Fprintf(sb, "  - %s\n", s)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("This report is automatically generated by CodeWatcher\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

// statusIndicator returns a short ASCII marker for a status.
func statusIndicator(s model.Status) string {
	switch s {
	case model.StatusSuccess:
		return "OK"
	case model.StatusWarning:
		return "!"
	case model.StatusError:
		return "!!"
	case model.StatusInfo:
		return "i"
	default:
		return "?"
	}
}

func allIssueItems(issues []model.AnalysisIssue) []model.PreviewItem {
	view := model.BuildView(&model.AnalysisResult{
		StaticAnalysis: model.StaticAnalysis{Errors: issues},
	}, model.WithIssuePreviewLimit(max(len(issues), 1)))
	if view.StaticAnalysis.Errors == nil {
		return nil
	}
	return view.StaticAnalysis.Errors.Items
}

func allSecretItems(secrets []model.SecurityIssue) []model.PreviewItem {
	view := model.BuildView(&model.AnalysisResult{
		Security: model.Security{Secrets: secrets},
	}, model.WithSecretPreviewLimit(max(len(secrets), 1)))
	if view.Security.Secrets == nil {
		return nil
	}
	return view.Security.Secrets.Items
}
