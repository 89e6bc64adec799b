package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/codewatcher/internal/model"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported format names.
var ErrUnknownFormat = errors.New("unknown report format")

// Format is an output format name.
type Format string

const (
	// FormatText is plain text for terminals.
	FormatText Format = "text"
	// FormatMarkdown is GitHub-flavored Markdown.
	FormatMarkdown Format = "markdown"
	// FormatJSON is a JSON document that can be decoded again by the schema package.
	FormatJSON Format = "json"
)

// ParseFormat converts a format name to a Format. The empty string maps to
// FormatText; "md" is accepted as an alias for markdown.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// ContentType returns the HTTP content type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Report is the input of every Writer.
type Report struct {
	// RepoURL and Branch identify the analyzed repository. Both may be empty
	// when rendering a stored result without metadata.
	RepoURL string
	Branch  string

	// AnalyzedAt is when the analysis finished. Zero means unknown.
	AnalyzedAt time.Time

	// Result is the normalized analysis result. Nil for a loading report.
	Result *model.AnalysisResult

	// View is the display model derived from Result.
	View *model.ReportView
}

// NewReport builds a Report for result, deriving its view with opts.
func NewReport(repoURL, branch string, result *model.AnalysisResult, opts ...model.ViewOption) *Report {
	normalized := result.Normalize()
	return &Report{
		RepoURL: repoURL,
		Branch:  branch,
		Result:  normalized,
		View:    model.BuildView(normalized, opts...),
	}
}

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *Report) (int, error)
}

// New returns the writer for format, writing to output.
func New(format Format, output io.Writer, version string) (Writer, error) {
	switch format {
	case FormatText:
		return NewSimpleWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// repoLabel returns "url (branch)", "url", or "" depending on what is known.
func repoLabel(r *Report) string {
	switch {
	case r.RepoURL == "":
		return ""
	case r.Branch == "":
		return r.RepoURL
	default:
		return fmt.Sprintf("%s (%s)", r.RepoURL, r.Branch)
	}
}

const timestampLayout = "2006-01-02 15:04:05 MST"
