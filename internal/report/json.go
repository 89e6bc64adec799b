package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/codewatcher/internal/model"
)

// JSONWriter outputs reports in JSON format.
// The document uses the backend's wrapper shape, so it can be fed back to
// "codewatcher render" or to the render service unchanged.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// version is recorded in the document when non-empty.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// WithVersion records the codewatcher version in the document.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	Version    string                `json:"version,omitempty"`
	Success    bool                  `json:"success"`
	RepoURL    string                `json:"repo_url,omitempty"`
	Branch     string                `json:"branch,omitempty"`
	AnalyzedAt *time.Time            `json:"analyzed_at,omitempty"`
	Results    *model.AnalysisResult `json:"results,omitempty"`
	Report     *model.ReportView     `json:"report"`
}

// NewJSONReport converts a Report into its JSON document form.
func NewJSONReport(report *Report, version string) *JSONReport {
	doc := &JSONReport{
		Version: version,
		Success: report.Result != nil,
		RepoURL: report.RepoURL,
		Branch:  report.Branch,
		Results: report.Result,
		Report:  report.View,
	}
	if !report.AnalyzedAt.IsZero() {
		at := report.AnalyzedAt
		doc.AnalyzedAt = &at
	}
	return doc
}

// Write outputs the report as a JSON document followed by a newline.
func (w *JSONWriter) Write(report *Report) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
