package model

import (
	"fmt"
	"strings"
)

// Score bounds. Scores outside this range are clamped.
const (
	MinScore = 0
	MaxScore = 100
)

// AnalysisIssue is a single static-analysis finding.
type AnalysisIssue struct {
	// File is the path of the file, relative to the repository root.
	File string `json:"file"`

	// Line is the 1-based line number of the finding.
	Line int `json:"line"`

	// Message is the human-readable description reported by the analyzer.
	Message string `json:"message"`

	// Code is the analyzer rule code (e.g. "E0602", "F401"). Optional.
	Code string `json:"code,omitempty"`

	// Severity is an optional analyzer-specific severity string.
	Severity string `json:"severity,omitempty"`
}

// Location returns "file:line", or just the file when the line is unknown.
func (i AnalysisIssue) Location() string {
	return formatLocation(i.File, i.Line)
}

// SecurityIssue is a hardcoded secret detected by the security scanner.
type SecurityIssue struct {
	// File is the path of the file containing the secret.
	File string `json:"file"`

	// Line is the 1-based line number of the match.
	Line int `json:"line"`

	// Pattern is the name of the rule that matched (e.g. "api_key").
	Pattern string `json:"pattern"`

	// Severity is the risk level assigned by the scanner.
	Severity SecuritySeverity `json:"severity"`
}

// Location returns "file:line", or just the file when the line is unknown.
func (s SecurityIssue) Location() string {
	return formatLocation(s.File, s.Line)
}

// Vulnerability is an opaque vulnerability record. The backend does not
// define a fixed shape, so every key is preserved. Severity and Description
// surface the two keys that are rendered when present.
type Vulnerability map[string]any

// Severity returns the "severity" key as a string, or "" if absent.
func (v Vulnerability) Severity() string {
	return v.stringField("severity")
}

// Description returns the "description" key as a string, or "" if absent.
func (v Vulnerability) Description() string {
	return v.stringField("description")
}

func (v Vulnerability) stringField(key string) string {
	raw, ok := v[key]
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

// StaticAnalysis groups static-analysis findings.
type StaticAnalysis struct {
	Errors   []AnalysisIssue `json:"errors"`
	Warnings []AnalysisIssue `json:"warnings"`
}

// Security groups security findings.
type Security struct {
	Secrets         []SecurityIssue `json:"secrets"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

// AnalysisResult is the result of one repository analysis.
// A result is treated as immutable once produced; use Normalize to obtain
// a copy that satisfies the score and empty-collection invariants.
type AnalysisResult struct {
	// Score is the overall quality score in [MinScore, MaxScore].
	Score int `json:"score"`

	// StaticAnalysis holds lint errors and warnings.
	StaticAnalysis StaticAnalysis `json:"static_analysis"`

	// Security holds detected secrets and vulnerability records.
	Security Security `json:"security"`

	// Suggestions are free-text improvement hints in display order.
	Suggestions []string `json:"suggestions"`
}

// Normalize returns a copy of r with the score clamped and every absent
// collection replaced by an empty one. A nil receiver yields an empty result.
// The returned result shares no slices with r.
func (r *AnalysisResult) Normalize() *AnalysisResult {
	if r == nil {
		return &AnalysisResult{
			StaticAnalysis: StaticAnalysis{Errors: []AnalysisIssue{}, Warnings: []AnalysisIssue{}},
			Security:       Security{Secrets: []SecurityIssue{}, Vulnerabilities: []Vulnerability{}},
			Suggestions:    []string{},
		}
	}

	return &AnalysisResult{
		Score: ClampScore(r.Score),
		StaticAnalysis: StaticAnalysis{
			Errors:   cloneSlice(r.StaticAnalysis.Errors),
			Warnings: cloneSlice(r.StaticAnalysis.Warnings),
		},
		Security: Security{
			Secrets:         cloneSlice(r.Security.Secrets),
			Vulnerabilities: cloneSlice(r.Security.Vulnerabilities),
		},
		Suggestions: cloneSlice(r.Suggestions),
	}
}

// Summary returns the headline numbers of the result.
func (r *AnalysisResult) Summary() Summary {
	n := r.Normalize()
	return Summary{
		Score:              n.Score,
		Tier:               Classify(n.Score),
		ErrorCount:         len(n.StaticAnalysis.Errors),
		WarningCount:       len(n.StaticAnalysis.Warnings),
		SecretCount:        len(n.Security.Secrets),
		VulnerabilityCount: len(n.Security.Vulnerabilities),
		SuggestionCount:    len(n.Suggestions),
	}
}

// Summary holds the counts used for history listings and comparisons.
type Summary struct {
	Score              int  `json:"score"`
	Tier               Tier `json:"tier"`
	ErrorCount         int  `json:"error_count"`
	WarningCount       int  `json:"warning_count"`
	SecretCount        int  `json:"secret_count"`
	VulnerabilityCount int  `json:"vulnerability_count"`
	SuggestionCount    int  `json:"suggestion_count"`
}

// TotalIssues returns the number of findings of every kind.
func (s Summary) TotalIssues() int {
	return s.ErrorCount + s.WarningCount + s.SecretCount + s.VulnerabilityCount
}

// ClampScore bounds score to [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// cloneSlice copies s into a new non-nil slice.
func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func formatLocation(file string, line int) string {
	file = strings.TrimSpace(file)
	if file == "" {
		file = "unknown"
	}
	if line <= 0 {
		return file
	}
	return fmt.Sprintf("%s:%d", file, line)
}
