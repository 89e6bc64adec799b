package model

import (
	"fmt"
	"strings"
)

// Preview limits used when no option overrides them.
const (
	IssuePreviewLimit  = 5
	SecretPreviewLimit = 3
)

// Section titles and fixed messages of the report view.
const (
	LoadingMessage         = "Analyzing..."
	ReportTitle            = "Code Analysis Report"
	StaticAnalysisTitle    = "Static Analysis Results"
	SecurityTitle          = "Security Check"
	SuggestionsTitle       = "Suggestions for Improvement"
	NoStaticIssuesMessage  = "No static analysis issues found"
	NoSecurityIssueMessage = "No security vulnerabilities found"
	SecretDetectedMessage  = "Hardcoded secret detected"
)

// ReportView is the structured, display-ready form of an AnalysisResult.
// Writers in internal/report render it; nothing in it needs further
// interpretation.
type ReportView struct {
	// Loading is true for the placeholder shown while a request is in flight.
	// When set, every other field is zero.
	Loading bool `json:"loading,omitempty"`

	// Message is the placeholder text for a loading view.
	Message string `json:"message,omitempty"`

	Score          *ScoreBanner           `json:"score,omitempty"`
	StaticAnalysis *StaticAnalysisSection `json:"static_analysis,omitempty"`
	Security       *SecuritySection       `json:"security,omitempty"`

	// Suggestions is nil when the result carries no suggestions.
	Suggestions *SuggestionsSection `json:"suggestions,omitempty"`
}

// ScoreBanner is the overall score with its classification.
type ScoreBanner struct {
	Value  int    `json:"value"`
	Max    int    `json:"max"`
	Tier   Tier   `json:"tier"`
	Label  string `json:"label"`
	Status Status `json:"status"`
}

// StaticAnalysisSection is either clean (one success indicator) or carries
// an alert for errors and/or warnings.
type StaticAnalysisSection struct {
	Title string `json:"title"`

	// Clean is true when there are neither errors nor warnings.
	Clean          bool   `json:"clean"`
	SuccessMessage string `json:"success_message,omitempty"`

	Errors   *Alert `json:"errors,omitempty"`
	Warnings *Alert `json:"warnings,omitempty"`
}

// SecuritySection reports secrets and carries vulnerability records.
// Clean depends on secrets alone.
type SecuritySection struct {
	Title string `json:"title"`

	Clean          bool   `json:"clean"`
	SuccessMessage string `json:"success_message,omitempty"`

	Secrets *Alert `json:"secrets,omitempty"`

	// Vulnerabilities lists every vulnerability record as informational
	// items. It does not affect Clean.
	Vulnerabilities []PreviewItem `json:"vulnerabilities,omitempty"`
}

// SuggestionsSection lists suggestions in their original order.
type SuggestionsSection struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// Alert is a counted list of findings of one kind with a bounded preview.
type Alert struct {
	Status Status `json:"status"`
	Header string `json:"header"`

	// Total is the number of findings, which may exceed len(Items).
	Total int           `json:"total"`
	Items []PreviewItem `json:"items"`
}

// Hidden returns how many findings were left out of the preview.
func (a *Alert) Hidden() int {
	if a == nil {
		return 0
	}
	return a.Total - len(a.Items)
}

// PreviewItem is one line of an alert: a primary text and a secondary
// location or detail text.
type PreviewItem struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// ViewOption customizes BuildView.
type ViewOption func(*viewOptions)

type viewOptions struct {
	issueLimit  int
	secretLimit int
}

// WithIssuePreviewLimit sets how many errors and warnings are previewed.
// Values below 1 are ignored.
func WithIssuePreviewLimit(n int) ViewOption {
	return func(o *viewOptions) {
		if n > 0 {
			o.issueLimit = n
		}
	}
}

// WithSecretPreviewLimit sets how many secrets are previewed.
// Values below 1 are ignored.
func WithSecretPreviewLimit(n int) ViewOption {
	return func(o *viewOptions) {
		if n > 0 {
			o.secretLimit = n
		}
	}
}

// LoadingView returns the placeholder view shown while analysis runs.
func LoadingView() *ReportView {
	return &ReportView{Loading: true, Message: LoadingMessage}
}

// BuildView turns result into a ReportView. It never fails: a nil or
// partial result is rendered as an empty one with a score of 0.
func BuildView(result *AnalysisResult, opts ...ViewOption) *ReportView {
	o := viewOptions{issueLimit: IssuePreviewLimit, secretLimit: SecretPreviewLimit}
	for _, opt := range opts {
		opt(&o)
	}

	r := result.Normalize()
	tier := Classify(r.Score)

	view := &ReportView{
		Score: &ScoreBanner{
			Value:  r.Score,
			Max:    MaxScore,
			Tier:   tier,
			Label:  tier.Label(),
			Status: tier.Status(),
		},
		StaticAnalysis: buildStaticSection(r.StaticAnalysis, o.issueLimit),
		Security:       buildSecuritySection(r.Security, o.secretLimit),
	}

	if len(r.Suggestions) > 0 {
		view.Suggestions = &SuggestionsSection{
			Title: SuggestionsTitle,
			Items: r.Suggestions,
		}
	}
	return view
}

func buildStaticSection(sa StaticAnalysis, limit int) *StaticAnalysisSection {
	section := &StaticAnalysisSection{Title: StaticAnalysisTitle}
	if len(sa.Errors) == 0 && len(sa.Warnings) == 0 {
		section.Clean = true
		section.SuccessMessage = NoStaticIssuesMessage
		return section
	}

	if len(sa.Errors) > 0 {
		section.Errors = &Alert{
			Status: StatusError,
			Header: fmt.Sprintf("%d error(s) found", len(sa.Errors)),
			Total:  len(sa.Errors),
			Items:  issueItems(sa.Errors, limit),
		}
	}
	if len(sa.Warnings) > 0 {
		section.Warnings = &Alert{
			Status: StatusWarning,
			Header: fmt.Sprintf("%d warning(s) found", len(sa.Warnings)),
			Total:  len(sa.Warnings),
			Items:  issueItems(sa.Warnings, limit),
		}
	}
	return section
}

func buildSecuritySection(sec Security, limit int) *SecuritySection {
	section := &SecuritySection{Title: SecurityTitle}
	if len(sec.Secrets) == 0 {
		section.Clean = true
		section.SuccessMessage = NoSecurityIssueMessage
	} else {
		items := make([]PreviewItem, 0, min(limit, len(sec.Secrets)))
		for _, s := range sec.Secrets[:min(limit, len(sec.Secrets))] {
			items = append(items, PreviewItem{
				Primary:   SecretDetectedMessage,
				Secondary: fmt.Sprintf("%s - %s", s.Location(), s.Pattern),
			})
		}
		section.Secrets = &Alert{
			Status: StatusError,
			Header: fmt.Sprintf("%d potential security issue(s) found", len(sec.Secrets)),
			Total:  len(sec.Secrets),
			Items:  items,
		}
	}

	for _, v := range sec.Vulnerabilities {
		section.Vulnerabilities = append(section.Vulnerabilities, vulnerabilityItem(v))
	}
	return section
}

func issueItems(issues []AnalysisIssue, limit int) []PreviewItem {
	n := min(limit, len(issues))
	items := make([]PreviewItem, 0, n)
	for _, issue := range issues[:n] {
		secondary := issue.Location()
		if issue.Code != "" {
			secondary += " " + issue.Code
		}
		items = append(items, PreviewItem{
			Primary:   issue.Message,
			Secondary: secondary,
		})
	}
	return items
}

func vulnerabilityItem(v Vulnerability) PreviewItem {
	severity := strings.ToUpper(v.Severity())
	if severity == "" {
		severity = strings.ToUpper(SeverityUnknown.String())
	}
	desc := v.Description()
	if desc == "" {
		desc = "No description provided"
	}
	return PreviewItem{Primary: desc, Secondary: severity}
}
