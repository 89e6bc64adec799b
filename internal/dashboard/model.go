package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nao1215/codewatcher/internal/client"
	"github.com/nao1215/codewatcher/internal/config"
	"github.com/nao1215/codewatcher/internal/model"
	"github.com/nao1215/codewatcher/internal/report"
	"github.com/nao1215/codewatcher/internal/session"
)

// Tab identifies a dashboard tab.
type Tab int

const (
	TabAnalysis Tab = iota
	TabIntegrations
	TabSecurity
	TabSettings
)

var tabTitles = []string{"Code Analysis", "Integrations", "Security", "Settings"}

// String returns the tab title.
func (t Tab) String() string {
	if t < 0 || int(t) >= len(tabTitles) {
		return "Unknown"
	}
	return tabTitles[t]
}

// Submitter runs one analysis. *session.Session implements it.
type Submitter interface {
	Submit(ctx context.Context, repoURL, branch string) (*client.Result, error)
}

// ResultHook is called with every successful analysis, for example to save
// it to history.
type ResultHook func(ctx context.Context, res *client.Result) error

// analysisDoneMsg carries the outcome of a submitted analysis.
type analysisDoneMsg struct {
	result *client.Result
	err    error
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx       context.Context
	submitter Submitter
	cfg       *config.Config
	logger    *slog.Logger
	onResult  ResultHook

	tab     Tab
	input   textinput.Model
	spinner spinner.Model

	loading bool
	repoURL string
	errMsg  string
	report  string
}

// Option configures a Model.
type Option func(*Model)

// WithResultHook registers hook for successful analyses.
func WithResultHook(hook ResultHook) Option {
	return func(m *Model) {
		m.onResult = hook
	}
}

// WithLogger sets the logger for hook failures.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// New returns a dashboard model that submits analyses through submitter.
func New(ctx context.Context, submitter Submitter, cfg *config.Config, opts ...Option) Model {
	input := textinput.New()
	input.Placeholder = "https://github.com/user/repository"
	input.Prompt = "Repository URL: "
	input.CharLimit = 512
	input.Width = 60
	input.Focus()

	m := Model{
		ctx:       ctx,
		submitter: submitter,
		cfg:       cfg,
		logger:    slog.New(slog.DiscardHandler),
		input:     input,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(loadingStyle)),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Run starts the dashboard and blocks until the user quits or ctx is done.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard run failed: %w", err)
	}
	return nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case analysisDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = session.UserMessage(msg.err)
			return m, nil
		}
		m.report = m.render(msg.result)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "q":
		// On the analysis tab "q" is typed into the URL field.
		if m.tab != TabAnalysis {
			return m, tea.Quit
		}
	case "tab":
		m.tab = (m.tab + 1) % Tab(len(tabTitles))
		return m, nil
	case "shift+tab":
		m.tab = (m.tab + Tab(len(tabTitles)) - 1) % Tab(len(tabTitles))
		return m, nil
	case "enter":
		if m.tab == TabAnalysis {
			return m.submit()
		}
		return m, nil
	}

	if m.tab != TabAnalysis || m.loading {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts an analysis of the URL in the input field. A blank URL
// shows an error without sending a request.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	repoURL := strings.TrimSpace(m.input.Value())
	if repoURL == "" {
		m.errMsg = session.UserMessage(client.ErrEmptyRepoURL)
		return m, nil
	}

	m.loading = true
	m.errMsg = ""
	m.report = ""
	m.repoURL = repoURL

	rc := m.cfg.RepositoryConfig(repoURL)
	return m, tea.Batch(m.spinner.Tick, m.analyze(repoURL, rc.Branch, rc.Timeout))
}

func (m Model) analyze(repoURL, branch string, timeout time.Duration) tea.Cmd {
	ctx := client.WithRequestTimeout(m.ctx, timeout)
	submitter := m.submitter
	hook := m.onResult
	logger := m.logger
	return func() tea.Msg {
		res, err := submitter.Submit(ctx, repoURL, branch)
		if err == nil && hook != nil {
			if herr := hook(ctx, res); herr != nil {
				logger.Warn("failed to record analysis", "repo_url", repoURL, "error", herr)
			}
		}
		return analysisDoneMsg{result: res, err: err}
	}
}

func (m Model) render(res *client.Result) string {
	rep := report.NewReport(res.RepoURL, res.Branch, res.Result, m.cfg.ViewOptions()...)
	rep.AnalyzedAt = time.Now()
	return report.NewSimpleWriter(io.Discard).Render(rep)
}

// View implements tea.Model.
func (m Model) View() string {
	tabs := make([]string, len(tabTitles))
	for i, title := range tabTitles {
		style := inactiveTabStyle
		if Tab(i) == m.tab {
			style = activeTabStyle
		}
		tabs[i] = style.Render(title)
	}

	var body string
	switch m.tab {
	case TabAnalysis:
		body = m.analysisView()
	case TabIntegrations:
		body = m.integrationsView()
	case TabSecurity:
		body = m.securityView()
	case TabSettings:
		body = m.settingsView()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("CodeWatcher AI"),
		lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...),
		bodyStyle.Render(body),
		mutedStyle.Render("tab/shift+tab: switch tabs • enter: analyze • esc/ctrl+c: quit"),
	)
}

func (m Model) analysisView() string {
	var sb strings.Builder
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")

	switch {
	case m.loading:
		fmt.Fprintf(&sb, "%s %s %s\n", m.spinner.View(), model.LoadingView().Message, m.repoURL)
	case m.errMsg != "":
		sb.WriteString(errorStyle.Render("Error: "+m.errMsg) + "\n")
	}

	if m.report != "" {
		sb.WriteString(m.report)
	} else if !m.loading && m.errMsg == "" {
		sb.WriteString(mutedStyle.Render("Enter a repository URL and press enter to run an analysis.") + "\n")
	}
	return sb.String()
}

func (m Model) integrationsView() string {
	return strings.Join([]string{
		labelStyle.Render("GitHub Webhook URL") + m.cfg.WebhookURL(),
		"",
		mutedStyle.Render("Integration management is under development."),
	}, "\n")
}

func (m Model) securityView() string {
	return mutedStyle.Render("The security dashboard is under development.")
}

func (m Model) settingsView() string {
	token := "(not set)"
	if m.cfg.Token != "" {
		token = "(set)"
	}
	history := m.cfg.DBPath()
	if !m.cfg.SaveToDB {
		history = "disabled"
	}

	rows := [][2]string{
		{"Server URL", m.cfg.ServerURL},
		{"Default branch", m.cfg.Branch},
		{"Timeout", m.cfg.Timeout.String()},
		{"API token", token},
		{"Issue preview limit", fmt.Sprint(m.cfg.IssuePreviewLimit)},
		{"Secret preview limit", fmt.Sprint(m.cfg.SecretPreviewLimit)},
		{"History", history},
	}
	if m.cfg.ConfigFilePath != "" {
		rows = append(rows, [2]string{"Config file", m.cfg.ConfigFilePath})
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = labelStyle.Render(row[0]) + row[1]
	}
	return strings.Join(lines, "\n")
}

// ActiveTab returns the selected tab.
func (m Model) ActiveTab() Tab {
	return m.tab
}

// Loading reports whether an analysis is in flight.
func (m Model) Loading() bool {
	return m.loading
}

// ErrorMessage returns the error shown on the analysis tab.
func (m Model) ErrorMessage() string {
	return m.errMsg
}

// Report returns the rendered report of the last successful analysis.
func (m Model) Report() string {
	return m.report
}
