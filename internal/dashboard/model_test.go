package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nao1215/codewatcher/internal/client"
	"github.com/nao1215/codewatcher/internal/config"
	"github.com/nao1215/codewatcher/internal/model"
	"github.com/nao1215/codewatcher/internal/schema"
	"github.com/nao1215/codewatcher/internal/session"
)

type fakeAnalyzer struct {
	err         error
	calls       atomic.Int32
	lastBranch  atomic.Value
	lastTimeout atomic.Int64
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, repoURL, branch string) (*client.Result, error) {
	f.calls.Add(1)
	f.lastBranch.Store(branch)
	if d, ok := client.RequestTimeout(ctx); ok {
		f.lastTimeout.Store(int64(d))
	}
	if f.err != nil {
		return nil, f.err
	}
	result := &model.AnalysisResult{
		Score: 85,
		StaticAnalysis: model.StaticAnalysis{
			Errors: []model.AnalysisIssue{{File: "main.py", Line: 15, Message: "Undefined variable 'x'", Code: "E0602"}},
		},
		Suggestions: []string{"Add type hints"},
	}
	return &client.Result{Envelope: &schema.Envelope{
		Result:  result.Normalize(),
		RepoURL: repoURL,
		Branch:  branch,
		Success: true,
	}}, nil
}

func newModel(t *testing.T, a session.Analyzer, opts ...Option) Model {
	t.Helper()
	return newModelWithConfig(t, a, config.NewConfig(), opts...)
}

func newModelWithConfig(t *testing.T, a session.Analyzer, cfg *config.Config, opts ...Option) Model {
	t.Helper()

	s, err := session.New(a)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	return New(context.Background(), s, cfg, opts...)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()

	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

// collect runs cmd and any batched commands, returning their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, collect(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

// runAnalysis presses enter and feeds the analysis outcome back.
func runAnalysis(t *testing.T, m Model) Model {
	t.Helper()

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.Loading() {
		t.Fatal("expected loading after enter")
	}
	if !strings.Contains(m.View(), model.LoadingMessage) {
		t.Error("loading view should show the loading message")
	}

	for _, msg := range collect(cmd) {
		if done, ok := msg.(analysisDoneMsg); ok {
			m, _ = update(t, m, done)
			return m
		}
	}
	t.Fatal("no analysis result message")
	return m
}

func TestTabNavigation(t *testing.T) {
	t.Parallel()

	m := newModel(t, &fakeAnalyzer{})
	if m.ActiveTab() != TabAnalysis {
		t.Fatalf("initial tab = %v, want %v", m.ActiveTab(), TabAnalysis)
	}

	want := []Tab{TabIntegrations, TabSecurity, TabSettings, TabAnalysis}
	for _, tab := range want {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
		if m.ActiveTab() != tab {
			t.Errorf("after tab: %v, want %v", m.ActiveTab(), tab)
		}
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.ActiveTab() != TabSettings {
		t.Errorf("after shift+tab: %v, want %v", m.ActiveTab(), TabSettings)
	}
}

func TestTabViews(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tabs int
		want string
	}{
		{tabs: 0, want: "Repository URL"},
		{tabs: 1, want: "http://localhost:8000/api/v1/webhooks/github"},
		{tabs: 2, want: "under development"},
		{tabs: 3, want: "http://localhost:8000"},
	}

	for _, tt := range tests {
		t.Run(Tab(tt.tabs).String(), func(t *testing.T) {
			t.Parallel()

			m := newModel(t, &fakeAnalyzer{})
			for range tt.tabs {
				m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
			}
			view := m.View()
			if !strings.Contains(view, tt.want) {
				t.Errorf("view missing %q:\n%s", tt.want, view)
			}
			for _, title := range tabTitles {
				if !strings.Contains(view, title) {
					t.Errorf("view missing tab %q", title)
				}
			}
		})
	}
}

func TestQuitKeys(t *testing.T) {
	t.Parallel()

	m := newModel(t, &fakeAnalyzer{})

	if _, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Error("ctrl+c should quit")
	} else if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should return tea.Quit")
	}

	// "q" types into the URL field on the analysis tab.
	typed, _ := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if typed.input.Value() != "q" {
		t.Errorf("input = %q, want q", typed.input.Value())
	}

	other, _ := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if _, cmd := update(t, other, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Error("q should quit outside the analysis tab")
	} else if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestSubmit_BlankURL(t *testing.T) {
	t.Parallel()

	a := &fakeAnalyzer{}
	m := newModel(t, a)
	m = typeText(t, m, "   ")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("blank URL should not start a request")
	}
	if m.Loading() {
		t.Error("blank URL should not enter loading state")
	}
	if m.ErrorMessage() != "Please enter a repository URL" {
		t.Errorf("ErrorMessage() = %q", m.ErrorMessage())
	}
	if a.calls.Load() != 0 {
		t.Errorf("analyzer calls = %d, want 0", a.calls.Load())
	}
}

func TestSubmit_Success(t *testing.T) {
	t.Parallel()

	var hooked atomic.Int32
	a := &fakeAnalyzer{}
	m := newModel(t, a, WithResultHook(func(_ context.Context, res *client.Result) error {
		if res.Result.Score == 85 {
			hooked.Add(1)
		}
		return nil
	}))
	m = typeText(t, m, "https://github.com/user/repo")
	m = runAnalysis(t, m)

	if m.Loading() {
		t.Error("loading should end after the result arrives")
	}
	if m.ErrorMessage() != "" {
		t.Errorf("ErrorMessage() = %q, want empty", m.ErrorMessage())
	}
	for _, want := range []string{"85/100", "1 error(s) found", "Add type hints", "https://github.com/user/repo"} {
		if !strings.Contains(m.Report(), want) {
			t.Errorf("report missing %q", want)
		}
	}
	if hooked.Load() != 1 {
		t.Errorf("hook calls = %d, want 1", hooked.Load())
	}
	if got, _ := a.lastBranch.Load().(string); got != config.DefaultBranch {
		t.Errorf("branch = %q, want %q", got, config.DefaultBranch)
	}
}

func TestSubmit_RepositoryOverrides(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.ApplyFile(&config.File{
		Repositories: map[string]config.RepositoryConfig{
			"https://github.com/org/slow": {Branch: "develop", Timeout: 10 * time.Minute},
		},
	})

	tests := []struct {
		name    string
		repo    string
		branch  string
		timeout time.Duration
	}{
		{"override", "https://github.com/org/slow", "develop", 10 * time.Minute},
		{"defaults", "https://github.com/org/other", config.DefaultBranch, config.DefaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := &fakeAnalyzer{}
			m := newModelWithConfig(t, a, cfg)
			m = typeText(t, m, tt.repo)
			runAnalysis(t, m)

			if got, _ := a.lastBranch.Load().(string); got != tt.branch {
				t.Errorf("branch = %q, want %q", got, tt.branch)
			}
			if got := time.Duration(a.lastTimeout.Load()); got != tt.timeout {
				t.Errorf("timeout = %v, want %v", got, tt.timeout)
			}
		})
	}
}

func TestSubmit_FailureThenRetry(t *testing.T) {
	t.Parallel()

	a := &fakeAnalyzer{err: client.ErrAnalysisFailed}
	m := newModel(t, a, WithResultHook(func(context.Context, *client.Result) error {
		return errors.New("hook must not run on failure")
	}))
	m = typeText(t, m, "https://github.com/user/repo")
	m = runAnalysis(t, m)

	if m.ErrorMessage() != "Analysis failed" {
		t.Errorf("ErrorMessage() = %q, want %q", m.ErrorMessage(), "Analysis failed")
	}
	if m.Report() != "" {
		t.Error("failed analysis should not leave a report")
	}
	if !strings.Contains(m.View(), "Analysis failed") {
		t.Error("view should show the error")
	}

	a.err = nil
	m = runAnalysis(t, m)
	if m.ErrorMessage() != "" {
		t.Errorf("ErrorMessage() after retry = %q, want empty", m.ErrorMessage())
	}
	if m.Report() == "" {
		t.Error("retry should produce a report")
	}
}

func TestEnterIgnoredWhileLoading(t *testing.T) {
	t.Parallel()

	m := newModel(t, &fakeAnalyzer{})
	m = typeText(t, m, "https://github.com/user/repo")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if _, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("enter while loading should not start another request")
	}
}
