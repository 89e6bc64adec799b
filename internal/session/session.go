package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nao1215/codewatcher/internal/client"
)

var (
	// ErrRequestInFlight is returned by Submit while another analysis runs.
	ErrRequestInFlight = errors.New("an analysis is already in progress")

	// ErrInvalidTransition indicates a lifecycle event that the current
	// state does not accept. It signals a bug, not a user error.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// Analyzer runs a single analysis. *client.Client implements it.
type Analyzer interface {
	Analyze(ctx context.Context, repoURL, branch string) (*client.Result, error)
}

// Snapshot is a consistent copy of a Session's observable state.
type Snapshot struct {
	State   State
	RepoURL string
	Branch  string

	// Result is set only in StateSucceeded.
	Result *client.Result

	// Err is the last error, including a rejected blank URL. It is cleared
	// by the next accepted submit.
	Err error

	StartedAt  time.Time
	FinishedAt time.Time
}

// Loading reports whether a request is in flight.
func (s Snapshot) Loading() bool {
	return s.State == StateLoading
}

// ErrorMessage returns the user-facing text for Err, or "".
func (s Snapshot) ErrorMessage() string {
	return UserMessage(s.Err)
}

// Session coordinates analysis requests for one user.
type Session struct {
	analyzer Analyzer
	logger   *slog.Logger
	gate     *semaphore.Weighted

	mu        sync.Mutex
	lifecycle *lifecycle
	snapshot  Snapshot
	now       func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an idle Session backed by analyzer.
func New(analyzer Analyzer, opts ...Option) (*Session, error) {
	lc, err := newLifecycle()
	if err != nil {
		return nil, err
	}
	s := &Session{
		analyzer:  analyzer,
		logger:    slog.Default(),
		gate:      semaphore.NewWeighted(1),
		lifecycle: lc,
		snapshot:  Snapshot{State: StateIdle},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Submit runs an analysis of repoURL and blocks until it finishes.
//
// A blank repoURL records client.ErrEmptyRepoURL without changing state or
// discarding the previous result. Otherwise the previous result and error
// are cleared, the session enters StateLoading, and it ends in exactly one
// of StateSucceeded or StateFailed.
func (s *Session) Submit(ctx context.Context, repoURL, branch string) (*client.Result, error) {
	if !s.gate.TryAcquire(1) {
		return nil, ErrRequestInFlight
	}
	defer s.gate.Release(1)

	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		s.mu.Lock()
		s.snapshot.Err = client.ErrEmptyRepoURL
		s.mu.Unlock()
		return nil, client.ErrEmptyRepoURL
	}

	if err := s.begin(repoURL, branch); err != nil {
		return nil, err
	}

	res, err := s.analyzer.Analyze(ctx, repoURL, branch)
	s.finish(res, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Session) begin(repoURL, branch string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lifecycle.send(eventSubmit); err != nil {
		return err
	}
	s.snapshot = Snapshot{
		State:     s.lifecycle.current(),
		RepoURL:   repoURL,
		Branch:    branch,
		StartedAt: s.now(),
	}
	s.logger.Debug("analysis started", "repo_url", repoURL, "branch", branch)
	return nil
}

func (s *Session) finish(res *client.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := eventResolve
	if err != nil {
		event = eventReject
	}
	if terr := s.lifecycle.send(event); terr != nil {
		s.logger.Error("session transition failed", "error", terr)
	}

	s.snapshot.State = s.lifecycle.current()
	s.snapshot.FinishedAt = s.now()
	if err != nil {
		s.snapshot.Err = err
		s.logger.Warn("analysis failed", "repo_url", s.snapshot.RepoURL, "error", err)
		return
	}
	s.snapshot.Result = res
	s.logger.Debug("analysis succeeded", "repo_url", s.snapshot.RepoURL, "score", res.Result.Score)
}

// UserMessage maps an error to the text shown to users. Details of
// transport failures stay in the logs.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, client.ErrEmptyRepoURL):
		return "Please enter a repository URL"
	case errors.Is(err, ErrRequestInFlight):
		return "An analysis is already in progress"
	case errors.Is(err, context.Canceled):
		return "Analysis canceled"
	default:
		return "Analysis failed"
	}
}
