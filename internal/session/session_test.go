package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/codewatcher/internal/client"
	"github.com/nao1215/codewatcher/internal/model"
	"github.com/nao1215/codewatcher/internal/schema"
)

// fakeAnalyzer returns canned results. When block is non-nil, Analyze
// signals started and waits on block before returning.
type fakeAnalyzer struct {
	score   int
	err     error
	calls   atomic.Int32
	started chan struct{}
	block   chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, repoURL, branch string) (*client.Result, error) {
	f.calls.Add(1)
	if f.block != nil {
		f.started <- struct{}{}
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", client.ErrAnalysisFailed, ctx.Err())
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &client.Result{Envelope: &schema.Envelope{
		Result:  (&model.AnalysisResult{Score: f.score}).Normalize(),
		RepoURL: repoURL,
		Branch:  branch,
		Success: true,
	}}, nil
}

func newSession(t *testing.T, a Analyzer) *Session {
	t.Helper()
	s, err := New(a)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("starts idle", func(t *testing.T) {
		t.Parallel()

		snap := newSession(t, &fakeAnalyzer{}).Snapshot()
		if snap.State != StateIdle || snap.Result != nil || snap.Err != nil {
			t.Errorf("unexpected initial snapshot %+v", snap)
		}
	})

	t.Run("success populates result", func(t *testing.T) {
		t.Parallel()

		s := newSession(t, &fakeAnalyzer{score: 91})
		res, err := s.Submit(context.Background(), "https://github.com/org/repo", "main")
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		snap := s.Snapshot()
		if snap.State != StateSucceeded || snap.Result != res || snap.Err != nil {
			t.Errorf("unexpected snapshot %+v", snap)
		}
		if snap.Result.Result.Score != 91 {
			t.Errorf("got score %d", snap.Result.Result.Score)
		}
		if snap.FinishedAt.Before(snap.StartedAt) {
			t.Error("finish time precedes start time")
		}
	})

	t.Run("failure populates error and no result", func(t *testing.T) {
		t.Parallel()

		wantErr := fmt.Errorf("%w: status 500", client.ErrAnalysisFailed)
		s := newSession(t, &fakeAnalyzer{err: wantErr})
		if _, err := s.Submit(context.Background(), "https://github.com/org/repo", ""); !errors.Is(err, client.ErrAnalysisFailed) {
			t.Fatalf("Submit() error = %v", err)
		}
		snap := s.Snapshot()
		if snap.State != StateFailed || snap.Result != nil {
			t.Errorf("unexpected snapshot %+v", snap)
		}
		if snap.ErrorMessage() != "Analysis failed" {
			t.Errorf("ErrorMessage() = %q", snap.ErrorMessage())
		}
	})

	t.Run("resubmit after failure clears the error", func(t *testing.T) {
		t.Parallel()

		a := &fakeAnalyzer{err: client.ErrAnalysisFailed}
		s := newSession(t, a)
		_, _ = s.Submit(context.Background(), "https://github.com/org/repo", "")

		a.err = nil
		a.score = 70
		if _, err := s.Submit(context.Background(), "https://github.com/org/repo", ""); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		snap := s.Snapshot()
		if snap.State != StateSucceeded || snap.Err != nil {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})
}

func TestSessionBlankURL(t *testing.T) {
	t.Parallel()

	a := &fakeAnalyzer{score: 88}
	s := newSession(t, a)
	if _, err := s.Submit(context.Background(), "https://github.com/org/repo", ""); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	_, err := s.Submit(context.Background(), "  ", "")
	if !errors.Is(err, client.ErrEmptyRepoURL) {
		t.Fatalf("expected ErrEmptyRepoURL, got %v", err)
	}
	if a.calls.Load() != 1 {
		t.Errorf("expected analyzer to be called once, got %d", a.calls.Load())
	}

	snap := s.Snapshot()
	if snap.State != StateSucceeded {
		t.Errorf("expected state to remain succeeded, got %v", snap.State)
	}
	if snap.Result == nil || snap.Result.Result.Score != 88 {
		t.Error("expected previous result to be kept")
	}
	if snap.ErrorMessage() != "Please enter a repository URL" {
		t.Errorf("ErrorMessage() = %q", snap.ErrorMessage())
	}
}

func TestSessionRejectsConcurrentSubmit(t *testing.T) {
	t.Parallel()

	a := &fakeAnalyzer{score: 75, started: make(chan struct{}, 1), block: make(chan struct{})}
	s := newSession(t, a)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "https://github.com/org/first", "")
		done <- err
	}()

	select {
	case <-a.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first request did not start")
	}

	if !s.Snapshot().Loading() {
		t.Error("expected loading state while request is in flight")
	}
	if _, err := s.Submit(context.Background(), "https://github.com/org/second", ""); !errors.Is(err, ErrRequestInFlight) {
		t.Errorf("expected ErrRequestInFlight, got %v", err)
	}

	close(a.block)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateSucceeded || snap.RepoURL != "https://github.com/org/first" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if a.calls.Load() != 1 {
		t.Errorf("expected one analyzer call, got %d", a.calls.Load())
	}
}

func TestSessionCancel(t *testing.T) {
	t.Parallel()

	a := &fakeAnalyzer{started: make(chan struct{}, 1), block: make(chan struct{})}
	s := newSession(t, a)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, "https://github.com/org/repo", "")
		done <- err
	}()
	<-a.started
	cancel()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := s.Snapshot().State; got != StateFailed {
		t.Errorf("expected failed state, got %v", got)
	}
	if got := UserMessage(err); got != "Analysis canceled" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestLifecycleRejectsInvalidEvents(t *testing.T) {
	t.Parallel()

	lc, err := newLifecycle()
	if err != nil {
		t.Fatalf("newLifecycle() error = %v", err)
	}
	if err := lc.send(eventResolve); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from idle, got %v", err)
	}
	if err := lc.send(eventSubmit); err != nil {
		t.Fatalf("submit from idle: %v", err)
	}
	if err := lc.send(eventSubmit); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for submit while loading, got %v", err)
	}
	if err := lc.send(eventReject); err != nil {
		t.Fatalf("reject from loading: %v", err)
	}
	if lc.current() != StateFailed {
		t.Errorf("expected failed, got %v", lc.current())
	}
}
