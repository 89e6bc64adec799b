package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const sampleBody = `{
  "score": 85,
  "static_analysis": {
    "errors": [{"file": "main.py", "line": 15, "message": "Undefined variable 'x'", "code": "E0602"}],
    "warnings": []
  },
  "security": {"secrets": [], "vulnerabilities": []},
  "suggestions": ["Fix undefined variable in main.py"]
}`

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()

	opts = append([]Option{
		WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	t.Run("posts request and decodes bare result", func(t *testing.T) {
		t.Parallel()

		var got AnalyzeRequest
		var gotAuth, gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != AnalyzePath {
				http.NotFound(w, r)
				return
			}
			gotAuth = r.Header.Get("Authorization")
			gotUA = r.Header.Get("User-Agent")
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, sampleBody)
		}))
		defer srv.Close()

		c := newTestClient(t, srv, WithToken("tok"), WithUserAgent("test-agent"))
		res, err := c.Analyze(context.Background(), "  https://github.com/org/repo  ", "develop")
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}

		if got.RepoURL != "https://github.com/org/repo" || got.Branch != "develop" {
			t.Errorf("unexpected request body %+v", got)
		}
		if gotAuth != "Bearer tok" {
			t.Errorf("got Authorization %q", gotAuth)
		}
		if gotUA != "test-agent" {
			t.Errorf("got User-Agent %q", gotUA)
		}
		if res.Result.Score != 85 || len(res.Result.StaticAnalysis.Errors) != 1 {
			t.Errorf("unexpected result %+v", res.Result)
		}
		if res.RepoURL != "https://github.com/org/repo" || res.Branch != "develop" {
			t.Errorf("expected request metadata on result, got %q %q", res.RepoURL, res.Branch)
		}
	})

	t.Run("decodes wrapped result", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"success": true, "repo_url": "https://github.com/org/repo", "branch": "main", "results": `+sampleBody+`}`)
		}))
		defer srv.Close()

		res, err := newTestClient(t, srv).Analyze(context.Background(), "https://github.com/org/repo", "")
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		if !res.Wrapped || res.Branch != "main" || res.Result.Score != 85 {
			t.Errorf("unexpected result %+v", res.Envelope)
		}
	})

	t.Run("blank URL makes no request", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv).Analyze(context.Background(), "   ", "main")
		if !errors.Is(err, ErrEmptyRepoURL) {
			t.Errorf("expected ErrEmptyRepoURL, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no request, got %d", calls.Load())
		}
	})
}

func TestAnalyzeFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"detail": "clone failed"}`, http.StatusInternalServerError)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "non-object body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `[1, 2, 3]`)
			},
		},
		{
			name: "unsuccessful wrapper",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"success": false, "results": {}}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			res, err := newTestClient(t, srv).Analyze(context.Background(), "https://github.com/org/repo", "main")
			if !errors.Is(err, ErrAnalysisFailed) {
				t.Errorf("expected ErrAnalysisFailed, got %v", err)
			}
			if res != nil {
				t.Error("expected no partial result")
			}
		})
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv, WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := c.Analyze(context.Background(), "https://github.com/org/repo", "main")
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Errorf("expected ErrAnalysisFailed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestAnalyzeRequestTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv, WithTimeout(time.Minute))
	ctx := WithRequestTimeout(context.Background(), 50*time.Millisecond)
	start := time.Now()
	_, err := c.Analyze(ctx, "https://github.com/org/repo", "main")
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Errorf("expected ErrAnalysisFailed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("request timeout not enforced, took %v", elapsed)
	}

	t.Run("non-positive timeout is ignored", func(t *testing.T) {
		t.Parallel()

		if _, ok := RequestTimeout(WithRequestTimeout(context.Background(), 0)); ok {
			t.Error("expected no request timeout for zero duration")
		}
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"", "localhost:8000", "ftp://example.com", "http://"} {
		if _, err := New(u); !errors.Is(err, ErrInvalidBaseURL) {
			t.Errorf("New(%q) error = %v, expected ErrInvalidBaseURL", u, err)
		}
	}
	if _, err := New("https://review.example.com/"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
