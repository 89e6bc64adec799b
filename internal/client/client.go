package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"gopkg.in/resty.v1"

	"github.com/nao1215/codewatcher/internal/schema"
)

// AnalyzePath is the backend endpoint that runs an analysis.
const AnalyzePath = "/api/v1/analysis/analyze"

// maxErrorBody bounds how much of an error response is logged.
const maxErrorBody = 512

// AnalyzeRequest is the body of an analyze call.
type AnalyzeRequest struct {
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch,omitempty"`
}

// Client talks to the analysis backend.
type Client struct {
	baseURL   string
	http      *resty.Client
	timeout   time.Duration
	userAgent string
	token     string
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request. Values below or equal to zero are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sends requests through hc, e.g. an httptest server client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = resty.NewWithClient(hc)
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithToken sends token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      resty.New(),
		timeout:   5 * time.Minute,
		userAgent: "CodeWatcher-AI-Review",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type requestTimeoutKey struct{}

// WithRequestTimeout returns a context that makes Analyze use d instead of
// the client's timeout. A non-positive d is ignored.
func WithRequestTimeout(ctx context.Context, d time.Duration) context.Context {
	if d <= 0 {
		return ctx
	}
	return context.WithValue(ctx, requestTimeoutKey{}, d)
}

// RequestTimeout reports the timeout set by WithRequestTimeout.
func RequestTimeout(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(requestTimeoutKey{}).(time.Duration)
	return d, ok
}

// Result is a successful analysis response.
type Result struct {
	*schema.Envelope

	// Duration is the wall time of the request.
	Duration time.Duration
}

// Analyze runs an analysis of repoURL on branch. A blank repoURL fails
// with ErrEmptyRepoURL without contacting the backend.
func (c *Client) Analyze(ctx context.Context, repoURL, branch string) (*Result, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return nil, ErrEmptyRepoURL
	}
	branch = strings.TrimSpace(branch)

	limit := c.timeout
	if d, ok := RequestTimeout(ctx); ok {
		limit = d
	}
	t := timeout.New[*Result](timeout.Config{DefaultTimeout: limit})
	res, err := t.Execute(ctx, limit, func(ctx context.Context) (*Result, error) {
		return c.analyze(ctx, AnalyzeRequest{RepoURL: repoURL, Branch: branch})
	})
	if err != nil {
		if !errors.Is(err, ErrAnalysisFailed) {
			err = fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
		}
		return nil, err
	}
	return res, nil
}

func (c *Client) analyze(ctx context.Context, body AnalyzeRequest) (*Result, error) {
	endpoint := c.baseURL + AnalyzePath
	start := time.Now()

	c.logger.Debug("sending analysis request", "url", endpoint, "repo_url", body.RepoURL, "branch", body.Branch)

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", c.userAgent).
		SetBody(body)
	if c.token != "" {
		req.SetHeader("Authorization", "Bearer "+c.token)
	}

	resp, err := req.Post(endpoint)
	if err != nil {
		c.logger.Warn("analysis request failed", "url", endpoint, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	status := resp.StatusCode()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		c.logger.Warn("analysis server returned an error",
			"url", endpoint, "status", status, "body", truncate(string(resp.Body()), maxErrorBody))
		return nil, fmt.Errorf("%w: server responded with status %d", ErrAnalysisFailed, status)
	}

	env, err := schema.Decode(resp.Body())
	if err != nil {
		c.logger.Warn("analysis response is not a JSON object", "url", endpoint, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	if env.Wrapped && !env.Success {
		return nil, fmt.Errorf("%w: server reported an unsuccessful analysis", ErrAnalysisFailed)
	}
	env.LogWarnings(c.logger)
	if env.RepoURL == "" {
		env.RepoURL = body.RepoURL
	}
	if env.Branch == "" {
		env.Branch = body.Branch
	}

	elapsed := time.Since(start)
	c.logger.Debug("analysis completed", "repo_url", env.RepoURL, "score", env.Result.Score, "duration", elapsed)
	return &Result{Envelope: env, Duration: elapsed}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
