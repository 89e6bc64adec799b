package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/codewatcher/internal/client"
	"github.com/nao1215/codewatcher/internal/session"
)

// DefaultConcurrency is the number of analyses run at the same time when
// WithConcurrency is not given.
const DefaultConcurrency = 4

// Job is one repository to analyze.
type Job struct {
	RepoURL string
	Branch  string
	Timeout time.Duration
}

// Outcome is the result of one Job. Exactly one of Result and Err is set.
type Outcome struct {
	Job        Job
	Result     *client.Result
	Err        error
	FinishedAt time.Time
}

// OK reports whether the analysis succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Result != nil
}

// SessionFactory creates a fresh session for job.
type SessionFactory func(job Job) (*session.Session, error)

// Processor runs Jobs concurrently.
type Processor struct {
	factory     SessionFactory
	concurrency int
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the batch logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent analyses.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewProcessor creates a Processor that builds one session per job with
// factory.
func NewProcessor(factory SessionFactory, opts ...Option) *Processor {
	p := &Processor{
		factory:     factory,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Concurrency returns the concurrency limit.
func (p *Processor) Concurrency() int {
	return p.concurrency
}

// Run analyzes every job and returns the outcomes in job order.
//
// A failed analysis is recorded in its Outcome and does not stop the
// others. The returned error is non-nil only when ctx ends before every
// job has started; outcomes of jobs that never ran are left zero apart
// from Job.
func (p *Processor) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))
	for i, job := range jobs {
		outcomes[i].Job = job
	}

	// Each goroutine writes only its own index.
	err := p.RunWithCallback(ctx, jobs, func(o Outcome, i int) {
		outcomes[i] = o
	})
	return outcomes, err
}

// RunWithCallback analyzes every job and calls callback as each one
// finishes. callback runs on the worker goroutine and must be safe for
// concurrent use.
func (p *Processor) RunWithCallback(ctx context.Context, jobs []Job, callback func(o Outcome, index int)) error {
	p.logger.Info("starting batch analysis",
		"total_repositories", len(jobs),
		"concurrency", p.concurrency,
	)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			p.logger.Info("analyzing repository",
				"repo_url", job.RepoURL,
				"index", i+1,
				"total", len(jobs),
			)

			o := p.analyze(ctx, job)
			if o.Err != nil {
				// Recorded in the outcome; the rest of the batch continues.
				p.logger.Warn("analysis failed", "repo_url", job.RepoURL, "error", o.Err)
			} else {
				p.logger.Info("analysis completed", "repo_url", job.RepoURL, "score", o.Result.Result.Score)
			}
			callback(o, i)
			return nil
		})
	}

	err := g.Wait()
	p.logger.Info("batch analysis complete",
		"total_repositories", len(jobs),
		"elapsed", time.Since(start),
	)
	return err
}

func (p *Processor) analyze(ctx context.Context, job Job) Outcome {
	o := Outcome{Job: job}

	s, err := p.factory(job)
	if err != nil {
		o.Err = err
		return o
	}

	o.Result, o.Err = s.Submit(ctx, job.RepoURL, job.Branch)
	o.FinishedAt = s.Snapshot().FinishedAt
	return o
}
