// Package client calls the analysis backend.
//
// Client.Analyze posts {"repo_url", "branch"} to /api/v1/analysis/analyze
// and decodes the bare or wrapped response through the schema package.
// Every request is bounded by a timeout. There are no retries: a failed
// request is reported once as ErrAnalysisFailed.
package client
