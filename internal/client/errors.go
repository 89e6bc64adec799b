package client

import "errors"

var (
	// ErrEmptyRepoURL is returned when the repository URL is blank.
	// No request is sent in that case.
	ErrEmptyRepoURL = errors.New("repository URL is required")

	// ErrAnalysisFailed is returned for transport errors, timeouts,
	// non-2xx responses, and undecodable bodies. The wrapped error carries
	// the detail for logs; users see only this message.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrInvalidBaseURL is returned by New when the backend URL is not an
	// absolute http or https URL.
	ErrInvalidBaseURL = errors.New("invalid analysis server URL")
)
