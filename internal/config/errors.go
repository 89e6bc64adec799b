package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidServerURL is returned when the backend URL is not an absolute
	// http or https URL.
	ErrInvalidServerURL = errors.New("invalid server URL: must be an absolute http(s) URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidPreviewLimit is returned when a preview limit is not positive.
	ErrInvalidPreviewLimit = errors.New("invalid preview limit: must be positive")

	// ErrInvalidListenAddress is returned when the listen address is not host:port.
	ErrInvalidListenAddress = errors.New("invalid listen address: must be host:port")

	// ErrEmptyDBDir is returned when history is enabled without a directory.
	ErrEmptyDBDir = errors.New("history is enabled but no database directory is set")
)
