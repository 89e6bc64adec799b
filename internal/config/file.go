package config

import "time"

// RepositoryConfig holds per-repository overrides.
type RepositoryConfig struct {
	// Branch overrides the default branch for this repository.
	Branch string `yaml:"branch,omitempty"`

	// Timeout overrides the request timeout for this repository.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ServerSection configures the analysis backend connection.
type ServerSection struct {
	URL       string        `yaml:"url,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	UserAgent string        `yaml:"user_agent,omitempty"`

	// Token is accepted for convenience; prefer the CODEWATCHER_TOKEN
	// environment variable.
	Token string `yaml:"token,omitempty"`
}

// ReportSection configures report rendering.
type ReportSection struct {
	// Format is "text", "markdown", or "json".
	Format             string `yaml:"format,omitempty"`
	IssuePreviewLimit  int    `yaml:"issue_preview_limit,omitempty"`
	SecretPreviewLimit int    `yaml:"secret_preview_limit,omitempty"`
}

// ServeSection configures the render service.
type ServeSection struct {
	Listen string `yaml:"listen,omitempty"`
}

// HistorySection configures the analysis history database.
type HistorySection struct {
	Dir      string `yaml:"dir,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// File represents the structure of the .codewatcher configuration file.
type File struct {
	Server  ServerSection  `yaml:"server,omitempty"`
	Report  ReportSection  `yaml:"report,omitempty"`
	Serve   ServeSection   `yaml:"serve,omitempty"`
	History HistorySection `yaml:"history,omitempty"`

	// Defaults applies to every repository unless overridden in Repositories.
	Defaults RepositoryConfig `yaml:"defaults,omitempty"`

	// Repositories maps repository URLs to their overrides.
	Repositories map[string]RepositoryConfig `yaml:"repositories,omitempty"`
}

// GetRepositoryConfig returns the configuration for a repository URL.
// It merges the repository-specific configuration with defaults.
func (cf *File) GetRepositoryConfig(repoURL string) RepositoryConfig {
	result := cf.Defaults

	if rc, ok := cf.Repositories[repoURL]; ok {
		if rc.Branch != "" {
			result.Branch = rc.Branch
		}
		if rc.Timeout != 0 {
			result.Timeout = rc.Timeout
		}
	}

	return result
}
