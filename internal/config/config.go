package config

import (
	"maps"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/codewatcher/internal/database"
	"github.com/nao1215/codewatcher/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "codewatcher"

	// DefaultServerURL is the base URL of a locally running analysis backend.
	DefaultServerURL = "http://localhost:8000"

	// DefaultBranch is analyzed when no branch is given.
	DefaultBranch = "main"

	// DefaultTimeout bounds one analysis request. Cloning and linting a large
	// repository on the backend can take minutes.
	DefaultTimeout = 5 * time.Minute

	// DefaultUserAgent identifies codewatcher in HTTP requests.
	DefaultUserAgent = "CodeWatcher-AI-Review"

	// DefaultListenAddress is where "codewatcher serve" listens.
	DefaultListenAddress = "127.0.0.1:8080"

	// DefaultIssuePreviewLimit is how many errors and warnings a report previews.
	DefaultIssuePreviewLimit = model.IssuePreviewLimit

	// DefaultSecretPreviewLimit is how many secrets a report previews.
	DefaultSecretPreviewLimit = model.SecretPreviewLimit

	// WebhookPath is the backend path that receives GitHub webhooks.
	// codewatcher only displays it.
	WebhookPath = "/api/v1/webhooks/github"

	// TokenEnv names the environment variable holding the backend API token.
	TokenEnv = "CODEWATCHER_TOKEN"

	// ServerURLEnv names the environment variable overriding the backend URL.
	ServerURLEnv = "CODEWATCHER_SERVER_URL"
)

// Config holds all configuration options for codewatcher.
// It is populated from defaults, the configuration file, the environment,
// and CLI flags, in that order, and passed explicitly to each component.
type Config struct {
	// ServerURL is the base URL of the analysis backend.
	ServerURL string

	// Branch is the branch analyzed when the user does not name one.
	Branch string

	// Timeout bounds a single analysis request.
	Timeout time.Duration

	// Token is sent as a bearer token when non-empty. It is never logged
	// in clear text.
	Token string

	// UserAgent is the User-Agent header sent to the backend.
	UserAgent string

	// IssuePreviewLimit and SecretPreviewLimit bound the report previews.
	IssuePreviewLimit  int
	SecretPreviewLimit int

	// ListenAddress is the "host:port" the render service binds to.
	ListenAddress string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .codewatcher in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// File holds the configuration file contents, including per-repository
	// overrides. Nil when no file was loaded.
	File *File

	// JSONReport and MarkdownReport select the output format.
	// They are mutually exclusive; neither means plain text.
	JSONReport     bool
	MarkdownReport bool

	// ShowAllFindings lists every finding in text reports instead of the
	// bounded preview.
	ShowAllFindings bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB records each successful analysis in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		ServerURL:          DefaultServerURL,
		Branch:             DefaultBranch,
		Timeout:            DefaultTimeout,
		UserAgent:          DefaultUserAgent,
		IssuePreviewLimit:  DefaultIssuePreviewLimit,
		SecretPreviewLimit: DefaultSecretPreviewLimit,
		ListenAddress:      DefaultListenAddress,
		DBDir:              XDGDataDir(),
		SaveToDB:           true,
	}
}

// ApplyFile overrides the configuration with every value set in f.
// A nil file is ignored.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.File = f

	if f.Server.URL != "" {
		c.ServerURL = f.Server.URL
	}
	if f.Server.Timeout != 0 {
		c.Timeout = f.Server.Timeout
	}
	if f.Server.UserAgent != "" {
		c.UserAgent = f.Server.UserAgent
	}
	if f.Server.Token != "" {
		c.Token = f.Server.Token
	}
	if f.Defaults.Branch != "" {
		c.Branch = f.Defaults.Branch
	}
	if f.Report.IssuePreviewLimit != 0 {
		c.IssuePreviewLimit = f.Report.IssuePreviewLimit
	}
	if f.Report.SecretPreviewLimit != 0 {
		c.SecretPreviewLimit = f.Report.SecretPreviewLimit
	}
	switch strings.ToLower(f.Report.Format) {
	case "json":
		c.JSONReport = true
	case "markdown", "md":
		c.MarkdownReport = true
	}
	if f.Serve.Listen != "" {
		c.ListenAddress = f.Serve.Listen
	}
	if f.History.Dir != "" {
		c.DBDir = f.History.Dir
	}
	if f.History.Disabled {
		c.SaveToDB = false
	}
}

// ApplyEnv overrides the token and server URL from the environment.
func (c *Config) ApplyEnv() {
	if token := os.Getenv(TokenEnv); token != "" {
		c.Token = token
	}
	if u := os.Getenv(ServerURLEnv); u != "" {
		c.ServerURL = u
	}
}

// RepositoryConfig returns the effective settings for repoURL, merging the
// file's defaults and per-repository overrides on top of c.
func (c *Config) RepositoryConfig(repoURL string) RepositoryConfig {
	rc := RepositoryConfig{Branch: c.Branch, Timeout: c.Timeout}
	if c.File == nil {
		return rc
	}
	override := c.File.GetRepositoryConfig(repoURL)
	if override.Branch != "" {
		rc.Branch = override.Branch
	}
	if override.Timeout != 0 {
		rc.Timeout = override.Timeout
	}
	return rc
}

// RepositoryURLs returns the repositories listed in the configuration
// file, sorted.
func (c *Config) RepositoryURLs() []string {
	if c.File == nil {
		return nil
	}
	urls := slices.Collect(maps.Keys(c.File.Repositories))
	slices.Sort(urls)
	return urls
}

// ViewOptions returns the report view options derived from the configuration.
func (c *Config) ViewOptions() []model.ViewOption {
	return []model.ViewOption{
		model.WithIssuePreviewLimit(c.IssuePreviewLimit),
		model.WithSecretPreviewLimit(c.SecretPreviewLimit),
	}
}

// WebhookURL returns the full URL of the backend webhook endpoint.
func (c *Config) WebhookURL() string {
	return strings.TrimRight(c.ServerURL, "/") + WebhookPath
}

// DBPath returns the path of the history database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DBDir, database.FileName)
}

// XDGDataDir returns the XDG data directory for codewatcher.
// On Linux: ~/.local/share/codewatcher
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for codewatcher.
// On Linux: ~/.config/codewatcher
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidServerURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.IssuePreviewLimit <= 0 || c.SecretPreviewLimit <= 0 {
		return ErrInvalidPreviewLimit
	}

	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return ErrInvalidListenAddress
	}

	if c.SaveToDB && c.DBDir == "" {
		return ErrEmptyDBDir
	}

	return nil
}
