// Package dashboard implements the interactive terminal dashboard.
//
// The dashboard has four tabs. Code Analysis takes a repository URL, runs
// one analysis at a time through a session, and shows the rendered report.
// Integrations and Security are placeholders, and Settings shows the
// effective configuration.
package dashboard
