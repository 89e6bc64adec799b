package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeRoot runs the root command with args and returns its output.
func executeRoot(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return executeRootContext(t, context.Background(), stdin, args...)
}

func executeRootContext(t *testing.T, ctx context.Context, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

// writeConfig writes a configuration file that keeps tests away from the
// user's own configuration and history.
func writeConfig(t *testing.T, serverURL, dbDir string) string {
	t.Helper()

	content := "server:\n  url: \"" + serverURL + "\"\n  timeout: 10s\nhistory:\n  dir: \"" + dbDir + "\"\n"
	path := filepath.Join(t.TempDir(), "codewatcher.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "codewatcher" {
			t.Errorf("expected use 'codewatcher', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions and version", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has persistent flags", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name      string
			shorthand string
			defValue  string
		}{
			{name: "verbose", shorthand: "v", defValue: "false"},
			{name: "log-format", defValue: "text"},
			{name: "config", shorthand: "c", defValue: ""},
			{name: "server", shorthand: "s", defValue: ""},
		}
		for _, tt := range tests {
			flag := cmd.PersistentFlags().Lookup(tt.name)
			if flag == nil {
				t.Errorf("expected %s flag", tt.name)
				continue
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("%s: expected shorthand %q, got %q", tt.name, tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("%s: expected default %q, got %q", tt.name, tt.defValue, flag.DefValue)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()

		want := map[string]bool{
			"analyze": false, "render": false, "history": false, "serve": false,
			"dashboard": false, "init": false, "version": false,
		}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing config file fails", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeRoot(t, "", "render", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "-")
		if err == nil || !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected config not found error, got %v", err)
		}
	})

	t.Run("invalid server URL is rejected", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeConfig(t, "http://localhost:8000", t.TempDir())
		_, _, err := executeRoot(t, "", "analyze", "--config", cfgPath, "--server", "ftp://example.com", "https://github.com/user/repo")
		if err == nil || !strings.Contains(err.Error(), "configuration error") {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("conflicting report formats are rejected", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeConfig(t, "http://localhost:8000", t.TempDir())
		_, _, err := executeRoot(t, "{}", "render", "--config", cfgPath, "--json", "--markdown", "-")
		if err == nil || !strings.Contains(err.Error(), "conflicting report formats") {
			t.Errorf("expected conflicting formats error, got %v", err)
		}
	})

	t.Run("unknown log format is rejected", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeConfig(t, "http://localhost:8000", t.TempDir())
		_, _, err := executeRoot(t, "{}", "render", "--config", cfgPath, "--log-format", "xml", "-")
		if err == nil || !strings.Contains(err.Error(), "unknown log format") {
			t.Errorf("expected log format error, got %v", err)
		}
	})
}
