package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/codewatcher/internal/config"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	if cmd.Use != "init" {
		t.Errorf("expected use 'init', got %q", cmd.Use)
	}
	flag := cmd.Flags().Lookup("output")
	if flag == nil {
		t.Fatal("expected output flag")
	}
	if flag.Shorthand != "o" || flag.DefValue != config.DefaultConfigFile {
		t.Errorf("output flag = -%s default %q", flag.Shorthand, flag.DefValue)
	}
	for _, name := range []string{"force", "stdout"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

// TestRunInitCmd tests the init command execution.
func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates a loadable config file", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "nested", ".codewatcher")

		cmd := NewInitCmd()
		cmd.SetOut(new(strings.Builder))
		cmd.SetArgs([]string{"-o", outputPath})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := os.Stat(outputPath)
		if err != nil {
			t.Fatalf("expected config file to be created: %v", err)
		}
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			t.Errorf("config file permissions = %o, want owner-only", perm)
		}

		file, err := config.LoadConfigFile(outputPath)
		if err != nil {
			t.Fatalf("generated config does not load: %v", err)
		}
		if file.Server.URL != config.DefaultServerURL {
			t.Errorf("server.url = %q, want %q", file.Server.URL, config.DefaultServerURL)
		}
		if file.Defaults.Branch != config.DefaultBranch {
			t.Errorf("defaults.branch = %q, want %q", file.Defaults.Branch, config.DefaultBranch)
		}
	})

	t.Run("template is valid YAML", func(t *testing.T) {
		t.Parallel()

		var v map[string]any
		if err := yaml.Unmarshal(configTemplate, &v); err != nil {
			t.Fatalf("template is not valid YAML: %v", err)
		}
		for _, key := range []string{"server", "report", "serve", "history", "defaults"} {
			if _, ok := v[key]; !ok {
				t.Errorf("template missing %q section", key)
			}
		}
	})

	t.Run("fails if file exists without force", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".codewatcher")
		if err := os.WriteFile(outputPath, []byte("existing"), 0600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		cmd := NewInitCmd()
		cmd.SetArgs([]string{"-o", outputPath})
		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected 'already exists' error, got %v", err)
		}
	})

	t.Run("overwrites file with force flag", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".codewatcher")
		if err := os.WriteFile(outputPath, []byte("existing"), 0600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		cmd := NewInitCmd()
		cmd.SetOut(new(strings.Builder))
		cmd.SetArgs([]string{"-o", outputPath, "-f"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if strings.Contains(string(content), "existing") {
			t.Error("expected file to be overwritten")
		}
	})

	t.Run("prints template to stdout", func(t *testing.T) {
		t.Parallel()

		var out strings.Builder
		cmd := NewInitCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--stdout", "-o", filepath.Join(t.TempDir(), "unused")})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.String() != string(configTemplate) {
			t.Error("expected the template on stdout")
		}
	})
}
