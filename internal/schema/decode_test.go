package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/codewatcher/internal/model"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	return data
}

func TestDecodeSample(t *testing.T) {
	t.Parallel()

	env, err := Decode(readFixture(t, "sample_result.json"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(env.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", env.Warnings)
	}
	if env.Wrapped {
		t.Error("expected bare result")
	}

	s := env.Result.Summary()
	if s.Score != 85 || s.ErrorCount != 2 || s.WarningCount != 1 || s.SecretCount != 1 || s.SuggestionCount != 4 {
		t.Errorf("unexpected summary %+v", s)
	}
	if got := env.Result.Security.Secrets[0].Severity; got != model.SeverityHigh {
		t.Errorf("got severity %v, expected high", got)
	}
	if got := env.Result.StaticAnalysis.Errors[1].Code; got != "F401" {
		t.Errorf("got code %q, expected F401", got)
	}
}

func TestDecodeWrapped(t *testing.T) {
	t.Parallel()

	env, err := Decode(readFixture(t, "wrapped_result.json"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !env.Wrapped || !env.Success {
		t.Errorf("expected successful wrapped payload, got %+v", env)
	}
	if env.RepoURL != "https://github.com/example/project" || env.Branch != "develop" {
		t.Errorf("unexpected wrapper metadata %q %q", env.RepoURL, env.Branch)
	}
	if env.Result.Score != 94 {
		t.Errorf("got score %d, expected 94", env.Result.Score)
	}
	vulns := env.Result.Security.Vulnerabilities
	if len(vulns) != 1 || vulns[0]["package"] != "requests" {
		t.Errorf("expected vulnerability with extra keys preserved, got %v", vulns)
	}
}

func TestDecodeLenient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		payload      string
		wantScore    int
		wantErrors   int
		wantSecrets  int
		wantSuggest  int
		wantWarnings bool
	}{
		{
			name:         "empty object",
			payload:      `{}`,
			wantWarnings: true,
		},
		{
			name:         "score above range is clamped",
			payload:      `{"score": 250}`,
			wantScore:    100,
			wantWarnings: true,
		},
		{
			name:         "negative score is clamped",
			payload:      `{"score": -3}`,
			wantScore:    0,
			wantWarnings: true,
		},
		{
			name:         "non-numeric score",
			payload:      `{"score": "high"}`,
			wantWarnings: true,
		},
		{
			name:         "malformed issue is skipped",
			payload:      `{"score": 70, "static_analysis": {"errors": [{"file": "a.go", "line": 1, "message": "m"}, "oops", null]}}`,
			wantScore:    70,
			wantErrors:   1,
			wantWarnings: true,
		},
		{
			name:         "unknown secret severity is kept",
			payload:      `{"score": 60, "security": {"secrets": [{"file": "a", "line": 2, "pattern": "p", "severity": "extreme"}]}}`,
			wantScore:    60,
			wantSecrets:  1,
			wantWarnings: true,
		},
		{
			name:         "non-string suggestions are dropped",
			payload:      `{"score": 90, "suggestions": ["a", 3, "b"]}`,
			wantScore:    90,
			wantSuggest:  2,
			wantWarnings: true,
		},
		{
			name:         "wrong section type is ignored",
			payload:      `{"score": 80, "static_analysis": []}`,
			wantScore:    80,
			wantWarnings: true,
		},
		{
			name:         "null results falls back to the payload",
			payload:      `{"success": true, "repo_url": "r", "results": null}`,
			wantWarnings: true,
		},
		{
			name:         "non-object results decodes as empty",
			payload:      `{"results": []}`,
			wantWarnings: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, err := Decode([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			r := env.Result
			if r.Score != tt.wantScore {
				t.Errorf("got score %d, expected %d", r.Score, tt.wantScore)
			}
			if got := len(r.StaticAnalysis.Errors); got != tt.wantErrors {
				t.Errorf("got %d errors, expected %d", got, tt.wantErrors)
			}
			if got := len(r.Security.Secrets); got != tt.wantSecrets {
				t.Errorf("got %d secrets, expected %d", got, tt.wantSecrets)
			}
			if got := len(r.Suggestions); got != tt.wantSuggest {
				t.Errorf("got %d suggestions, expected %d", got, tt.wantSuggest)
			}
			if r.StaticAnalysis.Warnings == nil || r.Security.Vulnerabilities == nil {
				t.Error("expected absent collections to default to empty")
			}
			if (len(env.Warnings) > 0) != tt.wantWarnings {
				t.Errorf("warnings = %v, expected warnings: %v", env.Warnings, tt.wantWarnings)
			}
		})
	}
}

func TestDecodeResultsFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		payload     string
		wantScore   int
		wantRepo    string
		wantSuccess bool
		wantWarning bool
	}{
		{
			name:        "null results uses top-level fields",
			payload:     `{"success": true, "repo_url": "https://github.com/org/repo", "results": null, "score": 70}`,
			wantScore:   70,
			wantRepo:    "https://github.com/org/repo",
			wantSuccess: true,
		},
		{
			name:        "false results uses top-level fields",
			payload:     `{"results": false, "score": 55}`,
			wantScore:   55,
			wantSuccess: true,
		},
		{
			name:        "array results ignores top-level fields",
			payload:     `{"success": true, "repo_url": "https://github.com/org/repo", "results": [1, 2], "score": 70}`,
			wantRepo:    "https://github.com/org/repo",
			wantSuccess: true,
			wantWarning: true,
		},
		{
			name:        "unsuccessful wrapper is reported",
			payload:     `{"success": false, "results": null}`,
			wantWarning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, err := Decode([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !env.Wrapped {
				t.Error("expected a wrapped envelope")
			}
			if env.Result.Score != tt.wantScore {
				t.Errorf("got score %d, expected %d", env.Result.Score, tt.wantScore)
			}
			if env.RepoURL != tt.wantRepo {
				t.Errorf("got repo %q, expected %q", env.RepoURL, tt.wantRepo)
			}
			if env.Success != tt.wantSuccess {
				t.Errorf("got success %v, expected %v", env.Success, tt.wantSuccess)
			}
			if (len(env.Warnings) > 0) != tt.wantWarning {
				t.Errorf("warnings = %v, expected warnings: %v", env.Warnings, tt.wantWarning)
			}
			if env.Result.StaticAnalysis.Errors == nil || env.Result.Suggestions == nil {
				t.Error("expected absent collections to default to empty")
			}
		})
	}
}

func TestDecodeInvalidPayload(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{``, `   `, `[]`, `"text"`, `42`, `{"score": `} {
		t.Run(payload, func(t *testing.T) {
			t.Parallel()

			_, err := Decode([]byte(payload))
			if !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("Decode(%q) error = %v, expected ErrInvalidPayload", payload, err)
			}
		})
	}
}

func TestDecodeReader(t *testing.T) {
	t.Parallel()

	env, err := DecodeReader(strings.NewReader(`{"score": 77}`))
	if err != nil {
		t.Fatalf("DecodeReader() error = %v", err)
	}
	if env.Result.Score != 77 {
		t.Errorf("got score %d, expected 77", env.Result.Score)
	}
}
