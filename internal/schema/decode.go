package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/nao1215/codewatcher/internal/model"
)

// ErrInvalidPayload is returned when the payload is not a JSON object.
var ErrInvalidPayload = errors.New("invalid analysis payload")

// Envelope is a decoded payload together with the wrapper metadata, if any.
type Envelope struct {
	// Result is the normalized analysis result. It is never nil.
	Result *model.AnalysisResult

	// Wrapped reports whether the result arrived inside a "results" wrapper.
	Wrapped bool

	// RepoURL and Branch are copied from the wrapper when present.
	RepoURL string
	Branch  string

	// Success is the wrapper's "success" flag. It is true for bare results.
	Success bool

	// Warnings lists schema violations and skipped items, in document order.
	Warnings []string
}

// LogWarnings writes each warning to logger at warn level.
func (e *Envelope) LogWarnings(logger *slog.Logger) {
	if logger == nil {
		return
	}
	for _, w := range e.Warnings {
		logger.Warn("analysis payload does not match schema", "detail", w)
	}
}

// DecodeReader reads all of r and decodes it with Decode.
func DecodeReader(r io.Reader) (*Envelope, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis payload: %w", err)
	}
	return Decode(data)
}

// Decode validates and decodes a bare or wrapped analysis payload.
func Decode(data []byte) (*Envelope, error) {
	top, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	env := &Envelope{Success: true}
	body := data
	fields := top

	// A falsy results value falls back to the top-level object; any other
	// non-object value yields an empty result.
	if raw, ok := top["results"]; ok {
		env.Wrapped = true
		env.RepoURL = stringValue(top["repo_url"])
		env.Branch = stringValue(top["branch"])
		if flag, ok := top["success"]; ok {
			var success bool
			if json.Unmarshal(flag, &success) == nil {
				env.Success = success
			}
		}
		if !isFalsy(raw) {
			inner, err := decodeObject(raw)
			if err != nil {
				env.Warnings = append(env.Warnings, "results: ignored non-object value")
				body = nil
				fields = nil
			} else {
				body = raw
				fields = inner
			}
		}
	}

	if body != nil {
		env.Warnings = append(env.Warnings, validate(body)...)
	}

	d := &decoder{}
	result := &model.AnalysisResult{
		Score:       d.score(fields["score"]),
		Suggestions: d.suggestions(fields["suggestions"]),
	}
	if static := d.object("static_analysis", fields["static_analysis"]); static != nil {
		result.StaticAnalysis.Errors = decodeItems[model.AnalysisIssue](d, "static_analysis.errors", static["errors"])
		result.StaticAnalysis.Warnings = decodeItems[model.AnalysisIssue](d, "static_analysis.warnings", static["warnings"])
	}
	if security := d.object("security", fields["security"]); security != nil {
		result.Security.Secrets = decodeItems[model.SecurityIssue](d, "security.secrets", security["secrets"])
		result.Security.Vulnerabilities = decodeItems[model.Vulnerability](d, "security.vulnerabilities", security["vulnerabilities"])
	}

	env.Warnings = append(env.Warnings, d.warnings...)
	env.Result = result.Normalize()
	return env, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidPayload
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return obj, nil
}

func isFalsy(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}

func stringValue(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// decoder decodes result fields leniently and records what it drops.
type decoder struct {
	warnings []string
}

func (d *decoder) warnf(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

// score accepts any JSON number, rounds it, and clamps it to the valid range.
func (d *decoder) score(raw json.RawMessage) int {
	if len(raw) == 0 {
		return model.MinScore
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || math.IsNaN(f) {
		d.warnf("score: ignored non-numeric value %s", raw)
		return model.MinScore
	}
	f = math.Max(model.MinScore, math.Min(model.MaxScore, math.Round(f)))
	return int(f)
}

func (d *decoder) object(field string, raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		d.warnf("%s: ignored non-object value", field)
		return nil
	}
	return obj
}

func (d *decoder) suggestions(raw json.RawMessage) []string {
	items := d.array("suggestions", raw)
	out := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			d.warnf("suggestions[%d]: skipped non-string item", i)
			continue
		}
		out = append(out, s)
	}
	return out
}

func (d *decoder) array(field string, raw json.RawMessage) []json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		d.warnf("%s: ignored non-array value", field)
		return nil
	}
	return items
}

// decodeItems decodes each element of an array independently so that one
// malformed element does not discard its siblings.
func decodeItems[T any](d *decoder, field string, raw json.RawMessage) []T {
	items := d.array(field, raw)
	out := make([]T, 0, len(items))
	for i, item := range items {
		if string(bytes.TrimSpace(item)) == "null" {
			d.warnf("%s[%d]: skipped null item", field, i)
			continue
		}
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			d.warnf("%s[%d]: skipped malformed item", field, i)
			continue
		}
		out = append(out, v)
	}
	return out
}
