// Package schema validates and decodes analysis payloads received from the
// analysis backend or read from disk.
//
// The backend returns either a bare result object or a wrapper of the form
// {"success", "repo_url", "branch", "results": {...}}. Decode accepts both.
// A null results field falls back to the wrapper's own fields.
// Validation against the JSON Schema in this package never rejects a
// payload: violations are collected as warnings and the offending fields
// fall back to empty defaults. Only input that is not a JSON object at all
// yields ErrInvalidPayload.
package schema
