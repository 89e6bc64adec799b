package schema

import (
	"github.com/xeipuuv/gojsonschema"
)

// resultSchemaJSON describes a well-formed analysis result.
const resultSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["score"],
  "properties": {
    "score": { "type": "number", "minimum": 0, "maximum": 100 },
    "static_analysis": {
      "type": "object",
      "properties": {
        "errors":   { "type": "array", "items": { "$ref": "#/definitions/issue" } },
        "warnings": { "type": "array", "items": { "$ref": "#/definitions/issue" } }
      }
    },
    "security": {
      "type": "object",
      "properties": {
        "secrets": { "type": "array", "items": { "$ref": "#/definitions/secret" } },
        "vulnerabilities": { "type": "array", "items": { "type": "object" } }
      }
    },
    "suggestions": { "type": "array", "items": { "type": "string" } }
  },
  "definitions": {
    "issue": {
      "type": "object",
      "required": ["file", "line", "message"],
      "properties": {
        "file": { "type": "string" },
        "line": { "type": "integer", "minimum": 1 },
        "message": { "type": "string" },
        "code": { "type": "string" },
        "severity": { "type": "string" }
      }
    },
    "secret": {
      "type": "object",
      "required": ["file", "line", "pattern"],
      "properties": {
        "file": { "type": "string" },
        "line": { "type": "integer", "minimum": 1 },
        "pattern": { "type": "string" },
        "severity": { "enum": ["low", "medium", "high", "critical"] }
      }
    }
  }
}`

var resultSchemaLoader = gojsonschema.NewStringLoader(resultSchemaJSON)

// validate checks a bare result document against the result schema and
// returns one message per violation.
func validate(doc []byte) []string {
	result, err := gojsonschema.Validate(resultSchemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return []string{"schema validation failed: " + err.Error()}
	}
	if result.Valid() {
		return nil
	}

	warnings := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		warnings = append(warnings, desc.String())
	}
	return warnings
}
