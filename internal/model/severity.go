package model

import "strings"

// SecuritySeverity is the risk level of a security finding.
// The zero value is SeverityUnknown so that absent or unrecognized
// severities decode without error.
type SecuritySeverity int

const (
	// SeverityUnknown marks a severity the scanner did not report or that
	// is not one of the known levels.
	SeverityUnknown SecuritySeverity = iota

	// SeverityLow indicates a finding with limited impact.
	SeverityLow

	// SeverityMedium indicates a finding that warrants attention.
	SeverityMedium

	// SeverityHigh indicates a finding that should be fixed before merging.
	SeverityHigh

	// SeverityCritical indicates a credential that is very likely live.
	SeverityCritical
)

// String returns the wire representation of the severity.
func (s SecuritySeverity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSecuritySeverity maps a severity string to a SecuritySeverity.
// Matching is case-insensitive; unrecognized values yield SeverityUnknown.
func ParseSecuritySeverity(s string) SecuritySeverity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow
	case "medium", "moderate":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityUnknown
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SecuritySeverity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It never fails.
func (s *SecuritySeverity) UnmarshalText(text []byte) error {
	*s = ParseSecuritySeverity(string(text))
	return nil
}
