package model

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tier thresholds. Each bound is inclusive on the lower side of its tier.
const (
	ExcellentThreshold = 90
	GoodThreshold      = 70
)

// Tier is the three-level score classification used for badge and color
// selection.
type Tier int

const (
	// TierNeedsImprovement covers scores below GoodThreshold.
	TierNeedsImprovement Tier = iota

	// TierGood covers scores in [GoodThreshold, ExcellentThreshold).
	TierGood

	// TierExcellent covers scores at or above ExcellentThreshold.
	TierExcellent
)

// Classify returns the tier for score. Out-of-range scores are clamped
// first, so Classify is total over all integers and monotonic.
func Classify(score int) Tier {
	score = ClampScore(score)
	switch {
	case score >= ExcellentThreshold:
		return TierExcellent
	case score >= GoodThreshold:
		return TierGood
	default:
		return TierNeedsImprovement
	}
}

// String returns the lower-case tier name.
func (t Tier) String() string {
	switch t {
	case TierExcellent:
		return "excellent"
	case TierGood:
		return "good"
	default:
		return "needs improvement"
	}
}

var titleCaser = cases.Title(language.English)

// Label returns the display label, e.g. "Needs Improvement".
func (t Tier) Label() string {
	return titleCaser.String(t.String())
}

// Status returns the alert status paired with the tier.
func (t Tier) Status() Status {
	switch t {
	case TierExcellent:
		return StatusSuccess
	case TierGood:
		return StatusWarning
	default:
		return StatusError
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Unknown names decode to TierNeedsImprovement.
func (t *Tier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "excellent":
		*t = TierExcellent
	case "good":
		*t = TierGood
	default:
		*t = TierNeedsImprovement
	}
	return nil
}

// Status is the alert state of a report section.
type Status int

const (
	// StatusSuccess marks a clean section or an excellent score.
	StatusSuccess Status = iota

	// StatusWarning marks warnings or a good score.
	StatusWarning

	// StatusError marks errors, secrets, or a low score.
	StatusError

	// StatusInfo marks neutral information.
	StatusInfo
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	case StatusInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
