package model

// Direction tells whether a repository got better or worse between two
// analyses.
type Direction int

const (
	// Unchanged means neither the score nor the issue total moved.
	Unchanged Direction = iota

	// Improved means the score rose, or it held while issues decreased.
	Improved

	// Worsened means the score fell, or it held while issues increased.
	Worsened
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Improved:
		return "improved"
	case Worsened:
		return "worsened"
	default:
		return "unchanged"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Comparison holds the differences between two analyses of a repository.
// Every delta is current minus previous.
type Comparison struct {
	Previous Summary `json:"previous"`
	Current  Summary `json:"current"`

	ScoreDelta         int `json:"score_delta"`
	ErrorDelta         int `json:"error_delta"`
	WarningDelta       int `json:"warning_delta"`
	SecretDelta        int `json:"secret_delta"`
	VulnerabilityDelta int `json:"vulnerability_delta"`

	TierChanged bool      `json:"tier_changed"`
	Direction   Direction `json:"direction"`
}

// Compare computes the differences from previous to current.
// The score decides the direction; the issue total breaks ties.
func Compare(previous, current Summary) Comparison {
	c := Comparison{
		Previous:           previous,
		Current:            current,
		ScoreDelta:         current.Score - previous.Score,
		ErrorDelta:         current.ErrorCount - previous.ErrorCount,
		WarningDelta:       current.WarningCount - previous.WarningCount,
		SecretDelta:        current.SecretCount - previous.SecretCount,
		VulnerabilityDelta: current.VulnerabilityCount - previous.VulnerabilityCount,
		TierChanged:        current.Tier != previous.Tier,
	}

	issueDelta := current.TotalIssues() - previous.TotalIssues()
	switch {
	case c.ScoreDelta > 0:
		c.Direction = Improved
	case c.ScoreDelta < 0:
		c.Direction = Worsened
	case issueDelta < 0:
		c.Direction = Improved
	case issueDelta > 0:
		c.Direction = Worsened
	default:
		c.Direction = Unchanged
	}
	return c
}
