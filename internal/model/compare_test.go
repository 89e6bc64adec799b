package model

import "testing"

func TestCompare(t *testing.T) {
	t.Parallel()

	base := Summary{Score: 80, Tier: TierGood, ErrorCount: 2, WarningCount: 3}

	tests := []struct {
		name    string
		current Summary
		want    Direction
		tier    bool
	}{
		{
			name:    "higher score improves",
			current: Summary{Score: 92, Tier: TierExcellent, ErrorCount: 4},
			want:    Improved,
			tier:    true,
		},
		{
			name:    "lower score worsens",
			current: Summary{Score: 60, Tier: TierNeedsImprovement},
			want:    Worsened,
			tier:    true,
		},
		{
			name:    "same score fewer issues improves",
			current: Summary{Score: 80, Tier: TierGood, ErrorCount: 1, WarningCount: 3},
			want:    Improved,
		},
		{
			name:    "same score more issues worsens",
			current: Summary{Score: 80, Tier: TierGood, ErrorCount: 2, WarningCount: 3, SecretCount: 1},
			want:    Worsened,
		},
		{
			name:    "identical is unchanged",
			current: base,
			want:    Unchanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := Compare(base, tt.current)
			if c.Direction != tt.want {
				t.Errorf("Direction = %v, expected %v", c.Direction, tt.want)
			}
			if c.TierChanged != tt.tier {
				t.Errorf("TierChanged = %v, expected %v", c.TierChanged, tt.tier)
			}
			if c.ScoreDelta != tt.current.Score-base.Score {
				t.Errorf("ScoreDelta = %d", c.ScoreDelta)
			}
		})
	}
}
