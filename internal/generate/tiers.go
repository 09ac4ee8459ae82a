package generate

import (
	"fmt"
	"time"
)

// TierConfig is one step of the graduated fallback ladder. Tiers run in
// order and each one may only loosen the ply minimum of the tier before it.
type TierConfig struct {
	Name            string
	MinimumPlies    int           // acceptance floor for a line
	TargetPlies     int           // aspirational cap on extension, not a floor
	SearchDepth     int           // engine depth for PV extension
	FirstMoveBudget time.Duration // budget for the first analysis of a line
	MoveBudget      time.Duration // budget for later analyses
	PoolMultiplier  int           // candidate pool size = target × this
}

// DefaultTiers returns the tuned two-step ladder: a strict tier that wants
// long lines, then a relaxed tier that settles for short ones. The static
// catalog runs after both with the relaxed tier's minimum.
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{
			Name:            "strict",
			MinimumPlies:    4,
			TargetPlies:     12,
			SearchDepth:     20,
			FirstMoveBudget: 3 * time.Second,
			MoveBudget:      time.Second,
			PoolMultiplier:  3,
		},
		{
			Name:            "relaxed",
			MinimumPlies:    2,
			TargetPlies:     8,
			SearchDepth:     16,
			FirstMoveBudget: 2 * time.Second,
			MoveBudget:      500 * time.Millisecond,
			PoolMultiplier:  5,
		},
	}
}

// validateTiers checks the ladder invariants and fills per-tier defaults.
func validateTiers(tiers []TierConfig) ([]TierConfig, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("at least one tier required")
	}
	out := make([]TierConfig, len(tiers))
	copy(out, tiers)

	prevMin := 0
	for i := range out {
		t := &out[i]
		if t.Name == "" {
			t.Name = fmt.Sprintf("tier%d", i+1)
		}
		if t.MinimumPlies < 1 {
			return nil, fmt.Errorf("tier %s: minimum plies must be >= 1", t.Name)
		}
		if t.TargetPlies < t.MinimumPlies {
			t.TargetPlies = t.MinimumPlies
		}
		if t.SearchDepth == 0 {
			t.SearchDepth = 16
		}
		if t.FirstMoveBudget == 0 {
			t.FirstMoveBudget = 2 * time.Second
		}
		if t.MoveBudget == 0 {
			t.MoveBudget = 500 * time.Millisecond
		}
		if t.PoolMultiplier < 1 {
			t.PoolMultiplier = 3
		}
		if i > 0 && t.MinimumPlies > prevMin {
			return nil, fmt.Errorf("tier %s: minimum plies %d exceeds previous tier's %d",
				t.Name, t.MinimumPlies, prevMin)
		}
		prevMin = t.MinimumPlies
	}
	return out, nil
}
