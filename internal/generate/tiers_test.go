package generate

import (
	"testing"
	"time"
)

func TestValidateTiersFillsDefaults(t *testing.T) {
	tiers, err := validateTiers([]TierConfig{{MinimumPlies: 3}})
	if err != nil {
		t.Fatalf("validateTiers: %v", err)
	}
	got := tiers[0]
	if got.Name != "tier1" {
		t.Errorf("Name = %q, want tier1", got.Name)
	}
	if got.TargetPlies != 3 {
		t.Errorf("TargetPlies = %d, want raised to the minimum", got.TargetPlies)
	}
	if got.SearchDepth != 16 {
		t.Errorf("SearchDepth = %d, want 16", got.SearchDepth)
	}
	if got.FirstMoveBudget != 2*time.Second || got.MoveBudget != 500*time.Millisecond {
		t.Errorf("budgets = %v/%v", got.FirstMoveBudget, got.MoveBudget)
	}
	if got.PoolMultiplier != 3 {
		t.Errorf("PoolMultiplier = %d, want 3", got.PoolMultiplier)
	}
}

func TestValidateTiersRejectsBadLadders(t *testing.T) {
	if _, err := validateTiers(nil); err == nil {
		t.Error("empty ladder should fail")
	}
	if _, err := validateTiers([]TierConfig{{MinimumPlies: 0}}); err == nil {
		t.Error("zero minimum should fail")
	}
	widening := []TierConfig{{MinimumPlies: 2}, {MinimumPlies: 4}}
	if _, err := validateTiers(widening); err == nil {
		t.Error("a later tier must not raise the minimum")
	}
}

func TestValidateTiersDoesNotMutateInput(t *testing.T) {
	in := []TierConfig{{MinimumPlies: 2}}
	if _, err := validateTiers(in); err != nil {
		t.Fatal(err)
	}
	if in[0].Name != "" || in[0].SearchDepth != 0 {
		t.Error("input slice was mutated")
	}
}

func TestDefaultTiersValid(t *testing.T) {
	tiers, err := validateTiers(DefaultTiers())
	if err != nil {
		t.Fatalf("default ladder invalid: %v", err)
	}
	if len(tiers) != 2 {
		t.Fatalf("got %d tiers, want 2", len(tiers))
	}
	if tiers[0].MinimumPlies <= tiers[1].MinimumPlies {
		t.Error("the first tier should be the strict one")
	}
}
