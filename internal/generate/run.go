package generate

import (
	"sort"
	"sync"

	"github.com/pawnsposes/puzzlegen/internal/puzzle"
)

// run is the mutable state of one generation call. It lives only for the
// duration of the call and is shared by the batch workers, so every access
// goes through the mutex.
type run struct {
	mu        sync.Mutex
	target    int
	collected []puzzle.GeneratedPuzzle
	used      map[string]bool // packed position keys

	// nearMiss keeps the best line a candidate achieved under a tier whose
	// minimum it failed. A later tier with a looser minimum can accept the
	// cached line without analyzing the position a second time.
	nearMiss map[string]nearMissLine
}

// nearMissLine is a computed line that fell short of its tier's minimum.
type nearMissLine struct {
	cand puzzle.Candidate
	line puzzle.MoveLine
}

func newRun(target int) *run {
	return &run{
		target:   target,
		used:     make(map[string]bool),
		nearMiss: make(map[string]nearMissLine),
	}
}

// tryMarkUsed claims a start position for processing. It returns false when
// the position was already consumed earlier in the run, which is how the
// same mistake reached from two games is processed only once.
func (r *run) tryMarkUsed(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used[key] {
		return false
	}
	r.used[key] = true
	return true
}

func (r *run) isUsed(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used[key]
}

// add appends a puzzle unless the target is already met. The length check
// and the append share the critical section so two workers can never both
// slip past the target; overshoot is rejected here, not trimmed later.
func (r *run) add(p puzzle.GeneratedPuzzle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.collected) >= r.target {
		return false
	}
	r.collected = append(r.collected, p)
	return true
}

// full reports whether the target count has been reached.
func (r *run) full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.collected) >= r.target
}

// rememberNearMiss stores a candidate's best under-minimum line for later
// tiers. Empty lines are not worth remembering.
func (r *run) rememberNearMiss(cand puzzle.Candidate, line puzzle.MoveLine) {
	if line.Len() == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := cand.Start.Key().String()
	if prev, ok := r.nearMiss[key]; ok && prev.line.Len() >= line.Len() {
		return
	}
	r.nearMiss[key] = nearMissLine{cand: cand, line: line}
}

// takeNearMisses removes and returns every cached line long enough for the
// given minimum, ordered by candidate ID for determinism.
func (r *run) takeNearMisses(minPlies int) []nearMissLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []nearMissLine
	for key, nm := range r.nearMiss {
		if nm.line.MeetsMinimum(minPlies) {
			out = append(out, nm)
			delete(r.nearMiss, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].cand.ID < out[j].cand.ID })
	return out
}

// snapshot returns a copy of everything collected so far.
func (r *run) snapshot() []puzzle.GeneratedPuzzle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]puzzle.GeneratedPuzzle, len(r.collected))
	copy(out, r.collected)
	return out
}
