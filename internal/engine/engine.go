// Package engine wraps a chess analysis engine behind a small contract.
//
// Timeouts are not errors: a slow engine yields whatever it found within the
// budget with TimedOut set. Only a crashed or misbehaving engine produces an
// error, and callers can test for it with errors.Is(err, ErrEngineFault).
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/pawnsposes/puzzlegen/internal/puzzle"
)

// ErrEngineFault marks a real engine failure (crash, malformed output,
// unparseable position) as opposed to a timeout.
var ErrEngineFault = errors.New("engine fault")

// AnalysisResult is the outcome of one analysis call. Ephemeral.
type AnalysisResult struct {
	// PV is the principal variation in UCI notation, best line first.
	PV []string
	// BestMove is the engine's chosen move, normally PV[0].
	BestMove string
	// DepthReached is the search depth of the deepest completed iteration.
	DepthReached int
	// TimedOut is set when the requested depth was not reached within the
	// time budget. The PV is still the best found so far.
	TimedOut bool
}

// Analyzer is the capability the generation pipeline needs from an engine.
// Implementations must be safe for concurrent use and must return within
// budget plus a bounded shutdown slack.
type Analyzer interface {
	Analyze(ctx context.Context, pos puzzle.Position, depth int, budget time.Duration) (AnalysisResult, error)
}
