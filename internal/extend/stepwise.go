package extend

import (
	"context"

	"github.com/pawnsposes/puzzlegen/internal/puzzle"
)

// stepwiseDepthCut is how much shallower stepwise searches run compared to
// PV extension, since there is one search per ply instead of per PV.
const stepwiseDepthCut = 4

// minStepwiseDepth floors the stepwise search depth.
const minStepwiseDepth = 6

// StepwiseExtender re-analyzes after applying every single move. Costlier
// per ply than PV extension but immune to PV truncation, so it runs as the
// last strategy for a candidate.
type StepwiseExtender struct {
	cfg   Config
	depth int
}

// NewStepwiseExtender fills config defaults and derives the shallower
// per-ply search depth.
func NewStepwiseExtender(cfg Config) *StepwiseExtender {
	cfg = cfg.withDefaults()
	depth := cfg.SearchDepth - stepwiseDepthCut
	if depth < minStepwiseDepth {
		depth = minStepwiseDepth
	}
	return &StepwiseExtender{cfg: cfg, depth: depth}
}

// Extend grows a line one ply at a time with a uniform per-ply budget.
// Failure semantics match LineExtender: the accumulated prefix is always
// returned, and a non-nil error reports the fault that ended extension.
func (e *StepwiseExtender) Extend(ctx context.Context, start puzzle.Position, maxPlies int) (puzzle.MoveLine, error) {
	gs, err := start.Game()
	if err != nil {
		return nil, err
	}

	line := puzzle.MoveLine{}
	cur := start

	for line.Len() < maxPlies {
		if puzzle.IsTerminal(gs) {
			break
		}

		res, err := e.cfg.Analyzer.Analyze(ctx, cur, e.depth, e.cfg.MoveBudget)
		if err != nil {
			return line, err
		}

		move := res.BestMove
		if move == "" && len(res.PV) > 0 {
			move = res.PV[0]
		}
		if move == "" {
			break
		}

		if err := puzzle.ApplyUCI(gs, move); err != nil {
			e.cfg.Logger.Debug().
				Str("move", move).
				Int("plies", line.Len()).
				Msg("stepwise move rejected, truncating line")
			return line, nil
		}
		line = append(line, move)

		cur, err = puzzle.NewPosition(gs.ToFEN())
		if err != nil {
			return line, err
		}
	}
	return line, nil
}
