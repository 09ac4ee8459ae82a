// Package extend grows a single position into a multi-ply training line by
// repeatedly consulting the analysis engine.
package extend

import (
	"fmt"
	"time"

	"context"

	"github.com/rs/zerolog"

	"github.com/pawnsposes/puzzlegen/internal/engine"
	"github.com/pawnsposes/puzzlegen/internal/puzzle"
)

// Config configures both extender flavors.
type Config struct {
	Analyzer engine.Analyzer
	Logger   zerolog.Logger

	SearchDepth     int           // engine depth for PV extension
	FirstMoveBudget time.Duration // budget for the first analysis of a line
	MoveBudget      time.Duration // budget for every later analysis
	MaxIterations   int           // cap on PV re-analysis rounds
}

func (c Config) withDefaults() Config {
	if c.SearchDepth == 0 {
		c.SearchDepth = 18
	}
	if c.FirstMoveBudget == 0 {
		c.FirstMoveBudget = 3 * time.Second
	}
	if c.MoveBudget == 0 {
		c.MoveBudget = time.Second
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 8
	}
	return c
}

// LineExtender builds lines by stitching principal variations together: one
// deep search, apply its PV, then re-search from where the PV ran out.
type LineExtender struct {
	cfg Config
}

// NewLineExtender fills config defaults.
func NewLineExtender(cfg Config) *LineExtender {
	return &LineExtender{cfg: cfg.withDefaults()}
}

// Extend grows a line from start up to maxPlies. It never fails for "not
// long enough": the returned line is whatever accumulated, and the caller
// compares its length against the active tier's minimum. A non-nil error
// reports an engine fault or cancellation encountered mid-extension; the
// accompanying line is still the valid prefix built before the failure.
func (e *LineExtender) Extend(ctx context.Context, start puzzle.Position, wantPlies, maxPlies int) (puzzle.MoveLine, error) {
	gs, err := start.Game()
	if err != nil {
		return nil, err
	}

	line := puzzle.MoveLine{}
	budget := e.cfg.FirstMoveBudget
	cur := start

	for iter := 0; iter < e.cfg.MaxIterations && line.Len() < maxPlies; iter++ {
		if puzzle.IsTerminal(gs) {
			break
		}

		res, err := e.cfg.Analyzer.Analyze(ctx, cur, e.cfg.SearchDepth, budget)
		if err != nil {
			return line, err
		}
		budget = e.cfg.MoveBudget

		moves := res.PV
		if len(moves) == 0 && res.BestMove != "" {
			moves = []string{res.BestMove}
		}
		if len(moves) == 0 {
			// Timed out with nothing, or engine sees a terminal position.
			break
		}

		applied := 0
		for _, uciMove := range moves {
			if line.Len() >= maxPlies {
				break
			}
			if err := puzzle.ApplyUCI(gs, uciMove); err != nil {
				// Corrupt PV tail: keep the legal prefix, stop extending.
				e.cfg.Logger.Debug().
					Str("move", uciMove).
					Int("plies", line.Len()).
					Msg("PV move rejected, truncating line")
				return line, nil
			}
			line = append(line, uciMove)
			applied++
		}
		if applied == 0 {
			break
		}

		cur, err = puzzle.NewPosition(gs.ToFEN())
		if err != nil {
			return line, fmt.Errorf("reparse extended position: %w", err)
		}
	}

	if line.Len() < wantPlies {
		e.cfg.Logger.Debug().
			Str("fen", start.FEN()).
			Int("plies", line.Len()).
			Int("want", wantPlies).
			Msg("line under wanted length")
	}
	return line, nil
}
