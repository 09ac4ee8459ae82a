package extend

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/pawnsposes/puzzlegen/internal/engine"
	"github.com/pawnsposes/puzzlegen/internal/puzzle"
)

// Strategy is one way of turning a candidate into a move line. Strategies
// are tried in a fixed order and the first one whose line clears the tier's
// minimum wins; later strategies are never run for that candidate.
type Strategy interface {
	Name() string
	Tag() puzzle.SourceTag
	Run(ctx context.Context, cand puzzle.Candidate, minPlies, targetPlies int) (puzzle.MoveLine, error)
}

// Chain returns the standard strategy order: plain PV extension, then a line
// seeded with the candidate's known correct move, then stepwise re-analysis.
func Chain(line *LineExtender, step *StepwiseExtender) []Strategy {
	return []Strategy{
		&pvStrategy{ext: line},
		&seededStrategy{ext: line},
		&stepwiseStrategy{ext: step},
	}
}

// RunChain tries each strategy in order and returns the first line that
// clears minPlies along with that strategy's tag. When no strategy clears
// the minimum, ok is false and the returned line is the longest one any
// strategy achieved, so a looser tier can still accept it later without
// re-running the engine. An engine fault abandons the candidate outright:
// nothing is returned and it is never retried within the run.
func RunChain(ctx context.Context, strategies []Strategy, cand puzzle.Candidate, minPlies, targetPlies int, log zerolog.Logger) (puzzle.MoveLine, puzzle.SourceTag, bool) {
	var best puzzle.MoveLine
	var bestTag puzzle.SourceTag

	for _, s := range strategies {
		line, err := s.Run(ctx, cand, minPlies, targetPlies)
		if line.MeetsMinimum(minPlies) {
			return line, s.Tag(), true
		}
		if err != nil {
			if errors.Is(err, engine.ErrEngineFault) {
				log.Warn().
					Err(err).
					Str("candidate", cand.ID).
					Str("strategy", s.Name()).
					Msg("engine fault, candidate skipped")
			}
			return nil, "", false
		}
		if line.Len() > best.Len() {
			best = line
			bestTag = s.Tag()
		}
		log.Debug().
			Str("candidate", cand.ID).
			Str("strategy", s.Name()).
			Int("plies", line.Len()).
			Int("min", minPlies).
			Msg("strategy under minimum")
	}
	return best, bestTag, false
}

// pvStrategy extends straight from the mistake position.
type pvStrategy struct {
	ext *LineExtender
}

func (s *pvStrategy) Name() string          { return "pv" }
func (s *pvStrategy) Tag() puzzle.SourceTag { return puzzle.SourcePrimary }

func (s *pvStrategy) Run(ctx context.Context, cand puzzle.Candidate, minPlies, targetPlies int) (puzzle.MoveLine, error) {
	return s.ext.Extend(ctx, cand.Start, minPlies, targetPlies)
}

// seededStrategy forces the known correct move first and extends from the
// position after it. Helps when the engine's first deep search disagrees
// with (or times out on) the stored refutation.
type seededStrategy struct {
	ext *LineExtender
}

func (s *seededStrategy) Name() string          { return "seeded" }
func (s *seededStrategy) Tag() puzzle.SourceTag { return puzzle.SourceRelaxed }

func (s *seededStrategy) Run(ctx context.Context, cand puzzle.Candidate, minPlies, targetPlies int) (puzzle.MoveLine, error) {
	if cand.CorrectMove == "" {
		return puzzle.MoveLine{}, nil
	}
	gs, err := cand.Start.Game()
	if err != nil {
		return nil, err
	}
	if err := puzzle.ApplyUCI(gs, cand.CorrectMove); err != nil {
		// Stored correct move does not apply; nothing to seed with.
		return puzzle.MoveLine{}, nil
	}
	after, err := puzzle.NewPosition(gs.ToFEN())
	if err != nil {
		return nil, err
	}

	rest, err := s.ext.Extend(ctx, after, minPlies-1, targetPlies-1)
	line := append(puzzle.MoveLine{cand.CorrectMove}, rest...)
	return line, err
}

// stepwiseStrategy is the final fallback before giving up on a candidate.
type stepwiseStrategy struct {
	ext *StepwiseExtender
}

func (s *stepwiseStrategy) Name() string          { return "stepwise" }
func (s *stepwiseStrategy) Tag() puzzle.SourceTag { return puzzle.SourceRelaxed }

func (s *stepwiseStrategy) Run(ctx context.Context, cand puzzle.Candidate, minPlies, targetPlies int) (puzzle.MoveLine, error) {
	return s.ext.Extend(ctx, cand.Start, targetPlies)
}
