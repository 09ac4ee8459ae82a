package extend_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pawnsposes/puzzlegen/internal/engine"
	"github.com/pawnsposes/puzzlegen/internal/engine/enginetest"
	"github.com/pawnsposes/puzzlegen/internal/extend"
	"github.com/pawnsposes/puzzlegen/internal/puzzle"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func mustPosition(t *testing.T, fen string) puzzle.Position {
	t.Helper()
	pos, err := puzzle.NewPosition(fen)
	if err != nil {
		t.Fatalf("NewPosition(%q): %v", fen, err)
	}
	return pos
}

// fenAfter plays a line out from start and returns the resulting FEN in the
// same rendering the extenders use when they re-key a position.
func fenAfter(t *testing.T, start puzzle.Position, moves ...string) string {
	t.Helper()
	gs, err := puzzle.ApplyLine(start, puzzle.MoveLine(moves))
	if err != nil {
		t.Fatalf("fenAfter %v: %v", moves, err)
	}
	return gs.ToFEN()
}

func newLineExtender(sc *enginetest.Script) *extend.LineExtender {
	return extend.NewLineExtender(extend.Config{
		Analyzer:        sc,
		Logger:          zerolog.Nop(),
		SearchDepth:     12,
		FirstMoveBudget: time.Second,
		MoveBudget:      500 * time.Millisecond,
	})
}

func equalLines(a, b puzzle.MoveLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExtendStitchesPVs(t *testing.T) {
	start := mustPosition(t, startFEN)
	sc := enginetest.New()
	sc.On(startFEN, enginetest.Response{PV: []string{"e2e4", "e7e5"}})
	sc.On(fenAfter(t, start, "e2e4", "e7e5"),
		enginetest.Response{PV: []string{"g1f3", "b8c6"}})

	line, err := newLineExtender(sc).Extend(context.Background(), start, 4, 4)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	want := puzzle.MoveLine{"e2e4", "e7e5", "g1f3", "b8c6"}
	if !equalLines(line, want) {
		t.Errorf("line = %v, want %v", line, want)
	}
	if sc.Calls() != 2 {
		t.Errorf("analyze calls = %d, want 2", sc.Calls())
	}
}

func TestExtendTruncatesIllegalPV(t *testing.T) {
	start := mustPosition(t, startFEN)
	sc := enginetest.New()
	sc.On(startFEN, enginetest.Response{PV: []string{"e2e4", "e2e4"}})

	line, err := newLineExtender(sc).Extend(context.Background(), start, 4, 8)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if !equalLines(line, puzzle.MoveLine{"e2e4"}) {
		t.Errorf("line = %v, want the legal prefix [e2e4]", line)
	}
}

func TestExtendTimeoutYieldsEmptyLineNoError(t *testing.T) {
	start := mustPosition(t, startFEN)
	sc := enginetest.New() // default response: timed out, nothing found

	line, err := newLineExtender(sc).Extend(context.Background(), start, 4, 8)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if line.Len() != 0 {
		t.Errorf("line = %v, want empty", line)
	}
}

func TestExtendFallsBackToBestMove(t *testing.T) {
	start := mustPosition(t, startFEN)
	sc := enginetest.New()
	sc.On(startFEN, enginetest.Response{BestMove: "d2d4", TimedOut: true})

	line, err := newLineExtender(sc).Extend(context.Background(), start, 1, 1)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if !equalLines(line, puzzle.MoveLine{"d2d4"}) {
		t.Errorf("line = %v, want [d2d4]", line)
	}
}

func TestExtendStopsAtMaxPlies(t *testing.T) {
	start := mustPosition(t, startFEN)
	sc := enginetest.New()
	sc.On(startFEN, enginetest.Response{PV: []string{"e2e4", "e7e5", "g1f3", "b8c6"}})

	line, err := newLineExtender(sc).Extend(context.Background(), start, 2, 3)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if !equalLines(line, puzzle.MoveLine{"e2e4", "e7e5", "g1f3"}) {
		t.Errorf("line = %v, want the first 3 plies", line)
	}
	if sc.Calls() != 1 {
		t.Errorf("analyze calls = %d, want 1", sc.Calls())
	}
}

func TestExtendIterationCap(t *testing.T) {
	start := mustPosition(t, startFEN)
	sc := enginetest.New()
	sc.On(startFEN, enginetest.Response{PV: []string{"e2e4"}})
	sc.On(fenAfter(t, start, "e2e4"), enginetest.Response{PV: []string{"e7e5"}})
	sc.On(fenAfter(t, start, "e2e4", "e7e5"), enginetest.Response{PV: []string{"g1f3"}})

	ext := extend.NewLineExtender(extend.Config{
		Analyzer:      sc,
		Logger:        zerolog.Nop(),
		MaxIterations: 2,
	})
	line, err := ext.Extend(context.Background(), start, 4, 8)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if line.Len() != 2 {
		t.Errorf("line length = %d, want 2 after the iteration cap", line.Len())
	}
}

func TestExtendReturnsPrefixOnEngineFault(t *testing.T) {
	start := mustPosition(t, startFEN)
	fault := fmt.Errorf("%w: pipe closed", engine.ErrEngineFault)

	sc := enginetest.New()
	sc.On(startFEN, enginetest.Response{PV: []string{"e2e4", "e7e5"}})
	sc.On(fenAfter(t, start, "e2e4", "e7e5"), enginetest.Response{Err: fault})

	line, err := newLineExtender(sc).Extend(context.Background(), start, 4, 8)
	if !errors.Is(err, engine.ErrEngineFault) {
		t.Fatalf("err = %v, want engine fault", err)
	}
	if line.Len() != 2 {
		t.Errorf("line = %v, want the 2-ply prefix built before the fault", line)
	}
}

func TestExtendCancelledContext(t *testing.T) {
	start := mustPosition(t, startFEN)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	line, err := newLineExtender(enginetest.New()).Extend(ctx, start, 4, 8)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if line.Len() != 0 {
		t.Errorf("line = %v, want empty", line)
	}
}

func TestStepwiseExtend(t *testing.T) {
	start := mustPosition(t, startFEN)
	sc := enginetest.New()
	sc.On(startFEN, enginetest.Response{BestMove: "e2e4"})
	sc.On(fenAfter(t, start, "e2e4"), enginetest.Response{BestMove: "e7e5"})
	sc.On(fenAfter(t, start, "e2e4", "e7e5"), enginetest.Response{BestMove: "g1f3"})

	step := extend.NewStepwiseExtender(extend.Config{
		Analyzer: sc,
		Logger:   zerolog.Nop(),
	})
	line, err := step.Extend(context.Background(), start, 3)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if !equalLines(line, puzzle.MoveLine{"e2e4", "e7e5", "g1f3"}) {
		t.Errorf("line = %v, want [e2e4 e7e5 g1f3]", line)
	}
	if sc.Calls() != 3 {
		t.Errorf("analyze calls = %d, want one per ply", sc.Calls())
	}
}

func TestStepwiseStopsWhenEngineGoesQuiet(t *testing.T) {
	start := mustPosition(t, startFEN)
	sc := enginetest.New()
	sc.On(startFEN, enginetest.Response{BestMove: "e2e4"})
	// Every later position falls through to the empty default.

	step := extend.NewStepwiseExtender(extend.Config{
		Analyzer: sc,
		Logger:   zerolog.Nop(),
	})
	line, err := step.Extend(context.Background(), start, 6)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if !equalLines(line, puzzle.MoveLine{"e2e4"}) {
		t.Errorf("line = %v, want [e2e4]", line)
	}
}
