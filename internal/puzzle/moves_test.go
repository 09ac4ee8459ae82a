package puzzle_test

import (
	"testing"

	"github.com/freeeve/pgn/v3"

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

func TestApplyLine(t *testing.T) {
	start := mustPosition(t, startFEN)

	gs, err := puzzle.ApplyLine(start, puzzle.MoveLine{"e2e4", "e7e5", "g1f3", "b8c6"})
	if err != nil {
		t.Fatalf("ApplyLine: %v", err)
	}
	after, err := puzzle.NewPosition(gs.ToFEN())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if got := after.SideToMove(); got != "white" {
		t.Errorf("after 4 plies side to move = %s, want white", got)
	}
}

func TestApplyLineIllegalMove(t *testing.T) {
	start := mustPosition(t, startFEN)

	if _, err := puzzle.ApplyLine(start, puzzle.MoveLine{"e2e4", "e2e4"}); err == nil {
		t.Fatal("expected error for repeated e2e4")
	}
	if _, err := puzzle.ApplyLine(start, puzzle.MoveLine{"e2e5"}); err == nil {
		t.Fatal("expected error for illegal pawn jump e2e5")
	}
	if _, err := puzzle.ApplyLine(start, puzzle.MoveLine{"zz99"}); err == nil {
		t.Fatal("expected error for malformed move")
	}
}

func TestMoveToUCIRoundTrip(t *testing.T) {
	gs, err := pgn.NewGame(startFEN)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}

	moves := pgn.GenerateLegalMoves(gs)
	if len(moves) != 20 {
		t.Fatalf("expected 20 legal moves from the start, got %d", len(moves))
	}
	for _, mv := range moves {
		uciStr := puzzle.MoveToUCI(mv)
		parsed, err := puzzle.ParseUCIMove(gs, uciStr)
		if err != nil {
			t.Fatalf("ParseUCIMove(%q): %v", uciStr, err)
		}
		if parsed.From != mv.From || parsed.To != mv.To {
			t.Errorf("round trip %q: got %d->%d, want %d->%d",
				uciStr, parsed.From, parsed.To, mv.From, mv.To)
		}
	}
}

func TestPositionKey(t *testing.T) {
	a := mustPosition(t, startFEN)
	b := mustPosition(t, startFEN)
	if a.Key().String() != b.Key().String() {
		t.Error("same FEN should pack to the same key")
	}

	c := mustPosition(t, "rnbqkbnr/pppppppp/8/8/8/P7/1PPPPPPP/RNBQKBNR b KQkq - 0 1")
	if a.Key().String() == c.Key().String() {
		t.Error("different positions should pack to different keys")
	}
}

func TestSideToMove(t *testing.T) {
	if got := mustPosition(t, startFEN).SideToMove(); got != "white" {
		t.Errorf("start position side = %s, want white", got)
	}
	black := mustPosition(t, "rnbqkbnr/pppppppp/8/8/8/P7/1PPPPPPP/RNBQKBNR b KQkq - 0 1")
	if got := black.SideToMove(); got != "black" {
		t.Errorf("after 1.a3 side = %s, want black", got)
	}
}

func TestNewPositionRejectsGarbage(t *testing.T) {
	if _, err := puzzle.NewPosition("not a fen"); err == nil {
		t.Error("expected error for garbage FEN")
	}
}

func TestMoveLine(t *testing.T) {
	line := puzzle.MoveLine{"e2e4", "e7e5"}
	if !line.MeetsMinimum(2) {
		t.Error("2-ply line should meet minimum 2")
	}
	if line.MeetsMinimum(3) {
		t.Error("2-ply line should not meet minimum 3")
	}
	if got := line.String(); got != "e2e4 e7e5" {
		t.Errorf("String() = %q", got)
	}

	clone := line.Clone()
	clone[0] = "d2d4"
	if line[0] != "e2e4" {
		t.Error("Clone must not share backing storage")
	}
}
