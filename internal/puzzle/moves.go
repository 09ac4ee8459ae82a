package puzzle

import (
	"fmt"

	"github.com/freeeve/pgn/v3"
)

const (
	fileChars = "abcdefgh"
	rankChars = "12345678"
)

// MoveToUCI converts a move to UCI notation (e.g. "e2e4", "e7e8q").
func MoveToUCI(mv pgn.Mv) string {
	from := string(fileChars[mv.From%8]) + string(rankChars[mv.From/8])
	to := string(fileChars[mv.To%8]) + string(rankChars[mv.To/8])

	uci := from + to
	switch mv.Promo {
	case pgn.PromoQueen:
		uci += "q"
	case pgn.PromoRook:
		uci += "r"
	case pgn.PromoBishop:
		uci += "b"
	case pgn.PromoKnight:
		uci += "n"
	}
	return uci
}

// parseSquare converts "e4" to a 0-63 square index.
func parseSquare(s string) (int, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, fmt.Errorf("bad square %q", s)
	}
	return int(s[1]-'1')*8 + int(s[0]-'a'), nil
}

// ParseUCIMove resolves a UCI move string against the legal moves of the
// given position. It fails when the move is malformed or illegal, which is
// how a corrupt engine PV is detected.
func ParseUCIMove(pos *pgn.GameState, uciMove string) (pgn.Mv, error) {
	if len(uciMove) != 4 && len(uciMove) != 5 {
		return pgn.Mv{}, fmt.Errorf("bad UCI move %q", uciMove)
	}
	from, err := parseSquare(uciMove[0:2])
	if err != nil {
		return pgn.Mv{}, fmt.Errorf("bad UCI move %q: %w", uciMove, err)
	}
	to, err := parseSquare(uciMove[2:4])
	if err != nil {
		return pgn.Mv{}, fmt.Errorf("bad UCI move %q: %w", uciMove, err)
	}

	var promo byte
	if len(uciMove) == 5 {
		promo = uciMove[4]
	}

	for _, mv := range pgn.GenerateLegalMoves(pos) {
		if int(mv.From) != from || int(mv.To) != to {
			continue
		}
		if promo != 0 && !promoMatches(mv, promo) {
			continue
		}
		if promo == 0 && isPromotion(mv) {
			// The promotion piece must be explicit in the move string.
			continue
		}
		return mv, nil
	}
	return pgn.Mv{}, fmt.Errorf("illegal move %q in position %q", uciMove, pos.ToFEN())
}

func promoMatches(mv pgn.Mv, promo byte) bool {
	switch promo {
	case 'q':
		return mv.Promo == pgn.PromoQueen
	case 'r':
		return mv.Promo == pgn.PromoRook
	case 'b':
		return mv.Promo == pgn.PromoBishop
	case 'n':
		return mv.Promo == pgn.PromoKnight
	}
	return false
}

func isPromotion(mv pgn.Mv) bool {
	return promoMatches(mv, 'q') || promoMatches(mv, 'r') ||
		promoMatches(mv, 'b') || promoMatches(mv, 'n')
}

// ApplyUCI applies a UCI move to the game state in place.
func ApplyUCI(pos *pgn.GameState, uciMove string) error {
	mv, err := ParseUCIMove(pos, uciMove)
	if err != nil {
		return err
	}
	if err := pgn.ApplyMove(pos, mv); err != nil {
		return fmt.Errorf("apply %q: %w", uciMove, err)
	}
	return nil
}

// ApplyLine plays a full move line out from a starting position and returns
// the resulting game state. It fails on the first illegal move.
func ApplyLine(start Position, line MoveLine) (*pgn.GameState, error) {
	gs, err := start.Game()
	if err != nil {
		return nil, err
	}
	for i, uciMove := range line {
		if err := ApplyUCI(gs, uciMove); err != nil {
			return nil, fmt.Errorf("ply %d: %w", i+1, err)
		}
	}
	return gs, nil
}

// IsTerminal reports whether the position has no legal moves (mate or
// stalemate).
func IsTerminal(pos *pgn.GameState) bool {
	return len(pgn.GenerateLegalMoves(pos)) == 0
}
