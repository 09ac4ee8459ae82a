// Package puzzle holds the domain types for tactical puzzle generation.
package puzzle

import (
	"fmt"
	"strings"

	"github.com/freeeve/pgn/v3"
)

// Position is an immutable board state identified by FEN. Two positions are
// the same when their packed keys match, regardless of how they were reached.
type Position struct {
	fen string
	key pgn.PackedPosition
}

// NewPosition parses and validates a FEN string.
func NewPosition(fen string) (Position, error) {
	gs, err := pgn.NewGame(fen)
	if err != nil {
		return Position{}, fmt.Errorf("parse FEN %q: %w", fen, err)
	}
	return Position{fen: fen, key: gs.Pack()}, nil
}

// FEN returns the position's FEN string.
func (p Position) FEN() string { return p.fen }

// Key returns the packed position used for deduplication.
func (p Position) Key() pgn.PackedPosition { return p.key }

// Game returns a fresh mutable game state for this position.
func (p Position) Game() (*pgn.GameState, error) {
	gs, err := pgn.NewGame(p.fen)
	if err != nil {
		return nil, fmt.Errorf("parse FEN %q: %w", p.fen, err)
	}
	return gs, nil
}

// SideToMove returns "white" or "black" from the FEN's active-color field.
func (p Position) SideToMove() string {
	fields := strings.Fields(p.fen)
	if len(fields) >= 2 && fields[1] == "b" {
		return "black"
	}
	return "white"
}

// IsZero reports whether the position was never initialized.
func (p Position) IsZero() bool { return p.fen == "" }

// MoveLine is an ordered sequence of plies in UCI notation ("e2e4", "e7e8q").
type MoveLine []string

// Len returns the number of plies in the line.
func (l MoveLine) Len() int { return len(l) }

// MeetsMinimum reports whether the line is long enough to be accepted.
func (l MoveLine) MeetsMinimum(minPlies int) bool { return len(l) >= minPlies }

// String joins the plies with spaces.
func (l MoveLine) String() string { return strings.Join(l, " ") }

// Clone returns an independent copy of the line.
func (l MoveLine) Clone() MoveLine {
	out := make(MoveLine, len(l))
	copy(out, l)
	return out
}

// Candidate is a mistake position eligible to become a puzzle.
type Candidate struct {
	ID           string
	Start        Position
	PlayedMove   string // the move the user actually played (UCI)
	CorrectMove  string // the engine's preferred move at the time (UCI)
	SourceGameID string
}

// SourceTag records which strategy or tier produced a puzzle.
type SourceTag string

const (
	// SourcePrimary marks a line found by plain PV extension.
	SourcePrimary SourceTag = "primary"
	// SourceRelaxed marks a line from a fallback strategy (seeded with the
	// known correct move, or stepwise re-analysis).
	SourceRelaxed SourceTag = "relaxed"
	// SourceReused marks a line computed under an earlier, stricter tier
	// and accepted once a later tier relaxed the ply minimum.
	SourceReused SourceTag = "reused"
	// SourceCatalog marks a line built from the curated static catalog.
	SourceCatalog SourceTag = "fallback_catalog"
)

// Difficulty buckets a puzzle for presentation.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// GeneratedPuzzle is one validated training line.
type GeneratedPuzzle struct {
	ID             string     `json:"id"`
	FEN            string     `json:"fen"`
	Line           MoveLine   `json:"line"`
	SideToMove     string     `json:"sideToMove"`
	Difficulty     Difficulty `json:"difficulty"`
	RatingEstimate int        `json:"ratingEstimate"`
	Source         SourceTag  `json:"source"`

	Start Position `json:"-"`
}

// Set is the final output of one generation run.
type Set struct {
	Puzzles []GeneratedPuzzle `json:"puzzles"`
	// UnderTarget is set when fewer puzzles than requested could be produced
	// even after the static catalog was exhausted.
	UnderTarget bool `json:"underTarget"`
	// Version is an opaque token supplied by the caller for cache-key
	// construction. It has no meaning inside the generator.
	Version string `json:"version,omitempty"`
}
