// Package difficulty buckets a finished puzzle set and estimates ratings.
// Pure arithmetic over already-collected data; no engine calls happen here.
package difficulty

import (
	"fmt"

	"github.com/pawnsposes/puzzlegen/internal/puzzle"
)

// Band holds the rating constants for one difficulty bucket.
type Band struct {
	Base    int // rating of the shortest line in the bucket
	Ceiling int // ratings never exceed this
	PerPly  int // rating gained per extra ply over the bucket's shortest line
}

// Assigner splits a sorted puzzle list into easy/medium/hard thirds and
// derives a rating estimate from line length within each bucket.
type Assigner struct {
	Easy   Band
	Medium Band
	Hard   Band
}

// NewAssigner returns an assigner with the default rating bands.
func NewAssigner() *Assigner {
	return &Assigner{
		Easy:   Band{Base: 800, Ceiling: 1200, PerPly: 50},
		Medium: Band{Base: 1200, Ceiling: 1700, PerPly: 50},
		Hard:   Band{Base: 1700, Ceiling: 2200, PerPly: 50},
	}
}

// Split returns the bucket sizes for n puzzles. The remainder goes to the
// earlier buckets, so 20 splits as 7/7/6.
func Split(n int) (easy, medium, hard int) {
	easy = (n + 2) / 3
	medium = (n - easy + 1) / 2
	hard = n - easy - medium
	return
}

// Assign mutates Difficulty and RatingEstimate on each puzzle. The input
// must already be sorted by ascending line length; shorter lines land in
// easier buckets. A puzzle with an empty line here means the generator's
// acceptance guarantee was broken, which is a programming error.
func (a *Assigner) Assign(puzzles []puzzle.GeneratedPuzzle) {
	for i := range puzzles {
		if puzzles[i].Line.Len() < 1 {
			panic(fmt.Sprintf("puzzle %s with empty line reached difficulty assignment", puzzles[i].ID))
		}
	}

	easy, medium, _ := Split(len(puzzles))

	a.assignBucket(puzzles[:easy], puzzle.Easy, a.Easy)
	a.assignBucket(puzzles[easy:easy+medium], puzzle.Medium, a.Medium)
	a.assignBucket(puzzles[easy+medium:], puzzle.Hard, a.Hard)
}

func (a *Assigner) assignBucket(bucket []puzzle.GeneratedPuzzle, d puzzle.Difficulty, band Band) {
	if len(bucket) == 0 {
		return
	}
	minPlies := bucket[0].Line.Len()
	for i := range bucket {
		rating := band.Base + (bucket[i].Line.Len()-minPlies)*band.PerPly
		if rating > band.Ceiling {
			rating = band.Ceiling
		}
		bucket[i].Difficulty = d
		bucket[i].RatingEstimate = rating
	}
}
