// Package source supplies candidate mistake positions to the generator.
// The real mistake store lives outside this module; the adapters here are
// the boundary it plugs into.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pawnsposes/puzzlegen/internal/puzzle"
)

// CandidateSource hands out candidates one at a time. Next returns io.EOF
// when the source is exhausted. Implementations must be safe for concurrent
// use; the generator draws from a source while earlier draws are still being
// analyzed.
type CandidateSource interface {
	Next(ctx context.Context) (puzzle.Candidate, error)
}

type sliceSource struct {
	mu    sync.Mutex
	items []puzzle.Candidate
}

// Slice wraps an in-memory candidate list as a CandidateSource.
func Slice(cands ...puzzle.Candidate) CandidateSource {
	items := make([]puzzle.Candidate, len(cands))
	copy(items, cands)
	return &sliceSource{items: items}
}

func (s *sliceSource) Next(ctx context.Context) (puzzle.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return puzzle.Candidate{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return puzzle.Candidate{}, io.EOF
	}
	c := s.items[0]
	s.items = s.items[1:]
	return c, nil
}

// LoadTSV reads candidates from a tab-separated file with rows of
// id, fen, played move, correct move, game id. Rows with an unparseable FEN
// are skipped, as are repeats of a position already seen in the file.
func LoadTSV(path string) ([]puzzle.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseTSV(f)
}

func parseTSV(r io.Reader) ([]puzzle.Candidate, error) {
	var out []puzzle.Candidate
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip header
		if lineNum == 1 && strings.HasPrefix(line, "id\t") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.SplitN(line, "\t", 5)
		if len(parts) != 5 {
			continue
		}

		pos, err := puzzle.NewPosition(parts[1])
		if err != nil {
			continue
		}
		key := pos.Key().String()
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, puzzle.Candidate{
			ID:           parts[0],
			Start:        pos,
			PlayedMove:   parts[2],
			CorrectMove:  parts[3],
			SourceGameID: parts[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	return out, nil
}
