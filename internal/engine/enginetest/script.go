// Package enginetest provides a scripted Analyzer for tests.
package enginetest

import (
	"context"
	"sync"
	"time"

	"github.com/pawnsposes/puzzlegen/internal/engine"
	"github.com/pawnsposes/puzzlegen/internal/puzzle"
)

// Response is one scripted engine answer.
type Response struct {
	PV       []string
	BestMove string
	Depth    int // 0 means "reached the requested depth"
	TimedOut bool
	Err      error
}

// Script is an Analyzer that replays canned responses keyed by FEN.
// Successive calls for the same position consume responses in order; when a
// position's list is exhausted (or was never set) the Default response is
// returned. Safe for concurrent use.
type Script struct {
	mu        sync.Mutex
	responses map[string][]Response
	calls     int

	// Default is returned for positions with no scripted response.
	Default Response
}

// New returns an empty script whose default response is an empty, timed-out
// result (an engine that never finds anything in budget).
func New() *Script {
	return &Script{
		responses: make(map[string][]Response),
		Default:   Response{TimedOut: true},
	}
}

// On appends scripted responses for a FEN.
func (s *Script) On(fen string, resp ...Response) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[fen] = append(s.responses[fen], resp...)
	return s
}

// Calls returns how many times Analyze has been invoked.
func (s *Script) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Analyze implements engine.Analyzer.
func (s *Script) Analyze(ctx context.Context, pos puzzle.Position, depth int, budget time.Duration) (engine.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return engine.AnalysisResult{}, err
	}

	s.mu.Lock()
	s.calls++
	resp := s.Default
	if queue := s.responses[pos.FEN()]; len(queue) > 0 {
		resp = queue[0]
		s.responses[pos.FEN()] = queue[1:]
	}
	s.mu.Unlock()

	if resp.Err != nil {
		return engine.AnalysisResult{}, resp.Err
	}

	reached := resp.Depth
	if reached == 0 && !resp.TimedOut {
		reached = depth
	}
	bestMove := resp.BestMove
	if bestMove == "" && len(resp.PV) > 0 {
		bestMove = resp.PV[0]
	}
	return engine.AnalysisResult{
		PV:           append([]string(nil), resp.PV...),
		BestMove:     bestMove,
		DepthReached: reached,
		TimedOut:     resp.TimedOut,
	}, nil
}
