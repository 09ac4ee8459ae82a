package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"

	"github.com/pawnsposes/puzzlegen/internal/puzzle"
)

// watchdogSlack is how long past the analysis budget a UCI process gets
// before it is declared wedged and its slot recycled.
const watchdogSlack = 2 * time.Second

// UCIPoolConfig configures a pool of UCI engine processes.
type UCIPoolConfig struct {
	EnginePath string
	Logger     zerolog.Logger
	Workers    int // concurrent engine processes
	HashMB     int // hash table size per process
	Threads    int // search threads per process
	Nice       int // nice value for engine processes (0 = disabled)
}

// engineSlot holds one pool slot. eng is nil when the previous process was
// abandoned; the next checkout respawns it.
type engineSlot struct {
	eng *uci.Engine
}

// UCIPool is an Analyzer backed by N UCI engine processes. Each analysis
// call checks out a dedicated process, so concurrent calls never share one.
type UCIPool struct {
	cfg   UCIPoolConfig
	log   zerolog.Logger
	slots chan *engineSlot
}

// NewUCIPool starts the configured number of engine processes.
func NewUCIPool(cfg UCIPoolConfig) (*UCIPool, error) {
	if cfg.EnginePath == "" {
		return nil, fmt.Errorf("engine path required")
	}
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	if cfg.HashMB == 0 {
		cfg.HashMB = 128
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}

	p := &UCIPool{
		cfg:   cfg,
		log:   cfg.Logger,
		slots: make(chan *engineSlot, cfg.Workers),
	}

	for i := 0; i < cfg.Workers; i++ {
		eng, err := p.spawn()
		if err != nil {
			p.Close()
			return nil, err
		}
		p.slots <- &engineSlot{eng: eng}
	}

	p.log.Info().
		Str("engine", cfg.EnginePath).
		Int("workers", cfg.Workers).
		Int("threads", cfg.Threads).
		Int("hash_mb", cfg.HashMB).
		Msg("engine pool started")

	return p, nil
}

func (p *UCIPool) spawn() (*uci.Engine, error) {
	eng, err := uci.NewEngine(p.cfg.EnginePath)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	opts := uci.Options{
		Hash:    p.cfg.HashMB,
		Threads: p.cfg.Threads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}
	if err := eng.SetOptions(opts); err != nil {
		eng.Close()
		return nil, fmt.Errorf("set options: %w", err)
	}
	if p.cfg.Nice > 0 {
		nice := p.cfg.Nice
		if nice > 19 {
			nice = 19
		}
		if err := eng.SetNice(nice); err != nil {
			p.log.Warn().Err(err).Int("nice", nice).Msg("failed to set nice value")
		}
	}
	return eng, nil
}

// Close shuts down all engine processes.
func (p *UCIPool) Close() {
	for i := 0; i < cap(p.slots); i++ {
		select {
		case s := <-p.slots:
			if s.eng != nil {
				s.eng.Close()
			}
		default:
		}
	}
}

// Analyze runs one search with the given depth and movetime budget. A search
// that exhausts the budget before reaching depth returns the best result so
// far with TimedOut set. A wedged process is cut off at budget plus slack
// and replaced on the next checkout.
func (p *UCIPool) Analyze(ctx context.Context, pos puzzle.Position, depth int, budget time.Duration) (AnalysisResult, error) {
	var s *engineSlot
	select {
	case <-ctx.Done():
		return AnalysisResult{}, ctx.Err()
	case s = <-p.slots:
	}

	if s.eng == nil {
		eng, err := p.spawn()
		if err != nil {
			p.slots <- s
			return AnalysisResult{}, fmt.Errorf("%w: respawn: %v", ErrEngineFault, err)
		}
		s.eng = eng
	}

	type callResult struct {
		results *uci.Results
		err     error
	}
	done := make(chan callResult, 1)
	eng := s.eng

	go func() {
		if err := eng.SetFEN(pos.FEN()); err != nil {
			done <- callResult{err: fmt.Errorf("set FEN: %w", err)}
			return
		}
		results, err := eng.Go(depth, "", movetimeMillis(budget), uci.HighestDepthOnly)
		done <- callResult{results: results, err: err}
	}()

	watchdog := time.NewTimer(budget + watchdogSlack)
	defer watchdog.Stop()

	select {
	case <-watchdog.C:
		// Abandon the process; closing unblocks the goroutine eventually.
		s.eng = nil
		p.slots <- s
		go eng.Close()
		p.log.Warn().
			Str("fen", pos.FEN()).
			Dur("budget", budget).
			Msg("engine unresponsive, slot recycled")
		return AnalysisResult{TimedOut: true}, nil

	case cr := <-done:
		if cr.err != nil {
			// The process state is suspect after a failed exchange.
			s.eng = nil
			p.slots <- s
			go eng.Close()
			return AnalysisResult{}, fmt.Errorf("%w: %v", ErrEngineFault, cr.err)
		}
		p.slots <- s
		return convertResults(cr.results, depth)
	}
}

// movetimeMillis converts a budget to the UCI movetime unit (milliseconds).
// Sub-millisecond budgets round up to 1 so a movetime of 0, which most
// engines read as an unbounded search, is never sent.
func movetimeMillis(budget time.Duration) int64 {
	ms := budget.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return ms
}

// convertResults picks the deepest completed iteration out of the raw engine
// output.
func convertResults(results *uci.Results, wantDepth int) (AnalysisResult, error) {
	if results == nil || len(results.Results) == 0 {
		return AnalysisResult{}, fmt.Errorf("%w: no results from engine", ErrEngineFault)
	}

	best := results.Results[0]
	for _, r := range results.Results {
		if r.Depth > best.Depth {
			best = r
		}
	}

	out := AnalysisResult{
		PV:           append([]string(nil), best.BestMoves...),
		BestMove:     results.BestMove,
		DepthReached: best.Depth,
		TimedOut:     best.Depth < wantDepth,
	}
	if out.BestMove == "" && len(out.PV) > 0 {
		out.BestMove = out.PV[0]
	}
	return out, nil
}
