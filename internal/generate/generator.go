// Package generate orchestrates puzzle generation: it runs candidates
// through extension strategies in parallel batches across successively
// looser tiers until an exact target count of valid puzzles is reached,
// falling back to the curated catalog as a last resort.
package generate

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pawnsposes/puzzlegen/internal/catalog"
	"github.com/pawnsposes/puzzlegen/internal/difficulty"
	"github.com/pawnsposes/puzzlegen/internal/engine"
	"github.com/pawnsposes/puzzlegen/internal/extend"
	"github.com/pawnsposes/puzzlegen/internal/puzzle"
	"github.com/pawnsposes/puzzlegen/internal/source"
)

// Config configures a Generator.
type Config struct {
	Analyzer engine.Analyzer
	Logger   zerolog.Logger
	Catalog  *catalog.Catalog // optional static fallback

	Parallelism int // concurrent analyses within a batch
	PoolFloor   int // minimum candidate pool size per tier
}

// Generator produces puzzle sets. It holds no state between calls; every
// Generate invocation builds its own run state.
type Generator struct {
	cfg      Config
	log      zerolog.Logger
	assigner *difficulty.Assigner
}

// New fills config defaults and returns a Generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("analyzer required")
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = 10
	}
	if cfg.PoolFloor == 0 {
		cfg.PoolFloor = 30
	}
	return &Generator{
		cfg:      cfg,
		log:      cfg.Logger,
		assigner: difficulty.NewAssigner(),
	}, nil
}

// Generate produces exactly target puzzles when the candidate pool and the
// catalog together allow it. When they do not, the returned set carries
// everything that was achievable with UnderTarget set; that is not an error.
// version is an opaque token echoed into the set for the caller's cache
// keys. The only errors are configuration problems and a candidate source
// failing mid-run; a short yield alone is never an error.
func (g *Generator) Generate(ctx context.Context, src source.CandidateSource, target int, tiers []TierConfig, version string) (puzzle.Set, error) {
	return g.generate(ctx, src, target, tiers, version, nil)
}

// GenerateStream behaves like Generate but additionally delivers each puzzle
// on out as it is accepted, before difficulty assignment. The channel is
// closed when the run ends. Delivery order follows completion timing; the
// returned set is still deterministically sorted.
func (g *Generator) GenerateStream(ctx context.Context, src source.CandidateSource, target int, tiers []TierConfig, version string, out chan<- puzzle.GeneratedPuzzle) (puzzle.Set, error) {
	defer close(out)
	return g.generate(ctx, src, target, tiers, version, out)
}

func (g *Generator) generate(ctx context.Context, src source.CandidateSource, target int, tiers []TierConfig, version string, stream chan<- puzzle.GeneratedPuzzle) (puzzle.Set, error) {
	if src == nil {
		return puzzle.Set{}, fmt.Errorf("candidate source required")
	}
	if target <= 0 {
		return puzzle.Set{}, fmt.Errorf("target must be positive, got %d", target)
	}
	tiers, err := validateTiers(tiers)
	if err != nil {
		return puzzle.Set{}, err
	}

	r := newRun(target)

	for i, tier := range tiers {
		if r.full() || ctx.Err() != nil {
			break
		}
		if i > 0 {
			// Lines computed under a stricter tier that now clear this
			// tier's minimum are accepted directly, with no fresh analysis.
			g.sweepNearMisses(ctx, r, tier, stream)
			if r.full() {
				break
			}
		}
		if err := g.runTier(ctx, r, src, tier, stream); err != nil {
			return puzzle.Set{}, err
		}
	}

	if !r.full() && ctx.Err() == nil {
		g.runCatalogTier(ctx, r, tiers[len(tiers)-1], stream)
	}

	collected := r.snapshot()

	// Deterministic output order regardless of which tier, strategy, or
	// worker produced each puzzle.
	sort.SliceStable(collected, func(i, j int) bool {
		if collected[i].Line.Len() != collected[j].Line.Len() {
			return collected[i].Line.Len() < collected[j].Line.Len()
		}
		return collected[i].ID < collected[j].ID
	})
	if len(collected) > target {
		collected = collected[:target]
	}

	g.assigner.Assign(collected)

	set := puzzle.Set{
		Puzzles:     collected,
		UnderTarget: len(collected) < target,
		Version:     version,
	}
	g.log.Info().
		Int("target", target).
		Int("collected", len(collected)).
		Bool("under_target", set.UnderTarget).
		Msg("generation run finished")
	return set, nil
}

// sweepNearMisses promotes cached under-minimum lines from earlier tiers
// that clear this tier's looser minimum. No engine work happens here, so a
// candidate is still analyzed at most once per run.
func (g *Generator) sweepNearMisses(ctx context.Context, r *run, tier TierConfig, stream chan<- puzzle.GeneratedPuzzle) {
	for _, nm := range r.takeNearMisses(tier.MinimumPlies) {
		if r.full() || ctx.Err() != nil {
			return
		}
		p := puzzle.GeneratedPuzzle{
			ID:         nm.cand.ID,
			FEN:        nm.cand.Start.FEN(),
			Line:       nm.line,
			SideToMove: nm.cand.Start.SideToMove(),
			Source:     puzzle.SourceReused,
			Start:      nm.cand.Start,
		}
		if !r.add(p) {
			return
		}
		g.log.Info().
			Str("id", p.ID).
			Str("tier", tier.Name).
			Int("plies", p.Line.Len()).
			Msg("near-miss line reused at looser tier")
		g.emit(ctx, stream, p)
	}
}

// runTier draws one candidate pool and processes it in batches.
func (g *Generator) runTier(ctx context.Context, r *run, src source.CandidateSource, tier TierConfig, stream chan<- puzzle.GeneratedPuzzle) error {
	poolSize := tier.PoolMultiplier * r.target
	if poolSize < g.cfg.PoolFloor {
		poolSize = g.cfg.PoolFloor
	}

	pool, exhausted, err := g.drawPool(ctx, r, src, poolSize)
	if err != nil {
		return err
	}
	g.log.Info().
		Str("tier", tier.Name).
		Int("pool", len(pool)).
		Bool("source_exhausted", exhausted).
		Msg("tier started")

	strategies := g.strategiesFor(tier)
	g.processBatches(ctx, r, pool, tier, strategies, nil, stream)
	return nil
}

// runCatalogTier feeds curated positions through the loosest tier's
// constraints until the target is met or the catalog runs out.
func (g *Generator) runCatalogTier(ctx context.Context, r *run, loosest TierConfig, stream chan<- puzzle.GeneratedPuzzle) {
	if g.cfg.Catalog == nil || g.cfg.Catalog.Len() == 0 {
		return
	}

	var pool []puzzle.Candidate
	for _, e := range g.cfg.Catalog.Entries() {
		if r.isUsed(e.Position.Key().String()) {
			continue
		}
		pool = append(pool, puzzle.Candidate{
			ID:    "catalog:" + e.ID,
			Start: e.Position,
		})
	}
	g.log.Info().Int("pool", len(pool)).Msg("catalog fallback started")

	tag := puzzle.SourceCatalog
	g.processBatches(ctx, r, pool, loosest, g.strategiesFor(loosest), &tag, stream)
}

// drawPool pulls unused candidates from the source, skipping positions
// already consumed by earlier tiers. The second return reports whether the
// source ran dry. A source failure other than io.EOF is an infrastructure
// problem, not exhaustion, and is returned to the caller.
func (g *Generator) drawPool(ctx context.Context, r *run, src source.CandidateSource, size int) ([]puzzle.Candidate, bool, error) {
	var pool []puzzle.Candidate
	seen := make(map[string]bool)

	for len(pool) < size {
		cand, err := src.Next(ctx)
		if err == io.EOF {
			return pool, true, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("candidate source: %w", err)
		}
		if cand.Start.IsZero() {
			continue
		}
		key := cand.Start.Key().String()
		if seen[key] || r.isUsed(key) {
			continue
		}
		seen[key] = true
		pool = append(pool, cand)
	}
	return pool, false, nil
}

// processBatches runs the pool in fixed-size batches: batches sequentially,
// candidates within a batch concurrently. No new batch starts once the
// target is met or the run is cancelled; the batch in flight finishes so its
// results are not wasted.
func (g *Generator) processBatches(ctx context.Context, r *run, pool []puzzle.Candidate, tier TierConfig, strategies []extend.Strategy, tagOverride *puzzle.SourceTag, stream chan<- puzzle.GeneratedPuzzle) {
	for start := 0; start < len(pool); start += g.cfg.Parallelism {
		if r.full() || ctx.Err() != nil {
			return
		}
		end := start + g.cfg.Parallelism
		if end > len(pool) {
			end = len(pool)
		}

		var eg errgroup.Group
		for _, cand := range pool[start:end] {
			cand := cand
			eg.Go(func() error {
				g.processCandidate(ctx, r, cand, tier, strategies, tagOverride, stream)
				return nil
			})
		}
		// Workers report nothing fatal; the group is only the join point.
		_ = eg.Wait()
	}
}

func (g *Generator) processCandidate(ctx context.Context, r *run, cand puzzle.Candidate, tier TierConfig, strategies []extend.Strategy, tagOverride *puzzle.SourceTag, stream chan<- puzzle.GeneratedPuzzle) {
	// Claimed whether or not it produces a puzzle, so no tier ever
	// reprocesses it.
	if !r.tryMarkUsed(cand.Start.Key().String()) {
		return
	}
	if r.full() {
		return
	}

	line, tag, ok := extend.RunChain(ctx, strategies, cand, tier.MinimumPlies, tier.TargetPlies, g.log)
	if !ok {
		// Keep whatever was achieved; a looser tier may accept it later.
		r.rememberNearMiss(cand, line)
		return
	}
	if tagOverride != nil {
		tag = *tagOverride
	}

	p := puzzle.GeneratedPuzzle{
		ID:         cand.ID,
		FEN:        cand.Start.FEN(),
		Line:       line,
		SideToMove: cand.Start.SideToMove(),
		Source:     tag,
		Start:      cand.Start,
	}
	if !r.add(p) {
		// A batch already in flight when the target was reached; this late
		// result is dropped to keep the count exact.
		return
	}
	g.log.Info().
		Str("id", p.ID).
		Str("tier", tier.Name).
		Str("source", string(tag)).
		Int("plies", line.Len()).
		Msg("puzzle accepted")
	g.emit(ctx, stream, p)
}

func (g *Generator) emit(ctx context.Context, stream chan<- puzzle.GeneratedPuzzle, p puzzle.GeneratedPuzzle) {
	if stream == nil {
		return
	}
	select {
	case stream <- p:
	case <-ctx.Done():
	}
}

// strategiesFor builds the extension strategy chain with the tier's engine
// settings.
func (g *Generator) strategiesFor(tier TierConfig) []extend.Strategy {
	cfg := extend.Config{
		Analyzer:        g.cfg.Analyzer,
		Logger:          g.log,
		SearchDepth:     tier.SearchDepth,
		FirstMoveBudget: tier.FirstMoveBudget,
		MoveBudget:      tier.MoveBudget,
	}
	return extend.Chain(extend.NewLineExtender(cfg), extend.NewStepwiseExtender(cfg))
}
