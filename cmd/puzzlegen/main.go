// Command puzzlegen generates a training puzzle set from a candidate file of
// mistake positions, using a UCI engine for line validation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pawnsposes/puzzlegen/internal/catalog"
	"github.com/pawnsposes/puzzlegen/internal/engine"
	"github.com/pawnsposes/puzzlegen/internal/generate"
	"github.com/pawnsposes/puzzlegen/internal/logx"
	"github.com/pawnsposes/puzzlegen/internal/source"
)

func main() {
	defaultStockfish := "stockfish"
	if envPath := os.Getenv("STOCKFISH_PATH"); envPath != "" {
		defaultStockfish = envPath
	}

	var (
		candidatesPath = flag.String("candidates", "", "TSV file of candidate mistake positions (id, fen, played, correct, game_id)")
		stockfishPath  = flag.String("stockfish", defaultStockfish, "path to a UCI engine executable")
		target         = flag.Int("target", 20, "number of puzzles to generate")
		workers        = flag.Int("workers", 4, "concurrent engine processes")
		threads        = flag.Int("threads", 1, "engine threads per process")
		hashMB         = flag.Int("hash", 128, "engine hash MB per process")
		nice           = flag.Int("nice", 0, "nice value for engine processes (0=disabled)")
		parallelism    = flag.Int("parallelism", 10, "concurrent analyses per batch")
		catalogPath    = flag.String("catalog", "", "extra catalog file (.tsv or .tsv.zst), appended to the bundled set")
		version        = flag.String("version", "", "opaque generation version echoed into the output")
		outPath        = flag.String("out", "", "output JSON path (default stdout)")
	)
	flag.Parse()

	logger := logx.NewLogger()

	if *candidatesPath == "" {
		logger.Fatal().Msg("-candidates is required")
	}

	cands, err := source.LoadTSV(*candidatesPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *candidatesPath).Msg("load candidates")
	}
	logger.Info().Int("candidates", len(cands)).Str("path", *candidatesPath).Msg("candidates loaded")

	cat, err := catalog.Default()
	if err != nil {
		logger.Fatal().Err(err).Msg("load bundled catalog")
	}
	if *catalogPath != "" {
		if err := cat.LoadFile(*catalogPath); err != nil {
			logger.Fatal().Err(err).Str("path", *catalogPath).Msg("load catalog")
		}
	}
	logger.Info().Int("entries", cat.Len()).Msg("catalog ready")

	pool, err := engine.NewUCIPool(engine.UCIPoolConfig{
		EnginePath: *stockfishPath,
		Logger:     logger.With().Str("component", "engine-pool").Logger(),
		Workers:    *workers,
		Threads:    *threads,
		HashMB:     *hashMB,
		Nice:       *nice,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("start engine pool")
	}
	defer pool.Close()

	gen, err := generate.New(generate.Config{
		Analyzer:    pool,
		Logger:      logger.With().Str("component", "generator").Logger(),
		Catalog:     cat,
		Parallelism: *parallelism,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create generator")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	set, err := gen.Generate(ctx, source.Slice(cands...), *target, generate.DefaultTiers(), *version)
	if err != nil {
		logger.Fatal().Err(err).Msg("generate")
	}
	if set.UnderTarget {
		logger.Warn().
			Int("target", *target).
			Int("got", len(set.Puzzles)).
			Msg("under target: candidate pool and catalog exhausted")
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *outPath).Msg("create output")
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(set); err != nil {
		logger.Fatal().Err(err).Msg("encode output")
	}
}
