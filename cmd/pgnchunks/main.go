package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/freeeve/chessgraph/dataset/internal/index"
	"github.com/freeeve/chessgraph/dataset/internal/ingest"
	"github.com/freeeve/chessgraph/dataset/internal/logx"
	"github.com/freeeve/chessgraph/dataset/internal/store"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: pgnchunks -pgn <corpus.pgn> -index <file> -out <dir> -chunk-size N [options]")
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	defaultChunkSize := 0
	if env := os.Getenv("CHESSGRAPH_CHUNK_SIZE"); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			defaultChunkSize = n
		}
	}

	var (
		corpusPath   = flag.String("pgn", os.Getenv("CHESSGRAPH_CORPUS"), "Path to the PGN corpus")
		indexPath    = flag.String("index", os.Getenv("CHESSGRAPH_INDEX"), "Offset index (default <pgn>.idx)")
		outDir       = flag.String("out", os.Getenv("CHESSGRAPH_CHUNKS"), "Output directory for chunk files")
		chunkSize    = flag.Int("chunk-size", defaultChunkSize, "Accepted games per chunk")
		total        = flag.Int("total", 0, "Games to cover (0 = every indexed game)")
		chunkID      = flag.Int("chunk", -1, "Process only this chunk id (-1 = all)")
		workers      = flag.Int("workers", runtime.NumCPU(), "Chunks processed in parallel")
		format       = flag.String("format", "games", "Chunk body: games or tensors")
		strictRanges = flag.Bool("strict-ranges", false, "Never read games past a chunk's own range")
		skipExisting = flag.Bool("skip-existing", false, "Skip chunks whose file already exists")
	)
	flag.Parse()

	if *corpusPath == "" || *outDir == "" || *chunkSize <= 0 {
		usage()
	}
	if *indexPath == "" {
		*indexPath = *corpusPath + ".idx"
	}
	kind, err := store.ParseKind(*format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
	}

	logger := logx.NewLogger()

	if *total == 0 {
		ix, err := index.Load(*indexPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load index")
		}
		*total = ix.Len()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w, err := ingest.NewWorker(ingest.Config{
		IndexPath:    *indexPath,
		CorpusPath:   *corpusPath,
		OutputDir:    *outDir,
		ChunkSize:    *chunkSize,
		Total:        *total,
		Workers:      *workers,
		Format:       kind,
		StrictRanges: *strictRanges,
		SkipExisting: *skipExisting,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("configure chunk worker")
	}

	var ids []int
	if *chunkID >= 0 {
		ids = []int{*chunkID}
	}
	sum, err := w.Run(ctx, ids)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Int("chunks", sum.Chunks).Msg("interrupted")
			os.Exit(1)
		}
		logger.Fatal().Err(err).Msg("chunk run")
	}
	if sum.Failed > 0 {
		logger.Error().Ints("chunks", sum.FailedIDs).Msg("some chunks failed, re-run them with -chunk")
		os.Exit(1)
	}
}
