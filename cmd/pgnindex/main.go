package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freeeve/chessgraph/dataset/internal/index"
	"github.com/freeeve/chessgraph/dataset/internal/logx"
)

func main() {
	var (
		corpusPath = flag.String("pgn", os.Getenv("CHESSGRAPH_CORPUS"), "Path to the PGN corpus")
		indexPath  = flag.String("index", os.Getenv("CHESSGRAPH_INDEX"), "Index output path (default <pgn>.idx)")
		verify     = flag.Bool("verify", false, "Cross-check the game count with a full library parse")
	)
	flag.Parse()

	if *corpusPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: pgnindex -pgn <corpus.pgn> [-index <file>] [-verify]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *indexPath == "" {
		*indexPath = *corpusPath + ".idx"
	}

	logger := logx.NewLogger()
	logger.Info().
		Str("pgn", *corpusPath).
		Str("index", *indexPath).
		Msg("starting index build")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if _, err := index.Build(ctx, *corpusPath, *indexPath, logger); err != nil {
		logger.Fatal().Err(err).Msg("build index")
	}

	if !*verify {
		return
	}
	ix, err := index.Load(*indexPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("reload index")
	}
	res, err := index.Verify(ctx, ix, *corpusPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("verify index")
	}
	if !res.OK() {
		logger.Fatal().
			Int("indexed", res.Indexed).
			Int("parsed", res.Parsed).
			Msg("index does not match corpus")
	}
	logger.Info().Int("games", res.Indexed).Msg("index verified")
}
