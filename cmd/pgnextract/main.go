package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/freeeve/chessgraph/dataset/internal/index"
	"github.com/freeeve/chessgraph/dataset/internal/logx"
)

func main() {
	var (
		corpusPath = flag.String("pgn", os.Getenv("CHESSGRAPH_CORPUS"), "Path to the PGN corpus")
		indexPath  = flag.String("index", os.Getenv("CHESSGRAPH_INDEX"), "Offset index (default <pgn>.idx)")
		start      = flag.Int("start", 0, "First game to extract")
		end        = flag.Int("end", -1, "One past the last game to extract (-1 = start+1)")
	)
	flag.Parse()

	if *corpusPath == "" || *start < 0 {
		fmt.Fprintln(os.Stderr, "Usage: pgnextract -pgn <corpus.pgn> [-index <file>] -start N [-end M]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *indexPath == "" {
		*indexPath = *corpusPath + ".idx"
	}
	if *end < 0 {
		*end = *start + 1
	}

	logger := logx.NewLogger()

	ix, err := index.Load(*indexPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load index")
	}
	from, to, err := ix.Span(*start, *end)
	if err != nil {
		logger.Fatal().Err(err).Msg("locate games")
	}
	f, err := index.OpenAt(*corpusPath, from)
	if err != nil {
		logger.Fatal().Err(err).Msg("open corpus")
	}
	defer f.Close()

	var src io.Reader = f
	if to >= 0 {
		src = io.LimitReader(f, to-from)
	}
	out := bufio.NewWriter(os.Stdout)
	n, err := io.Copy(out, src)
	if err == nil {
		err = out.Flush()
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("copy games")
	}
	logger.Debug().
		Int("start", *start).
		Int("end", *end).
		Int64("bytes", n).
		Msg("games extracted")
}
