package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freeeve/chessgraph/dataset/internal/board"
	"github.com/freeeve/chessgraph/dataset/internal/eco"
	"github.com/freeeve/chessgraph/dataset/internal/features"
	"github.com/freeeve/chessgraph/dataset/internal/logx"
	"github.com/freeeve/chessgraph/dataset/internal/store"
)

var errLimit = errors.New("limit reached")

func main() {
	var (
		chunkPath = flag.String("chunk", "", "Chunk file to inspect")
		ecoDir    = flag.String("eco", "", "Directory of ECO .tsv files for opening labels")
		limit     = flag.Int("limit", 0, "Rows to print (0 = all)")
	)
	flag.Parse()

	if *chunkPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: pgninspect -chunk <file.pgck> [-eco <dir>] [-limit N]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger := logx.NewLogger()

	h, err := store.ReadHeader(*chunkPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("read chunk header")
	}
	logger.Info().
		Str("chunk", *chunkPath).
		Stringer("kind", h.Kind).
		Uint32("id", h.ChunkID).
		Uint64("start_game", h.StartGame).
		Uint32("count", h.Count).
		Uint64("body_bytes", h.BodyLen).
		Msg("chunk header")

	writer := csv.NewWriter(os.Stdout)
	defer writer.Flush()

	switch h.Kind {
	case store.KindGames:
		var db *eco.Database
		if *ecoDir != "" {
			db = eco.NewDatabase()
			if err := db.LoadDir(*ecoDir); err != nil {
				logger.Fatal().Err(err).Msg("load eco")
			}
			logger.Info().Int("openings", db.Count()).Int("skipped", db.Skipped()).Msg("eco loaded")
		}
		err = inspectGames(writer, *chunkPath, db, *limit)
	case store.KindTensors:
		err = inspectTensors(writer, *chunkPath, *limit, logger)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("inspect chunk")
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		logger.Fatal().Err(err).Msg("csv writer error")
	}
}

func inspectGames(writer *csv.Writer, path string, db *eco.Database, limit int) error {
	_, games, err := store.ReadGames(path)
	if err != nil {
		return err
	}
	if err := writer.Write([]string{"game", "plies", "eco", "opening", "moves"}); err != nil {
		return err
	}
	for i, g := range games {
		if limit > 0 && i >= limit {
			break
		}
		var code, name string
		if db != nil {
			if o, _ := db.Classify(g.Moves); o != nil {
				code, name = o.ECO, o.Name
			}
		}
		row := []string{
			strconv.Itoa(i),
			strconv.Itoa(len(g.Moves)),
			code,
			name,
			strings.Join(g.UCI(), " "),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func inspectTensors(writer *csv.Writer, path string, limit int, log zerolog.Logger) error {
	log.Info().
		Ints("position_shape", features.PositionShape[:]).
		Ints("move_shape", features.MoveShape[:]).
		Msg("sample shapes")
	if err := writer.Write([]string{"sample", "pieces", "move_index", "move"}); err != nil {
		return err
	}
	_, err := store.ScanTensors(path, func(i int, position, move []float32) error {
		if limit > 0 && i >= limit {
			return errLimit
		}
		pieces := 0
		for _, v := range position {
			if v != 0 {
				pieces++
			}
		}
		hot := -1
		for j, v := range move {
			if v != 0 {
				hot = j
				break
			}
		}
		uci := ""
		if hot >= 0 {
			uci = board.NewMove(hot/board.NumSquares, hot%board.NumSquares, board.PromoNone).UCI()
		}
		return writer.Write([]string{
			strconv.Itoa(i),
			strconv.Itoa(pieces),
			strconv.Itoa(hot),
			uci,
		})
	})
	if errors.Is(err, errLimit) {
		return nil
	}
	return err
}
