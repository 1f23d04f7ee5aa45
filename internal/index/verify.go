package index

import (
	"context"
	"fmt"
	"time"

	"github.com/freeeve/pgn/v3"
	"github.com/rs/zerolog"
)

// VerifyResult compares an index against an independent parse of the corpus.
type VerifyResult struct {
	Indexed int // games in the index
	Parsed  int // games found by the PGN library's streaming parser
}

// OK reports whether both counts agree.
func (v VerifyResult) OK() bool {
	return v.Indexed == v.Parsed
}

// Verify counts the games in the corpus with the PGN library's own streaming
// parser and compares the count with the index.
func Verify(ctx context.Context, ix *Index, corpusPath string, log zerolog.Logger) (VerifyResult, error) {
	res := VerifyResult{Indexed: ix.Len()}
	start := time.Now()
	lastLog := time.Now()

	parser := pgn.Games(corpusPath)
	stopped := false
gameLoop:
	for range parser.Games {
		select {
		case <-ctx.Done():
			if !stopped {
				parser.Stop()
				stopped = true
			}
			break gameLoop
		default:
		}
		res.Parsed++

		if time.Since(lastLog) > 10*time.Second {
			log.Info().Int("games", res.Parsed).Msg("verify progress")
			lastLog = time.Now()
		}
	}
	if stopped {
		return res, ctx.Err()
	}
	if err := parser.Err(); err != nil {
		return res, fmt.Errorf("parse corpus: %w", err)
	}

	log.Info().
		Int("indexed", res.Indexed).
		Int("parsed", res.Parsed).
		Bool("ok", res.OK()).
		Dur("elapsed", time.Since(start)).
		Msg("verify complete")
	return res, nil
}
