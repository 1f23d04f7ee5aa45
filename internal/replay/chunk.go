package replay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/freeeve/chessgraph/dataset/internal/index"
)

// Options bounds one chunk read.
type Options struct {
	Count  int // accepted games wanted
	MaxRaw int // raw games to consume at most; 0 = until Count accepted or EOF
}

// Stats counts the games seen by one chunk read.
type Stats struct {
	Scanned     int
	Accepted    int
	Discarded   int
	Unparseable int
	Illegal     int
	Moves       int // plies across accepted games
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Scanned += o.Scanned
	s.Accepted += o.Accepted
	s.Discarded += o.Discarded
	s.Unparseable += o.Unparseable
	s.Illegal += o.Illegal
	s.Moves += o.Moves
}

// Chunk is the accepted games of one read, in stream order.
type Chunk struct {
	Games []Game
	Stats Stats
}

// ReadChunk replays games from r until opts.Count games are accepted, the raw
// limit is reached or the stream ends. Discarded games do not count toward
// opts.Count. Only read errors and cancellation are returned as errors.
func ReadChunk(ctx context.Context, r io.Reader, opts Options, log zerolog.Logger) (*Chunk, error) {
	if opts.Count <= 0 {
		return nil, fmt.Errorf("chunk count must be positive, got %d", opts.Count)
	}
	rp := NewReplayer(r)
	chunk := &Chunk{Games: make([]Game, 0, opts.Count)}
	st := &chunk.Stats

	for st.Accepted < opts.Count && (opts.MaxRaw == 0 || st.Scanned < opts.MaxRaw) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		res, err := rp.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		st.Scanned++

		switch res.Verdict {
		case Accepted:
			chunk.Games = append(chunk.Games, res.Game)
			st.Accepted++
			st.Moves += len(res.Game.Moves)
		case Discarded:
			st.Discarded++
			if errors.Is(res.Reason, ErrUnparseable) {
				st.Unparseable++
			} else {
				st.Illegal++
			}
			log.Debug().
				Int("game", res.Ordinal).
				Int("ply", res.Ply).
				Err(res.Reason).
				Msg("game discarded")
		}
	}
	return chunk, nil
}

// ReadFrom locates game start in the index, seeks the corpus there on a
// private handle and reads one chunk. An out-of-range start is reported as
// index.ErrOutOfRange; I/O failures are returned wrapped.
func ReadFrom(ctx context.Context, ix *index.Index, corpusPath string, start int, opts Options, log zerolog.Logger) (*Chunk, error) {
	offset, err := ix.Offset(start)
	if err != nil {
		return nil, err
	}
	f, err := index.OpenAt(corpusPath, offset)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadChunk(ctx, f, opts, log)
}
