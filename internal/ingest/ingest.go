// Package ingest turns an indexed PGN corpus into chunk files.
//
// The corpus is partitioned into fixed-size ranges of games. Each range is
// located through the offset index, replayed, optionally encoded and written
// as one self-contained chunk file. Ranges share nothing but the read-only
// index, so they run in parallel and any one can be re-run on its own.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/chessgraph/dataset/internal/features"
	"github.com/freeeve/chessgraph/dataset/internal/index"
	"github.com/freeeve/chessgraph/dataset/internal/replay"
	"github.com/freeeve/chessgraph/dataset/internal/store"
)

// Config configures the chunk worker.
type Config struct {
	IndexPath  string // offset index built by pgnindex
	CorpusPath string // PGN corpus the index describes
	OutputDir  string // chunk files are written here

	ChunkSize int // games per chunk, required
	Total     int // games to cover, required; at most the index length
	Workers   int // concurrent chunks (default 1)

	Format       store.Kind // chunk body kind (default games)
	StrictRanges bool       // never read past a chunk's own raw range
	SkipExisting bool       // leave chunks that already exist alone

	ProgressEvery time.Duration // progress log interval (default 10s)
	Logger        zerolog.Logger
}

// Result describes one processed chunk.
type Result struct {
	Range   Range
	Path    string
	Stats   replay.Stats
	Samples int
	Skipped bool
	Elapsed time.Duration
}

// Summary totals a Run.
type Summary struct {
	Chunks    int // chunks written
	Failed    int
	Skipped   int
	Accepted  int
	Discarded int
	Samples   int
	FailedIDs []int
}

// Worker processes chunk ranges of one corpus.
type Worker struct {
	cfg    Config
	ix     *index.Index
	ranges []Range
	log    zerolog.Logger
}

// NewWorker validates cfg, loads the index and plans the ranges.
func NewWorker(cfg Config) (*Worker, error) {
	if cfg.CorpusPath == "" || cfg.IndexPath == "" || cfg.OutputDir == "" {
		return nil, errors.New("corpus, index and output paths are required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Format == 0 {
		cfg.Format = store.KindGames
	}
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = 10 * time.Second
	}

	ix, err := index.Load(cfg.IndexPath)
	if err != nil {
		return nil, err
	}
	if cfg.Total > ix.Len() {
		return nil, fmt.Errorf("%w: total %d exceeds index length %d", index.ErrOutOfRange, cfg.Total, ix.Len())
	}
	ranges, err := Plan(cfg.Total, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, err
	}

	return &Worker{
		cfg:    cfg,
		ix:     ix,
		ranges: ranges,
		log:    cfg.Logger,
	}, nil
}

// Ranges returns the planned ranges.
func (w *Worker) Ranges() []Range {
	return append([]Range(nil), w.ranges...)
}

// Run processes the chunks named by ids, or every planned chunk if ids is
// empty, with at most cfg.Workers in flight. A failed chunk is logged and
// counted; the others carry on. Cancelling ctx stops dispatch; Run then
// returns ctx's error along with the partial summary.
func (w *Worker) Run(ctx context.Context, ids []int) (Summary, error) {
	todo, err := w.selectRanges(ids)
	if err != nil {
		return Summary{}, err
	}

	w.log.Info().
		Str("corpus", w.cfg.CorpusPath).
		Str("out", w.cfg.OutputDir).
		Int("chunks", len(todo)).
		Int("chunk_size", w.cfg.ChunkSize).
		Int("workers", w.cfg.Workers).
		Stringer("format", w.cfg.Format).
		Msg("chunk run started")

	prog := newProgress(len(todo))
	stopProgress := prog.report(w.log, w.cfg.ProgressEvery)

	var (
		mu  sync.Mutex
		sum Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Workers)

dispatch:
	for _, r := range todo {
		select {
		case <-ctx.Done():
			break dispatch
		default:
		}
		g.Go(func() error {
			res, err := w.ProcessChunk(gctx, r)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				w.log.Error().Err(err).Int("chunk", r.ID).Int("start", r.Start).Msg("chunk failed")
				sum.Failed++
				sum.FailedIDs = append(sum.FailedIDs, r.ID)
				prog.add(Result{})
				return nil
			}
			if res.Skipped {
				sum.Skipped++
			} else {
				sum.Chunks++
				sum.Accepted += res.Stats.Accepted
				sum.Discarded += res.Stats.Discarded
				sum.Samples += res.Samples
			}
			prog.add(res)
			return nil
		})
	}
	_ = g.Wait()
	stopProgress()
	sort.Ints(sum.FailedIDs)

	w.log.Info().
		Int("chunks", sum.Chunks).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Int("accepted", sum.Accepted).
		Int("discarded", sum.Discarded).
		Int("samples", sum.Samples).
		Dur("elapsed", prog.elapsed()).
		Msg("chunk run complete")

	return sum, ctx.Err()
}

func (w *Worker) selectRanges(ids []int) ([]Range, error) {
	if len(ids) == 0 {
		return w.ranges, nil
	}
	out := make([]Range, 0, len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(w.ranges) {
			return nil, fmt.Errorf("%w: chunk %d of %d", index.ErrOutOfRange, id, len(w.ranges))
		}
		out = append(out, w.ranges[id])
	}
	return out, nil
}

// ProcessChunk locates, replays, encodes and persists one range.
func (w *Worker) ProcessChunk(ctx context.Context, r Range) (Result, error) {
	start := time.Now()
	res := Result{Range: r, Path: store.ChunkPath(w.cfg.OutputDir, r.ID)}
	log := w.log.With().Int("chunk", r.ID).Logger()

	if w.cfg.SkipExisting {
		if _, err := store.ReadHeader(res.Path); err == nil {
			log.Debug().Str("path", res.Path).Msg("chunk exists, skipping")
			res.Skipped = true
			return res, nil
		}
	}

	opts := replay.Options{Count: r.Count}
	if w.cfg.StrictRanges {
		opts.MaxRaw = r.Count
	}
	chunk, err := replay.ReadFrom(ctx, w.ix, w.cfg.CorpusPath, r.Start, opts, log)
	if err != nil {
		return res, fmt.Errorf("chunk %d: %w", r.ID, err)
	}
	res.Stats = chunk.Stats

	meta := store.Meta{ChunkID: r.ID, StartGame: r.Start}
	switch w.cfg.Format {
	case store.KindGames:
		if _, err := store.WriteGames(res.Path, meta, chunk.Games); err != nil {
			return res, fmt.Errorf("chunk %d: write: %w", r.ID, err)
		}
		res.Samples = chunk.Stats.Moves
	case store.KindTensors:
		n, err := writeTensors(res.Path, meta, chunk.Games)
		if err != nil {
			return res, fmt.Errorf("chunk %d: write: %w", r.ID, err)
		}
		res.Samples = n
	default:
		return res, fmt.Errorf("chunk %d: unsupported format %s", r.ID, w.cfg.Format)
	}
	res.Elapsed = time.Since(start)

	log.Debug().
		Int("start", r.Start).
		Int("scanned", chunk.Stats.Scanned).
		Int("accepted", chunk.Stats.Accepted).
		Int("discarded", chunk.Stats.Discarded).
		Int("samples", res.Samples).
		Dur("elapsed", res.Elapsed).
		Msg("chunk written")
	return res, nil
}

// writeTensors encodes games straight into a streaming chunk writer.
func writeTensors(path string, meta store.Meta, games []replay.Game) (int, error) {
	tw, err := store.CreateTensors(path, meta)
	if err != nil {
		return 0, err
	}
	var enc features.Encoder
	for i, g := range games {
		if err := enc.EncodeGame(g, tw.Add); err != nil {
			tw.Abort()
			return 0, fmt.Errorf("game %d: %w", i, err)
		}
	}
	n := tw.Count()
	if err := tw.Close(); err != nil {
		return 0, err
	}
	return n, nil
}
