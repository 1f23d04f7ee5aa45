// Package index builds and reads the game offset index of a PGN corpus.
//
// The index file is UTF-8 text with one decimal byte offset per line; line i
// (0-based) is the offset of the first byte of game i's header block. External
// tools can seek into the corpus with it directly.
package index

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// HeaderPrefix marks the first line of a game's header block.
const HeaderPrefix = "[Event "

// Stats summarises one indexing pass.
type Stats struct {
	Games            int
	Lines            int64
	Bytes            int64
	DuplicateHeaders int // header marker lines seen while already inside a game
}

// Scan makes one pass over r and calls emit with the offset of every game.
// A header marker starts a game only when not already inside one; a blank
// line ends the current header/body region.
func Scan(ctx context.Context, r io.Reader, emit func(offset int64) error) (Stats, error) {
	var st Stats
	br := bufio.NewReaderSize(r, 1<<20)
	prefix := []byte(HeaderPrefix)

	var offset int64
	inGame := false
	for {
		line, n, err := readLine(br)
		if n > 0 {
			st.Lines++
			switch {
			case bytes.HasPrefix(line, prefix):
				if inGame {
					st.DuplicateHeaders++
				} else {
					if err := emit(offset); err != nil {
						return st, err
					}
					st.Games++
					inGame = true
				}
			case len(bytes.TrimSpace(line)) == 0:
				inGame = false
			}
			offset += int64(n)

			if st.Lines%(1<<20) == 0 {
				select {
				case <-ctx.Done():
					return st, ctx.Err()
				default:
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, fmt.Errorf("read corpus at byte %d: %w", offset, err)
		}
	}
	st.Bytes = offset
	return st, nil
}

// readLine returns the head of the next line (enough to classify it), the
// total number of bytes the line occupies including its terminator, and
// io.EOF once the input is exhausted. Lines longer than the reader buffer are
// consumed in full and always classify as non-blank.
func readLine(br *bufio.Reader) ([]byte, int, error) {
	frag, err := br.ReadSlice('\n')
	n := len(frag)
	head := frag
	if err == bufio.ErrBufferFull {
		// ReadSlice reuses its buffer; keep a copy of the prefix.
		head = append([]byte(nil), frag[:len(HeaderPrefix)]...)
		head = append(head, 'x')
	}
	for err == bufio.ErrBufferFull {
		frag, err = br.ReadSlice('\n')
		n += len(frag)
	}
	return head, n, err
}

// Build scans the corpus at corpusPath and writes the index to indexPath.
// The index is written to a temporary file and renamed into place only after
// the scan completes, so indexPath never holds a partial index.
func Build(ctx context.Context, corpusPath, indexPath string, log zerolog.Logger) (Stats, error) {
	in, err := os.Open(corpusPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open corpus: %w", err)
	}
	defer in.Close()

	var total int64
	if fi, err := in.Stat(); err == nil {
		total = fi.Size()
	}

	tmpPath := indexPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return Stats{}, fmt.Errorf("create index dir: %w", err)
	}
	out, err := os.Create(tmpPath)
	if err != nil {
		return Stats{}, fmt.Errorf("create index: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			out.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriterSize(out, 1<<16)
	var buf []byte
	lastLog := time.Now()
	start := time.Now()

	counter := &progressReader{r: in}
	st, err := Scan(ctx, counter, func(offset int64) error {
		buf = strconv.AppendInt(buf[:0], offset, 10)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write index: %w", err)
		}
		if time.Since(lastLog) > 10*time.Second {
			log.Info().
				Int64("bytes", counter.n).
				Int64("total_bytes", total).
				Msg("indexing progress")
			lastLog = time.Now()
		}
		return nil
	})
	if err != nil {
		return st, err
	}

	if err := w.Flush(); err != nil {
		return st, fmt.Errorf("flush index: %w", err)
	}
	if err := out.Sync(); err != nil {
		return st, fmt.Errorf("sync index: %w", err)
	}
	if err := out.Close(); err != nil {
		return st, fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmpPath, indexPath); err != nil {
		return st, fmt.Errorf("publish index: %w", err)
	}
	committed = true

	elapsed := time.Since(start)
	log.Info().
		Int("games", st.Games).
		Int64("lines", st.Lines).
		Int64("bytes", st.Bytes).
		Int("duplicate_headers", st.DuplicateHeaders).
		Dur("elapsed", elapsed).
		Float64("games_per_sec", float64(st.Games)/elapsed.Seconds()).
		Msg("index complete")
	return st, nil
}

// Write writes offsets to w in the index text format.
func Write(w io.Writer, offsets []int64) error {
	bw := bufio.NewWriter(w)
	var buf []byte
	for _, off := range offsets {
		if off < 0 {
			return errors.New("negative offset")
		}
		buf = strconv.AppendInt(buf[:0], off, 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

type progressReader struct {
	r io.Reader
	n int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.n += int64(n)
	return n, err
}
