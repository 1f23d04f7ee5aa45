package index

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrOutOfRange is returned when a game number is outside the index.
	// It describes bad input, never a broken environment.
	ErrOutOfRange = errors.New("game number out of range")

	// ErrCorrupt is returned when an index file cannot be parsed.
	ErrCorrupt = errors.New("corrupt index")
)

// Index maps game numbers to corpus byte offsets. It is immutable after Load
// and safe for concurrent readers.
type Index struct {
	offsets []int64
}

// New returns an index over the given offsets, which must be non-decreasing.
func New(offsets []int64) (*Index, error) {
	for i, off := range offsets {
		if off < 0 {
			return nil, fmt.Errorf("%w: negative offset %d at line %d", ErrCorrupt, off, i)
		}
		if i > 0 && off < offsets[i-1] {
			return nil, fmt.Errorf("%w: offset %d at line %d is below previous %d", ErrCorrupt, off, i, offsets[i-1])
		}
	}
	return &Index{offsets: offsets}, nil
}

// Load reads an index file. A missing file yields an error satisfying
// errors.Is(err, fs.ErrNotExist).
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses the index text format.
func Read(r io.Reader) (*Index, error) {
	var offsets []int64
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			return nil, fmt.Errorf("%w: empty line %d", ErrCorrupt, line)
		}
		off, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, line, err)
		}
		offsets = append(offsets, off)
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return New(offsets)
}

// Len returns the number of indexed games.
func (ix *Index) Len() int {
	return len(ix.offsets)
}

// Offset returns the byte offset of game n.
func (ix *Index) Offset(n int) (int64, error) {
	if n < 0 || n >= len(ix.offsets) {
		return 0, fmt.Errorf("%w: game %d, index holds %d games", ErrOutOfRange, n, len(ix.offsets))
	}
	return ix.offsets[n], nil
}

// Span returns the byte range [start, end) covering games n..m-1.
// end is -1 when the range runs to the end of the corpus.
func (ix *Index) Span(n, m int) (start, end int64, err error) {
	if m <= n || m > len(ix.offsets) {
		return 0, 0, fmt.Errorf("%w: games [%d,%d), index holds %d games", ErrOutOfRange, n, m, len(ix.offsets))
	}
	start, err = ix.Offset(n)
	if err != nil {
		return 0, 0, err
	}
	if m == len(ix.offsets) {
		return start, -1, nil
	}
	return start, ix.offsets[m], nil
}

// OpenAt opens a private read handle on the corpus positioned at offset.
func OpenAt(corpusPath string, offset int64) (*os.File, error) {
	f, err := os.Open(corpusPath)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek corpus to %d: %w", offset, err)
	}
	return f, nil
}
