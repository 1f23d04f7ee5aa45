package ingest

import "fmt"

// Range is one chunk's slice of the corpus: Count games starting at raw game
// Start. Ranges of a plan are contiguous, disjoint and ordered by ID.
type Range struct {
	ID    int
	Start int
	Count int
}

// End returns one past the last game of the range.
func (r Range) End() int { return r.Start + r.Count }

// Plan partitions [0, total) into ceil(total/size) ranges of size games; the
// last range holds the remainder.
func Plan(total, size int) ([]Range, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if total < 0 {
		return nil, fmt.Errorf("total must not be negative, got %d", total)
	}
	n := (total + size - 1) / size
	ranges := make([]Range, n)
	for id := range ranges {
		start := id * size
		ranges[id] = Range{ID: id, Start: start, Count: min(size, total-start)}
	}
	return ranges, nil
}
