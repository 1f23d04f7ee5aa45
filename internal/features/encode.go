// Package features turns replayed games into dense position and move tensors.
//
// A position tensor has shape (12, 8, 8): plane, rank, file. Row 0 is rank 1
// and column 0 is file a. Planes 0-5 hold white pawn, knight, bishop, rook,
// queen and king; planes 6-11 hold the black pieces in the same order.
// Downstream consumers depend on this plane order.
//
// A move tensor has length 4096 and is one-hot at from*64+to, with squares
// numbered a1=0 .. h8=63. The promotion piece does not change the index.
package features

import (
	"fmt"

	"github.com/freeeve/chessgraph/dataset/internal/board"
)

// Tensor shapes.
const (
	Planes       = 12
	Ranks        = 8
	Files        = 8
	PositionSize = Planes * Ranks * Files              // 768
	MoveSize     = board.NumSquares * board.NumSquares // 4096
)

// PositionShape and MoveShape are the per-sample tensor dimensions.
var (
	PositionShape = [3]int{Planes, Ranks, Files}
	MoveShape     = [1]int{MoveSize}
)

// PlaneIndex returns the plane of a FEN piece letter, or -1 for an empty square.
func PlaneIndex(piece byte) int {
	switch piece {
	case 'P':
		return 0
	case 'N':
		return 1
	case 'B':
		return 2
	case 'R':
		return 3
	case 'Q':
		return 4
	case 'K':
		return 5
	case 'p':
		return 6
	case 'n':
		return 7
	case 'b':
		return 8
	case 'r':
		return 9
	case 'q':
		return 10
	case 'k':
		return 11
	}
	return -1
}

// CellIndex returns the flat offset of (plane, rank, file) in a position tensor.
func CellIndex(plane, rank, file int) int {
	if plane < 0 || plane >= Planes || rank < 0 || rank >= Ranks || file < 0 || file >= Files {
		panic(fmt.Sprintf("features: cell (%d,%d,%d) out of range", plane, rank, file))
	}
	return (plane*Ranks+rank)*Files + file
}

// MoveIndex returns the one-hot index of a move.
func MoveIndex(m board.Move) int {
	idx := m.From()*board.NumSquares + m.To()
	if idx < 0 || idx >= MoveSize {
		panic(fmt.Sprintf("features: move index %d out of range", idx))
	}
	return idx
}

// EncodePosition writes the position tensor of p into dst, which must hold
// PositionSize values. dst is cleared first.
func EncodePosition(dst []float32, p *board.Placement) {
	dst = dst[:PositionSize]
	clear(dst)
	for sq, pc := range p {
		if pc == 0 {
			continue
		}
		plane := PlaneIndex(pc)
		if plane < 0 {
			panic(fmt.Sprintf("features: unknown piece %q on %s", pc, board.SquareName(sq)))
		}
		dst[CellIndex(plane, board.Rank(sq), board.File(sq))] = 1
	}
}

// EncodeMove writes the one-hot move tensor of m into dst, which must hold
// MoveSize values. dst is cleared first.
func EncodeMove(dst []float32, m board.Move) {
	dst = dst[:MoveSize]
	clear(dst)
	dst[MoveIndex(m)] = 1
}
