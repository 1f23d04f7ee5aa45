// Package board wraps the chess rules library behind the two capabilities the
// dataset pipeline needs: SAN token parsing and legality-checked move application.
//
// Squares are numbered rank-major, a1=0, b1=1, ..., h1=7, a2=8, ..., h8=63.
// Every package in this module uses this numbering: move codes, UCI text,
// position planes and move tensor indices.
package board

const (
	files = "abcdefgh"
	ranks = "12345678"
)

// NumSquares is the number of board squares.
const NumSquares = 64

// Square returns the index of the square on the given file (0=a) and rank (0=1).
func Square(file, rank int) int {
	return rank*8 + file
}

// File returns the file (0=a .. 7=h) of a square.
func File(sq int) int {
	return sq % 8
}

// Rank returns the rank (0=1st .. 7=8th) of a square.
func Rank(sq int) int {
	return sq / 8
}

// SquareName returns the algebraic name of a square, e.g. "e4".
func SquareName(sq int) string {
	return string([]byte{files[File(sq)], ranks[Rank(sq)]})
}

// ParseSquare parses an algebraic square name such as "e4".
func ParseSquare(s string) (int, bool) {
	if len(s) != 2 {
		return 0, false
	}
	f := int(s[0]) - 'a'
	r := int(s[1]) - '1'
	if f < 0 || f > 7 || r < 0 || r > 7 {
		return 0, false
	}
	return Square(f, r), true
}
