package board

// Placement holds the piece on each square as a FEN letter
// ('P','N','B','R','Q','K' for white, lowercase for black) or 0 when empty.
type Placement [NumSquares]byte

// Occupied returns the number of occupied squares.
func (p *Placement) Occupied() int {
	n := 0
	for _, pc := range p {
		if pc != 0 {
			n++
		}
	}
	return n
}
