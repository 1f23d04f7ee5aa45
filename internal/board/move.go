package board

import "fmt"

// Move encoding (uint16):
//   bits 0-5:   from square (0-63)
//   bits 6-11:  to square (0-63)
//   bits 12-14: promotion piece (0=none, 1=Q, 2=R, 3=B, 4=N)
//   bit 15:     reserved

const (
	moveFromMask   = 0x3F   // bits 0-5
	moveToMask     = 0xFC0  // bits 6-11
	movePromoMask  = 0x7000 // bits 12-14
	movePromoShift = 12
	moveToShift    = 6
)

// Promotion piece types
const (
	PromoNone   = 0
	PromoQueen  = 1
	PromoRook   = 2
	PromoBishop = 3
	PromoKnight = 4
)

// Move is a move in canonical coordinate form, independent of the rules engine.
type Move uint16

// NewMove creates a Move from square indices and optional promotion.
// from, to: square indices 0-63 (A1=0, B1=1, ..., H8=63)
// promo: promotion piece (0=none, 1=Q, 2=R, 3=B, 4=N)
func NewMove(from, to int, promo byte) Move {
	if from < 0 || from > 63 || to < 0 || to > 63 || promo > PromoKnight {
		panic(fmt.Sprintf("board: move out of range: from=%d to=%d promo=%d", from, to, promo))
	}
	return Move(uint16(from) | uint16(to)<<moveToShift | uint16(promo)<<movePromoShift)
}

// From returns the source square index (0-63).
func (m Move) From() int {
	return int(m & moveFromMask)
}

// To returns the destination square index (0-63).
func (m Move) To() int {
	return int((m & moveToMask) >> moveToShift)
}

// Promotion returns the promotion piece (0=none, 1=Q, 2=R, 3=B, 4=N).
func (m Move) Promotion() byte {
	return byte((m & movePromoMask) >> movePromoShift)
}

// Valid reports whether the reserved bit is clear and the promotion is known.
// Codes read back from disk are checked with it before use.
func (m Move) Valid() bool {
	return m&0x8000 == 0 && m.Promotion() <= PromoKnight
}

// UCI converts a Move to UCI notation (e.g., "e2e4", "e7e8q").
func (m Move) UCI() string {
	from := SquareName(m.From())
	to := SquareName(m.To())
	uci := from + to
	if promo := m.Promotion(); promo > 0 && promo <= PromoKnight {
		uci += string("qrbn"[promo-1])
	}
	return uci
}

func (m Move) String() string {
	return m.UCI()
}

// MoveFromUCI parses a UCI move string into a Move.
// Examples: "e2e4", "e7e8q", "a1h8"
func MoveFromUCI(uci string) (Move, error) {
	if len(uci) < 4 || len(uci) > 5 {
		return 0, fmt.Errorf("invalid UCI move length: %q", uci)
	}

	from, ok := ParseSquare(uci[0:2])
	if !ok {
		return 0, fmt.Errorf("invalid from square in UCI: %q", uci)
	}
	to, ok := ParseSquare(uci[2:4])
	if !ok {
		return 0, fmt.Errorf("invalid to square in UCI: %q", uci)
	}

	var promo byte = PromoNone
	if len(uci) == 5 {
		switch uci[4] {
		case 'q', 'Q':
			promo = PromoQueen
		case 'r', 'R':
			promo = PromoRook
		case 'b', 'B':
			promo = PromoBishop
		case 'n', 'N':
			promo = PromoKnight
		default:
			return 0, fmt.Errorf("invalid promotion piece: %c", uci[4])
		}
	}

	return NewMove(from, to, promo), nil
}
