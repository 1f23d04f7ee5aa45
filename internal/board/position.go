package board

import (
	"errors"
	"fmt"

	"github.com/freeeve/pgn/v3"
)

// ErrIllegal is returned when a move is not legal in the current position.
var ErrIllegal = errors.New("illegal move")

// Key is a packed position, usable as a map key.
type Key = pgn.PackedPosition

// Position is a board state owned by a single replay. It is mutated in place
// by Play and PlaySAN and must not be shared between goroutines.
type Position struct {
	gs *pgn.GameState
}

// StartingPosition returns the standard initial position.
func StartingPosition() *Position {
	return &Position{gs: pgn.NewStartingPosition()}
}

// Key returns the packed form of the position.
func (p *Position) Key() Key {
	return p.gs.Pack()
}

// FEN returns the position in Forsyth-Edwards notation.
func (p *Position) FEN() string {
	return p.gs.ToFEN()
}

// Placement returns the piece on every square.
func (p *Position) Placement() Placement {
	var out Placement
	for sq := range out {
		out[sq] = p.gs.PieceAt(pgn.Square(sq))
	}
	return out
}

// PlaySAN resolves a normalized SAN move against the position, applies it and
// returns it in coordinate form. The position is unchanged on error.
func (p *Position) PlaySAN(san string) (Move, error) {
	mv, err := pgn.ParseSAN(p.gs, san)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrIllegal, san, err)
	}
	legal, ok := p.findLegal(int(mv.From), int(mv.To), promoFromLib(mv))
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrIllegal, san)
	}
	if err := pgn.ApplyMove(p.gs, legal); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrIllegal, san, err)
	}
	return fromLib(legal), nil
}

// Play applies a coordinate move after checking it is legal.
func (p *Position) Play(m Move) error {
	legal, ok := p.findLegal(m.From(), m.To(), m.Promotion())
	if !ok {
		return fmt.Errorf("%w: %s", ErrIllegal, m.UCI())
	}
	if err := pgn.ApplyMove(p.gs, legal); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIllegal, m.UCI(), err)
	}
	return nil
}

func (p *Position) findLegal(from, to int, promo byte) (pgn.Mv, bool) {
	for _, mv := range pgn.GenerateLegalMoves(p.gs) {
		if int(mv.From) == from && int(mv.To) == to && promoFromLib(mv) == promo {
			return mv, true
		}
	}
	return pgn.Mv{}, false
}

func fromLib(mv pgn.Mv) Move {
	return NewMove(int(mv.From), int(mv.To), promoFromLib(mv))
}

func promoFromLib(mv pgn.Mv) byte {
	switch mv.Promo {
	case pgn.PromoQueen:
		return PromoQueen
	case pgn.PromoRook:
		return PromoRook
	case pgn.PromoBishop:
		return PromoBishop
	case pgn.PromoKnight:
		return PromoKnight
	}
	return PromoNone
}
