// Package replay reads games from a PGN stream and replays every move against
// the rules engine. A game with a malformed or illegal move is discarded whole;
// the stream continues with the next game.
package replay

import (
	"errors"
	"fmt"
	"io"

	"github.com/freeeve/chessgraph/dataset/internal/board"
)

var (
	// ErrUnparseable marks a movetext token that is not well-formed SAN.
	ErrUnparseable = errors.New("unparseable move")
	// ErrIllegal marks a well-formed move that is not legal in its position.
	ErrIllegal = errors.New("illegal move")
)

// Game is an accepted game: every move legal, in coordinate form, played from
// the standard starting position.
type Game struct {
	Moves []board.Move
}

// UCI returns the moves as UCI strings.
func (g Game) UCI() []string {
	out := make([]string, len(g.Moves))
	for i, m := range g.Moves {
		out[i] = m.UCI()
	}
	return out
}

// Verdict is the outcome of replaying one game.
type Verdict uint8

const (
	Accepted Verdict = iota + 1
	Discarded
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Discarded:
		return "discarded"
	}
	return "unknown"
}

// Result is the outcome of one game. Game is set only when Accepted; Reason
// and Ply only when Discarded.
type Result struct {
	Verdict Verdict
	Game    Game
	Reason  error
	Ply     int // 0-based ply of the offending move
	Ordinal int // raw game number counted from the start of the stream
}

// Replayer pulls games from a PGN stream one at a time.
type Replayer struct {
	lx      *lexer
	ordinal int
}

// NewReplayer returns a replayer reading from r, which must be positioned at
// the start of a game (or of the corpus).
func NewReplayer(r io.Reader) *Replayer {
	return &Replayer{lx: newLexer(r)}
}

// errUnterminated is the reason for a game whose comment or variation is
// still open when the game ends.
var errUnterminated = fmt.Errorf("%w: unterminated comment or variation", ErrUnparseable)

// game is the per-game state: Idle until the first token, then InGame until
// the next game boundary or end of input. A result token closes the movetext;
// anything after it up to the boundary is ignored.
type game struct {
	pos    *board.Position
	moves  []board.Move
	reason error
	ply    int
	inGame bool
	ended  bool
}

func (g *game) begin() {
	g.pos = board.StartingPosition()
	g.moves = nil
	g.reason = nil
	g.ply = 0
	g.inGame = true
	g.ended = false
}

func (g *game) play(tok string) {
	if g.reason != nil || g.ended {
		return
	}
	san, err := board.NormalizeSAN(tok)
	if err != nil {
		g.discard(fmt.Errorf("%w: %v", ErrUnparseable, err))
		return
	}
	m, err := g.pos.PlaySAN(san)
	if err != nil {
		g.discard(fmt.Errorf("%w: %v", ErrIllegal, err))
		return
	}
	g.moves = append(g.moves, m)
	g.ply++
}

func (g *game) discard(reason error) {
	if g.reason != nil {
		return
	}
	g.reason = reason
	g.moves = nil
}

func (g *game) end(ordinal int) Result {
	g.inGame = false
	g.pos = nil
	if g.reason != nil {
		return Result{Verdict: Discarded, Reason: g.reason, Ply: g.ply, Ordinal: ordinal}
	}
	moves := g.moves
	g.moves = nil
	return Result{Verdict: Accepted, Game: Game{Moves: moves}, Ordinal: ordinal}
}

// Next replays the next game. It returns io.EOF when the stream holds no
// further game, and any read error as-is; per-game problems are reported in
// the Result, never as an error.
//
// Games are delimited the same way the offset index delimits them, so the
// n-th Result of a stream opened at game k is game k+n of the index.
func (rp *Replayer) Next() (Result, error) {
	var g game
	for {
		tok, err := rp.lx.next()
		if err == io.EOF {
			if !g.inGame {
				return Result{}, io.EOF
			}
			if rp.lx.unterminated() {
				g.discard(errUnterminated)
			}
			return rp.finish(&g), nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("read corpus: %w", err)
		}

		if tok.kind == tokGame {
			if !g.inGame {
				g.begin()
				continue
			}
			if tok.broken {
				g.discard(errUnterminated)
			}
			rp.lx.pushBack(token{kind: tokGame})
			return rp.finish(&g), nil
		}
		if !g.inGame {
			g.begin()
		}
		switch tok.kind {
		case tokMove:
			g.play(tok.text)
		case tokResult:
			g.ended = true
		}
	}
}

func (rp *Replayer) finish(g *game) Result {
	res := g.end(rp.ordinal)
	rp.ordinal++
	return res
}
