package features

import (
	"errors"
	"fmt"

	"github.com/freeeve/chessgraph/dataset/internal/board"
	"github.com/freeeve/chessgraph/dataset/internal/replay"
)

// ErrInvalidGame is returned when a stored game does not replay legally.
var ErrInvalidGame = errors.New("invalid stored game")

// Encoder replays games and produces one sample per move: the position the
// move was played from and the move itself. Its buffers are reused between
// samples; an Encoder must not be shared between goroutines.
type Encoder struct {
	position [PositionSize]float32
	move     [MoveSize]float32
}

// EncodeGame replays g from the starting position and calls emit for each
// move in play order. The slices passed to emit are only valid during the call.
func (e *Encoder) EncodeGame(g replay.Game, emit func(position, move []float32) error) error {
	pos := board.StartingPosition()
	for ply, m := range g.Moves {
		placement := pos.Placement()
		EncodePosition(e.position[:], &placement)
		EncodeMove(e.move[:], m)
		if err := pos.Play(m); err != nil {
			return fmt.Errorf("%w: ply %d: %v", ErrInvalidGame, ply, err)
		}
		if err := emit(e.position[:], e.move[:]); err != nil {
			return err
		}
	}
	return nil
}

// Dataset holds aligned position and move tensors, flattened row-major:
// Positions has shape (Count, 12, 8, 8) and Moves has shape (Count, 4096).
// Samples are ordered by game, then by ply.
type Dataset struct {
	Count     int
	Positions []float32
	Moves     []float32
}

// NewDataset allocates a zeroed dataset of count samples.
func NewDataset(count int) *Dataset {
	return &Dataset{
		Count:     count,
		Positions: make([]float32, count*PositionSize),
		Moves:     make([]float32, count*MoveSize),
	}
}

// Position returns the position tensor of sample i.
func (d *Dataset) Position(i int) []float32 {
	return d.Positions[i*PositionSize : (i+1)*PositionSize]
}

// Move returns the move tensor of sample i.
func (d *Dataset) Move(i int) []float32 {
	return d.Moves[i*MoveSize : (i+1)*MoveSize]
}

// MoveIndexAt returns the hot index of sample i's move tensor, or -1 if none is set.
func (d *Dataset) MoveIndexAt(i int) int {
	for j, v := range d.Move(i) {
		if v != 0 {
			return j
		}
	}
	return -1
}

// Build encodes games into one dataset, preallocated from the total move count.
func Build(games []replay.Game) (*Dataset, error) {
	total := 0
	for _, g := range games {
		total += len(g.Moves)
	}
	d := NewDataset(total)

	var enc Encoder
	i := 0
	for gi, g := range games {
		err := enc.EncodeGame(g, func(position, move []float32) error {
			copy(d.Position(i), position)
			copy(d.Move(i), move)
			i++
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", gi, err)
		}
	}
	return d, nil
}
