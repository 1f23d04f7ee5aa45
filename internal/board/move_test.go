package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMove(t *testing.T) {
	tests := []struct {
		name  string
		from  int
		to    int
		promo byte
	}{
		{"e2e4", 12, 28, PromoNone},
		{"e7e8q", 52, 60, PromoQueen},
		{"a1h8", 0, 63, PromoNone},
		{"b7b8n", 49, 57, PromoKnight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMove(tt.from, tt.to, tt.promo)
			assert.Equal(t, tt.from, m.From())
			assert.Equal(t, tt.to, m.To())
			assert.Equal(t, tt.promo, m.Promotion())
			assert.True(t, m.Valid())
		})
	}
}

func TestNewMove_PanicsOutOfRange(t *testing.T) {
	assert.Panics(t, func() { NewMove(64, 0, PromoNone) })
	assert.Panics(t, func() { NewMove(0, -1, PromoNone) })
	assert.Panics(t, func() { NewMove(0, 8, 5) })
}

func TestMove_Valid(t *testing.T) {
	assert.False(t, Move(0x8000).Valid())
	assert.False(t, Move(5<<movePromoShift).Valid())
}

func TestMove_UCI(t *testing.T) {
	tests := []struct {
		name string
		move Move
		want string
	}{
		{"e2e4", NewMove(12, 28, PromoNone), "e2e4"},
		{"e7e8q", NewMove(52, 60, PromoQueen), "e7e8q"},
		{"a7a8r", NewMove(48, 56, PromoRook), "a7a8r"},
		{"b7b8n", NewMove(49, 57, PromoKnight), "b7b8n"},
		{"c7c8b", NewMove(50, 58, PromoBishop), "c7c8b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.move.UCI())
		})
	}
}

func TestMoveFromUCI(t *testing.T) {
	tests := []struct {
		name    string
		uci     string
		want    Move
		wantErr bool
	}{
		{"e2e4", "e2e4", NewMove(12, 28, PromoNone), false},
		{"e7e8q", "e7e8q", NewMove(52, 60, PromoQueen), false},
		{"upper promo", "e7e8Q", NewMove(52, 60, PromoQueen), false},
		{"invalid", "xyz", 0, true},
		{"too short", "e2e", 0, true},
		{"too long", "e2e4qq", 0, true},
		{"bad square", "i2e4", 0, true},
		{"bad promo", "e7e8k", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MoveFromUCI(tt.uci)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMove_UCI_RoundTrip(t *testing.T) {
	for _, uci := range []string{"e2e4", "e7e8q", "a1h8", "b7b8n", "c7c8b", "d7d8r", "h8a1"} {
		t.Run(uci, func(t *testing.T) {
			move, err := MoveFromUCI(uci)
			require.NoError(t, err)
			assert.Equal(t, uci, move.UCI())
		})
	}
}

func TestSquareNaming(t *testing.T) {
	assert.Equal(t, "a1", SquareName(0))
	assert.Equal(t, "h1", SquareName(7))
	assert.Equal(t, "a2", SquareName(8))
	assert.Equal(t, "h8", SquareName(63))

	for sq := 0; sq < NumSquares; sq++ {
		got, ok := ParseSquare(SquareName(sq))
		require.True(t, ok)
		assert.Equal(t, sq, got)
		assert.Equal(t, sq, Square(File(sq), Rank(sq)))
	}

	_, ok := ParseSquare("j9")
	assert.False(t, ok)
}
