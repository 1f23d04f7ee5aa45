package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartingPosition_Placement(t *testing.T) {
	p := StartingPosition().Placement()

	assert.Equal(t, 32, p.Occupied())
	assert.Equal(t, byte('R'), p[Square(0, 0)])
	assert.Equal(t, byte('K'), p[Square(4, 0)])
	assert.Equal(t, byte('P'), p[Square(3, 1)])
	assert.Equal(t, byte('q'), p[Square(3, 7)])
	assert.Equal(t, byte('k'), p[Square(4, 7)])
	assert.Equal(t, byte(0), p[Square(4, 3)])
}

// Placement tracks captures, castling and en passant without a FEN round trip.
func TestPlacement_AfterSpecialMoves(t *testing.T) {
	pos := StartingPosition()
	for _, san := range []string{"e4", "d5", "exd5", "c5", "dxc6", "Nf6", "Nf3", "e6", "Bb5", "Be7", "O-O"} {
		_, err := pos.PlaySAN(san)
		require.NoError(t, err, san)
	}

	p := pos.Placement()
	assert.Equal(t, 30, p.Occupied())
	assert.Equal(t, byte('P'), p[Square(2, 5)], "en passant pawn on c6")
	assert.Equal(t, byte(0), p[Square(2, 4)], "captured pawn left c5")
	assert.Equal(t, byte('K'), p[Square(6, 0)])
	assert.Equal(t, byte('R'), p[Square(5, 0)])
	assert.Equal(t, byte(0), p[Square(7, 0)])
	assert.Equal(t, byte('n'), p[Square(5, 5)])
}

func TestPlaySAN(t *testing.T) {
	pos := StartingPosition()

	var got []string
	for _, san := range []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6"} {
		m, err := pos.PlaySAN(san)
		require.NoError(t, err, san)
		got = append(got, m.UCI())
	}
	assert.Equal(t, []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6"}, got)

	p := pos.Placement()
	assert.Equal(t, byte('B'), p[Square(1, 4)])
	assert.Equal(t, byte('p'), p[Square(0, 5)])
}

func TestPlaySAN_Illegal(t *testing.T) {
	pos := StartingPosition()
	before := pos.FEN()

	_, err := pos.PlaySAN("Ke3")
	assert.ErrorIs(t, err, ErrIllegal)
	assert.Equal(t, before, pos.FEN(), "position must be unchanged after an illegal move")

	_, err = pos.PlaySAN("O-O")
	assert.ErrorIs(t, err, ErrIllegal)
}

func TestPlay(t *testing.T) {
	pos := StartingPosition()
	require.NoError(t, pos.Play(NewMove(12, 28, PromoNone)))

	err := pos.Play(NewMove(12, 28, PromoNone))
	assert.ErrorIs(t, err, ErrIllegal)
}

func TestNormalizeSAN(t *testing.T) {
	tests := []struct {
		token   string
		want    string
		wantErr bool
	}{
		{"e4", "e4", false},
		{"Nf3+", "Nf3", false},
		{"Qxf7#", "Qxf7", false},
		{"exd5!?", "exd5", false},
		{"Nbd7", "Nbd7", false},
		{"R1e2", "R1e2", false},
		{"Qh4xe1", "Qh4xe1", false},
		{"e8=Q+", "e8=Q", false},
		{"e8Q", "e8=Q", false},
		{"bxa1=N", "bxa1=N", false},
		{"O-O", "O-O", false},
		{"O-O-O+", "O-O-O", false},
		{"0-0", "O-O", false},
		{"zz9", "", true},
		{"e9", "", true},
		{"Xe4", "", true},
		{"", "", true},
		{"1-0", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := NormalizeSAN(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadSAN)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
