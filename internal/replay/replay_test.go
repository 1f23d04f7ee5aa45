package replay

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/chessgraph/dataset/internal/index"
	"github.com/freeeve/chessgraph/dataset/internal/pgntest"
)

func readAll(t *testing.T, corpus string) []Result {
	t.Helper()
	rp := NewReplayer(strings.NewReader(corpus))
	var out []Result
	for {
		res, err := rp.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, res)
	}
}

func TestLexer_Tokens(t *testing.T) {
	text := "[Event \"x\"]\n\n1. e4 {a comment\nspanning lines} e5 2.Nf3 (2. f4 (2. d4) exf4) Nc6 $14 ; rest\n" +
		"% escaped line\n3... a6 1/2-1/2\n"
	lx := newLexer(strings.NewReader(text))

	var got []string
	for {
		tok, err := lx.next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		switch tok.kind {
		case tokGame:
			got = append(got, "game")
		case tokTag:
			got = append(got, "tag")
		case tokMove:
			got = append(got, tok.text)
		case tokResult:
			got = append(got, "result:"+tok.text)
		}
	}
	assert.Equal(t, []string{"game", "tag", "e4", "e5", "Nf3", "Nc6", "a6", "result:1/2-1/2"}, got)
}

func TestReplayer_AcceptsLegalGame(t *testing.T) {
	results := readAll(t, pgntest.Corpus(pgntest.RuyLopez))
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, Accepted, res.Verdict)
	assert.NoError(t, res.Reason)
	assert.Equal(t,
		[]string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5a4", "g8f6", "e1g1", "f8e7"},
		res.Game.UCI())
}

func TestReplayer_SkipsCommentsAndVariations(t *testing.T) {
	results := readAll(t, pgntest.Corpus(pgntest.Commented))
	require.Len(t, results, 1)
	assert.Equal(t, Accepted, results[0].Verdict)
	assert.Equal(t, []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "f8c5"}, results[0].Game.UCI())
}

func TestReplayer_DiscardReasons(t *testing.T) {
	tests := []struct {
		name     string
		movetext string
		reason   error
		ply      int
	}{
		{"illegal king move", pgntest.IllegalKing, ErrIllegal, 2},
		{"castle through pieces", pgntest.IllegalCastle, ErrIllegal, 2},
		{"unparseable token", pgntest.Unparseable, ErrUnparseable, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := readAll(t, pgntest.Corpus(tt.movetext))
			require.Len(t, results, 1)
			res := results[0]
			assert.Equal(t, Discarded, res.Verdict)
			assert.ErrorIs(t, res.Reason, tt.reason)
			assert.Equal(t, tt.ply, res.Ply)
			assert.Empty(t, res.Game.Moves)
		})
	}
}

func TestReplayer_DiscardKeepsStreamAligned(t *testing.T) {
	corpus := pgntest.Corpus(pgntest.Scholar, pgntest.Unparseable, pgntest.IllegalKing, pgntest.QueensGambit)
	results := readAll(t, corpus)
	require.Len(t, results, 4)

	assert.Equal(t, Accepted, results[0].Verdict)
	assert.Equal(t, Discarded, results[1].Verdict)
	assert.Equal(t, Discarded, results[2].Verdict)
	assert.Equal(t, Accepted, results[3].Verdict)
	assert.Equal(t, []string{"d2d4", "d7d5", "c2c4", "e7e6", "b1c3", "g8f6", "c1g5", "f8e7"}, results[3].Game.UCI())

	for i, res := range results {
		assert.Equal(t, i, res.Ordinal)
	}
}

func TestReplayer_MissingResultToken(t *testing.T) {
	corpus := "[Event \"a\"]\n\n1. e4 e5\n\n[Event \"b\"]\n\n1. d4 d5\n"
	results := readAll(t, corpus)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"e2e4", "e7e5"}, results[0].Game.UCI())
	assert.Equal(t, []string{"d2d4", "d7d5"}, results[1].Game.UCI())
}

func TestReplayer_EmptyGame(t *testing.T) {
	results := readAll(t, pgntest.Corpus("*"))
	require.Len(t, results, 1)
	assert.Equal(t, Accepted, results[0].Verdict)
	assert.Empty(t, results[0].Game.Moves)
}

func TestLexer_GameBoundaries(t *testing.T) {
	text := "[Event \"a\"]\n[Event \"dup\"]\n[Site \"x\"]\n\n1. e4 {open\n\n[Event \"b\"]\n\n1. d4 *\n"
	lx := newLexer(strings.NewReader(text))

	var kinds []tokenKind
	var broken []bool
	for {
		tok, err := lx.next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		kinds = append(kinds, tok.kind)
		if tok.kind == tokGame {
			broken = append(broken, tok.broken)
		}
	}
	// A second [Event line inside a header block is not a new game.
	assert.Equal(t, []tokenKind{tokGame, tokTag, tokTag, tokTag, tokMove, tokGame, tokTag, tokMove, tokResult}, kinds)
	assert.Equal(t, []bool{false, true}, broken)
	assert.False(t, lx.unterminated())
}

func TestReplayer_UnclosedRegionDoesNotSwallowNextGames(t *testing.T) {
	tests := []struct {
		name     string
		movetext string
	}{
		{"comment", "1. e4 {oops e5 1-0"},
		{"variation", "1. e4 (1. d4 d5 e5 1-0"},
		{"nested variation", "1. e4 e5 (1... c5 (1... e6) 2. Nf3 *"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corpus := pgntest.Corpus(tt.movetext, pgntest.RuyLopez, pgntest.Sicilian, pgntest.Scholar)
			chunk, err := ReadChunk(context.Background(), strings.NewReader(corpus), Options{Count: 10}, zerolog.Nop())
			require.NoError(t, err)

			assert.Equal(t, 4, chunk.Stats.Scanned)
			assert.Equal(t, 3, chunk.Stats.Accepted)
			assert.Equal(t, 1, chunk.Stats.Discarded)
			assert.Equal(t, 1, chunk.Stats.Unparseable)
			require.Len(t, chunk.Games, 3)
			assert.Equal(t, "e2e4", chunk.Games[0].UCI()[0])
			assert.Len(t, chunk.Games[0].Moves, 10)
		})
	}
}

func TestReplayer_UnclosedCommentAtEOF(t *testing.T) {
	results := readAll(t, pgntest.Corpus(pgntest.Scholar, "1. d4 d5 {never closed"))
	require.Len(t, results, 2)
	assert.Equal(t, Accepted, results[0].Verdict)
	assert.Equal(t, Discarded, results[1].Verdict)
	assert.ErrorIs(t, results[1].Reason, ErrUnparseable)
	assert.Empty(t, results[1].Game.Moves)
}

func TestReplayer_HeaderOnlyGameKeepsOrdinals(t *testing.T) {
	corpus := "[Event \"a\"]\n[Site \"x\"]\n\n" +
		pgntest.Game("b", pgntest.Scholar) +
		pgntest.Game("c", pgntest.QueensGambit)
	require.Len(t, pgntest.Offsets(corpus), 3)

	results := readAll(t, corpus)
	require.Len(t, results, 3)
	assert.Equal(t, Accepted, results[0].Verdict)
	assert.Empty(t, results[0].Game.Moves)
	assert.Len(t, results[1].Game.Moves, 7)
	assert.Len(t, results[2].Game.Moves, 8)

	// A raw cap of 2 stops inside the indexed range.
	chunk, err := ReadChunk(context.Background(), strings.NewReader(corpus), Options{Count: 3, MaxRaw: 2}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, chunk.Stats.Scanned)
	require.Len(t, chunk.Games, 2)
	assert.Len(t, chunk.Games[1].Moves, 7)
}

func TestReplayer_IgnoresMovesAfterResult(t *testing.T) {
	results := readAll(t, pgntest.Corpus("1. e4 e5 1-0 2. Nf3", pgntest.Scholar))
	require.Len(t, results, 2)
	assert.Equal(t, []string{"e2e4", "e7e5"}, results[0].Game.UCI())
	assert.Equal(t, 1, results[1].Ordinal)
}

// Three games, one with an illegal move.
func TestReadChunk_CountsDiscards(t *testing.T) {
	corpus := pgntest.Corpus(pgntest.RuyLopez, pgntest.IllegalKing, pgntest.Sicilian)
	chunk, err := ReadChunk(context.Background(), strings.NewReader(corpus), Options{Count: 10}, zerolog.Nop())
	require.NoError(t, err)

	assert.Len(t, chunk.Games, 2)
	assert.Equal(t, 3, chunk.Stats.Scanned)
	assert.Equal(t, 2, chunk.Stats.Accepted)
	assert.Equal(t, 1, chunk.Stats.Discarded)
	assert.Equal(t, 1, chunk.Stats.Illegal)
	assert.Equal(t, 20, chunk.Stats.Moves)
}

// Chunk size 10 over 12 raw games with 2 discards.
func TestReadChunk_PullsUntilQuota(t *testing.T) {
	var games []string
	for i := 0; i < 12; i++ {
		switch i {
		case 3:
			games = append(games, pgntest.Unparseable)
		case 8:
			games = append(games, pgntest.IllegalCastle)
		default:
			games = append(games, pgntest.QueensGambit)
		}
	}
	// A thirteenth legal game must not be read.
	games = append(games, pgntest.Scholar)

	chunk, err := ReadChunk(context.Background(), strings.NewReader(pgntest.Corpus(games...)), Options{Count: 10}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 12, chunk.Stats.Scanned)
	assert.Equal(t, 10, chunk.Stats.Accepted)
	assert.Equal(t, 2, chunk.Stats.Discarded)
	require.Len(t, chunk.Games, 10)
	for _, g := range chunk.Games {
		assert.Len(t, g.Moves, 8)
	}
}

func TestReadChunk_MaxRaw(t *testing.T) {
	corpus := pgntest.Corpus(pgntest.RuyLopez, pgntest.IllegalKing, pgntest.Sicilian, pgntest.Scholar)
	chunk, err := ReadChunk(context.Background(), strings.NewReader(corpus), Options{Count: 3, MaxRaw: 3}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, chunk.Stats.Scanned)
	assert.Equal(t, 2, chunk.Stats.Accepted)
}

func TestReadChunk_StopsAtEOF(t *testing.T) {
	chunk, err := ReadChunk(context.Background(), strings.NewReader(pgntest.Corpus(pgntest.Scholar)), Options{Count: 5}, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, chunk.Games, 1)
}

func TestReadChunk_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadChunk(ctx, strings.NewReader(pgntest.Corpus(pgntest.Scholar)), Options{Count: 1}, zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadChunk_InvalidCount(t *testing.T) {
	_, err := ReadChunk(context.Background(), strings.NewReader(""), Options{}, zerolog.Nop())
	assert.Error(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestReadChunk_ReadErrorIsFatal(t *testing.T) {
	_, err := ReadChunk(context.Background(), failingReader{}, Options{Count: 1}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

// Seeking to game n and replaying yields the same first accepted game as a
// linear scan from the start of the corpus.
func TestReadFrom_MatchesLinearScan(t *testing.T) {
	movetexts := []string{
		pgntest.RuyLopez, pgntest.Unparseable, pgntest.Commented, pgntest.Scholar,
		pgntest.IllegalKing, pgntest.Sicilian, pgntest.QueensGambit,
	}
	corpus := pgntest.Corpus(movetexts...)
	corpusPath := pgntest.WriteFile(t, "games.pgn", corpus)
	ix, err := index.New(pgntest.Offsets(corpus))
	require.NoError(t, err)

	linear := readAll(t, corpus)
	require.Len(t, linear, len(movetexts))

	for n := range movetexts {
		var want *Game
		for _, res := range linear[n:] {
			if res.Verdict == Accepted {
				want = &res.Game
				break
			}
		}
		require.NotNil(t, want)

		chunk, err := ReadFrom(context.Background(), ix, corpusPath, n, Options{Count: 1}, zerolog.Nop())
		require.NoError(t, err, "game %d", n)
		require.Len(t, chunk.Games, 1)
		assert.Equal(t, want.Moves, chunk.Games[0].Moves, "game %d", n)
	}
}

func TestReadFrom_Errors(t *testing.T) {
	corpus := pgntest.Corpus(pgntest.Scholar)
	corpusPath := pgntest.WriteFile(t, "games.pgn", corpus)
	ix, err := index.New(pgntest.Offsets(corpus))
	require.NoError(t, err)

	// Locating len(index) is a range error, not an I/O error.
	_, err = ReadFrom(context.Background(), ix, corpusPath, ix.Len(), Options{Count: 1}, zerolog.Nop())
	assert.ErrorIs(t, err, index.ErrOutOfRange)
	assert.False(t, errors.Is(err, fs.ErrNotExist))

	_, err = ReadFrom(context.Background(), ix, filepath.Join(t.TempDir(), "gone.pgn"), 0, Options{Count: 1}, zerolog.Nop())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, errors.Is(err, index.ErrOutOfRange))
}

func TestStats_Add(t *testing.T) {
	a := Stats{Scanned: 3, Accepted: 2, Discarded: 1, Illegal: 1, Moves: 20}
	a.Add(Stats{Scanned: 2, Accepted: 1, Discarded: 1, Unparseable: 1, Moves: 7})
	assert.Equal(t, Stats{Scanned: 5, Accepted: 3, Discarded: 2, Unparseable: 1, Illegal: 1, Moves: 27}, a)
}
