// Package pgntest builds small PGN corpora for tests.
package pgntest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Movetexts of short games. Legal games replay cleanly; the others are
// rejected by the replayer for the reason their name gives.
const (
	RuyLopez     = "1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 4. Ba4 Nf6 5. O-O Be7 1-0"
	Scholar      = "1. e4 e5 2. Bc4 Nc6 3. Qh5 Nf6 4. Qxf7# 1-0"
	QueensGambit = "1. d4 d5 2. c4 e6 3. Nc3 Nf6 4. Bg5 Be7 1/2-1/2"
	Sicilian     = "1. e4 c5 2. Nf3 d6 3. d4 cxd4 4. Nxd4 Nf6 5. Nc3 a6 0-1"
	Commented    = "1. e4 {best by test} e5 2. Nf3 (2. f4 exf4) Nc6 $1 3. Bc4 Bc5 *"

	IllegalKing   = "1. e4 e5 2. Ke3 Nc6 0-1"
	IllegalCastle = "1. e4 e5 2. O-O-O Nc6 0-1"
	Unparseable   = "1. e4 zz9 2. Nf3 Nc6 1-0"
)

// Game renders one game with a header block, a blank line, the movetext and
// a trailing blank separator line.
func Game(event string, movetext string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[Event %q]\n", event)
	sb.WriteString("[Site \"https://lichess.org\"]\n")
	sb.WriteString("[White \"white\"]\n")
	sb.WriteString("[Black \"black\"]\n")
	sb.WriteString("[Result \"*\"]\n")
	sb.WriteString("\n")
	sb.WriteString(movetext)
	sb.WriteString("\n\n")
	return sb.String()
}

// PaddedGame renders a game whose text is exactly size bytes long by padding
// an Annotator tag. It panics if size is too small.
func PaddedGame(event, movetext string, size int) string {
	base := Game(event, movetext)
	tag := "[Annotator \"\"]\n"
	pad := size - len(base) - len(tag)
	if pad < 0 {
		panic(fmt.Sprintf("pgntest: game needs at least %d bytes", len(base)+len(tag)))
	}
	header := fmt.Sprintf("[Event %q]\n", event)
	return header + "[Annotator \"" + strings.Repeat("x", pad) + "\"]\n" + base[len(header):]
}

// Corpus concatenates movetexts into a corpus, one game per movetext.
func Corpus(movetexts ...string) string {
	var sb strings.Builder
	for i, mt := range movetexts {
		sb.WriteString(Game(fmt.Sprintf("Game %d", i), mt))
	}
	return sb.String()
}

// Offsets returns the byte offset of each "[Event " line in corpus.
func Offsets(corpus string) []int64 {
	var out []int64
	var off int64
	for _, line := range strings.SplitAfter(corpus, "\n") {
		if strings.HasPrefix(line, "[Event ") {
			out = append(out, off)
		}
		off += int64(len(line))
	}
	return out
}

// WriteFile writes content into a file under t.TempDir and returns its path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
