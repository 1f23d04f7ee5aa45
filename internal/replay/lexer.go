package replay

import (
	"bufio"
	"io"
	"strings"

	"github.com/freeeve/chessgraph/dataset/internal/index"
)

type tokenKind uint8

const (
	tokGame tokenKind = iota + 1
	tokTag
	tokMove
	tokResult
)

type token struct {
	kind tokenKind
	text string
	// broken is set on a tokGame that cut off an open comment or variation.
	broken bool
}

// lexer splits PGN text into game, tag, move and result tokens. Comments,
// NAGs, move numbers, escape lines and variations never reach the caller.
//
// A tokGame is emitted where the offset index starts a game: at an
// index.HeaderPrefix line that is not already inside a header block. Blank
// lines close a header block. Game boundaries win over comment and variation
// state, so an unclosed "{" or "(" cannot run into the next game.
type lexer struct {
	br         *bufio.Reader
	pending    []token
	unread     *token
	inComment  bool
	ravDepth   int
	headerOpen bool
	err        error
}

func newLexer(r io.Reader) *lexer {
	return &lexer{br: bufio.NewReaderSize(r, 1<<16)}
}

// next returns the next token, io.EOF at end of input, or the read error.
func (lx *lexer) next() (token, error) {
	if lx.unread != nil {
		tok := *lx.unread
		lx.unread = nil
		return tok, nil
	}
	for len(lx.pending) == 0 {
		if lx.err != nil {
			return token{}, lx.err
		}
		line, err := lx.br.ReadString('\n')
		if err != nil {
			lx.err = err
		}
		lx.scanLine(line)
	}
	tok := lx.pending[0]
	lx.pending = lx.pending[1:]
	return tok, nil
}

func (lx *lexer) pushBack(tok token) {
	lx.unread = &tok
}

// unterminated reports whether a comment or variation is still open.
func (lx *lexer) unterminated() bool {
	return lx.inComment || lx.ravDepth > 0
}

func (lx *lexer) scanLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		lx.headerOpen = false
		return
	}
	if strings.HasPrefix(line, index.HeaderPrefix) {
		if !lx.headerOpen {
			lx.pending = append(lx.pending, token{kind: tokGame, broken: lx.unterminated()})
			lx.inComment = false
			lx.ravDepth = 0
		}
		lx.headerOpen = true
	}
	if !lx.inComment && lx.ravDepth == 0 {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "[") {
			lx.pending = append(lx.pending, token{kind: tokTag, text: trimmed})
			return
		}
	}
	if !lx.inComment && strings.HasPrefix(line, "%") {
		return
	}

	start := -1
	flush := func(end int) {
		if start >= 0 {
			lx.word(line[start:end])
			start = -1
		}
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		if lx.inComment {
			if c == '}' {
				lx.inComment = false
			}
			continue
		}
		switch c {
		case '{':
			flush(i)
			lx.inComment = true
		case ';':
			flush(i)
			return
		case '(':
			flush(i)
			lx.ravDepth++
		case ')':
			flush(i)
			if lx.ravDepth > 0 {
				lx.ravDepth--
			}
		case ' ', '\t', '\r', '\n':
			flush(i)
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(line))
}

func (lx *lexer) word(w string) {
	if lx.ravDepth > 0 || w == "" {
		return
	}
	switch w {
	case "1-0", "0-1", "1/2-1/2", "*":
		lx.pending = append(lx.pending, token{kind: tokResult, text: w})
		return
	}
	if w[0] == '$' {
		return
	}
	// Move numbers: "12." "12..." or glued "12.e4".
	if w[0] >= '0' && w[0] <= '9' {
		i := 0
		for i < len(w) && w[i] >= '0' && w[i] <= '9' {
			i++
		}
		if i < len(w) && w[i] == '.' {
			for i < len(w) && w[i] == '.' {
				i++
			}
			w = w[i:]
			if w == "" {
				return
			}
		}
	}
	lx.pending = append(lx.pending, token{kind: tokMove, text: w})
}
