package board

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrBadSAN is returned for tokens that are not well-formed SAN.
var ErrBadSAN = errors.New("malformed SAN")

// sanRegex accepts piece moves, pawn moves (with optional capture and promotion)
// and castling. Check and annotation suffixes are stripped before matching.
var sanRegex = regexp.MustCompile(`^(?:[NBRQK][a-h]?[1-8]?x?[a-h][1-8]|[a-h](?:x[a-h])?[1-8](?:=?[NBRQ])?|O-O(?:-O)?)$`)

// NormalizeSAN validates a movetext token as SAN and returns it without
// check, mate and annotation suffixes ("Nf3+!" -> "Nf3"). Castling written
// with zeros is rewritten to letters.
func NormalizeSAN(token string) (string, error) {
	san := strings.TrimRight(token, "+#!?")
	switch san {
	case "0-0":
		san = "O-O"
	case "0-0-0":
		san = "O-O-O"
	}
	if !sanRegex.MatchString(san) {
		return "", fmt.Errorf("%w: %q", ErrBadSAN, token)
	}
	// "e8Q" -> "e8=Q"
	if n := len(san); san[0] >= 'a' && san[0] <= 'h' && strings.IndexByte("NBRQ", san[n-1]) >= 0 && san[n-2] != '=' {
		san = san[:n-1] + "=" + san[n-1:]
	}
	return san, nil
}
