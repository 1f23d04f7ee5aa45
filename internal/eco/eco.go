// Package eco provides ECO (Encyclopedia of Chess Openings) lookup.
package eco

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/freeeve/chessgraph/dataset/internal/board"
)

// Opening represents an ECO opening classification.
type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
}

// Database holds ECO opening data indexed by position.
type Database struct {
	byPosition map[board.Key]Opening
	count      int
	skipped    int
}

// NewDatabase creates an empty ECO database.
func NewDatabase() *Database {
	return &Database{
		byPosition: make(map[board.Key]Opening),
	}
}

// moveNumberRegex matches move numbers like "1." or "12..."
var moveNumberRegex = regexp.MustCompile(`\d+\.+\s*`)

// LoadDir loads all .tsv files from a directory.
func (db *Database) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .tsv files found in %s", dir)
	}

	for _, file := range files {
		if err := db.LoadFile(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// LoadFile loads a single TSV file of eco, name and pgn columns.
// Lines whose moves do not replay are skipped and counted.
func (db *Database) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if lineNum == 1 && strings.HasPrefix(line, "eco\t") {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		pos, err := replayLine(parts[2])
		if err != nil {
			db.skipped++
			continue
		}
		if _, dup := db.byPosition[pos.Key()]; !dup {
			db.count++
		}
		db.byPosition[pos.Key()] = Opening{ECO: parts[0], Name: parts[1]}
	}
	return scanner.Err()
}

// replayLine plays movetext like "1. e4 e5 2. Nf3 Nc6" from the start.
func replayLine(movetext string) (*board.Position, error) {
	pos := board.StartingPosition()
	cleaned := moveNumberRegex.ReplaceAllString(movetext, "")
	for _, tok := range strings.Fields(cleaned) {
		if tok[0] == '$' || tok[0] == '{' {
			continue
		}
		san, err := board.NormalizeSAN(tok)
		if err != nil {
			return nil, err
		}
		if _, err := pos.PlaySAN(san); err != nil {
			return nil, fmt.Errorf("%q: %w", tok, err)
		}
	}
	return pos, nil
}

// Lookup returns the ECO opening for a position, or nil if not found.
func (db *Database) Lookup(pos *board.Position) *Opening {
	if o, ok := db.byPosition[pos.Key()]; ok {
		return &o
	}
	return nil
}

// Classify replays moves and returns the opening of the deepest classified
// position reached, with its ply. It stops at the first illegal move.
func (db *Database) Classify(moves []board.Move) (*Opening, int) {
	var best *Opening
	bestPly := 0
	pos := board.StartingPosition()
	for i, m := range moves {
		if err := pos.Play(m); err != nil {
			break
		}
		if o := db.Lookup(pos); o != nil {
			best, bestPly = o, i+1
		}
	}
	return best, bestPly
}

// Count returns the number of openings loaded.
func (db *Database) Count() int {
	return db.count
}

// Skipped returns the number of lines that could not be replayed.
func (db *Database) Skipped() int {
	return db.skipped
}
