package store

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/chessgraph/dataset/internal/board"
	"github.com/freeeve/chessgraph/dataset/internal/replay"
)

// WriteStats contains statistics from writing a chunk file.
type WriteStats struct {
	Records          int
	UncompressedSize int
	CompressedSize   int
	CompressTime     time.Duration
}

func encodeGames(games []replay.Game) []byte {
	size := 0
	for _, g := range games {
		size += binary.MaxVarintLen32 + 2*len(g.Moves)
	}
	body := make([]byte, 0, size)
	for _, g := range games {
		body = binary.AppendUvarint(body, uint64(len(g.Moves)))
		for _, m := range g.Moves {
			body = binary.LittleEndian.AppendUint16(body, uint16(m))
		}
	}
	return body
}

func decodeGames(body []byte, count int) ([]replay.Game, error) {
	games := make([]replay.Game, 0, count)
	for i := 0; i < count; i++ {
		n, k := binary.Uvarint(body)
		if k <= 0 {
			return nil, fmt.Errorf("%w: game %d: bad move count", ErrCorrupt, i)
		}
		body = body[k:]
		if uint64(len(body)) < 2*n {
			return nil, fmt.Errorf("%w: game %d: truncated moves", ErrCorrupt, i)
		}
		g := replay.Game{Moves: make([]board.Move, n)}
		for j := range g.Moves {
			m := board.Move(binary.LittleEndian.Uint16(body[2*j:]))
			if !m.Valid() {
				return nil, fmt.Errorf("%w: game %d ply %d: bad move code %#04x", ErrCorrupt, i, j, uint16(m))
			}
			g.Moves[j] = m
		}
		body = body[2*n:]
		games = append(games, g)
	}
	if len(body) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(body))
	}
	return games, nil
}

// WriteGames writes games as a games chunk at path. The file appears under
// its final name only once it is complete.
func WriteGames(path string, meta Meta, games []replay.Game) (WriteStats, error) {
	var stats WriteStats

	body := encodeGames(games)
	h := newHeader(KindGames, meta)
	h.Count = uint32(len(games))
	h.Checksum = crc32.ChecksumIEEE(body)
	h.BodyLen = uint64(len(body))
	stats.Records = len(games)
	stats.UncompressedSize = len(body)

	enc, err := newEncoder(nil)
	if err != nil {
		return stats, err
	}
	defer enc.Close()

	compressStart := time.Now()
	compressed := enc.EncodeAll(body, nil)
	stats.CompressTime = time.Since(compressStart)
	stats.CompressedSize = len(compressed)

	f, err := createTemp(path)
	if err != nil {
		return stats, err
	}
	if _, err := f.Write(encodeHeader(&h)); err != nil {
		discard(f)
		return stats, err
	}
	if _, err := f.Write(compressed); err != nil {
		discard(f)
		return stats, err
	}
	return stats, commit(f, path)
}

// readBody loads a chunk file, decompresses its body and verifies it.
func readBody(path string, want Kind) (*Header, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	h, err := decodeHeader(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if h.Kind != want {
		return nil, nil, fmt.Errorf("%s: %w: %s chunk, want %s", path, ErrCorrupt, h.Kind, want)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, nil, err
	}
	defer dec.Close()

	body, err := dec.DecodeAll(data[HeaderSize:], make([]byte, 0, h.BodyLen))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: decompress: %v", path, ErrCorrupt, err)
	}
	if uint64(len(body)) != h.BodyLen {
		return nil, nil, fmt.Errorf("%s: %w: body size %d, want %d", path, ErrCorrupt, len(body), h.BodyLen)
	}
	if crc32.ChecksumIEEE(body) != h.Checksum {
		return nil, nil, fmt.Errorf("%s: %w", path, ErrChecksum)
	}
	return h, body, nil
}

// ReadGames loads a games chunk.
func ReadGames(path string) (*Header, []replay.Game, error) {
	h, body, err := readBody(path, KindGames)
	if err != nil {
		return nil, nil, err
	}
	games, err := decodeGames(body, int(h.Count))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, games, nil
}
