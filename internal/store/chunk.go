package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/chessgraph/dataset/internal/features"
)

// Chunk file format
//
// File structure:
//   Header (64 bytes, little-endian):
//     - Magic (4): "PGCK"
//     - Version (2): 1
//     - Kind (2): 1 = games, 2 = tensors
//     - ChunkID (4)
//     - StartGame (8): first raw game of the chunk's range
//     - Count (4): games (games kind) or samples (tensors kind)
//     - Checksum (4): CRC32 of uncompressed body
//     - BodyLen (8): uncompressed body length
//     - Planes, Ranks, Files (2 each): position tensor dims
//     - MoveSize (4): move tensor length
//     - Reserved (18)
//   Body (compressed with zstd):
//     - games:   per game uvarint(moves) then moves x uint16 move code
//     - tensors: per sample 768 x float32 position then 4096 x float32 move

const (
	Magic      = "PGCK"
	Version    = 1
	HeaderSize = 64
	Ext        = ".pgck"
)

// Kind is the body layout of a chunk file.
type Kind uint16

const (
	KindGames   Kind = 1
	KindTensors Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindGames:
		return "games"
	case KindTensors:
		return "tensors"
	}
	return fmt.Sprintf("kind(%d)", uint16(k))
}

// ParseKind maps a -format flag value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "games":
		return KindGames, nil
	case "tensors":
		return KindTensors, nil
	}
	return 0, fmt.Errorf("unknown chunk format %q (want games or tensors)", s)
}

var (
	ErrBadMagic = errors.New("not a chunk file")
	ErrChecksum = errors.New("chunk checksum mismatch")
	ErrCorrupt  = errors.New("corrupt chunk")
)

// Header is the fixed-size header of a chunk file.
type Header struct {
	Magic     [4]byte
	Version   uint16
	Kind      Kind
	ChunkID   uint32
	StartGame uint64
	Count     uint32
	Checksum  uint32
	BodyLen   uint64
	Planes    uint16
	Ranks     uint16
	Files     uint16
	MoveSize  uint32
	Reserved  [18]byte
}

// Meta identifies the chunk being written.
type Meta struct {
	ChunkID   int
	StartGame int
}

func newHeader(kind Kind, meta Meta) Header {
	h := Header{
		Version:   Version,
		Kind:      kind,
		ChunkID:   uint32(meta.ChunkID),
		StartGame: uint64(meta.StartGame),
		Planes:    features.Planes,
		Ranks:     features.Ranks,
		Files:     features.Files,
		MoveSize:  features.MoveSize,
	}
	copy(h.Magic[:], Magic)
	return h
}

// ChunkName returns the file name of chunk id.
func ChunkName(id int) string {
	return fmt.Sprintf("chunk_%06d%s", id, Ext)
}

// ChunkPath returns the path of chunk id inside dir.
func ChunkPath(dir string, id int) string {
	return filepath.Join(dir, ChunkName(id))
}

func encodeHeader(h *Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(h.Kind))
	binary.LittleEndian.PutUint32(buf[8:12], h.ChunkID)
	binary.LittleEndian.PutUint64(buf[12:20], h.StartGame)
	binary.LittleEndian.PutUint32(buf[20:24], h.Count)
	binary.LittleEndian.PutUint32(buf[24:28], h.Checksum)
	binary.LittleEndian.PutUint64(buf[28:36], h.BodyLen)
	binary.LittleEndian.PutUint16(buf[36:38], h.Planes)
	binary.LittleEndian.PutUint16(buf[38:40], h.Ranks)
	binary.LittleEndian.PutUint16(buf[40:42], h.Files)
	binary.LittleEndian.PutUint32(buf[42:46], h.MoveSize)
	copy(buf[46:64], h.Reserved[:])
	return buf
}

func decodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: header too short", ErrCorrupt)
	}
	h := &Header{}
	copy(h.Magic[:], buf[0:4])
	if string(h.Magic[:]) != Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, h.Magic)
	}
	h.Version = binary.LittleEndian.Uint16(buf[4:6])
	if h.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, h.Version)
	}
	h.Kind = Kind(binary.LittleEndian.Uint16(buf[6:8]))
	if h.Kind != KindGames && h.Kind != KindTensors {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrCorrupt, h.Kind)
	}
	h.ChunkID = binary.LittleEndian.Uint32(buf[8:12])
	h.StartGame = binary.LittleEndian.Uint64(buf[12:20])
	h.Count = binary.LittleEndian.Uint32(buf[20:24])
	h.Checksum = binary.LittleEndian.Uint32(buf[24:28])
	h.BodyLen = binary.LittleEndian.Uint64(buf[28:36])
	h.Planes = binary.LittleEndian.Uint16(buf[36:38])
	h.Ranks = binary.LittleEndian.Uint16(buf[38:40])
	h.Files = binary.LittleEndian.Uint16(buf[40:42])
	h.MoveSize = binary.LittleEndian.Uint32(buf[42:46])
	copy(h.Reserved[:], buf[46:64])
	if h.Planes != features.Planes || h.Ranks != features.Ranks || h.Files != features.Files ||
		h.MoveSize != features.MoveSize {
		return nil, fmt.Errorf("%w: tensor dims (%d,%d,%d)/(%d)", ErrCorrupt, h.Planes, h.Ranks, h.Files, h.MoveSize)
	}
	return h, nil
}

// ReadHeader reads just the header of a chunk file.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %s: file too small", ErrCorrupt, path)
		}
		return nil, err
	}
	return decodeHeader(buf)
}

// newEncoder returns a single-threaded zstd encoder so output bytes depend only
// on the input.
func newEncoder(w io.Writer) (*zstd.Encoder, error) {
	return zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1))
}

// createTemp opens path+".tmp" for writing, creating the directory if needed.
func createTemp(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path + ".tmp")
}

// commit syncs and closes f, then renames it over path. On error the temp
// file is removed.
func commit(f *os.File, path string) error {
	tmpPath := f.Name()
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func discard(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}
