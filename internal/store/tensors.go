package store

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/chessgraph/dataset/internal/features"
)

const sampleBytes = 4 * (features.PositionSize + features.MoveSize)

// TensorWriter streams encoded samples into a tensors chunk. Samples are
// compressed as they arrive, so memory use does not grow with the chunk.
// The header is written last, once the count and checksum are known.
type TensorWriter struct {
	path string
	f    *os.File
	zw   *zstd.Encoder
	crc  hash.Hash32
	hdr  Header
	buf  []byte
	n    int
	size uint64
	done bool
}

// CreateTensors starts a tensors chunk that will appear at path on Close.
func CreateTensors(path string, meta Meta) (*TensorWriter, error) {
	f, err := createTemp(path)
	if err != nil {
		return nil, err
	}
	// Placeholder, rewritten by Close.
	if _, err := f.Write(make([]byte, HeaderSize)); err != nil {
		discard(f)
		return nil, err
	}
	zw, err := newEncoder(f)
	if err != nil {
		discard(f)
		return nil, err
	}
	return &TensorWriter{
		path: path,
		f:    f,
		zw:   zw,
		crc:  crc32.NewIEEE(),
		hdr:  newHeader(KindTensors, meta),
		buf:  make([]byte, sampleBytes),
	}, nil
}

// Add appends one sample. position and move must hold PositionSize and
// MoveSize values.
func (w *TensorWriter) Add(position, move []float32) error {
	if len(position) != features.PositionSize || len(move) != features.MoveSize {
		panic(fmt.Sprintf("store: sample dims %d/%d", len(position), len(move)))
	}
	off := 0
	for _, v := range position {
		binary.LittleEndian.PutUint32(w.buf[off:], math.Float32bits(v))
		off += 4
	}
	for _, v := range move {
		binary.LittleEndian.PutUint32(w.buf[off:], math.Float32bits(v))
		off += 4
	}
	w.crc.Write(w.buf)
	if _, err := w.zw.Write(w.buf); err != nil {
		return err
	}
	w.n++
	w.size += sampleBytes
	return nil
}

// Count returns the number of samples added so far.
func (w *TensorWriter) Count() int { return w.n }

// Close finishes the body, writes the header and publishes the file.
func (w *TensorWriter) Close() error {
	if w.done {
		return errors.New("tensor writer already closed")
	}
	w.done = true
	if err := w.zw.Close(); err != nil {
		discard(w.f)
		return err
	}
	w.hdr.Count = uint32(w.n)
	w.hdr.Checksum = w.crc.Sum32()
	w.hdr.BodyLen = w.size
	if _, err := w.f.WriteAt(encodeHeader(&w.hdr), 0); err != nil {
		discard(w.f)
		return err
	}
	return commit(w.f, w.path)
}

// Abort drops the partial file. It is a no-op after Close.
func (w *TensorWriter) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.zw.Close()
	discard(w.f)
}

// WriteTensors writes a whole dataset as a tensors chunk.
func WriteTensors(path string, meta Meta, d *features.Dataset) (WriteStats, error) {
	var stats WriteStats
	w, err := CreateTensors(path, meta)
	if err != nil {
		return stats, err
	}
	for i := 0; i < d.Count; i++ {
		if err := w.Add(d.Position(i), d.Move(i)); err != nil {
			w.Abort()
			return stats, err
		}
	}
	if err := w.Close(); err != nil {
		return stats, err
	}
	stats.Records = d.Count
	stats.UncompressedSize = int(w.size)
	if fi, err := os.Stat(path); err == nil {
		stats.CompressedSize = int(fi.Size()) - HeaderSize
	}
	return stats, nil
}

// ScanTensors streams the samples of a tensors chunk to fn in order. The
// slices passed to fn are reused between calls. The checksum is verified
// after the last sample, so fn may see samples of a corrupt file before
// ScanTensors reports ErrChecksum.
func ScanTensors(path string, fn func(i int, position, move []float32) error) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%s: %w: file too small", path, ErrCorrupt)
	}
	h, err := decodeHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if h.Kind != KindTensors {
		return nil, fmt.Errorf("%s: %w: %s chunk, want %s", path, ErrCorrupt, h.Kind, KindTensors)
	}
	if h.BodyLen != uint64(h.Count)*sampleBytes {
		return nil, fmt.Errorf("%s: %w: body size %d for %d samples", path, ErrCorrupt, h.BodyLen, h.Count)
	}

	zr, err := zstd.NewReader(bufio.NewReader(f), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	crc := crc32.NewIEEE()
	sample := make([]byte, sampleBytes)
	position := make([]float32, features.PositionSize)
	move := make([]float32, features.MoveSize)
	for i := 0; i < int(h.Count); i++ {
		if _, err := io.ReadFull(zr, sample); err != nil {
			return nil, fmt.Errorf("%s: %w: sample %d: %v", path, ErrCorrupt, i, err)
		}
		crc.Write(sample)
		for j := range position {
			position[j] = math.Float32frombits(binary.LittleEndian.Uint32(sample[4*j:]))
		}
		off := 4 * features.PositionSize
		for j := range move {
			move[j] = math.Float32frombits(binary.LittleEndian.Uint32(sample[off+4*j:]))
		}
		if err := fn(i, position, move); err != nil {
			return nil, err
		}
	}
	if n, _ := io.Copy(io.Discard, zr); n != 0 {
		return nil, fmt.Errorf("%s: %w: %d trailing bytes", path, ErrCorrupt, n)
	}
	if crc.Sum32() != h.Checksum {
		return nil, fmt.Errorf("%s: %w", path, ErrChecksum)
	}
	return h, nil
}

// ReadTensors loads a tensors chunk into memory.
func ReadTensors(path string) (*Header, *features.Dataset, error) {
	h, err := ReadHeader(path)
	if err != nil {
		return nil, nil, err
	}
	d := features.NewDataset(int(h.Count))
	h, err = ScanTensors(path, func(i int, position, move []float32) error {
		if i >= d.Count {
			return fmt.Errorf("%w: more samples than header count", ErrCorrupt)
		}
		copy(d.Position(i), position)
		copy(d.Move(i), move)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return h, d, nil
}
