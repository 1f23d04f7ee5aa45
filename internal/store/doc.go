// Package store reads and writes chunk files, the persisted form of one
// chunk of the dataset.
//
// A chunk file is a fixed 64-byte header followed by a zstd-compressed body.
// Two body kinds exist:
//   - games: the accepted games of the chunk as compact move codes
//   - tensors: the encoded position/move samples of the chunk
//
// Files are written under a temporary name and renamed into place, so a
// chunk either exists complete or not at all. Output is deterministic:
// writing the same chunk twice produces identical bytes.
package store
