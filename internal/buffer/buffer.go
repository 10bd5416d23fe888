// Package buffer implements the deterministic/random byte buffer used for
// writes and read-verification. The same (workerID, fileNum)
// pair always yields the same leading bytes regardless of whether the
// caller is about to create or read the file — that identity is what makes
// verify_read meaningful, so every function here is pure.
package buffer

import (
	"bytes"
	"hash/fnv"
	"math/rand"
)

// LargeBufferSize is the size of the shared per-worker buffer (2^20 bytes).
const LargeBufferSize = 1 << 20

// PaddingSize is the trailing padding appended to the large buffer so a
// unique offset near the end of the buffer can still slice a full record.
const PaddingSize = 1024

// TotalSize is the exact length New must always return (testable property 8).
const TotalSize = LargeBufferSize + PaddingSize

// segmentSize is the compressible mode's base segment before doubling.
const segmentSize = 1 << 10

// Mode selects how the large buffer is filled.
type Mode int

const (
	// Compressible repeats a short random/deterministic segment by doubling.
	Compressible Mode = iota
	// Incompressible fills the buffer with fresh random bytes by doubling,
	// with no byte-wise repetition, so it resists compression.
	Incompressible
)

// New produces the large shared buffer for one worker. seed drives the
// pseudo-random fill so a worker's buffer is reproducible across process
// restarts when the same seed is supplied (see SeedFor).
func New(mode Mode, seed int64) []byte {
	buf := make([]byte, TotalSize)
	rng := rand.New(rand.NewSource(seed))

	switch mode {
	case Incompressible:
		fillDoubling(buf, func(chunk []byte) {
			_, _ = rng.Read(chunk)
		})
	default:
		seg := make([]byte, segmentSize)
		_, _ = rng.Read(seg)
		sanitize(seg)
		copy(buf, seg)
		fillDoubling(buf, nil)
	}
	return buf
}

// fillDoubling fills buf by successive doubling: once the first `fresh`
// callback (or the already-populated prefix) occupies some prefix of buf,
// each step copies that prefix onto the following same-length span, doubling
// the filled region every iteration. If fresh is non-nil it is invoked once
// per grown chunk, so every byte in the buffer is independently random
// (Incompressible mode); if fresh is nil, the existing prefix is repeated
// (Compressible mode).
func fillDoubling(buf []byte, fresh func(chunk []byte)) {
	filled := segmentSize
	if fresh != nil {
		filled = 0
		want := segmentSize
		if want > len(buf) {
			want = len(buf)
		}
		fresh(buf[:want])
		filled = want
	}
	for filled < len(buf) {
		n := filled
		if filled+n > len(buf) {
			n = len(buf) - filled
		}
		if fresh != nil {
			fresh(buf[filled : filled+n])
		} else {
			copy(buf[filled:filled+n], buf[:n])
		}
		filled += n
	}
}

// sanitize replaces backslash bytes so buffer contents never introduce
// escape-sequence ambiguity when echoed into logs.
func sanitize(b []byte) {
	for i, c := range b {
		if c == '\\' {
			b[i] = '/'
		}
	}
}

// SeedFor derives the deterministic RNG seed for a worker's buffer. It is
// stable across processes for the same worker identity so create/append/
// read of the same file reproduce identical content.
func SeedFor(workerID string, hostID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(hostID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(workerID))
	return int64(h.Sum64())
}

// UniqueOffset computes the per-(worker,file) starting byte within the
// large buffer: (hash(workerID) + fileNum) mod 1024. Every file in a run
// gets a distinguishable leading pattern for read-verification.
func UniqueOffset(workerID string, fileNum int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(workerID))
	sum := int64(h.Sum32()) + fileNum
	mod := sum % PaddingSize
	if mod < 0 {
		mod += PaddingSize
	}
	return int(mod)
}

// Slice returns the record-sized window of buf starting at the worker/file
// unique offset. The backing large buffer is always LargeBufferSize+Padding
// long, so any offset in [0, PaddingSize) plus any record size up to
// LargeBufferSize fits without wraparound.
func Slice(large []byte, offset int, recordSize int) []byte {
	return large[offset : offset+recordSize]
}

// Verify reports whether got matches the expected slice of the generator
// buffer for this worker/file/offset, used by verify_read and getxattr
// verification.
func Verify(large []byte, offset int, got []byte) bool {
	want := Slice(large, offset, len(got))
	return bytes.Equal(want, got)
}
