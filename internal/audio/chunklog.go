// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// ChunkLog is the ordered list of encoded chunks produced while recording.
// One chunk is appended per device callback; the device thread appends and
// the session reads, so every method takes the mutex.
type ChunkLog struct {
	mu     sync.Mutex
	active bool
	chunks [][]byte
	bytes  int
}

// Begin clears the log and starts accepting chunks. It returns false if the
// log is already recording.
func (l *ChunkLog) Begin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		return false
	}
	l.active = true
	l.chunks = l.chunks[:0]
	l.bytes = 0
	return true
}

// End stops accepting chunks. Collected chunks stay intact.
func (l *ChunkLog) End() {
	l.mu.Lock()
	l.active = false
	l.mu.Unlock()
}

// Active reports whether chunks are being accepted.
func (l *ChunkLog) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Append stores chunk if the log is active. The log takes ownership of chunk.
func (l *ChunkLog) Append(chunk []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return false
	}
	l.chunks = append(l.chunks, chunk)
	l.bytes += len(chunk)
	return true
}

// Len returns the number of chunks.
func (l *ChunkLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chunks)
}

// Size returns the total number of bytes across all chunks.
func (l *ChunkLog) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bytes
}

// Concat joins every chunk, in order, into one blob.
func (l *ChunkLog) Concat() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	blob := make([]byte, 0, l.bytes)
	for _, c := range l.chunks {
		blob = append(blob, c...)
	}
	return blob
}

// encodePCM16 converts float samples in [-1, 1] to 16-bit little-endian PCM.
func encodePCM16(in []float32) []byte {
	out := make([]byte, 2*len(in))
	for i, v := range in {
		s := math.Max(-1, math.Min(1, float64(v)))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(math.Round(s*math.MaxInt16))))
	}
	return out
}

// decodePCM16 converts 16-bit little-endian PCM to integer samples, dropping
// a trailing odd byte.
func decodePCM16(blob []byte, dst []int) []int {
	for i := 0; i+1 < len(blob); i += 2 {
		dst = append(dst, int(int16(binary.LittleEndian.Uint16(blob[i:]))))
	}
	return dst
}
