// SPDX-License-Identifier: MIT
package doppler

import "vlabsound/pkg/ringbuf"

// TracePoint is one (position, frequency) sample of the frequency plot.
type TracePoint struct {
	Position  float64 `json:"position"`
	Frequency float64 `json:"frequency"`
}

// FrequencyTrace keeps the most recent samples, oldest first. Pushing past
// capacity evicts exactly the oldest sample.
type FrequencyTrace struct {
	ring *ringbuf.Ring[TracePoint]
}

// NewFrequencyTrace returns an empty trace holding at most capacity samples.
func NewFrequencyTrace(capacity int) *FrequencyTrace {
	return &FrequencyTrace{ring: ringbuf.New[TracePoint](capacity)}
}

// Push appends p, evicting the oldest sample when full.
func (t *FrequencyTrace) Push(p TracePoint) { t.ring.Push(p) }

// Len returns the number of samples held.
func (t *FrequencyTrace) Len() int { return t.ring.Len() }

// Cap returns the capacity.
func (t *FrequencyTrace) Cap() int { return t.ring.Cap() }

// Points appends the samples, oldest first, to dst.
func (t *FrequencyTrace) Points(dst []TracePoint) []TracePoint { return t.ring.AppendTo(dst) }

// Reset drops every sample.
func (t *FrequencyTrace) Reset() { t.ring.Reset() }
