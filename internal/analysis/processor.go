// SPDX-License-Identifier: MIT
package analysis

// SampleSink receives raw device buffers. Implementations are called from the
// audio callback and must not block or allocate.
type SampleSink interface {
	// Write consumes interleaved samples in [-1, 1] for the given channel count.
	Write(in []float32, channels int)
}

// FrameReader is the read side of an analysis tap. The render loop and the
// UDP publisher poll it once per tick; a read always returns the most recent
// snapshot and never waits for new audio.
type FrameReader interface {
	BinCount() int                                 // BinCount returns the number of spectrum bins (fft size / 2).
	WindowSize() int                               // WindowSize returns the number of time-domain samples per frame.
	FrequencyForBin(bin int) float64               // FrequencyForBin returns the centre frequency (Hz) of a bin.
	ReadFrame(dst []float64, mode Mode) []float64 // ReadFrame appends the latest snapshot to dst[:0].
}
