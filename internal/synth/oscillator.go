// SPDX-License-Identifier: MIT
package synth

import (
	"math"
	"sync/atomic"
)

// Oscillator renders a tone sample by sample. SetFrequency and SetGain are
// called from the render loop while Render runs on the audio device thread,
// so both targets are stored as atomic float bits. Render itself must only be
// called from one goroutine.
type Oscillator struct {
	shape      Shape
	sampleRate float64

	frequency atomic.Uint64 // float64 bits, Hz
	gain      atomic.Uint64 // float64 bits, 0..1

	phase       float64 // cycles, [0, 1)
	currentGain float64 // last rendered gain, ramped toward the target
}

// NewOscillator returns an oscillator at the given frequency with zero gain.
func NewOscillator(shape Shape, sampleRate, frequency float64) *Oscillator {
	o := &Oscillator{shape: shape, sampleRate: sampleRate}
	o.SetFrequency(frequency)
	o.SetGain(0)
	return o
}

// Shape returns the oscillator's wave shape.
func (o *Oscillator) Shape() Shape { return o.shape }

// SetFrequency sets the frequency in Hz. Non-finite or negative values are
// treated as silence (0 Hz).
func (o *Oscillator) SetFrequency(hz float64) {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz < 0 {
		hz = 0
	}
	o.frequency.Store(math.Float64bits(hz))
}

// Frequency returns the current target frequency in Hz.
func (o *Oscillator) Frequency() float64 {
	return math.Float64frombits(o.frequency.Load())
}

// SetGain sets the target gain, clamped to [0, 1].
func (o *Oscillator) SetGain(g float64) {
	switch {
	case math.IsNaN(g) || g < 0:
		g = 0
	case g > 1:
		g = 1
	}
	o.gain.Store(math.Float64bits(g))
}

// Gain returns the current target gain.
func (o *Oscillator) Gain() float64 {
	return math.Float64frombits(o.gain.Load())
}

// Render fills out with interleaved samples for the given channel count.
// Gain is ramped linearly across the buffer to avoid clicks when the render
// loop changes it between callbacks.
func (o *Oscillator) Render(out []float32, channels int) {
	if channels < 1 {
		channels = 1
	}
	frames := len(out) / channels
	if frames == 0 {
		return
	}

	step := o.Frequency() / o.sampleRate
	target := o.Gain()
	gainStep := (target - o.currentGain) / float64(frames)

	for f := 0; f < frames; f++ {
		o.currentGain += gainStep
		v := float32(o.shape.Value(o.phase) * o.currentGain)
		for c := 0; c < channels; c++ {
			out[f*channels+c] = v
		}
		o.phase += step
		if o.phase >= 1 {
			o.phase -= math.Floor(o.phase)
		}
	}
	o.currentGain = target
}
