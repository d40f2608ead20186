// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"sync"

	"vlabsound/internal/synth"
)

// Tone is an output stream playing one oscillator. Frequency and gain may be
// changed from any goroutine while the device renders.
type Tone struct {
	osc      *synth.Oscillator
	stream   Stream
	stopOnce sync.Once
	stopErr  error
}

// OpenTone opens and starts an output stream rendering shape at frequency
// with zero gain.
func OpenTone(backend Backend, p StreamParams, shape synth.Shape, frequency float64) (*Tone, error) {
	if p.Channels < 1 {
		p.Channels = 1
	}
	osc := synth.NewOscillator(shape, p.SampleRate, frequency)
	channels := p.Channels

	stream, err := backend.OpenOutput(p, func(out []float32) {
		osc.Render(out, channels)
	})
	if err != nil {
		return nil, asDeviceError("open output", p.Device, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, asDeviceError("start output", p.Device, err)
	}

	logger.Debugf("Tone started (%s @ %.1f Hz)", shape, frequency)
	return &Tone{osc: osc, stream: stream}, nil
}

// SetFrequency sets the tone frequency in Hz.
func (t *Tone) SetFrequency(hz float64) { t.osc.SetFrequency(hz) }

// SetGain sets the output gain, 0..1.
func (t *Tone) SetGain(g float64) { t.osc.SetGain(g) }

// Frequency returns the current tone frequency in Hz.
func (t *Tone) Frequency() float64 { return t.osc.Frequency() }

// Gain returns the current output gain.
func (t *Tone) Gain() float64 { return t.osc.Gain() }

// Stop silences the tone and releases the output device. Safe to call more
// than once.
func (t *Tone) Stop() error {
	t.stopOnce.Do(func() {
		t.osc.SetGain(0)
		var errs []error
		if err := t.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop output stream: %w", err))
		}
		if err := t.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close output stream: %w", err))
		}
		t.stopErr = errors.Join(errs...)
		logger.Debugf("Tone stopped")
	})
	return t.stopErr
}
