// SPDX-License-Identifier: MIT
/*
Package audio owns the device side of the lab: PortAudio streams, device
discovery, the CaptureSource used by the Sound Analysis experiment and the
Tone output used by the Doppler experiment.

Thread Safety:
- Device callbacks run on the PortAudio thread and only touch the analysis
  tap and the chunk log, both guarded by short mutexes.
- Lifecycle calls (Open, Close, StartRecording, ...) may come from any
  goroutine.
*/
package audio

// StreamParams describes one PortAudio stream.
type StreamParams struct {
	Device          int     // Device index, config.MinDeviceID (-1) for the system default.
	Channels        int     // Interleaved channel count.
	SampleRate      float64 // Hz.
	FramesPerBuffer int     // Frames per callback.
	LowLatency      bool    // Use the device's low latency setting.
}

// Stream is an opened device stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Backend opens device streams. Callbacks receive interleaved float32
// samples in [-1, 1] and run on the device thread: they must not block.
type Backend interface {
	OpenInput(p StreamParams, process func(in []float32)) (Stream, error)
	OpenOutput(p StreamParams, render func(out []float32)) (Stream, error)
}
