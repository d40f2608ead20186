// SPDX-License-Identifier: MIT
package audio

import (
	"github.com/gordonklaus/portaudio"
)

// PortAudioBackend opens streams on the host's PortAudio devices.
// Initialize must have been called first.
type PortAudioBackend struct{}

var _ Backend = PortAudioBackend{}

// paOpenStream is swapped in tests.
var paOpenStream = func(p portaudio.StreamParameters, callback any) (Stream, error) {
	s, err := portaudio.OpenStream(p, callback)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenInput opens a capture stream. Any failure to find or open the device is
// reported as a *DeviceAccessError.
func (PortAudioBackend) OpenInput(p StreamParams, process func(in []float32)) (Stream, error) {
	device, err := InputDevice(p.Device)
	if err != nil {
		return nil, &DeviceAccessError{Op: "find input", Device: p.Device, Err: err}
	}

	latency := device.DefaultHighInputLatency
	if p.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: p.Channels,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: p.FramesPerBuffer,
		SampleRate:      p.SampleRate,
	}

	stream, err := paOpenStream(params, process)
	if err != nil {
		return nil, &DeviceAccessError{Op: "open input", Device: p.Device, Err: err}
	}
	logger.Debugf("Input stream opened on '%s' (%d ch @ %.0f Hz, %d frames)",
		device.Name, p.Channels, p.SampleRate, p.FramesPerBuffer)
	return stream, nil
}

// OpenOutput opens a playback stream.
func (PortAudioBackend) OpenOutput(p StreamParams, render func(out []float32)) (Stream, error) {
	device, err := OutputDevice(p.Device)
	if err != nil {
		return nil, &DeviceAccessError{Op: "find output", Device: p.Device, Err: err}
	}

	latency := device.DefaultHighOutputLatency
	if p.LowLatency {
		latency = device.DefaultLowOutputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0, // No input device
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: p.Channels,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: p.FramesPerBuffer,
		SampleRate:      p.SampleRate,
	}

	stream, err := paOpenStream(params, render)
	if err != nil {
		return nil, &DeviceAccessError{Op: "open output", Device: p.Device, Err: err}
	}
	logger.Debugf("Output stream opened on '%s' (%d ch @ %.0f Hz)", device.Name, p.Channels, p.SampleRate)
	return stream, nil
}
