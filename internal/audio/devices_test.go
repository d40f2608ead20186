// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

// fakeHost swaps the PortAudio device hooks for a fixed device list.
func fakeHost(t *testing.T, devices []*portaudio.DeviceInfo, defaultIn, defaultOut *portaudio.DeviceInfo) {
	t.Helper()
	origDevices, origIn, origOut := paLibDevicesFunc, paLibDefaultInputDeviceFunc, paLibDefaultOutputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc = origDevices
		paLibDefaultInputDeviceFunc = origIn
		paLibDefaultOutputDeviceFunc = origOut
	})

	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return devices, nil }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		if defaultIn == nil {
			return nil, errors.New("no default input")
		}
		return defaultIn, nil
	}
	paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		if defaultOut == nil {
			return nil, errors.New("no default output")
		}
		return defaultOut, nil
	}
}

func testDevices() []*portaudio.DeviceInfo {
	return []*portaudio.DeviceInfo{
		{Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 44100,
			DefaultLowInputLatency: 5 * time.Millisecond, DefaultHighInputLatency: 20 * time.Millisecond},
		{Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{Name: "USB Interface", MaxInputChannels: 4, MaxOutputChannels: 4, DefaultSampleRate: 96000},
	}
}

func TestHostDevices(t *testing.T) {
	devs := testDevices()
	fakeHost(t, devs, devs[0], devs[1])

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != len(devs) {
		t.Fatalf("got %d devices, want %d", len(devices), len(devs))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name != devs[i].Name {
			t.Errorf("Device %d name = %q, want %q", i, d.Name, devs[i].Name)
		}
	}

	kinds := []string{"Input", "Output", "Input/Output"}
	for i, want := range kinds {
		if got := devices[i].Kind(); got != want {
			t.Errorf("Device %d kind = %q, want %q", i, got, want)
		}
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice(t *testing.T) {
	devs := testDevices()
	fakeHost(t, devs, devs[0], devs[1])

	if dev, err := InputDevice(-1); err != nil || dev.Name != "Built-in Microphone" {
		t.Errorf("InputDevice(-1) = %v, %v; want default microphone", dev, err)
	}
	if dev, err := InputDevice(2); err != nil || dev.Name != "USB Interface" {
		t.Errorf("InputDevice(2) = %v, %v; want USB Interface", dev, err)
	}

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", len(devs) + 10, "invalid device ID"},
		{"Non-input device", 1, "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			if err == nil {
				t.Errorf("Expected error for ID %d", tt.id)
			} else if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestInputDevice_NoDefault(t *testing.T) {
	fakeHost(t, nil, nil, nil)

	_, err := InputDevice(-1)
	if !errors.Is(err, ErrNoInputDevice) {
		t.Errorf("expected ErrNoInputDevice, got %v", err)
	}
}

func TestInputDevice_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := InputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestOutputDevice(t *testing.T) {
	devs := testDevices()
	fakeHost(t, devs, devs[0], devs[1])

	if dev, err := OutputDevice(-1); err != nil || dev.Name != "Built-in Output" {
		t.Errorf("OutputDevice(-1) = %v, %v; want default output", dev, err)
	}
	if _, err := OutputDevice(0); err == nil || !strings.Contains(err.Error(), "does not support output") {
		t.Errorf("expected output support error, got %v", err)
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestNilDevices(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, nil
	}

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil {
		t.Errorf("expected empty slice, got nil")
	}
	if len(devices) != 0 {
		t.Errorf("expected length 0, got %d", len(devices))
	}
}

func TestPortAudioNotInitialized(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("PortAudio not initialized")
	}

	devices, err := paDevices()
	if err == nil || !strings.Contains(err.Error(), "PortAudio not initialized") {
		t.Errorf("expected 'PortAudio not initialized' error, got %v", err)
	}
	if devices != nil {
		t.Errorf("expected devices to be nil on error, got %v", devices)
	}
}

func TestGetDevices(t *testing.T) {
	devs := testDevices()
	fakeHost(t, devs, devs[0], devs[1])

	origInit, origTerm := paLibInitialize, paLibTerminate
	defer func() { paLibInitialize, paLibTerminate = origInit, origTerm }()
	var inits, terms int
	paLibInitialize = func() error { inits++; return nil }
	paLibTerminate = func() error { terms++; return nil }

	devices, err := GetDevices()
	if err != nil {
		t.Fatalf("GetDevices error: %v", err)
	}
	if len(devices) != 3 || inits != 1 || terms != 1 {
		t.Errorf("got %d devices, %d inits, %d terms; want 3, 1, 1", len(devices), inits, terms)
	}
}

func TestListDevices(t *testing.T) {
	devs := testDevices()
	fakeHost(t, devs, devs[0], devs[1])

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"[0] Built-in Microphone (Input)", "[1] Built-in Output (Output)", "Low=5.00ms, High=20.00ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestPortAudioBackendOpenInput(t *testing.T) {
	devs := testDevices()
	fakeHost(t, devs, devs[0], devs[1])

	orig := paOpenStream
	defer func() { paOpenStream = orig }()

	var got portaudio.StreamParameters
	paOpenStream = func(p portaudio.StreamParameters, callback any) (Stream, error) {
		got = p
		return nil, errors.New("device busy")
	}

	_, err := PortAudioBackend{}.OpenInput(StreamParams{Device: -1, Channels: 1, SampleRate: 44100, FramesPerBuffer: 512, LowLatency: true}, func([]float32) {})

	var dae *DeviceAccessError
	if !errors.As(err, &dae) {
		t.Fatalf("expected *DeviceAccessError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "device busy") {
		t.Errorf("error should wrap the cause: %v", err)
	}
	if got.Input.Device != devs[0] || got.Input.Latency != 5*time.Millisecond || got.FramesPerBuffer != 512 {
		t.Errorf("unexpected stream parameters: %+v", got)
	}

	_, err = PortAudioBackend{}.OpenInput(StreamParams{Device: 1, Channels: 1, SampleRate: 44100}, func([]float32) {})
	if !errors.As(err, &dae) || dae.Op != "find input" {
		t.Errorf("expected find input DeviceAccessError, got %v", err)
	}
}
