// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInputDevice reports that no capture device is present.
	ErrNoInputDevice = errors.New("no input device available")
	// ErrNotOpen is returned by capture operations before Open succeeds.
	ErrNotOpen = errors.New("capture source is not open")
	// ErrAlreadyRecording is returned by StartRecording while a recording runs.
	ErrAlreadyRecording = errors.New("already recording")
)

// DeviceAccessError reports that a device could not be acquired, either
// because it is missing or because the host refused access.
type DeviceAccessError struct {
	Op     string // What was being attempted, e.g. "open input".
	Device int    // Requested device index, -1 for the default.
	Err    error
}

func (e *DeviceAccessError) Error() string {
	if e.Device < 0 {
		return fmt.Sprintf("audio device access (%s, default device): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("audio device access (%s, device %d): %v", e.Op, e.Device, e.Err)
}

func (e *DeviceAccessError) Unwrap() error { return e.Err }

// asDeviceError wraps err as a *DeviceAccessError unless it already is one.
func asDeviceError(op string, device int, err error) error {
	var dae *DeviceAccessError
	if errors.As(err, &dae) {
		return err
	}
	return &DeviceAccessError{Op: op, Device: device, Err: err}
}
