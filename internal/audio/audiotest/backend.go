// SPDX-License-Identifier: MIT

// Package audiotest provides an in-memory audio.Backend for tests.
package audiotest

import (
	"errors"
	"sync"

	"vlabsound/internal/audio"
)

// ErrClosed is returned when feeding a stream that is not running.
var ErrClosed = errors.New("audiotest: stream not running")

// Backend records every stream it opens. Set OpenErr or StartErr to make
// the next opens fail.
type Backend struct {
	mu       sync.Mutex
	OpenErr  error
	StartErr error
	inputs   []*Stream
	outputs  []*Stream
}

var _ audio.Backend = (*Backend)(nil)

// OpenInput implements audio.Backend.
func (b *Backend) OpenInput(p audio.StreamParams, process func(in []float32)) (audio.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	s := &Stream{Params: p, callback: process, startErr: b.StartErr}
	b.inputs = append(b.inputs, s)
	return s, nil
}

// OpenOutput implements audio.Backend.
func (b *Backend) OpenOutput(p audio.StreamParams, render func(out []float32)) (audio.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	s := &Stream{Params: p, callback: render, startErr: b.StartErr}
	b.outputs = append(b.outputs, s)
	return s, nil
}

// Inputs returns the input streams opened so far, oldest first.
func (b *Backend) Inputs() []*Stream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Stream(nil), b.inputs...)
}

// Outputs returns the output streams opened so far, oldest first.
func (b *Backend) Outputs() []*Stream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Stream(nil), b.outputs...)
}

// LastInput returns the most recent input stream, or nil.
func (b *Backend) LastInput() *Stream {
	in := b.Inputs()
	if len(in) == 0 {
		return nil
	}
	return in[len(in)-1]
}

// LastOutput returns the most recent output stream, or nil.
func (b *Backend) LastOutput() *Stream {
	out := b.Outputs()
	if len(out) == 0 {
		return nil
	}
	return out[len(out)-1]
}

// Stream is a fake device stream driven by the test.
type Stream struct {
	Params audio.StreamParams

	mu       sync.Mutex
	callback func([]float32)
	startErr error
	running  bool
	closed   bool
	stops    int
}

// Start implements audio.Stream.
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.running = true
	return nil
}

// Stop implements audio.Stream.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.stops++
	return nil
}

// Close implements audio.Stream.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.closed = true
	return nil
}

// Running reports whether the stream was started and not stopped.
func (s *Stream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Feed delivers one callback buffer, as the device thread would.
func (s *Stream) Feed(buf []float32) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return ErrClosed
	}
	s.callback(buf)
	return nil
}

// Pull asks an output stream to render n samples and returns them.
func (s *Stream) Pull(n int) ([]float32, error) {
	buf := make([]float32, n)
	if err := s.Feed(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
