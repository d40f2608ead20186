// SPDX-License-Identifier: MIT
package utils

import "sync"

// MockTransport implements the Transport interface for testing. It records
// every message it is given instead of transmitting it.
type MockTransport struct {
	mu       sync.Mutex
	messages []any
	closed   bool
	SendErr  error // Returned by Send when set.
}

// Send stores the data for later inspection instead of transmitting.
// Float slices are copied so callers may reuse their buffers.
func (m *MockTransport) Send(data any) error {
	if fs, ok := data.([]float64); ok {
		cp := make([]float64, len(fs))
		copy(cp, fs)
		data = cp
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.messages = append(m.messages, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *MockTransport) Messages() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.messages...)
}

// Last returns the most recent message, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

// Closed reports whether Close has been called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
