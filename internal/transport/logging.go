// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	applog "vlabsound/internal/log"
)

var logger = applog.Scope("Transport")

// LoggingTransport implements the Transport interface by logging what it is
// given. It stands in when no viewer output is configured.
type LoggingTransport struct {
	sent atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	logger.Infof("Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the type of the received data at debug level.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	logger.Debugf("LoggingTransport: message %d (%T)", n, data)
	return nil // Logging transport never fails to "send"
}

// Sent returns the number of messages received.
func (lt *LoggingTransport) Sent() uint64 { return lt.sent.Load() }

// Close reports how many messages passed through.
func (lt *LoggingTransport) Close() error {
	logger.Infof("LoggingTransport: closed after %d messages", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
