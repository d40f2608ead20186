// SPDX-License-Identifier: MIT

// Package transport carries rendered frames out of the process and control
// messages back in.
package transport

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Transport defines a generic interface for sending frames or events.
// Implementations must be safe for concurrent use and must not block the
// caller for long; slow consumers lose messages instead.
type Transport interface {
	Send(data any) error
	Close() error
}

// Control is one slider or select change sent by a viewer:
//
//	{"param": "speed", "value": 45}
//	{"param": "shape", "value": "square"}
type Control struct {
	Param string          `json:"param"`
	Value json.RawMessage `json:"value"`
}

// ControlHandler receives decoded control messages.
type ControlHandler func(Control)

// ParseControl decodes one control message.
func ParseControl(data []byte) (Control, error) {
	var c Control
	if err := json.Unmarshal(data, &c); err != nil {
		return Control{}, fmt.Errorf("invalid control message: %w", err)
	}
	c.Param = strings.ToLower(strings.TrimSpace(c.Param))
	if c.Param == "" {
		return Control{}, fmt.Errorf("invalid control message: missing param")
	}
	if len(c.Value) == 0 {
		return Control{}, fmt.Errorf("invalid control message: missing value for '%s'", c.Param)
	}
	return c, nil
}

// Float returns the value as a number. Numeric strings are accepted.
func (c Control) Float() (float64, error) {
	var f float64
	if err := json.Unmarshal(c.Value, &f); err == nil {
		return f, nil
	}
	s, err := c.Text()
	if err != nil {
		return 0, fmt.Errorf("control '%s': value is not a number", c.Param)
	}
	f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("control '%s': value is not a number: %w", c.Param, err)
	}
	return f, nil
}

// Text returns the value as a string.
func (c Control) Text() (string, error) {
	var s string
	if err := json.Unmarshal(c.Value, &s); err != nil {
		return "", fmt.Errorf("control '%s': value is not a string", c.Param)
	}
	return s, nil
}
