// SPDX-License-Identifier: MIT
/*
Package synth generates the periodic tones used by the experiments:
- Shape: the fixed set of wave shapes (sine, square, triangle, sawtooth)
- Oscillator: a phase-accumulator tone whose frequency and gain can be
  changed from another goroutine while a device callback renders it
- Preview: sampled points of a shape for the wave generator plot

Shape only affects timbre; frequency and gain are computed elsewhere.
*/
package synth

import (
	"fmt"
	"math"
	"strings"
)

// Shape selects the waveform of a tone.
type Shape int

const (
	Sine Shape = iota
	Square
	Triangle
	Sawtooth
)

// Shapes lists every shape in menu order.
var Shapes = []Shape{Sine, Square, Triangle, Sawtooth}

func (s Shape) String() string {
	switch s {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Sawtooth:
		return "sawtooth"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ParseShape converts a shape name (case-insensitive) to a Shape. Unknown
// names return Sine and an error.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sin":
		return Sine, nil
	case "square":
		return Square, nil
	case "triangle":
		return Triangle, nil
	case "sawtooth", "saw":
		return Sawtooth, nil
	default:
		return Sine, fmt.Errorf("unknown wave shape: '%s'", name)
	}
}

// MarshalText implements encoding.TextMarshaler so shapes are stored by name.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(text []byte) error {
	parsed, err := ParseShape(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value returns the shape's value in [-1, 1] at the given phase, measured in
// cycles. Every shape starts at zero and rises, like a sine.
func (s Shape) Value(phase float64) float64 {
	p := phase - math.Floor(phase)

	switch s {
	case Square:
		switch {
		case p == 0 || p == 0.5:
			return 0
		case p < 0.5:
			return 1
		default:
			return -1
		}
	case Triangle:
		switch {
		case p < 0.25:
			return 4 * p
		case p < 0.75:
			return 2 - 4*p
		default:
			return 4*p - 4
		}
	case Sawtooth:
		q := p + 0.5
		return 2*(q-math.Floor(q)) - 1
	default:
		return math.Sin(2 * math.Pi * p)
	}
}
