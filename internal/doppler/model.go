// SPDX-License-Identifier: MIT

// Package doppler models a sound source sweeping past a stationary observer
// and drives a tone whose frequency and gain follow the model every frame.
package doppler

import (
	"errors"
	"math"
)

const (
	// SpeedOfSound in air, m/s.
	SpeedOfSound = 343.0
	// MinDenominator is the smallest c - v the shift formula accepts, m/s.
	MinDenominator = 1.0
	// Output frequency bounds, Hz.
	MinFrequency = 20.0
	MaxFrequency = 20000.0
)

// ErrFormulaDomain reports that the shift formula was evaluated outside its
// domain and the result was clamped.
var ErrFormulaDomain = errors.New("doppler formula outside its domain")

// Advance moves the source by speed/timeScale and wraps it onto [0, width).
func Advance(position, speed, timeScale, width float64) float64 {
	if width <= 0 || timeScale <= 0 {
		return 0
	}
	p := math.Mod(position+speed/timeScale, width)
	if p < 0 {
		p += width
	}
	return p
}

// SignedVelocity returns +speed while the source is at or before the
// observer (approaching) and -speed once it has passed (receding).
func SignedVelocity(speed, position, observer float64) float64 {
	if position > observer {
		return -speed
	}
	return speed
}

// Shift returns the frequency heard by a stationary observer from a source
// moving toward it at velocity (negative when moving away):
//
//	f = f0 * c / (c - v)
//
// A denominator at or below MinDenominator, or a non-finite input, is
// clamped and reported with ErrFormulaDomain. The result is always finite and
// within [MinFrequency, MaxFrequency].
func Shift(base, velocity, c float64) (float64, error) {
	if !finite(base) || !finite(velocity) || !finite(c) {
		return clampFrequency(base), ErrFormulaDomain
	}

	var err error
	denom := c - velocity
	if denom <= MinDenominator {
		denom = MinDenominator
		err = ErrFormulaDomain
	}
	return clampFrequency(base * c / denom), err
}

// Gain returns max(minGain, 1 - distance/width) scaled by master. It never
// reaches zero for a positive minGain and master.
func Gain(distance, width, minGain, master float64) float64 {
	g := minGain
	if width > 0 {
		g = math.Max(minGain, 1-math.Abs(distance)/width)
	}
	return math.Min(g, 1) * master
}

func clampFrequency(f float64) float64 {
	if math.IsNaN(f) {
		return MinFrequency
	}
	return math.Max(MinFrequency, math.Min(MaxFrequency, f))
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
