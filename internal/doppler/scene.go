// SPDX-License-Identifier: MIT
package doppler

import (
	"math"

	"vlabsound/internal/config"
	"vlabsound/internal/synth"
)

// Scene holds the user-controlled inputs. Values outside the slider ranges
// are clamped by Clamp before the engine reads them.
type Scene struct {
	SourceSpeed     float64     `json:"source_speed"`     // m/s, 0..100.
	ObserverPercent float64     `json:"observer_percent"` // Percent of the track, 0..100.
	Shape           synth.Shape `json:"shape"`
	BaseFrequency   float64     `json:"base_frequency"` // Hz, 220..880.
}

// Clamp returns s with every field inside its slider range. NaN falls back
// to the low end.
func (s Scene) Clamp() Scene {
	s.SourceSpeed = clamp(s.SourceSpeed, config.MinSourceSpeed, config.MaxSourceSpeed)
	s.ObserverPercent = clamp(s.ObserverPercent, config.MinObserverPercent, config.MaxObserverPercent)
	s.BaseFrequency = clamp(s.BaseFrequency, config.MinBaseFrequency, config.MaxBaseFrequency)
	if s.Shape < synth.Sine || s.Shape > synth.Sawtooth {
		s.Shape = synth.Sine
	}
	return s
}

// SceneFromConfig returns the initial scene described by cfg.
func SceneFromConfig(cfg config.DopplerConfig) Scene {
	shape, _ := synth.ParseShape(cfg.Shape)
	return Scene{
		SourceSpeed:     cfg.SourceSpeed,
		ObserverPercent: cfg.ObserverPercent,
		Shape:           shape,
		BaseFrequency:   cfg.BaseFrequency,
	}.Clamp()
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
