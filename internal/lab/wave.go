// SPDX-License-Identifier: MIT
package lab

import (
	"fmt"
	"math"
	"sync"

	"vlabsound/internal/config"
	"vlabsound/internal/render"
	"vlabsound/internal/results"
	"vlabsound/internal/synth"
	"vlabsound/internal/transport"
)

// PreviewWidth is the horizontal span a wave preview is sampled across.
const PreviewWidth = 800

// WaveParams are the wave generator inputs.
type WaveParams struct {
	Shape     synth.Shape `json:"shape"`
	Frequency float64     `json:"frequency"` // Cycles across the preview.
	Amplitude float64     `json:"amplitude"` // 0..100.
	Steps     int         `json:"steps"`
}

// Clamp returns p inside the slider ranges.
func (p WaveParams) Clamp() WaveParams {
	p.Frequency = clampRange(p.Frequency, config.MinWaveFrequency, config.MaxWaveFrequency)
	p.Amplitude = clampRange(p.Amplitude, config.MinWaveAmplitude, config.MaxWaveAmplitude)
	if p.Steps < 2 {
		p.Steps = 100
	}
	if p.Shape < synth.Sine || p.Shape > synth.Sawtooth {
		p.Shape = synth.Sine
	}
	return p
}

// WaveParamsFromConfig returns the initial parameters described by cfg.
func WaveParamsFromConfig(cfg config.WaveConfig) WaveParams {
	shape, _ := synth.ParseShape(cfg.Shape)
	return WaveParams{
		Shape:     shape,
		Frequency: cfg.Frequency,
		Amplitude: cfg.Amplitude,
		Steps:     cfg.Steps,
	}.Clamp()
}

func clampRange(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// WaveResult is what a saved preview stores.
type WaveResult struct {
	Params WaveParams    `json:"params"`
	Points []synth.Point `json:"points"`
}

// WaveGenerator draws a static preview that is redrawn on every change.
type WaveGenerator struct {
	deps   Deps
	screen *screen
	saver  *saver

	mu     sync.Mutex
	params WaveParams
	points []synth.Point
	seq    uint64
}

// NewWaveGenerator returns a generator showing p.
func NewWaveGenerator(deps Deps, surface render.Surface, p WaveParams) *WaveGenerator {
	return &WaveGenerator{
		deps:   deps,
		screen: newScreen(results.WaveGenerator, surface, deps.Frames),
		saver:  &saver{deps: deps, screen: results.WaveGenerator},
		params: p.Clamp(),
	}
}

// Params returns the current parameters.
func (g *WaveGenerator) Params() WaveParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.params
}

// SetParams clamps p, stores it and redraws.
func (g *WaveGenerator) SetParams(p WaveParams) {
	g.mu.Lock()
	g.params = p.Clamp()
	g.mu.Unlock()
	g.Render()
}

// Render samples the preview and publishes one frame.
func (g *WaveGenerator) Render() {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.params
	g.points = synth.Preview(p.Shape, p.Frequency, p.Amplitude, p.Steps, PreviewWidth)
	render.PaintWave(g.screen.list, g.points, PreviewWidth)
	g.seq++
	g.screen.publish(g.seq)
}

// Save stores the current preview in the background.
func (g *WaveGenerator) Save() {
	g.mu.Lock()
	res := WaveResult{Params: g.params, Points: append([]synth.Point(nil), g.points...)}
	g.mu.Unlock()
	g.saver.save(res)
}

// HandleControl applies a slider or select change and redraws. "save"
// stores the preview.
func (g *WaveGenerator) HandleControl(c transport.Control) error {
	p := g.Params()
	switch c.Param {
	case "save":
		g.Save()
		return nil
	case "shape":
		name, err := c.Text()
		if err != nil {
			return err
		}
		shape, err := synth.ParseShape(name)
		if err != nil {
			return err
		}
		p.Shape = shape
	case "frequency", "amplitude":
		v, err := c.Float()
		if err != nil {
			return err
		}
		if c.Param == "frequency" {
			p.Frequency = v
		} else {
			p.Amplitude = v
		}
	default:
		return fmt.Errorf("unknown control '%s' for %s", c.Param, results.WaveGenerator)
	}
	g.SetParams(p)
	return nil
}

// WaitSaves blocks until background saves have finished.
func (g *WaveGenerator) WaitSaves() { g.saver.wait() }
