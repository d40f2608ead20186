// SPDX-License-Identifier: MIT
package lab

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"vlabsound/internal/audio"
	"vlabsound/internal/doppler"
	"vlabsound/internal/render"
	"vlabsound/internal/results"
	"vlabsound/internal/synth"
	"vlabsound/internal/transport"
)

// ToneOpener opens Doppler voices as output tones on backend.
func ToneOpener(backend audio.Backend, p audio.StreamParams) doppler.VoiceOpener {
	return func(shape synth.Shape, frequency float64) (doppler.Voice, error) {
		tone, err := audio.OpenTone(backend, p, shape, frequency)
		if err != nil {
			return nil, err
		}
		return tone, nil
	}
}

// DopplerConfig configures a Doppler session.
type DopplerConfig struct {
	Params  doppler.Params
	Scene   doppler.Scene
	Surface render.Surface
	Clock   render.Clock
}

// DopplerResult is what a finished run stores.
type DopplerResult struct {
	Scene        doppler.Scene `json:"scene"`
	Frames       uint64        `json:"frames"`
	MinFrequency float64       `json:"min_frequency"`
	MaxFrequency float64       `json:"max_frequency"`
	Clamped      bool          `json:"clamped"`
}

// Doppler is the moving-source screen. The loop runs only while the tone
// plays; mounting draws the idle track and observer once.
type Doppler struct {
	deps    Deps
	engine  *doppler.Engine
	painter render.DopplerPainter
	screen  *screen
	loop    *render.Loop
	saver   *saver

	drawMu sync.Mutex // serialises the mount frame with the loop

	mu      sync.Mutex
	mounted bool
	active  bool          // run accepts frames
	run     DopplerResult // accumulated while playing
}

// NewDoppler builds an unmounted session.
func NewDoppler(open doppler.VoiceOpener, deps Deps, cfg DopplerConfig) *Doppler {
	d := &Doppler{
		deps:    deps,
		engine:  doppler.NewEngine(cfg.Params, cfg.Scene, open),
		painter: render.DopplerPainter{TrackWidth: cfg.Params.TrackWidth},
		screen:  newScreen(results.DopplerEffect, cfg.Surface, deps.Frames),
		saver:   &saver{deps: deps, screen: results.DopplerEffect},
	}
	d.loop = render.NewLoop(cfg.Clock, d.frame)
	d.loop.OnFault(d.onFault)
	return d
}

// Engine exposes the synthesis engine.
func (d *Doppler) Engine() *doppler.Engine { return d.engine }

// Loop exposes the render loop.
func (d *Doppler) Loop() *render.Loop { return d.loop }

// Mount draws the idle scene once. While a tone plays the loop is already
// drawing and nothing extra is painted.
func (d *Doppler) Mount() {
	d.mu.Lock()
	if d.mounted {
		d.mu.Unlock()
		return
	}
	d.mounted = true
	d.mu.Unlock()

	if !d.loop.Running() {
		d.draw(d.loop.Frames())
	}
}

// Unmount stops any tone. A run in progress is saved.
func (d *Doppler) Unmount() error {
	d.mu.Lock()
	if !d.mounted {
		d.mu.Unlock()
		return nil
	}
	d.mounted = false
	d.mu.Unlock()

	return d.Stop()
}

// Play starts the tone and the frame loop. A device failure posts a
// terminal notice and leaves the loop stopped.
func (d *Doppler) Play() error {
	if d.Playing() {
		return doppler.ErrAlreadyPlaying
	}

	d.mu.Lock()
	d.run = DopplerResult{Scene: d.engine.Scene(), MinFrequency: math.Inf(1), MaxFrequency: math.Inf(-1)}
	d.active = true
	d.mu.Unlock()

	err := d.engine.Start()
	if err != nil {
		if errors.Is(err, doppler.ErrAlreadyPlaying) {
			return err
		}
		d.mu.Lock()
		d.active = false
		d.mu.Unlock()
		d.deps.notify(deviceNotice(string(results.DopplerEffect), err))
		return err
	}
	d.loop.Start()
	return nil
}

// Stop cancels the frame loop, silences the tone and saves the run. No
// frame runs once Stop returns. Stopping while idle is a no-op.
func (d *Doppler) Stop() error {
	d.loop.Stop()
	if d.engine.State() == doppler.Idle {
		return nil
	}
	err := d.engine.Stop()

	d.mu.Lock()
	run := d.run
	d.run = DopplerResult{}
	d.active = false
	d.mu.Unlock()

	if run.Frames > 0 {
		d.saver.save(run)
	}
	return err
}

// Playing reports whether the tone is on.
func (d *Doppler) Playing() bool { return d.engine.State() == doppler.Playing }

// HandleControl applies a slider or select change. Values are clamped to
// the slider ranges.
func (d *Doppler) HandleControl(c transport.Control) error {
	switch c.Param {
	case "shape":
		name, err := c.Text()
		if err != nil {
			return err
		}
		shape, err := synth.ParseShape(name)
		if err != nil {
			return err
		}
		d.engine.UpdateScene(func(s *doppler.Scene) { s.Shape = shape })
		return nil
	case "play":
		v, err := c.Float()
		if err != nil {
			return err
		}
		if v != 0 {
			if err := d.Play(); err != nil && !errors.Is(err, doppler.ErrAlreadyPlaying) {
				return err
			}
			return nil
		}
		return d.Stop()
	}

	v, err := c.Float()
	if err != nil {
		return err
	}
	switch c.Param {
	case "speed":
		d.engine.UpdateScene(func(s *doppler.Scene) { s.SourceSpeed = v })
	case "frequency":
		d.engine.UpdateScene(func(s *doppler.Scene) { s.BaseFrequency = v })
	case "observer":
		d.engine.UpdateScene(func(s *doppler.Scene) { s.ObserverPercent = v })
	default:
		return fmt.Errorf("unknown control '%s' for %s", c.Param, results.DopplerEffect)
	}
	return nil
}

// WaitSaves blocks until background saves have finished.
func (d *Doppler) WaitSaves() { d.saver.wait() }

func (d *Doppler) frame(n uint64) error {
	d.draw(n)
	return nil
}

// draw ticks the engine, folds a playing snapshot into the run and
// publishes the scene as frame n.
func (d *Doppler) draw(n uint64) {
	d.drawMu.Lock()
	defer d.drawMu.Unlock()

	snap, err := d.engine.Tick()
	if err != nil {
		// The engine keeps going silently; the user sees why.
		d.deps.notify(deviceNotice(string(results.DopplerEffect), err))
	}

	if snap.State == doppler.Playing {
		d.mu.Lock()
		if d.active {
			d.run.Scene = snap.Scene
			d.run.Frames++
			d.run.MinFrequency = math.Min(d.run.MinFrequency, snap.Frequency)
			d.run.MaxFrequency = math.Max(d.run.MaxFrequency, snap.Frequency)
			d.run.Clamped = d.run.Clamped || snap.Clamped
		}
		d.mu.Unlock()
	}

	d.painter.Paint(d.screen.list, snap)
	d.screen.publish(n)
}

// onFault runs after the loop has stopped itself.
func (d *Doppler) onFault(err error) {
	if serr := d.engine.Stop(); serr != nil {
		logger.Warnf("Stop after fault: %v", serr)
	}
	d.mu.Lock()
	d.active = false
	d.mu.Unlock()
	d.deps.notify(faultNotice(string(results.DopplerEffect), err))
}
