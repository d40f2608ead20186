// SPDX-License-Identifier: MIT
package doppler

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"vlabsound/internal/config"
	applog "vlabsound/internal/log"
	"vlabsound/internal/synth"
)

var logger = applog.Scope("Doppler")

// ErrAlreadyPlaying is returned by Start while the engine is playing.
var ErrAlreadyPlaying = errors.New("doppler engine already playing")

// Voice is the tone the engine drives: an oscillator behind a gain stage.
type Voice interface {
	SetFrequency(hz float64)
	SetGain(g float64)
	Stop() error
}

// VoiceOpener allocates a started voice with zero gain.
type VoiceOpener func(shape synth.Shape, frequency float64) (Voice, error)

// State is the engine state. There is no paused state.
type State int

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "idle"
}

// Params are the fixed model constants.
type Params struct {
	TrackWidth    float64 // Drawing units.
	TimeScale     float64 // Per-frame advance is speed / TimeScale.
	SpeedOfSound  float64 // m/s.
	MasterVolume  float64 // Applied to the floored gain.
	MinGain       float64 // Gain floor before MasterVolume.
	TraceCapacity int     // Frequency-over-time samples kept.
}

// DefaultParams returns the constants used by the lab screens.
func DefaultParams() Params {
	return Params{
		TrackWidth:    800,
		TimeScale:     10,
		SpeedOfSound:  SpeedOfSound,
		MasterVolume:  0.1,
		MinGain:       0.1,
		TraceCapacity: config.DefaultTraceSamples,
	}
}

// ParamsFromConfig converts the doppler config section.
func ParamsFromConfig(cfg config.DopplerConfig) Params {
	return Params{
		TrackWidth:    cfg.TrackWidth,
		TimeScale:     cfg.TimeScale,
		SpeedOfSound:  cfg.SpeedOfSound,
		MasterVolume:  cfg.MasterVolume,
		MinGain:       cfg.MinGain,
		TraceCapacity: cfg.TraceCapacity,
	}
}

// Snapshot is the engine state after one tick. Trace aliases an engine
// buffer and is valid until the next Tick.
type Snapshot struct {
	State     State
	Scene     Scene
	Position  float64 // Source position on the track.
	Observer  float64 // Observer position on the track.
	Velocity  float64 // Signed, positive while approaching.
	Distance  float64
	Frequency float64 // Hz, as heard by the observer.
	Gain      float64 // Includes the master volume.
	Clamped   bool    // The shift formula left its domain this tick.
	Trace     []TracePoint
}

// Engine advances the Doppler model once per frame while playing and keeps
// the voice in step with it. Scene updates may come from any goroutine and
// are read fresh on every tick.
type Engine struct {
	params Params
	open   VoiceOpener

	sceneMu sync.Mutex
	scene   Scene

	mu         sync.Mutex
	state      State
	voice      Voice
	voiceShape synth.Shape
	position   float64
	trace      *FrequencyTrace
	traceBuf   []TracePoint
	warned     bool
}

// NewEngine returns an idle engine.
func NewEngine(params Params, scene Scene, open VoiceOpener) *Engine {
	if params.TraceCapacity < config.MinTraceCapacity {
		params.TraceCapacity = config.MinTraceCapacity
	}
	return &Engine{
		params:   params,
		open:     open,
		scene:    scene.Clamp(),
		trace:    NewFrequencyTrace(params.TraceCapacity),
		traceBuf: make([]TracePoint, 0, params.TraceCapacity),
	}
}

// Scene returns the current scene.
func (e *Engine) Scene() Scene {
	e.sceneMu.Lock()
	defer e.sceneMu.Unlock()
	return e.scene
}

// SetScene replaces the scene, clamped to the slider ranges.
func (e *Engine) SetScene(s Scene) {
	e.sceneMu.Lock()
	e.scene = s.Clamp()
	e.sceneMu.Unlock()
}

// UpdateScene applies fn to the scene and clamps the result.
func (e *Engine) UpdateScene(fn func(s *Scene)) Scene {
	e.sceneMu.Lock()
	defer e.sceneMu.Unlock()
	s := e.scene
	fn(&s)
	e.scene = s.Clamp()
	return e.scene
}

// State returns the engine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Params returns the model constants.
func (e *Engine) Params() Params { return e.params }

// Start opens the voice and moves the source back to the start of the track.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Playing {
		return ErrAlreadyPlaying
	}

	scene := e.Scene()
	voice, err := e.open(scene.Shape, scene.BaseFrequency)
	if err != nil {
		return fmt.Errorf("failed to start tone: %w", err)
	}

	e.voice = voice
	e.voiceShape = scene.Shape
	e.position = 0
	e.trace.Reset()
	e.warned = false
	e.state = Playing
	logger.Infof("Playing (%s @ %.0f Hz, %.0f m/s)", scene.Shape, scene.BaseFrequency, scene.SourceSpeed)
	return nil
}

// Stop halts the voice and clears the trace and source marker. Stopping an
// idle engine is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Idle {
		return nil
	}

	err := e.voice.Stop()
	e.voice = nil
	e.position = 0
	e.trace.Reset()
	e.state = Idle
	logger.Infof("Stopped")
	if err != nil {
		return fmt.Errorf("failed to stop tone: %w", err)
	}
	return nil
}

// Tick advances the model one frame. While idle it returns an idle snapshot
// and touches nothing. An error means the voice could not follow a shape
// change; the engine keeps playing silently until stopped.
func (e *Engine) Tick() (Snapshot, error) {
	scene := e.Scene()

	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.params
	snap := Snapshot{
		State:    e.state,
		Scene:    scene,
		Observer: scene.ObserverPercent / 100 * p.TrackWidth,
	}
	if e.state == Idle {
		return snap, nil
	}

	if scene.Shape != e.voiceShape {
		if err := e.swapVoice(scene); err != nil {
			return snap, err
		}
	}

	e.position = Advance(e.position, scene.SourceSpeed, p.TimeScale, p.TrackWidth)

	snap.Position = e.position
	snap.Velocity = SignedVelocity(scene.SourceSpeed, e.position, snap.Observer)
	snap.Distance = math.Abs(e.position - snap.Observer)

	freq, err := Shift(scene.BaseFrequency, snap.Velocity, p.SpeedOfSound)
	if err != nil {
		snap.Clamped = true
		if !e.warned {
			logger.Warnf("Shift clamped at v=%.1f m/s, c=%.1f m/s: %v", snap.Velocity, p.SpeedOfSound, err)
			e.warned = true
		}
	}
	snap.Frequency = freq
	snap.Gain = Gain(snap.Distance, p.TrackWidth, p.MinGain, p.MasterVolume)

	e.voice.SetFrequency(snap.Frequency)
	e.voice.SetGain(snap.Gain)

	e.trace.Push(TracePoint{Position: snap.Position, Frequency: snap.Frequency})
	e.traceBuf = e.trace.Points(e.traceBuf[:0])
	snap.Trace = e.traceBuf
	return snap, nil
}

// swapVoice replaces the voice with one of the new shape. Caller holds mu.
func (e *Engine) swapVoice(scene Scene) error {
	if err := e.voice.Stop(); err != nil {
		logger.Warnf("Failed to stop %s voice: %v", e.voiceShape, err)
	}
	voice, err := e.open(scene.Shape, scene.BaseFrequency)
	if err != nil {
		e.voice = silentVoice{}
		e.voiceShape = scene.Shape
		return fmt.Errorf("failed to switch tone to %s: %w", scene.Shape, err)
	}
	logger.Debugf("Voice switched %s -> %s", e.voiceShape, scene.Shape)
	e.voice = voice
	e.voiceShape = scene.Shape
	return nil
}

// silentVoice stands in after a failed voice switch so Stop stays safe.
type silentVoice struct{}

func (silentVoice) SetFrequency(float64) {}
func (silentVoice) SetGain(float64)      {}
func (silentVoice) Stop() error          { return nil }
