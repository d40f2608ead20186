// SPDX-License-Identifier: MIT
package lab

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"vlabsound/internal/analysis"
	"vlabsound/internal/audio"
	"vlabsound/internal/render"
	"vlabsound/internal/results"
	"vlabsound/internal/transport"
)

// SoundAnalysisConfig configures a SoundAnalysis session.
type SoundAnalysisConfig struct {
	Capture      audio.CaptureConfig
	Mode         analysis.Mode
	Surface      render.Surface
	Clock        render.Clock
	RecordingDir string // Empty keeps recordings in memory only.
}

// SoundAnalysisResult is what a finished recording stores.
type SoundAnalysisResult struct {
	DurationSeconds float64         `json:"duration_seconds"`
	Chunks          int             `json:"chunks"`
	Bytes           int             `json:"bytes"`
	File            string          `json:"file,omitempty"`
	Mode            string          `json:"mode"`
	Levels          analysis.Levels `json:"levels"`
}

// SoundAnalysis is the live spectrum/waveform screen with recording.
type SoundAnalysis struct {
	cfg     SoundAnalysisConfig
	deps    Deps
	capture *audio.CaptureSource
	screen  *screen
	loop    *render.Loop
	saver   *saver
	now     func() time.Time

	mode atomic.Int32

	// Loop goroutine only.
	buf     []float64
	scratch []render.Point

	mu      sync.Mutex // serialises Mount, Unmount and recording changes
	mounted bool
}

// NewSoundAnalysis builds an unmounted session reading from backend.
func NewSoundAnalysis(backend audio.Backend, deps Deps, cfg SoundAnalysisConfig) *SoundAnalysis {
	s := &SoundAnalysis{
		cfg:     cfg,
		deps:    deps,
		capture: audio.NewCaptureSource(backend, cfg.Capture),
		screen:  newScreen(results.SoundAnalysis, cfg.Surface, deps.Frames),
		saver:   &saver{deps: deps, screen: results.SoundAnalysis},
		now:     time.Now,
		buf:     make([]float64, 0, max(cfg.Capture.Tap.FFTSize, 1)),
		scratch: make([]render.Point, 0, max(cfg.Capture.Tap.FFTSize, 1)),
	}
	s.mode.Store(int32(cfg.Mode))
	s.loop = render.NewLoop(cfg.Clock, s.frame)
	s.loop.OnFault(s.onFault)
	return s
}

// Mount opens the input device and starts drawing. A device failure posts
// a terminal notice and is returned; nothing is left running.
func (s *SoundAnalysis) Mount(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mounted && s.loop.Running() {
		return nil
	}
	if err := s.capture.Open(ctx); err != nil {
		var devErr *audio.DeviceAccessError
		if errors.As(err, &devErr) {
			s.deps.notify(deviceNotice(string(results.SoundAnalysis), err))
		}
		return err
	}
	s.mounted = true
	s.loop.Start()
	return nil
}

// Unmount stops drawing, finishes any recording and releases the device.
func (s *SoundAnalysis) Unmount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mounted {
		return nil
	}
	s.loop.Stop()
	if s.capture.IsRecording() {
		s.finishRecording()
	}
	s.mounted = false
	return s.capture.Close()
}

// Mounted reports whether the session holds the device.
func (s *SoundAnalysis) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// Capture exposes the capture source, mainly for transports and tests.
func (s *SoundAnalysis) Capture() *audio.CaptureSource { return s.capture }

// Loop exposes the render loop.
func (s *SoundAnalysis) Loop() *render.Loop { return s.loop }

// Mode returns the current visualization.
func (s *SoundAnalysis) Mode() analysis.Mode { return analysis.Mode(s.mode.Load()) }

// SetMode switches the visualization from the next frame on.
func (s *SoundAnalysis) SetMode(m analysis.Mode) { s.mode.Store(int32(m)) }

// StartRecording begins collecting chunks.
func (s *SoundAnalysis) StartRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture.StartRecording()
}

// StopRecording ends the recording, writes the WAV file when a directory
// is configured and saves a result in the background.
func (s *SoundAnalysis) StopRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture.IsRecording() {
		s.finishRecording()
	}
}

// finishRecording runs with mu held while the device is still open.
func (s *SoundAnalysis) finishRecording() {
	s.capture.StopRecording()
	info := s.capture.Recording()

	res := SoundAnalysisResult{
		DurationSeconds: info.Duration.Seconds(),
		Chunks:          info.Chunks,
		Bytes:           info.Bytes,
		Mode:            s.Mode().String(),
	}
	if tap := s.capture.Tap(); tap != nil {
		res.Levels = analysis.Measure(tap)
	}

	if s.cfg.RecordingDir != "" {
		path, err := s.capture.SaveWAV(s.cfg.RecordingDir, s.now())
		if err != nil {
			s.deps.notify(saveNotice(string(results.SoundAnalysis), err))
		} else {
			res.File = path
		}
	}

	logger.Infof("Recording finished: %d chunks, %.1fs", info.Chunks, res.DurationSeconds)
	s.saver.save(res)
}

// HandleControl applies "mode" and "record" controls.
func (s *SoundAnalysis) HandleControl(c transport.Control) error {
	switch c.Param {
	case "mode":
		name, err := c.Text()
		if err != nil {
			return err
		}
		m, err := analysis.ParseMode(name)
		if err != nil {
			return err
		}
		s.SetMode(m)
	case "record":
		v, err := c.Float()
		if err != nil {
			return err
		}
		if v != 0 {
			return s.StartRecording()
		}
		s.StopRecording()
	default:
		return fmt.Errorf("unknown control '%s' for %s", c.Param, results.SoundAnalysis)
	}
	return nil
}

// WaitSaves blocks until background saves have finished.
func (s *SoundAnalysis) WaitSaves() { s.saver.wait() }

func (s *SoundAnalysis) frame(n uint64) error {
	mode := s.Mode()
	var err error
	s.buf, err = s.capture.ReadAnalysisFrame(s.buf, mode)
	if err != nil {
		return err
	}

	if mode == analysis.ModeWaveform {
		s.scratch = render.PaintWaveform(s.screen.list, s.buf, s.scratch)
	} else {
		render.PaintSpectrum(s.screen.list, s.buf)
	}
	s.screen.publish(n)
	return nil
}

// onFault runs on the loop goroutine after it stopped itself.
func (s *SoundAnalysis) onFault(err error) {
	s.capture.StopRecording()
	if cerr := s.capture.Close(); cerr != nil {
		logger.Warnf("Close after fault: %v", cerr)
	}
	s.deps.notify(faultNotice(string(results.SoundAnalysis), err))
}
