// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"vlabsound/internal/analysis"
)

// CaptureConfig configures a CaptureSource.
type CaptureConfig struct {
	Stream   StreamParams
	Tap      analysis.TapConfig
	BitDepth int // WAV export depth: 16 (default), 24 or 32.
}

// RecordingInfo describes the chunk log of the last recording.
type RecordingInfo struct {
	Chunks   int           `json:"chunks"`
	Bytes    int           `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

// CaptureSource acquires the input device and feeds every callback buffer to
// an analysis tap and, while recording, to the chunk log.
type CaptureSource struct {
	backend Backend
	cfg     CaptureConfig

	mu     sync.Mutex
	stream Stream
	tap    *analysis.Tap

	chunks ChunkLog
}

// NewCaptureSource returns a closed capture source. Nothing touches the
// device until Open.
func NewCaptureSource(backend Backend, cfg CaptureConfig) *CaptureSource {
	if cfg.Stream.Channels < 1 {
		cfg.Stream.Channels = 1
	}
	switch cfg.BitDepth {
	case 16, 24, 32:
	default:
		cfg.BitDepth = 16
	}
	if cfg.Tap.SampleRate == 0 {
		cfg.Tap.SampleRate = cfg.Stream.SampleRate
	}
	return &CaptureSource{backend: backend, cfg: cfg}
}

// Open acquires the input device and starts delivering buffers. Opening an
// already open source is a no-op. On error nothing is left open and the
// error is a *DeviceAccessError unless the tap configuration was invalid or
// ctx was done.
func (c *CaptureSource) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil
	}

	tap, err := analysis.NewTap(c.cfg.Tap)
	if err != nil {
		return fmt.Errorf("failed to create analysis tap: %w", err)
	}

	channels := c.cfg.Stream.Channels
	process := func(in []float32) {
		tap.Write(in, channels)
		if c.chunks.Active() {
			c.chunks.Append(encodePCM16(in))
		}
	}

	stream, err := c.backend.OpenInput(c.cfg.Stream, process)
	if err != nil {
		return asDeviceError("open input", c.cfg.Stream.Device, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return asDeviceError("start input", c.cfg.Stream.Device, err)
	}

	c.stream = stream
	c.tap = tap
	logger.Infof("Capture source opened (%d ch @ %.0f Hz)", channels, c.cfg.Stream.SampleRate)
	return nil
}

// IsOpen reports whether the device is held.
func (c *CaptureSource) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// StartRecording clears the chunk log and begins appending one chunk per
// callback.
func (c *CaptureSource) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return ErrNotOpen
	}
	if !c.chunks.Begin() {
		return ErrAlreadyRecording
	}
	logger.Debugf("Recording started")
	return nil
}

// StopRecording halts chunk emission. Collected chunks stay intact.
func (c *CaptureSource) StopRecording() {
	if c.chunks.Active() {
		c.chunks.End()
		logger.Debugf("Recording stopped (%d chunks)", c.chunks.Len())
	}
}

// IsRecording reports whether chunks are being collected.
func (c *CaptureSource) IsRecording() bool { return c.chunks.Active() }

// Tap returns the current analysis tap, or nil when closed.
func (c *CaptureSource) Tap() analysis.FrameReader {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tap == nil {
		return nil
	}
	return c.tap
}

// NewAnalysisReader returns a reader over the current tap with its own
// smoothing state, or nil when closed. Pollers other than the screen use it.
func (c *CaptureSource) NewAnalysisReader() analysis.FrameReader {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tap == nil {
		return nil
	}
	return c.tap.NewReader()
}

// ReadAnalysisFrame appends the latest snapshot to dst[:0]. It never waits
// for new audio.
func (c *CaptureSource) ReadAnalysisFrame(dst []float64, mode analysis.Mode) ([]float64, error) {
	c.mu.Lock()
	tap := c.tap
	c.mu.Unlock()

	if tap == nil {
		return dst[:0], ErrNotOpen
	}
	return tap.ReadFrame(dst, mode), nil
}

// DownloadRecording concatenates the chunk log, in order, into one blob of
// 16-bit little-endian PCM.
func (c *CaptureSource) DownloadRecording() []byte {
	return c.chunks.Concat()
}

// Recording describes the current chunk log.
func (c *CaptureSource) Recording() RecordingInfo {
	bytes := c.chunks.Size()
	info := RecordingInfo{Chunks: c.chunks.Len(), Bytes: bytes}
	if c.cfg.Stream.SampleRate > 0 {
		frames := bytes / 2 / c.cfg.Stream.Channels
		info.Duration = time.Duration(float64(frames) / c.cfg.Stream.SampleRate * float64(time.Second))
	}
	return info
}

// ExportWAV encodes the chunk log as a PCM WAV file at the configured bit
// depth. Chunks hold 16-bit samples; deeper exports are left-aligned.
func (c *CaptureSource) ExportWAV(w io.WriteSeeker) error {
	sampleRate := int(c.cfg.Stream.SampleRate)
	channels := c.cfg.Stream.Channels
	depth := c.cfg.BitDepth

	data := decodePCM16(c.chunks.Concat(), nil)
	if shift := depth - 16; shift > 0 {
		for i := range data {
			data[i] <<= shift
		}
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: depth,
	}

	enc := wav.NewEncoder(w, sampleRate, depth, channels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode recording: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize recording: %w", err)
	}
	return nil
}

// SaveWAV writes the chunk log to dir/sound-recording-<timestamp>.wav and
// returns the path.
func (c *CaptureSource) SaveWAV(dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("sound-recording-%s.wav", now.Format("20060102-150405")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create recording file: %w", err)
	}
	if err := c.ExportWAV(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close recording file: %w", err)
	}
	logger.Infof("Recording saved to %s", path)
	return path, nil
}

// Close stops recording, releases the device and drops the tap. Closing a
// closed source is a no-op; a later Open acquires a fresh stream and tap.
func (c *CaptureSource) Close() error {
	c.StopRecording()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}

	var errs []error
	if err := c.stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop input stream: %w", err))
	}
	if err := c.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close input stream: %w", err))
	}
	c.stream = nil
	c.tap = nil

	logger.Debugf("Capture source closed")
	return errors.Join(errs...)
}
