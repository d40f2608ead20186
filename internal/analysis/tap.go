// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	applog "vlabsound/internal/log"
	"vlabsound/pkg/bitint"
)

var logger = applog.Scope("AnalysisTap")

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// Mode selects what ReadFrame returns.
type Mode int

const (
	// ModeSpectrum returns byte-scaled magnitudes in [0, 255], one per bin,
	// smoothed over successive reads of the same reader.
	ModeSpectrum Mode = iota
	// ModeWaveform returns time-domain samples normalised to [-1, 1].
	ModeWaveform
	// ModeMagnitude returns unsmoothed linear magnitudes, one per bin,
	// normalised by the FFT size. It leaves the smoothing state alone.
	ModeMagnitude
)

func (m Mode) String() string {
	switch m {
	case ModeWaveform:
		return "waveform"
	case ModeMagnitude:
		return "magnitude"
	default:
		return "spectrum"
	}
}

// ParseMode converts "spectrum" or "waveform" (case-insensitive) to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "spectrum", "frequency", "bars":
		return ModeSpectrum, nil
	case "waveform", "time", "wave":
		return ModeWaveform, nil
	default:
		return ModeSpectrum, fmt.Errorf("unknown visualization mode: '%s'", name)
	}
}

// TapConfig configures a Tap.
type TapConfig struct {
	FFTSize     int        // Samples per analysis window (power of 2).
	SampleRate  float64    // Device sample rate (Hz).
	Window      WindowFunc // Window applied before the FFT.
	Smoothing   float64    // Time smoothing of magnitudes between reads, 0..1.
	MinDecibels float64    // Level mapped to 0 in the byte spectrum.
	MaxDecibels float64    // Level mapped to 255 in the byte spectrum.
}

// Tap keeps the latest FFTSize samples written by the device callback and
// derives waveform or spectrum snapshots on demand. The write side is guarded
// by a short mutex; the FFT runs on the reader's goroutine, outside the lock.
//
// Tap's own ReadFrame serves the screen. Other pollers take a Reader so
// their reads do not advance the screen's smoothing.
type Tap struct {
	cfg    TapConfig
	window []float64 // pre-calculated window coefficients, read-only

	mu       sync.Mutex
	history  []float64 // circular, newest sample at writePos-1
	writePos int

	main *Reader
}

// Reader is one consumer's view of a Tap, with its own FFT workspace and
// smoothing state. A Reader is safe for concurrent use.
type Reader struct {
	tap *Tap

	mu       sync.Mutex
	fft      *fourier.FFT
	ordered  []float64    // history copied oldest first
	windowed []float64    // ordered * window
	coeffs   []complex128 // FFT output
	smoothed []float64    // smoothed linear magnitudes, one per bin
}

// Compile-time checks for interface implementations.
var _ SampleSink = (*Tap)(nil)
var _ FrameReader = (*Tap)(nil)
var _ FrameReader = (*Reader)(nil)

// NewTap pre-allocates every buffer so Write and ReadFrame do not allocate.
func NewTap(cfg TapConfig) (*Tap, error) {
	if !bitint.IsPowerOfTwo(cfg.FFTSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", cfg.FFTSize)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", cfg.SampleRate)
	}
	if cfg.Smoothing < 0 || cfg.Smoothing >= 1 {
		return nil, fmt.Errorf("smoothing must be in [0, 1), got %f", cfg.Smoothing)
	}
	if cfg.MinDecibels >= cfg.MaxDecibels {
		return nil, fmt.Errorf("min decibels %.1f must be below max decibels %.1f", cfg.MinDecibels, cfg.MaxDecibels)
	}

	windowCoeffs := make([]float64, cfg.FFTSize)
	applyWindow(windowCoeffs, cfg.Window)

	logger.Debugf("Initializing (Size: %d, SampleRate: %.1f Hz, Window: %v)", cfg.FFTSize, cfg.SampleRate, cfg.Window)

	t := &Tap{
		cfg:     cfg,
		window:  windowCoeffs,
		history: make([]float64, cfg.FFTSize),
	}
	t.main = t.NewReader()
	return t, nil
}

// NewReader returns a reader with fresh smoothing state.
func (t *Tap) NewReader() *Reader {
	n := t.cfg.FFTSize
	return &Reader{
		tap:      t,
		fft:      fourier.NewFFT(n),
		ordered:  make([]float64, n),
		windowed: make([]float64, n),
		coeffs:   make([]complex128, n/2+1),
		smoothed: make([]float64, n/2),
	}
}

// Write down-mixes interleaved samples to mono and appends them to the
// history, overwriting the oldest samples.
func (t *Tap) Write(in []float32, channels int) {
	if channels < 1 {
		channels = 1
	}
	scale := 1 / float64(channels)

	t.mu.Lock()
	for i := 0; i+channels <= len(in); i += channels {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(in[i+c])
		}
		t.history[t.writePos] = sum * scale
		t.writePos++
		if t.writePos == len(t.history) {
			t.writePos = 0
		}
	}
	t.mu.Unlock()
}

// ReadFrame reads through the tap's own reader. See Reader.ReadFrame.
func (t *Tap) ReadFrame(dst []float64, mode Mode) []float64 {
	return t.main.ReadFrame(dst, mode)
}

// ReadFrame appends the latest snapshot to dst[:0] and returns it.
// In ModeWaveform the result has WindowSize samples in [-1, 1]; in
// ModeSpectrum it has BinCount values in [0, 255]; in ModeMagnitude it has
// BinCount linear magnitudes.
func (r *Reader) ReadFrame(dst []float64, mode Mode) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tap.snapshot(r.ordered)

	dst = dst[:0]
	switch mode {
	case ModeWaveform:
		for _, v := range r.ordered {
			dst = append(dst, math.Max(-1, math.Min(1, v)))
		}
		return dst
	case ModeMagnitude:
		r.transform()
		norm := 1 / float64(r.tap.cfg.FFTSize)
		for i := range r.smoothed {
			dst = append(dst, cmplx.Abs(r.coeffs[i])*norm)
		}
		return dst
	}

	r.transform()
	r.smooth()
	cfg := r.tap.cfg
	span := cfg.MaxDecibels - cfg.MinDecibels
	for _, mag := range r.smoothed {
		db := 20 * math.Log10(mag) // -Inf for silence, clamps to 0 below
		scaled := 255 * (db - cfg.MinDecibels) / span
		dst = append(dst, math.Floor(math.Max(0, math.Min(255, scaled))))
	}
	return dst
}

// snapshot copies the history oldest first into dst.
func (t *Tap) snapshot(dst []float64) {
	t.mu.Lock()
	n := copy(dst, t.history[t.writePos:])
	copy(dst[n:], t.history[:t.writePos])
	t.mu.Unlock()
}

// transform windows the ordered samples and runs the FFT. Caller holds mu.
func (r *Reader) transform() {
	for i, v := range r.ordered {
		r.windowed[i] = v * r.tap.window[i]
	}
	r.fft.Coefficients(r.coeffs, r.windowed)
}

// smooth folds the normalised magnitudes into the smoothed spectrum.
// Caller holds mu.
func (r *Reader) smooth() {
	tau := r.tap.cfg.Smoothing
	norm := 1 / float64(r.tap.cfg.FFTSize)
	for i := range r.smoothed {
		mag := cmplx.Abs(r.coeffs[i]) * norm
		r.smoothed[i] = tau*r.smoothed[i] + (1-tau)*mag
	}
}

// Reset clears the history and the tap's own smoothing state.
func (t *Tap) Reset() {
	t.mu.Lock()
	for i := range t.history {
		t.history[i] = 0
	}
	t.writePos = 0
	t.mu.Unlock()

	t.main.mu.Lock()
	for i := range t.main.smoothed {
		t.main.smoothed[i] = 0
	}
	t.main.mu.Unlock()
}

// BinCount returns the number of spectrum bins (fft size / 2).
func (t *Tap) BinCount() int { return t.cfg.FFTSize / 2 }

// WindowSize returns the number of time-domain samples per snapshot.
func (t *Tap) WindowSize() int { return t.cfg.FFTSize }

// SampleRate returns the configured sample rate (Hz).
func (t *Tap) SampleRate() float64 { return t.cfg.SampleRate }

func (r *Reader) BinCount() int                   { return r.tap.BinCount() }
func (r *Reader) WindowSize() int                 { return r.tap.WindowSize() }
func (r *Reader) FrequencyForBin(bin int) float64 { return r.tap.FrequencyForBin(bin) }

// FrequencyForBin returns the centre frequency (Hz) for a bin index, or 0
// for an index out of range.
func (t *Tap) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= t.BinCount() {
		return 0.0
	}
	return float64(bin) * (t.cfg.SampleRate / float64(t.cfg.FFTSize))
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "BartlettHann"
	case Blackman:
		return "Blackman"
	case BlackmanNuttall:
		return "BlackmanNuttall"
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Lanczos:
		return "Lanczos"
	case Nuttall:
		return "Nuttall"
	default:
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
}

// applyWindow fills coeffs with the selected window. Unknown types fall back
// to Hann.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// gonum windows scale the slice in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		logger.Warnf("Unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}
