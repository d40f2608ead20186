// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"vlabsound/internal/analysis"
	applog "vlabsound/internal/log"
	"vlabsound/internal/synth"
	"vlabsound/pkg/bitint"
)

// Hardware, processing and slider limits. The slider ranges mirror the
// controls of the experiment screens.
const (
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MinFFTSize      = 32
	MaxFFTSize      = 32768

	MinFrameRate = 1
	MaxFrameRate = 240

	MinSourceSpeed      = 0.0 // m/s
	MaxSourceSpeed      = 100.0
	MinBaseFrequency    = 220.0 // Hz
	MaxBaseFrequency    = 880.0
	MinObserverPercent  = 0.0
	MaxObserverPercent  = 100.0
	MinWaveFrequency    = 0.1 // Hz, wave generator
	MaxWaveFrequency    = 5.0
	MinWaveAmplitude    = 0.0
	MaxWaveAmplitude    = 100.0
	MinTraceCapacity    = 2
	DefaultTraceSamples = 100
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	UserID    string          `yaml:"user_id"`   // Identity attached to saved results.
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Doppler   DopplerConfig   `yaml:"doppler"`
	Wave      WaveConfig      `yaml:"wave"`
	Render    RenderConfig    `yaml:"render"`
	Recording RecordingConfig `yaml:"recording"`
	Results   ResultsConfig   `yaml:"results"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds settings related to audio input/output devices.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for capture (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for the synthesized tone (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per device callback; one recorded chunk per callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int     `yaml:"input_channels"`    // Number of input channels to capture.
}

// AnalysisConfig configures the analysis tap used by the Sound Analysis screen.
type AnalysisConfig struct {
	FFTSize     int     `yaml:"fft_size"`     // Samples per analysis window (power of 2).
	Window      string  `yaml:"window"`       // Window function name (e.g., "Blackman", "Hann").
	Smoothing   float64 `yaml:"smoothing"`    // Time smoothing of magnitudes, 0..1.
	MinDecibels float64 `yaml:"min_decibels"` // Magnitude mapped to 0 in the byte spectrum.
	MaxDecibels float64 `yaml:"max_decibels"` // Magnitude mapped to 255 in the byte spectrum.
	Mode        string  `yaml:"mode"`         // "spectrum" or "waveform".
}

// DopplerConfig holds the Doppler model constants and the initial scene.
type DopplerConfig struct {
	TrackWidth      float64 `yaml:"track_width"`      // Track length in drawing units.
	TimeScale       float64 `yaml:"time_scale"`       // Per-frame advance is speed / time_scale.
	SpeedOfSound    float64 `yaml:"speed_of_sound"`   // m/s.
	MasterVolume    float64 `yaml:"master_volume"`    // Scalar applied to the computed gain.
	MinGain         float64 `yaml:"min_gain"`         // Gain floor before the master volume.
	TraceCapacity   int     `yaml:"trace_capacity"`   // Frequency-over-time samples kept.
	SourceSpeed     float64 `yaml:"source_speed"`     // Initial speed, m/s.
	BaseFrequency   float64 `yaml:"base_frequency"`   // Initial source frequency, Hz.
	ObserverPercent float64 `yaml:"observer_percent"` // Initial observer position, percent of track.
	Shape           string  `yaml:"shape"`            // sine, square, triangle or sawtooth.
}

// WaveConfig holds the initial wave generator parameters.
type WaveConfig struct {
	Shape     string  `yaml:"shape"`
	Frequency float64 `yaml:"frequency"` // Cycles across the preview, 0.1..5.
	Amplitude float64 `yaml:"amplitude"` // 0..100.
	Steps     int     `yaml:"steps"`     // Points sampled across the preview.
}

// RenderConfig configures the render loop and the drawing surface.
type RenderConfig struct {
	FrameRate  int     `yaml:"frame_rate"`  // Frames per second.
	Width      float64 `yaml:"width"`       // Surface width in CSS pixels.
	Height     float64 `yaml:"height"`      // Surface height in CSS pixels.
	PixelRatio float64 `yaml:"pixel_ratio"` // Device pixel ratio applied once at mount.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	OutputDir string `yaml:"output_dir"` // Directory to save recordings.
	BitDepth  int    `yaml:"bit_depth"`  // Bit depth for exported WAV files.
}

// ResultsConfig configures the experiment result store.
type ResultsConfig struct {
	Path        string        `yaml:"path"`         // JSON document file.
	SaveTimeout time.Duration `yaml:"save_timeout"` // Upper bound for a background save.
}

// TransportConfig holds settings related to sending frames and analysis data.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Broadcast drawn frames over a websocket.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address, e.g. ":8080".
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send analysis magnitudes over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		UserID:   "local",
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			OutputDevice:    MinDeviceID,
			SampleRate:      44100,
			FramesPerBuffer: 1024,
			InputChannels:   1,
		},
		Analysis: AnalysisConfig{
			FFTSize:     2048,
			Window:      "Blackman",
			Smoothing:   0.8,
			MinDecibels: -100,
			MaxDecibels: -30,
			Mode:        "spectrum",
		},
		Doppler: DopplerConfig{
			TrackWidth:      800,
			TimeScale:       10,
			SpeedOfSound:    343,
			MasterVolume:    0.1,
			MinGain:         0.1,
			TraceCapacity:   DefaultTraceSamples,
			SourceSpeed:     30,
			BaseFrequency:   440,
			ObserverPercent: 50,
			Shape:           "sine",
		},
		Wave: WaveConfig{
			Shape:     "sine",
			Frequency: 1,
			Amplitude: 50,
			Steps:     100,
		},
		Render: RenderConfig{
			FrameRate:  60,
			Width:      800,
			Height:     200,
			PixelRatio: 1,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
			BitDepth:  16,
		},
		Results: ResultsConfig{
			Path:        "./data/results.json",
			SaveTimeout: 5 * time.Second,
		},
		Transport: TransportConfig{
			WebSocketEnabled: true,
			WebSocketAddress: ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml", "vlab.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every section and joins all problems into one error.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not a known level", c.LogLevel))
	}

	// Audio
	check(c.Audio.InputDevice >= MinDeviceID, "audio.input_device must be >= %d", MinDeviceID)
	check(c.Audio.OutputDevice >= MinDeviceID, "audio.output_device must be >= %d", MinDeviceID)
	check(c.Audio.SampleRate >= MinSampleRate && c.Audio.SampleRate <= MaxSampleRate,
		"audio.sample_rate %.0f outside %d..%d", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	check(c.Audio.FramesPerBuffer > 0 && c.Audio.FramesPerBuffer <= MaxBufferFrames,
		"audio.frames_per_buffer %d outside 1..%d", c.Audio.FramesPerBuffer, MaxBufferFrames)
	check(c.Audio.InputChannels >= 1 && c.Audio.InputChannels <= 2,
		"audio.input_channels must be 1 or 2, got %d", c.Audio.InputChannels)

	// Analysis
	check(bitint.IsPowerOfTwo(c.Analysis.FFTSize) && c.Analysis.FFTSize >= MinFFTSize && c.Analysis.FFTSize <= MaxFFTSize,
		"analysis.fft_size must be a power of 2 in %d..%d, got %d", MinFFTSize, MaxFFTSize, c.Analysis.FFTSize)
	if _, err := analysis.ParseWindowFunc(c.Analysis.Window); err != nil {
		errs = append(errs, fmt.Errorf("analysis.window: %w", err))
	}
	if _, err := analysis.ParseMode(c.Analysis.Mode); err != nil {
		errs = append(errs, fmt.Errorf("analysis.mode: %w", err))
	}
	check(c.Analysis.Smoothing >= 0 && c.Analysis.Smoothing < 1,
		"analysis.smoothing must be in [0, 1), got %g", c.Analysis.Smoothing)
	check(c.Analysis.MinDecibels < c.Analysis.MaxDecibels,
		"analysis.min_decibels must be below max_decibels")

	// Doppler
	d := c.Doppler
	check(d.TrackWidth > 0, "doppler.track_width must be positive")
	check(d.TimeScale > 0, "doppler.time_scale must be positive")
	check(d.SpeedOfSound > MaxSourceSpeed, "doppler.speed_of_sound must exceed the max source speed %.0f", MaxSourceSpeed)
	check(d.MasterVolume > 0 && d.MasterVolume <= 1, "doppler.master_volume must be in (0, 1]")
	check(d.MinGain > 0 && d.MinGain <= 1, "doppler.min_gain must be in (0, 1]")
	check(d.TraceCapacity >= MinTraceCapacity, "doppler.trace_capacity must be >= %d", MinTraceCapacity)
	check(d.SourceSpeed >= MinSourceSpeed && d.SourceSpeed <= MaxSourceSpeed,
		"doppler.source_speed %g outside %g..%g", d.SourceSpeed, MinSourceSpeed, MaxSourceSpeed)
	check(d.BaseFrequency >= MinBaseFrequency && d.BaseFrequency <= MaxBaseFrequency,
		"doppler.base_frequency %g outside %g..%g", d.BaseFrequency, MinBaseFrequency, MaxBaseFrequency)
	check(d.ObserverPercent >= MinObserverPercent && d.ObserverPercent <= MaxObserverPercent,
		"doppler.observer_percent %g outside %g..%g", d.ObserverPercent, MinObserverPercent, MaxObserverPercent)
	if _, err := synth.ParseShape(d.Shape); err != nil {
		errs = append(errs, fmt.Errorf("doppler.shape: %w", err))
	}

	// Wave generator
	if _, err := synth.ParseShape(c.Wave.Shape); err != nil {
		errs = append(errs, fmt.Errorf("wave.shape: %w", err))
	}
	check(c.Wave.Frequency >= MinWaveFrequency && c.Wave.Frequency <= MaxWaveFrequency,
		"wave.frequency %g outside %g..%g", c.Wave.Frequency, MinWaveFrequency, MaxWaveFrequency)
	check(c.Wave.Amplitude >= MinWaveAmplitude && c.Wave.Amplitude <= MaxWaveAmplitude,
		"wave.amplitude %g outside %g..%g", c.Wave.Amplitude, MinWaveAmplitude, MaxWaveAmplitude)
	check(c.Wave.Steps >= 2, "wave.steps must be >= 2")

	// Render
	check(c.Render.FrameRate >= MinFrameRate && c.Render.FrameRate <= MaxFrameRate,
		"render.frame_rate %d outside %d..%d", c.Render.FrameRate, MinFrameRate, MaxFrameRate)
	check(c.Render.Width > 0 && c.Render.Height > 0, "render.width and render.height must be positive")
	check(c.Render.PixelRatio > 0, "render.pixel_ratio must be positive")

	// Recording and results
	check(c.Recording.BitDepth == 16 || c.Recording.BitDepth == 24 || c.Recording.BitDepth == 32,
		"recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
	check(c.Results.Path != "", "results.path must be set")
	check(c.Results.SaveTimeout > 0, "results.save_timeout must be positive")

	// Transport
	if c.Transport.WebSocketEnabled {
		check(c.Transport.WebSocketAddress != "", "transport.websocket_address must be set when websocket is enabled")
	}
	if c.Transport.UDPEnabled {
		check(c.Transport.UDPTargetAddress != "", "transport.udp_target_address must be set when UDP is enabled")
		check(c.Transport.UDPSendInterval > 0, "transport.udp_send_interval must be positive when UDP is enabled")
	}

	return errors.Join(errs...)
}

// applyEnvOverrides lets deployment environments override a small set of
// settings without editing the YAML file. Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Debugf("configuration: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Debugf("configuration: Overriding log_level from env: %s", val)
	}
	// ENV_USER_ID
	if val, ok := os.LookupEnv("ENV_USER_ID"); ok && val != "" {
		c.UserID = val
		applog.Debugf("configuration: Overriding user_id from env: %s", val)
	}
	// ENV_RESULTS_PATH
	if val, ok := os.LookupEnv("ENV_RESULTS_PATH"); ok && val != "" {
		c.Results.Path = val
		applog.Debugf("configuration: Overriding results.path from env: %s", val)
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		applog.Debugf("configuration: Overriding transport.websocket_address from env: %s", val)
	}

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			applog.Debugf("configuration: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Debugf("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			applog.Debugf("configuration: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
