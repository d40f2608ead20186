// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vlabsound/internal/analysis"
	"vlabsound/internal/audio"
	"vlabsound/internal/config"
	"vlabsound/internal/doppler"
	"vlabsound/internal/lab"
	"vlabsound/internal/render"
	"vlabsound/internal/results"
	"vlabsound/internal/transport"
	"vlabsound/internal/transport/udp"
)

// newBackend returns the audio backend experiments open devices on.
var newBackend = func() audio.Backend { return audio.PortAudioBackend{} }

// newClock returns the frame clock for the render loops.
var newClock = func(cfg *config.Config) render.Clock { return render.NewTickerClock(cfg.Render.FrameRate) }

// labRuntime is what every experiment command shares: the frame transport,
// the notice board and the result store.
type labRuntime struct {
	frames transport.Transport
	ws     *transport.WebSocketTransport
	board  *lab.NoticeBoard
	deps   lab.Deps
}

func (o *options) newRuntime() (*labRuntime, error) {
	cfg := o.cfg
	store, err := results.NewJSONStore(cfg.Results.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}

	rt := &labRuntime{}
	if cfg.Transport.WebSocketEnabled {
		rt.ws = transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		rt.frames = rt.ws
		o.printf("Viewer frames on ws://%s/ws\n", displayAddr(cfg.Transport.WebSocketAddress))
	} else {
		rt.frames = transport.NewLoggingTransport()
	}

	rt.board = lab.NewNoticeBoard(rt.frames)
	rt.deps = lab.Deps{
		Frames:      rt.frames,
		Store:       store,
		Identity:    results.StaticIdentity(cfg.UserID),
		Notifier:    rt.board,
		SaveTimeout: cfg.Results.SaveTimeout,
	}
	return rt, nil
}

// onControl routes viewer controls to handle. Without a websocket there
// are no controls.
func (rt *labRuntime) onControl(handle func(transport.Control) error) {
	if rt.ws == nil {
		return
	}
	rt.ws.OnControl(func(c transport.Control) {
		if err := handle(c); err != nil {
			logger.Warnf("Control '%s' rejected: %v", c.Param, err)
		}
	})
}

func (rt *labRuntime) close() {
	if err := rt.frames.Close(); err != nil {
		logger.Warnf("Error closing frame transport: %v", err)
	}
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func surfaceFor(cfg *config.Config) render.Surface {
	return render.NewSurface(cfg.Render.Width, cfg.Render.Height, cfg.Render.PixelRatio)
}

func newAnalyzeCommand(opts *options) *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show the live spectrum or waveform of the input device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			setString(cmd, "mode", &cfg.Analysis.Mode)

			mode, err := analysis.ParseMode(cfg.Analysis.Mode)
			if err != nil {
				return err
			}
			window, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
			if err != nil {
				return err
			}

			rt, err := opts.newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			session := lab.NewSoundAnalysis(newBackend(), rt.deps, lab.SoundAnalysisConfig{
				Capture: audio.CaptureConfig{
					Stream: audio.StreamParams{
						Device:          cfg.Audio.InputDevice,
						Channels:        cfg.Audio.InputChannels,
						SampleRate:      cfg.Audio.SampleRate,
						FramesPerBuffer: cfg.Audio.FramesPerBuffer,
						LowLatency:      cfg.Audio.LowLatency,
					},
					Tap: analysis.TapConfig{
						FFTSize:     cfg.Analysis.FFTSize,
						SampleRate:  cfg.Audio.SampleRate,
						Window:      window,
						Smoothing:   cfg.Analysis.Smoothing,
						MinDecibels: cfg.Analysis.MinDecibels,
						MaxDecibels: cfg.Analysis.MaxDecibels,
					},
					BitDepth: cfg.Recording.BitDepth,
				},
				Mode:         mode,
				Surface:      surfaceFor(cfg),
				Clock:        newClock(cfg),
				RecordingDir: cfg.Recording.OutputDir,
			})
			rt.onControl(session.HandleControl)

			ctx := cmd.Context()
			if err := session.Mount(ctx); err != nil {
				return err
			}

			if cfg.Transport.UDPEnabled {
				stop, err := startUDP(cfg, session.Capture().NewAnalysisReader())
				if err != nil {
					logger.Errorf("UDP output disabled: %v", err)
				} else {
					defer stop()
				}
			}

			if record {
				if err := session.StartRecording(); err != nil {
					logger.Errorf("Could not start recording: %v", err)
				}
			}

			opts.printf("Sound analysis running (%s). Press Ctrl+C to stop.\n", mode)
			<-ctx.Done()

			err = session.Unmount()
			session.WaitSaves()
			return err
		},
	}

	cmd.Flags().String("mode", "", "Visualization: spectrum or waveform")
	cmd.Flags().BoolVarP(&record, "record", "r", false, "Record from the start; saved when stopped")
	return cmd
}

// startUDP publishes the tap's spectrum over UDP until the returned stop
// function is called.
func startUDP(cfg *config.Config, reader analysis.FrameReader) (func(), error) {
	if reader == nil {
		return nil, audio.ErrNotOpen
	}
	sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
	if err != nil {
		return nil, err
	}
	pub, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, reader)
	if err != nil {
		sender.Close()
		return nil, err
	}
	pub.Start()
	return func() {
		pub.Stop()
		sender.Close()
	}, nil
}

func newDopplerCommand(opts *options) *cobra.Command {
	var play bool

	cmd := &cobra.Command{
		Use:   "doppler",
		Short: "Play a moving source past an observer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			setFloat(cmd, "speed", &cfg.Doppler.SourceSpeed)
			setFloat(cmd, "frequency", &cfg.Doppler.BaseFrequency)
			setFloat(cmd, "observer", &cfg.Doppler.ObserverPercent)
			setString(cmd, "shape", &cfg.Doppler.Shape)
			if err := cfg.Validate(); err != nil {
				return err
			}

			rt, err := opts.newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			out := audio.StreamParams{
				Device:          cfg.Audio.OutputDevice,
				Channels:        1,
				SampleRate:      cfg.Audio.SampleRate,
				FramesPerBuffer: cfg.Audio.FramesPerBuffer,
				LowLatency:      cfg.Audio.LowLatency,
			}
			session := lab.NewDoppler(lab.ToneOpener(newBackend(), out), rt.deps, lab.DopplerConfig{
				Params:  doppler.ParamsFromConfig(cfg.Doppler),
				Scene:   doppler.SceneFromConfig(cfg.Doppler),
				Surface: surfaceFor(cfg),
				Clock:   newClock(cfg),
			})
			rt.onControl(session.HandleControl)
			session.Mount()

			if play {
				if err := session.Play(); err != nil {
					session.Unmount()
					return err
				}
			}

			scene := session.Engine().Scene()
			opts.printf("Doppler scene: %s @ %.0f Hz, %.0f m/s, observer at %.0f%%. Press Ctrl+C to stop.\n",
				scene.Shape, scene.BaseFrequency, scene.SourceSpeed, scene.ObserverPercent)
			<-cmd.Context().Done()

			err = session.Unmount()
			session.WaitSaves()
			return err
		},
	}

	f := cmd.Flags()
	f.Float64("speed", 0, "Source speed in m/s (0-100)")
	f.Float64("frequency", 0, "Source frequency in Hz (220-880)")
	f.Float64("observer", 0, "Observer position in percent of the track (0-100)")
	f.String("shape", "", "Wave shape: sine, square, triangle or sawtooth")
	f.BoolVarP(&play, "play", "p", false, "Start the tone immediately")
	return cmd
}

func newWaveCommand(opts *options) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "wave",
		Short: "Preview a wave shape and optionally save it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			setFloat(cmd, "frequency", &cfg.Wave.Frequency)
			setFloat(cmd, "amplitude", &cfg.Wave.Amplitude)
			setString(cmd, "shape", &cfg.Wave.Shape)
			if err := cfg.Validate(); err != nil {
				return err
			}

			rt, err := opts.newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			gen := lab.NewWaveGenerator(rt.deps, surfaceFor(cfg), lab.WaveParamsFromConfig(cfg.Wave))
			rt.onControl(gen.HandleControl)
			gen.Render()

			p := gen.Params()
			opts.printf("Wave: %s, %.1f cycles, amplitude %.0f\n", p.Shape, p.Frequency, p.Amplitude)

			if save {
				gen.Save()
				gen.WaitSaves()
				if failed := saveFailures(rt.board); failed != nil {
					return failed
				}
				opts.printf("Saved for %s\n", rt.deps.Identity.CurrentUserID())
			}

			if rt.ws == nil {
				return nil
			}
			opts.printf("Adjust the wave from a viewer. Press Ctrl+C to stop.\n")
			<-cmd.Context().Done()
			gen.WaitSaves()
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64("frequency", 0, "Cycles across the preview (0.1-5)")
	f.Float64("amplitude", 0, "Amplitude (0-100)")
	f.String("shape", "", "Wave shape: sine, square, triangle or sawtooth")
	f.BoolVarP(&save, "save", "s", false, "Save the preview as a result")
	return cmd
}

// saveFailures joins the save notices on the board into one error.
func saveFailures(board *lab.NoticeBoard) error {
	var errs []error
	for _, n := range board.Active() {
		if n.Kind == lab.SaveNotice {
			errs = append(errs, errors.New(n.Message))
		}
	}
	return errors.Join(errs...)
}
