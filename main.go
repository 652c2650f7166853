// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"specviz/cmd"
	"specviz/internal/audio"
	"specviz/internal/config"
	"specviz/internal/encode"
	"specviz/internal/log"
	"specviz/internal/render"
	"specviz/internal/transport"
	"specviz/internal/transport/udp"
	"specviz/internal/tui"
	"specviz/internal/visualizer"
	"specviz/pkg/build"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// main is the entry point for specviz.
// The program flow is divided into three phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands (list, version)
//   - Decode the audio file
//
// 2. Concurrent Phase:
//   - Open the transports, the playback or video sink, and the recorder
//   - Run the visualizer loop, optionally under the terminal view
//
// 3. Shutdown Phase:
//   - Handle termination signals
//   - Close sinks and transports, flushing the recording and the video
func main() {
	// ==================== STARTUP PHASE ====================

	if err := build.Initialize(); err != nil {
		log.Debugf("Build info not stamped: %v", err)
	}

	options, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	switch options.Command {
	case cmd.CommandNone:
		return
	case cmd.CommandVersion:
		fmt.Println(build.GetBuildFlags())
		return
	}

	configureLogging(options.Config)

	if options.Command == cmd.CommandList {
		if err := listDevices(options.Browse); err != nil {
			log.Fatalf("Listing devices: %v", err)
		}
		return
	}

	if err := play(options); err != nil {
		log.Fatalf("%v", err)
	}
}

func configureLogging(cfg *config.Config) {
	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		log.Warnf("Unknown log level %q, using info", cfg.LogLevel)
	}
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
}

func listDevices(browse bool) error {
	if browse {
		id, err := tui.StartDeviceListUI()
		if err != nil {
			return err
		}
		if id >= 0 {
			fmt.Printf("Selected device %d. Play on it with: %s --device %d <audio_file>\n",
				id, build.GetBuildFlags().Name, id)
		}
		return nil
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices(os.Stdout)
}

// outputs holds everything the run writes to, in close order.
type outputs struct {
	sink      audio.Sink
	video     *encode.VideoSink
	hub       *transport.Hub
	publisher *udp.UDPPublisher
	sender    *udp.UDPSender
}

func (o *outputs) Close() error {
	var errs []error
	if o.sink != nil {
		errs = append(errs, o.sink.Close())
	}
	if o.video != nil {
		errs = append(errs, o.video.Close())
	}
	if o.publisher != nil {
		errs = append(errs, o.publisher.Close())
	}
	if o.sender != nil {
		st := o.sender.Stats()
		log.Infof("UDP: %d packets sent to %s, %d dropped", st.Sent, o.sender.RemoteAddr(), st.Dropped)
		errs = append(errs, o.sender.Close())
	}
	if o.hub != nil {
		errs = append(errs, o.hub.Close())
	}
	return errors.Join(errs...)
}

func play(options *cmd.Options) (err error) {
	cfg := options.Config

	clip, err := audio.Decode(options.AudioFile)
	if err != nil {
		return err
	}
	log.Infof("Loaded %s: %d channel(s), %d Hz, %s",
		options.AudioFile, clip.Channels, clip.SampleRate, clip.Duration().Round(time.Millisecond))

	// ==================== CONCURRENT PHASE ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := &outputs{}
	defer func() {
		// ==================== SHUTDOWN PHASE ====================
		if cerr := out.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	encoding := cfg.Encode.Output != ""
	useTUI := cfg.Render.TUI && !options.Headless && !encoding && isatty.IsTerminal(os.Stdout.Fd())

	channels := 1
	if clip.Channels == 2 && !cfg.Render.ForceMono {
		channels = 2
	}
	if err := openTransports(cfg, channels, out); err != nil {
		return err
	}

	if err := openSinks(ctx, cfg, clip, options.AudioFile, out); err != nil {
		return err
	}

	vopts := visualizer.Options{Audio: out.sink}
	if out.video != nil {
		vopts.Video = out.video
	}
	if out.hub != nil {
		vopts.Publisher = out.hub
	}

	if !useTUI {
		v, err := visualizer.New(cfg, clip, vopts)
		if err != nil {
			return err
		}
		return ignoreCanceled(v.Run(ctx))
	}
	return runTUI(ctx, cfg, clip, options.AudioFile, vopts)
}

func openTransports(cfg *config.Config, channels int, out *outputs) error {
	var transports []transport.Transport
	if cfg.Transport.WebSocketAddr != "" {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
		if err != nil {
			return err
		}
		log.Infof("Serving frames on ws://%s/ws", ws.Addr())
		transports = append(transports, ws)
	}
	if cfg.Debug {
		transports = append(transports, transport.NewLoggingTransport())
	}
	if len(transports) == 0 && !cfg.Transport.UDPEnabled {
		return nil
	}
	out.hub = transport.NewHub(channels, transports...)

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		out.sender = sender
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, out.hub)
		if err != nil {
			return err
		}
		publisher.Start()
		out.publisher = publisher
		log.Infof("Sending frames over UDP to %s every %s",
			cfg.Transport.UDPTargetAddress, cfg.Transport.UDPSendInterval)
	}
	return nil
}

func openSinks(ctx context.Context, cfg *config.Config, clip *audio.Clip, audioPath string, out *outputs) error {
	var recorder audio.Sink
	if cfg.Audio.Record != "" {
		r, err := audio.NewRecorder(cfg.Audio.Record, clip.SampleRate, clip.Channels)
		if err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		recorder = r
		log.Infof("Recording to %s", cfg.Audio.Record)
	}

	if cfg.Encode.Output != "" {
		video, err := encode.NewVideoSink(ctx, encode.OptionsFromConfig(cfg, audioPath))
		if err != nil {
			if recorder != nil {
				recorder.Close()
			}
			return err
		}
		out.video = video
		if recorder != nil {
			out.sink = recorder
		}
		log.Infof("Encoding %dx%d@%d to %s", cfg.Render.Width, cfg.Render.Height, cfg.Render.FPS, cfg.Encode.Output)
		return nil
	}

	player, err := audio.NewSink(audio.SinkOptions{
		Backend:         cfg.Audio.Backend,
		DeviceID:        cfg.Audio.Device,
		SampleRate:      clip.SampleRate,
		Channels:        clip.Channels,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		LowLatency:      cfg.Audio.LowLatency,
	})
	if err != nil {
		if recorder != nil {
			recorder.Close()
		}
		return err
	}
	out.sink = audio.Tee(player, recorder)
	return nil
}

// runTUI runs the visualizer loop on its own goroutine while Bubble Tea owns
// the terminal. Quitting the view cancels the loop.
func runTUI(ctx context.Context, cfg *config.Config, clip *audio.Clip, audioPath string, vopts visualizer.Options) error {
	if cfg.Debug {
		f, err := tea.LogToFile("specviz-debug.log", "")
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}
	defer log.SetOutput(os.Stderr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	vopts.OnFrame = func(f visualizer.Frame) {
		p.Send(tui.FrameMsg{Frame: f.Clone()})
	}
	v, err := visualizer.New(cfg, clip, vopts)
	if err != nil {
		return err
	}

	// The view advances its own colorizer; the loop's belongs to the canvas.
	colors, err := render.NewColorizer(cfg.Render.Color, cfg.Render.HSV, cfg.Render.RGB, cfg.Render.WheelRate)
	if err != nil {
		return err
	}
	model := tui.NewSpectrumModel(cfg, filepath.Base(audioPath), clip.Duration(), v.Settings(), colors, v)
	p = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	runErr := make(chan error, 1)
	go func() {
		err := v.Run(ctx)
		p.Send(tui.DoneMsg{Err: err})
		runErr <- err
	}()

	final, perr := p.Run()
	cancel()
	loopErr := ignoreCanceled(<-runErr)
	if errors.Is(perr, tea.ErrProgramKilled) {
		perr = nil
	}
	if m, ok := final.(tui.SpectrumModel); ok && m.Err() != nil {
		loopErr = errors.Join(loopErr, ignoreCanceled(m.Err()))
	}
	return errors.Join(perr, loopErr)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
